package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kiwoom-trader/internal/models"
)

func TestFormatWon(t *testing.T) {
	cases := map[int64]string{
		0:        "₩0",
		999:      "₩999",
		1000:     "₩1,000",
		100000:   "₩100,000",
		1234567:  "₩1,234,567",
		-2500000: "-₩2,500,000",
	}
	for in, want := range cases {
		if got := FormatWon(in); got != want {
			t.Errorf("FormatWon(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatRate(t *testing.T) {
	if got := FormatRate(decimal.RequireFromString("12.5")); got != "+12.50%" {
		t.Fatalf("got %q", got)
	}
	if got := FormatRate(decimal.RequireFromString("-3")); got != "-3.00%" {
		t.Fatalf("got %q", got)
	}
}

func TestMaskAccount(t *testing.T) {
	if got := MaskAccount("8012345678"); got != "******5678" {
		t.Fatalf("got %q", got)
	}
	if got := MaskAccount("123"); got != "123" {
		t.Fatalf("got %q", got)
	}
}

func TestMarketStatusAt(t *testing.T) {
	// 2026-10-15 is a Thursday.
	at := func(h, m int) time.Time {
		return time.Date(2026, 10, 15, h, m, 0, 0, SeoulLocation)
	}
	cases := []struct {
		t    time.Time
		want models.MarketStatus
	}{
		{at(8, 0), models.MarketClosed},
		{at(8, 45), models.MarketPreOpen},
		{at(9, 0), models.MarketOpen},
		{at(15, 25), models.MarketClosingBid},
		{at(15, 35), models.MarketClosed},
		{at(16, 30), models.MarketAfterHours},
		{at(18, 0), models.MarketClosed},
		{time.Date(2026, 10, 17, 10, 0, 0, 0, SeoulLocation), models.MarketClosed},
	}
	for _, c := range cases {
		if got := MarketStatusAt(c.t); got != c.want {
			t.Errorf("MarketStatusAt(%s) = %s, want %s", c.t.Format("Mon 15:04"), got, c.want)
		}
	}
}

func TestGetNextMarketOpenSkipsWeekend(t *testing.T) {
	friday := time.Date(2026, 10, 16, 17, 0, 0, 0, SeoulLocation)
	next := GetNextMarketOpen(friday)
	if next.Weekday() != time.Monday || next.Hour() != 9 {
		t.Fatalf("expected Monday 09:00, got %s", next)
	}
}

func TestBaseDate(t *testing.T) {
	utc := time.Date(2026, 10, 16, 20, 0, 0, 0, time.UTC)
	if got := BaseDate(utc); got != "20261017" {
		t.Fatalf("got %s", got)
	}
}
