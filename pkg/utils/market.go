package utils

import (
	"time"

	"kiwoom-trader/internal/models"
)

// SeoulLocation is the timezone for Korean markets.
var SeoulLocation *time.Location

func init() {
	var err error
	SeoulLocation, err = time.LoadLocation("Asia/Seoul")
	if err != nil {
		// Fallback to UTC+9
		SeoulLocation = time.FixedZone("KST", 9*60*60)
	}
}

// BaseDateLayout is the yyyymmdd layout the broker uses for base_dt fields.
const BaseDateLayout = "20060102"

// GetMarketStatus returns the current KRX session.
func GetMarketStatus() models.MarketStatus {
	return MarketStatusAt(time.Now())
}

// MarketStatusAt returns the KRX session at t. Holidays are not modelled.
func MarketStatusAt(t time.Time) models.MarketStatus {
	now := t.In(SeoulLocation)

	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return models.MarketClosed
	}

	timeMinutes := now.Hour()*60 + now.Minute()

	switch {
	// Pre-open: 8:30 - 9:00
	case timeMinutes >= 510 && timeMinutes < 540:
		return models.MarketPreOpen
	// Continuous: 9:00 - 15:20
	case timeMinutes >= 540 && timeMinutes < 920:
		return models.MarketOpen
	// Closing auction: 15:20 - 15:30
	case timeMinutes >= 920 && timeMinutes < 930:
		return models.MarketClosingBid
	// After-hours closing price and single price: 15:40 - 18:00
	case timeMinutes >= 940 && timeMinutes < 1080:
		return models.MarketAfterHours
	}

	return models.MarketClosed
}

// IsMarketOpen returns true if continuous trading or the closing auction is running.
func IsMarketOpen() bool {
	status := GetMarketStatus()
	return status == models.MarketOpen || status == models.MarketClosingBid
}

// GetNextMarketOpen returns the next regular session opening after t.
func GetNextMarketOpen(t time.Time) time.Time {
	now := t.In(SeoulLocation)

	next := time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, SeoulLocation)
	if !now.Before(next) {
		next = next.AddDate(0, 0, 1)
	}

	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}

	return next
}

// BaseDate formats t as a broker base_dt in Seoul time.
func BaseDate(t time.Time) string {
	return t.In(SeoulLocation).Format(BaseDateLayout)
}

// Today returns today's base_dt.
func Today() string {
	return BaseDate(time.Now())
}
