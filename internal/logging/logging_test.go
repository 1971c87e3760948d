package logging

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewLoggerWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "trader.log")
	logger := NewLoggerWithConfig(LogConfig{
		Level:    "info",
		File:     true,
		FilePath: path,
		MaxSize:  1,
	})

	logger.Info().Str("strategy", "AfterHoursStrategy").Msg("run started")
	logger.Debug().Msg("hidden at info")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), `"strategy":"AfterHoursStrategy"`) {
		t.Fatalf("expected structured field in log file, got %s", data)
	}
	if strings.Contains(string(data), "hidden at info") {
		t.Fatalf("debug line must be filtered at info level")
	}
}

func TestConsoleWriterUsesConfiguredOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithConfig(LogConfig{Level: "debug", Console: true, Out: &buf})

	LogAPICall(logger, "ka10095", "/api/dostk/stkinfo", 15*time.Millisecond, errors.New("boom"))

	out := buf.String()
	if !strings.Contains(out, "API call failed") || !strings.Contains(out, "ka10095") {
		t.Fatalf("unexpected console output: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"warn":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
		"":      zerolog.InfoLevel,
		"loud":  zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := WithLogger(context.Background(), WithStrategy(logger, "AfterHoursStrategy"))
	l := FromContext(ctx)
	l.Info().Msg("hello")

	if !strings.Contains(buf.String(), `"strategy":"AfterHoursStrategy"`) {
		t.Fatalf("expected strategy field, got %s", buf.String())
	}

	// A bare context yields a no-op logger.
	_, ok := LoggerFrom(context.Background())
	if ok {
		t.Fatal("bare context should carry no logger")
	}
	nop := FromContext(context.Background())
	nop.Info().Msg("dropped")
	if nop.GetLevel() != zerolog.Disabled {
		t.Fatalf("expected disabled logger, got level %s", nop.GetLevel())
	}
}

func TestLogOrderFields(t *testing.T) {
	var buf bytes.Buffer
	LogOrder(zerolog.New(&buf), "0000123", "005930", "BUY", 10, true)

	for _, want := range []string{`"order_no":"0000123"`, `"quantity":10`, `"dry_run":true`} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("missing %s in %s", want, buf.String())
		}
	}
}
