package trading

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"kiwoom-trader/internal/models"
	"kiwoom-trader/internal/strategy"
)

// ScanRecorder decorates a QuoteSource and journals every after-hours
// ranking result for the run.
type ScanRecorder struct {
	strategy.QuoteSource
	journal Journal
	runID   string
	logger  zerolog.Logger
	now     func() time.Time
}

// NewScanRecorder wraps quotes. With a nil journal it only forwards.
func NewScanRecorder(quotes strategy.QuoteSource, journal Journal, runID string, logger zerolog.Logger) *ScanRecorder {
	return &ScanRecorder{
		QuoteSource: quotes,
		journal:     journal,
		runID:       runID,
		logger:      logger,
		now:         time.Now,
	}
}

// AfterHoursRank forwards the scan and records its candidates.
func (s *ScanRecorder) AfterHoursRank(ctx context.Context, minRate float64) ([]models.HighFlyer, error) {
	flyers, err := s.QuoteSource.AfterHoursRank(ctx, minRate)
	if err != nil || s.journal == nil || len(flyers) == 0 {
		return flyers, err
	}

	scannedAt := s.now()
	records := make([]models.ScanRecord, len(flyers))
	for i, f := range flyers {
		records[i] = models.ScanRecord{
			RunID:      s.runID,
			Code:       f.Code,
			Name:       f.Name,
			ChangeRate: f.ChangeRate,
			Price:      f.Price,
			MinRate:    minRate,
			ScannedAt:  scannedAt,
		}
	}
	if jerr := s.journal.SaveScan(ctx, records); jerr != nil {
		s.logger.Warn().Err(jerr).Int("candidates", len(records)).Msg("Failed to journal scan")
	}
	return flyers, nil
}
