package repository

import (
	"time"

	"AlertEngine/internal/domain/models"
)

// Timeframe is the price service's candle resolution vocabulary.
type Timeframe string

const (
	TF1m  Timeframe = "T1M"
	TF5m  Timeframe = "T5M"
	TF15m Timeframe = "T15M"
	TF1h  Timeframe = "T1H"
	TF1d  Timeframe = "T1D"
)

// MapTimeframe converts a rule timeframe to the price service vocabulary.
func MapTimeframe(tf models.Timeframe) (Timeframe, bool) {
	switch tf {
	case models.M1:
		return TF1m, true
	case models.M5:
		return TF5m, true
	case models.M15:
		return TF15m, true
	case models.H1:
		return TF1h, true
	case models.D1:
		return TF1d, true
	default:
		return "", false
	}
}

// Duration returns the bar length of tf, or zero if unknown.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TF1m:
		return models.M1.Duration()
	case TF5m:
		return models.M5.Duration()
	case TF15m:
		return models.M15.Duration()
	case TF1h:
		return models.H1.Duration()
	case TF1d:
		return models.D1.Duration()
	default:
		return 0
	}
}
