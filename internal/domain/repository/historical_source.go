package repository

import (
	"context"
	"time"

	"AlertEngine/internal/domain/models"
)

// HistoricalSource provides read-only access to candle history.
//
// from and to are optional; limit caps the number of most recent bars returned.
// Implementations return candles ascending by open time without duplicates.
type HistoricalSource interface {
	GetHistorical(ctx context.Context, symbol string, tf Timeframe, from, to *time.Time, limit int) ([]models.Candle, error)
}
