package usecase

import (
	"context"
	"sort"
	"time"

	"AlertEngine/internal/domain/models"
	"AlertEngine/internal/domain/repository"
	"AlertEngine/pkg/config"
	"AlertEngine/pkg/logger"
	"AlertEngine/pkg/metrics"
)

// GroupFetcher loads one price series per (symbol, timeframe) group.
type GroupFetcher struct {
	source   repository.HistoricalSource
	lookback int
	metrics  repository.Metrics
	log      *logger.Logger
}

func NewGroupFetcher(source repository.HistoricalSource, cfg *config.Config, m repository.Metrics, log *logger.Logger) *GroupFetcher {
	return &GroupFetcher{
		source:   source,
		lookback: cfg.Scheduler.HistoryLookback,
		metrics:  m,
		log:      log,
	}
}

// LoadSeries returns nil when the timeframe is unsupported, the source
// returns nothing, or the fetch fails. It never returns an error.
func (f *GroupFetcher) LoadSeries(ctx context.Context, cycleID, symbol string, tf models.Timeframe) *models.PriceSeries {
	log := f.log.With(
		logger.String("cycle_id", cycleID),
		logger.String("symbol", symbol),
		logger.String("timeframe", string(tf)),
	)

	remoteTF, ok := repository.MapTimeframe(tf)
	if !ok {
		f.metrics.RecordError(metrics.CategoryUnsupportedTimeframe)
		log.Warn("alert-eval-group-unsupported")
		return nil
	}

	start := time.Now()
	candles, err := f.source.GetHistorical(ctx, symbol, remoteTF, nil, nil, f.lookback)
	f.metrics.RecordFetchLatency(time.Since(start))
	if err != nil {
		f.metrics.RecordError(metrics.CategoryPriceFetch)
		log.Error("alert-eval-group-fetch-error", logger.Error(err))
		return nil
	}
	if len(candles) == 0 {
		f.metrics.RecordError(metrics.CategoryEmptySeries)
		log.Info("alert-eval-group-empty")
		return nil
	}

	return &models.PriceSeries{Symbol: symbol, Timeframe: tf, Candles: normalize(candles)}
}

// normalize sorts ascending and drops repeated timestamps, keeping the first.
func normalize(candles []models.Candle) []models.Candle {
	sort.SliceStable(candles, func(i, j int) bool { return candles[i].OpenTime.Before(candles[j].OpenTime) })
	out := candles[:1]
	for _, c := range candles[1:] {
		if c.OpenTime.Equal(out[len(out)-1].OpenTime) {
			continue
		}
		out = append(out, c)
	}
	return out
}
