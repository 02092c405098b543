package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"AlertEngine/internal/domain/models"
	domrepo "AlertEngine/internal/domain/repository"
	pkgch "AlertEngine/pkg/clickhouse"
	applogger "AlertEngine/pkg/logger"
)

// CHCandleSource implements HistoricalSource over pre-aggregated candle
// tables named <database>.candles_<tf>.
type CHCandleSource struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

var _ domrepo.HistoricalSource = (*CHCandleSource)(nil)

func NewCHCandleSource(ch *pkgch.Client, database string, l *applogger.Logger) *CHCandleSource {
	return &CHCandleSource{db: ch.DB(), database: database, l: l}
}

// GetHistorical returns candles ascending. With no bounds it reads the latest
// limit bars; otherwise it reads the [from, to] range capped to limit.
func (s *CHCandleSource) GetHistorical(ctx context.Context, symbol string, tf domrepo.Timeframe, from, to *time.Time, limit int) ([]models.Candle, error) {
	start := time.Now()
	table, err := s.tableForTF(tf)
	if err != nil {
		return nil, err
	}
	q, args := buildCandleQuery(table, symbol, from, to, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse-candles-query-error",
			applogger.String("table", table),
			applogger.String("symbol", symbol),
			applogger.Error(err))
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, max(limit, 0))
	for rows.Next() {
		var (
			c   models.Candle
			vol sql.NullFloat64
		)
		if err := rows.Scan(&c.OpenTime, &c.Open, &c.High, &c.Low, &c.Close, &vol); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		c.OpenTime = c.OpenTime.UTC()
		if vol.Valid {
			v := vol.Float64
			c.Volume = &v
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	// newest first from the query; flip to ascending
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	s.l.Debug("clickhouse-candles-ok",
		applogger.String("table", table),
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)))
	return out, nil
}

func buildCandleQuery(table, symbol string, from, to *time.Time, limit int) (string, []any) {
	q := fmt.Sprintf("SELECT bucket, open, high, low, close, vol FROM %s WHERE symbol = ?", table)
	args := []any{symbol}
	if from != nil {
		q += " AND bucket >= ?"
		args = append(args, from.UTC())
	}
	if to != nil {
		q += " AND bucket <= ?"
		args = append(args, to.UTC())
	}
	q += " ORDER BY bucket DESC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	return q, args
}

func (s *CHCandleSource) tableForTF(tf domrepo.Timeframe) (string, error) {
	var suffix string
	switch tf {
	case domrepo.TF1m:
		suffix = "1m"
	case domrepo.TF5m:
		suffix = "5m"
	case domrepo.TF15m:
		suffix = "15m"
	case domrepo.TF1h:
		suffix = "1h"
	case domrepo.TF1d:
		suffix = "1d"
	default:
		return "", fmt.Errorf("unsupported timeframe: %s", tf)
	}
	return s.database + ".candles_" + suffix, nil
}
