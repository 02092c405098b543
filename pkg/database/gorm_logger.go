package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"AlertEngine/pkg/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// gormLogger routes gorm's SQL and diagnostic output through the service logger.
type gormLogger struct {
	log   *logger.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

func newGormLogger(log *logger.Logger, level gormlogger.LogLevel) *gormLogger {
	return &gormLogger{log: log, level: level, slow: slowQueryThreshold}
}

func (g *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *g
	c.level = level
	return &c
}

func (g *gormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Info {
		g.log.Info("gorm-info", logger.String("detail", fmt.Sprintf(msg, args...)))
	}
}

func (g *gormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Warn {
		g.log.Warn("gorm-warn", logger.String("detail", fmt.Sprintf(msg, args...)))
	}
}

func (g *gormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Error {
		g.log.Error("gorm-error", logger.String("detail", fmt.Sprintf(msg, args...)))
	}
}

// Trace logs failed queries at Error, slow ones at Warn and the rest at Debug
// when the level is Info. Record-not-found is an expected outcome and not logged.
func (g *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && g.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		g.log.Error("gorm-query-failed", logger.Error(err), logger.String("sql", sql),
			logger.Int64("rows", rows), logger.Duration("elapsed", elapsed))
	case g.slow > 0 && elapsed > g.slow && g.level >= gormlogger.Warn:
		sql, rows := fc()
		g.log.Warn("gorm-slow-query", logger.String("sql", sql),
			logger.Int64("rows", rows), logger.Duration("elapsed", elapsed))
	case g.level >= gormlogger.Info:
		sql, rows := fc()
		g.log.Debug("gorm-query", logger.String("sql", sql),
			logger.Int64("rows", rows), logger.Duration("elapsed", elapsed))
	}
}
