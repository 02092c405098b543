package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"AlertEngine/pkg/logger"
)

func newFileLogger(t *testing.T) (*logger.Logger, func() string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gorm.log")
	l, err := logger.New(&logger.Config{Level: "debug", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	return l, func() string {
		b, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read log: %v", err)
		}
		return string(b)
	}
}

func query(sql string) func() (string, int64) {
	return func() (string, int64) { return sql, 1 }
}

func TestGormLoggerTrace(t *testing.T) {
	l, read := newFileLogger(t)
	g := newGormLogger(l, gormlogger.Warn)

	g.Trace(context.Background(), time.Now(), query("INSERT INTO alert_event"), errors.New("duplicate key"))
	g.Trace(context.Background(), time.Now(), query("SELECT missing"), gorm.ErrRecordNotFound)
	g.Trace(context.Background(), time.Now().Add(-time.Second), query("SELECT slow"), nil)
	g.Trace(context.Background(), time.Now(), query("SELECT fast"), nil)

	out := read()
	for _, want := range []string{`"message":"gorm-query-failed"`, `"error":"duplicate key"`, `INSERT INTO alert_event`, `"message":"gorm-slow-query"`, `SELECT slow`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in %s", want, out)
		}
	}
	for _, unwanted := range []string{"SELECT missing", "SELECT fast"} {
		if strings.Contains(out, unwanted) {
			t.Fatalf("%s should not be logged at warn level: %s", unwanted, out)
		}
	}
}

func TestGormLoggerSilentMode(t *testing.T) {
	l, read := newFileLogger(t)
	g := newGormLogger(l, gormlogger.Info).LogMode(gormlogger.Silent)

	g.Trace(context.Background(), time.Now(), query("INSERT INTO alert_event"), errors.New("boom"))
	g.Warn(context.Background(), "pool %s", "exhausted")

	if out := read(); out != "" {
		t.Fatalf("silent mode should not log, got %s", out)
	}
}

func TestGormLoggerInfoLevelLogsQueries(t *testing.T) {
	l, read := newFileLogger(t)
	g := newGormLogger(l, gormlogger.Info)

	g.Trace(context.Background(), time.Now(), query("SELECT 1"), nil)
	g.Info(context.Background(), "migrated %d tables", 2)

	out := read()
	for _, want := range []string{`"message":"gorm-query"`, `SELECT 1`, `migrated 2 tables`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in %s", want, out)
		}
	}
}
