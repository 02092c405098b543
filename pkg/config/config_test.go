package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const minimalYAML = `
database:
  dsn: "host=db user=a dbname=b"
price:
  base_url: http://prices
notification:
  base_url: http://notify
`

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !c.Scheduler.Enabled {
		t.Fatalf("scheduler should be enabled by default")
	}
	if c.Scheduler.Cadence != 60*time.Second {
		t.Fatalf("cadence = %v", c.Scheduler.Cadence)
	}
	if c.Scheduler.MaxParallelEvaluations != 4 || c.Scheduler.HistoryLookback != 200 {
		t.Fatalf("unexpected scheduler defaults: %+v", c.Scheduler)
	}
	if c.Price.Retries.Max != 3 || c.Price.Retries.BaseDelay != 200*time.Millisecond ||
		c.Price.Retries.MaxDelay != 2*time.Second || c.Price.Retries.Jitter != 150*time.Millisecond {
		t.Fatalf("unexpected retry defaults: %+v", c.Price.Retries)
	}
	if c.Notification.AlertPath != "/api/v1/notify/alert" || c.Notification.TemplateKey != "alert-default" {
		t.Fatalf("unexpected notification defaults: %+v", c.Notification)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"missing dsn":      "price:\n  base_url: http://p\nnotification:\n  transport: none\n",
		"zero parallelism": minimalYAML + "\nscheduler:\n  max_parallel_evaluations: 0\n",
		"kafka no brokers": "database:\n  dsn: x\nprice:\n  base_url: http://p\nnotification:\n  transport: kafka\n",
		"lock needs redis": minimalYAML + "\nscheduler:\n  lock:\n    enabled: true\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(minimalYAML), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("ALERTS_ENABLED", "false")
	t.Setenv("ALERTS_CADENCE", "15s")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_ADDR", "cache:6380")

	c, err := LoadWithEnv(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Scheduler.Enabled {
		t.Fatalf("ALERTS_ENABLED override not applied")
	}
	if c.Scheduler.Cadence != 15*time.Second {
		t.Fatalf("cadence = %v", c.Scheduler.Cadence)
	}
	if len(c.Kafka.Brokers) != 2 || c.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("brokers = %v", c.Kafka.Brokers)
	}
	if !c.Redis.Enabled || c.Redis.Host != "cache" || c.Redis.Port != 6380 {
		t.Fatalf("redis = %+v", c.Redis)
	}
}

func TestLoadWithEnvRejectsBadBool(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(minimalYAML), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("ALERTS_ENABLED", "maybe")
	if _, err := LoadWithEnv(path); err == nil {
		t.Fatalf("expected error for invalid ALERTS_ENABLED")
	}
}
