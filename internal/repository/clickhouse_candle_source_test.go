package repository

import (
	"strings"
	"testing"
	"time"

	domrepo "AlertEngine/internal/domain/repository"
)

func TestCHTableForTF(t *testing.T) {
	s := &CHCandleSource{database: "market"}
	cases := map[domrepo.Timeframe]string{
		domrepo.TF1m:  "market.candles_1m",
		domrepo.TF5m:  "market.candles_5m",
		domrepo.TF15m: "market.candles_15m",
		domrepo.TF1h:  "market.candles_1h",
		domrepo.TF1d:  "market.candles_1d",
	}
	for tf, want := range cases {
		got, err := s.tableForTF(tf)
		if err != nil || got != want {
			t.Fatalf("tableForTF(%s) = %q, %v; want %q", tf, got, err, want)
		}
	}
	if _, err := s.tableForTF("T4H"); err == nil {
		t.Fatal("expected error for unknown timeframe")
	}
}

func TestBuildCandleQuery(t *testing.T) {
	q, args := buildCandleQuery("market.candles_1d", "AAPL", nil, nil, 50)
	if strings.Contains(q, "bucket >=") || strings.Contains(q, "bucket <=") {
		t.Fatalf("unexpected range filter: %s", q)
	}
	if !strings.HasSuffix(q, "ORDER BY bucket DESC LIMIT ?") {
		t.Fatalf("unexpected query: %s", q)
	}
	if len(args) != 2 || args[0] != "AAPL" || args[1] != 50 {
		t.Fatalf("unexpected args: %v", args)
	}

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(48 * time.Hour)
	q, args = buildCandleQuery("market.candles_1d", "AAPL", &from, &to, 0)
	if !strings.Contains(q, "bucket >= ?") || !strings.Contains(q, "bucket <= ?") {
		t.Fatalf("missing range filter: %s", q)
	}
	if strings.Contains(q, "LIMIT") {
		t.Fatalf("unexpected limit: %s", q)
	}
	if len(args) != 3 {
		t.Fatalf("unexpected args: %v", args)
	}
}
