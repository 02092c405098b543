package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"AlertEngine/internal/domain/models"
	"AlertEngine/internal/evaluator"
	"AlertEngine/internal/pricedata"
	xlogger "AlertEngine/pkg/logger"
)

type fakeScheduler struct {
	running  atomic.Bool
	enabled  bool
	last     time.Time
	triggers atomic.Int32
}

func (f *fakeScheduler) Trigger(context.Context) bool {
	if !f.running.CompareAndSwap(false, true) {
		return false
	}
	f.triggers.Add(1)
	return true
}

func (f *fakeScheduler) Running() bool { return f.running.Load() }
func (f *fakeScheduler) Enabled() bool { return f.enabled }

func (f *fakeScheduler) LastSuccessfulExecution() (time.Time, bool) {
	return f.last, !f.last.IsZero()
}

type fakeQuotes struct {
	got []string
	err error
}

func (f *fakeQuotes) GetQuotes(_ context.Context, symbols []string) (map[string]models.Quote, error) {
	f.got = symbols
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]models.Quote, len(symbols))
	for _, s := range symbols {
		out[s] = models.Quote{Symbol: s, Last: decimal.NewFromInt(100)}
	}
	return out, nil
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, sched *fakeScheduler, quotes *fakeQuotes) *echo.Echo {
	t.Helper()
	reg, err := evaluator.NewRegistry(evaluator.DefaultBindings()...)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	e := echo.New()
	NewOpsHandler(xlogger.Nop(), sched, evaluator.NewCatalog(reg), quotes).RegisterRoutes(e)
	return e
}

func do(e *echo.Echo, method, target string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestHealthBeforeFirstCycle(t *testing.T) {
	e := newTestServer(t, &fakeScheduler{enabled: true}, &fakeQuotes{})

	rec, env := do(e, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var h HealthResponse
	if err := json.Unmarshal(env.Data, &h); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !h.Enabled || h.Running || h.LastSuccessfulCycle != nil {
		t.Fatalf("unexpected health: %+v", h)
	}
}

func TestHealthReportsLastSuccess(t *testing.T) {
	last := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	e := newTestServer(t, &fakeScheduler{last: last}, &fakeQuotes{})

	_, env := do(e, http.MethodGet, "/health")
	var h HealthResponse
	if err := json.Unmarshal(env.Data, &h); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if h.LastSuccessfulCycle == nil || !h.LastSuccessfulCycle.Equal(last) {
		t.Fatalf("lastSuccessfulCycle = %v", h.LastSuccessfulCycle)
	}
}

func TestTriggerCycle(t *testing.T) {
	sched := &fakeScheduler{enabled: true}
	e := newTestServer(t, sched, &fakeQuotes{})

	rec, _ := do(e, http.MethodPost, "/api/v1/cycles")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("first trigger status = %d", rec.Code)
	}
	rec, _ = do(e, http.MethodPost, "/api/v1/cycles")
	if rec.Code != http.StatusConflict {
		t.Fatalf("second trigger status = %d", rec.Code)
	}
	if sched.triggers.Load() != 1 {
		t.Fatalf("triggers = %d", sched.triggers.Load())
	}
}

func TestAlertKinds(t *testing.T) {
	e := newTestServer(t, &fakeScheduler{}, &fakeQuotes{})

	rec, env := do(e, http.MethodGet, "/api/v1/alert-kinds")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var cat evaluator.CatalogResponse
	if err := json.Unmarshal(env.Data, &cat); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cat.Version == "" || len(cat.Kinds) != 5 {
		t.Fatalf("unexpected catalog: version=%q kinds=%d", cat.Version, len(cat.Kinds))
	}
	etag := rec.Header().Get("ETag")
	if etag != `"`+cat.Version+`"` {
		t.Fatalf("etag = %q", etag)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alert-kinds", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Fatalf("conditional get status = %d", rec.Code)
	}
}

func TestQuotes(t *testing.T) {
	q := &fakeQuotes{}
	e := newTestServer(t, &fakeScheduler{}, q)

	rec, env := do(e, http.MethodGet, "/api/v1/quotes?symbols=aapl,%20MSFT,AAPL")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if len(q.got) != 2 || q.got[0] != "AAPL" || q.got[1] != "MSFT" {
		t.Fatalf("symbols = %v", q.got)
	}
	var out map[string]models.Quote
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := out["MSFT"]; !ok {
		t.Fatalf("missing MSFT: %v", out)
	}
}

func TestQuotesValidation(t *testing.T) {
	e := newTestServer(t, &fakeScheduler{}, &fakeQuotes{})

	rec, _ := do(e, http.MethodGet, "/api/v1/quotes")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	rec, _ = do(e, http.MethodGet, "/api/v1/quotes?symbols=,,")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestQuotesUpstreamFailure(t *testing.T) {
	e := newTestServer(t, &fakeScheduler{}, &fakeQuotes{err: &pricedata.Error{Kind: pricedata.KindServerError, Status: 503}})

	rec, _ := do(e, http.MethodGet, "/api/v1/quotes?symbols=AAPL")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}

	e = newTestServer(t, &fakeScheduler{}, &fakeQuotes{err: errors.New("boom")})
	rec, _ = do(e, http.MethodGet, "/api/v1/quotes?symbols=AAPL")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
}
