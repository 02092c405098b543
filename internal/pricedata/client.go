package pricedata

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"AlertEngine/internal/domain/models"
	"AlertEngine/internal/domain/repository"
	"AlertEngine/internal/service/ratelimit"
	"AlertEngine/pkg/config"
	xhttp "AlertEngine/pkg/http"
	"AlertEngine/pkg/logger"
)

const defaultHistoryWindow = 365 * 24 * time.Hour

// LatencyRecorder receives per-endpoint request latency.
type LatencyRecorder interface {
	RecordClientLatency(endpoint string, d time.Duration)
}

// Client talks to the price data service. It implements repository.HistoricalSource.
type Client struct {
	http     *xhttp.Client
	baseURL  string
	tokens   TokenSource
	retry    RetryPolicy
	throttle *ratelimit.Throttle
	metrics  LatencyRecorder
	log      *logger.Logger
	now      func() time.Time
}

var _ repository.HistoricalSource = (*Client)(nil)

func NewClient(cfg *config.Config, tokens TokenSource, limiter *ratelimit.Limiter, metrics LatencyRecorder, log *logger.Logger) *Client {
	pc := cfg.Price
	return &Client{
		http: xhttp.NewClient(
			xhttp.WithConnectTimeout(pc.ConnectTimeout),
			xhttp.WithReadTimeout(pc.ReadTimeout),
			xhttp.WithTimeout(pc.ConnectTimeout+pc.ReadTimeout),
		),
		baseURL:  strings.TrimSuffix(pc.BaseURL, "/"),
		tokens:   tokens,
		retry:    NewRetryPolicy(pc.Retries.Max, pc.Retries.BaseDelay, pc.Retries.MaxDelay, pc.Retries.Jitter),
		throttle: ratelimit.NewThrottle(limiter, "pricedata", pc.RateLimit.RPS, pc.RateLimit.Burst),
		metrics:  metrics,
		log:      log,
		now:      time.Now,
	}
}

type candleItem struct {
	Ts       time.Time        `json:"ts"`
	O        decimal.Decimal  `json:"o"`
	H        decimal.Decimal  `json:"h"`
	L        decimal.Decimal  `json:"l"`
	C        decimal.Decimal  `json:"c"`
	V        *decimal.Decimal `json:"v"`
	Adjusted bool             `json:"adjusted"`
}

type candleSeries struct {
	Symbol    string       `json:"symbol"`
	Timeframe string       `json:"timeframe"`
	Items     []candleItem `json:"items"`
}

type quoteItem struct {
	Symbol    string           `json:"symbol"`
	Last      decimal.Decimal  `json:"last"`
	Ts        time.Time        `json:"ts"`
	Open      *decimal.Decimal `json:"open"`
	High      *decimal.Decimal `json:"high"`
	Low       *decimal.Decimal `json:"low"`
	PrevClose *decimal.Decimal `json:"prevClose"`
	Currency  string           `json:"currency"`
	Source    string           `json:"source"`
	Stale     bool             `json:"stale"`
}

type watchlistRequest struct {
	Symbol   string `json:"symbol"`
	Enabled  bool   `json:"enabled"`
	Priority *int   `json:"priority"`
}

// GetHistorical fetches candles for symbol. When from is nil it is derived
// from limit bars before to (or a year when limit is not positive). The result
// is ascending, unique by timestamp and holds at most the last limit bars.
func (c *Client) GetHistorical(ctx context.Context, symbol string, tf repository.Timeframe, from, to *time.Time, limit int) ([]models.Candle, error) {
	end := c.now().UTC()
	if to != nil {
		end = to.UTC()
	}
	start := end.Add(-defaultHistoryWindow)
	switch {
	case from != nil:
		start = from.UTC()
	case limit > 0 && tf.Duration() > 0:
		start = end.Add(-tf.Duration() * time.Duration(limit))
	}

	var raw candleSeries
	err := c.get(ctx, "/historical", "historical", url.Values{
		"symbol":   {symbol},
		"from":     {start.Format(time.RFC3339)},
		"to":       {end.Format(time.RFC3339)},
		"tf":       {string(tf)},
		"adjusted": {"true"},
	}, &raw)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(raw.Items))
	out := make([]models.Candle, 0, len(raw.Items))
	for _, it := range raw.Items {
		key := it.Ts.UnixNano()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it.toCandle())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OpenTime.Before(out[j].OpenTime) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (it candleItem) toCandle() models.Candle {
	c := models.Candle{
		OpenTime: it.Ts.UTC(),
		Open:     it.O.InexactFloat64(),
		High:     it.H.InexactFloat64(),
		Low:      it.L.InexactFloat64(),
		Close:    it.C.InexactFloat64(),
	}
	if it.V != nil {
		v := it.V.InexactFloat64()
		c.Volume = &v
	}
	return c
}

// GetQuotes fetches the latest quotes in one batch. If the batch is rejected
// as NOT_FOUND it falls back to one request per symbol, dropping symbols that
// are individually NOT_FOUND or BAD_REQUEST.
func (c *Client) GetQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error) {
	if len(symbols) == 0 {
		return nil, &Error{Kind: KindBadRequest, Message: "symbols must not be empty"}
	}

	var batch []quoteItem
	err := c.get(ctx, "/quotes", "quotes", url.Values{"symbols": {strings.Join(symbols, ",")}}, &batch)
	if err == nil {
		out := make(map[string]models.Quote, len(batch))
		for _, q := range batch {
			out[q.Symbol] = q.toQuote()
		}
		return out, nil
	}
	if !IsKind(err, KindNotFound) {
		return nil, err
	}

	out := make(map[string]models.Quote, len(symbols))
	for _, s := range symbols {
		var one []quoteItem
		err := c.get(ctx, "/quotes", "quotes", url.Values{"symbols": {s}}, &one)
		if err != nil {
			if IsKind(err, KindNotFound) || IsKind(err, KindBadRequest) {
				c.log.Debug("quote-symbol-skipped", logger.String("symbol", s), logger.Error(err))
				continue
			}
			return nil, err
		}
		if len(one) > 0 {
			out[one[0].Symbol] = one[0].toQuote()
		}
	}
	return out, nil
}

func (q quoteItem) toQuote() models.Quote {
	return models.Quote{
		Symbol:    q.Symbol,
		Last:      q.Last,
		AsOf:      q.Ts.UTC(),
		Open:      q.Open,
		High:      q.High,
		Low:       q.Low,
		PrevClose: q.PrevClose,
		Currency:  q.Currency,
		Source:    q.Source,
		Stale:     q.Stale,
	}
}

// AddToWatchlist registers symbol for prefetching. A 400 whose body says the
// symbol already exists is treated as success.
func (c *Client) AddToWatchlist(ctx context.Context, symbol string, enabled bool, priority *int) error {
	start := time.Now()
	defer func() { c.metrics.RecordClientLatency("watchlist", time.Since(start)) }()

	if err := c.throttle.Wait(ctx); err != nil {
		return classify(err)
	}
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     c.baseURL + "/watchlist",
		Headers: c.headers(c.tokens.Token(ctx)),
		Body:    watchlistRequest{Symbol: symbol, Enabled: enabled, Priority: priority},
	}, nil)
	if err == nil {
		return nil
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) && se.StatusCode == 400 && strings.Contains(strings.ToLower(string(se.Body)), "exists") {
		return nil
	}
	return classify(err)
}

func (c *Client) get(ctx context.Context, path, endpoint string, query url.Values, dest any) error {
	start := time.Now()
	defer func() { c.metrics.RecordClientLatency(endpoint, time.Since(start)) }()

	token := c.tokens.Token(ctx)
	attempt := 0
	return c.retry.Do(ctx, func(ctx context.Context) error {
		attempt++
		if err := c.throttle.Wait(ctx); err != nil {
			return classify(err)
		}
		err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:      xhttp.MethodGet,
			URL:         c.baseURL + path,
			Headers:     c.headers(token),
			QueryParams: query,
		}, dest)
		if err != nil {
			err = classify(err)
			c.log.Debug("pricedata-request-failed",
				logger.String("endpoint", endpoint),
				logger.Int("attempt", attempt),
				logger.Error(err))
		}
		return err
	})
}

func (c *Client) headers(token string) map[string]string {
	h := map[string]string{"Accept": "application/json"}
	if token != "" {
		h["Authorization"] = "Bearer " + token
	}
	return h
}
