package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one OHLCV bar. Volume is nil when the source did not report it.
type Candle struct {
	OpenTime time.Time `json:"openTime"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   *float64  `json:"volume,omitempty"`
}

// PriceSeries holds candles ascending by OpenTime with no duplicate timestamps.
type PriceSeries struct {
	Symbol    string
	Timeframe Timeframe
	Candles   []Candle
}

// Last returns the most recent candle.
func (s *PriceSeries) Last() (Candle, bool) {
	if s == nil || len(s.Candles) == 0 {
		return Candle{}, false
	}
	return s.Candles[len(s.Candles)-1], true
}

func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Candles)
}

// Quote is the latest price snapshot of a symbol.
type Quote struct {
	Symbol    string           `json:"symbol"`
	Last      decimal.Decimal  `json:"last"`
	AsOf      time.Time        `json:"asOf"`
	Open      *decimal.Decimal `json:"open,omitempty"`
	High      *decimal.Decimal `json:"high,omitempty"`
	Low       *decimal.Decimal `json:"low,omitempty"`
	PrevClose *decimal.Decimal `json:"prevClose,omitempty"`
	Currency  string           `json:"currency,omitempty"`
	Source    string           `json:"source,omitempty"`
	Stale     bool             `json:"stale"`
}
