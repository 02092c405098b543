package models

import (
	"fmt"
	"time"
)

// AlertKind identifies the evaluator family of a rule.
type AlertKind string

const (
	KindPriceThreshold    AlertKind = "PRICE_THRESHOLD"
	KindPctChange         AlertKind = "PCT_CHANGE"
	KindMaCross           AlertKind = "MA_CROSS"
	KindRSI               AlertKind = "RSI"
	KindVolumeSpike       AlertKind = "VOLUME_SPIKE"
	KindATRBreakout       AlertKind = "ATR_BREAKOUT"
	KindTrailingStop      AlertKind = "TRAILING_STOP"
	KindBBTouch           AlertKind = "BB_TOUCH"
	KindMACDCross         AlertKind = "MACD_CROSS"
	KindGapSession        AlertKind = "GAP_SESSION"
	KindDrawdownFromMax   AlertKind = "DRAWDOWN_FROM_MAX"
	KindCandlePattern     AlertKind = "CANDLE_PATTERN"
	KindPositionPnL       AlertKind = "POSITION_PNL"
	KindPortfolioDrawdown AlertKind = "PORTFOLIO_DRAWDOWN"
	KindRebalanceDrift    AlertKind = "REBALANCE_DRIFT"
	KindEarningsWindow    AlertKind = "EARNINGS_WINDOW"
	KindNewsSentiment     AlertKind = "NEWS_SENTIMENT"
)

// Timeframe is the sampling granularity of a rule.
type Timeframe string

const (
	M1  Timeframe = "M1"
	M5  Timeframe = "M5"
	M15 Timeframe = "M15"
	H1  Timeframe = "H1"
	D1  Timeframe = "D1"
)

// Timeframes lists every supported timeframe in ascending duration.
var Timeframes = []Timeframe{M1, M5, M15, H1, D1}

// Duration returns the bar length of the timeframe, or zero if unknown.
func (t Timeframe) Duration() time.Duration {
	switch t {
	case M1:
		return time.Minute
	case M5:
		return 5 * time.Minute
	case M15:
		return 15 * time.Minute
	case H1:
		return time.Hour
	case D1:
		return 24 * time.Hour
	}
	return 0
}

func (t Timeframe) Valid() bool { return t.Duration() > 0 }

// ParseTimeframe parses the enum name of a timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if !tf.Valid() {
		return "", fmt.Errorf("unknown timeframe %q", s)
	}
	return tf, nil
}

type RuleStatus string

const (
	RuleActive   RuleStatus = "ACTIVE"
	RulePaused   RuleStatus = "PAUSED"
	RuleDisabled RuleStatus = "DISABLED"
)

// Severity is the ordinal importance of an alert.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Rank orders severities: INFO < WARNING < CRITICAL. Unknown values rank lowest.
func (s Severity) Rank() int {
	switch s {
	case SeverityWarning:
		return 1
	case SeverityCritical:
		return 2
	}
	return 0
}
