package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"AlertEngine/pkg/logger"
)

var errMissingSymbol = errors.New("rule-created message without symbol")

// WatchlistAdder registers a symbol for prefetching upstream.
type WatchlistAdder interface {
	AddToWatchlist(ctx context.Context, symbol string, enabled bool, priority *int) error
}

// ruleCreated is the message published after a rule is committed.
type ruleCreated struct {
	RuleID   string `json:"ruleId"`
	Symbol   string `json:"symbol"`
	Enabled  *bool  `json:"enabled"`
	Priority *int   `json:"priority"`
}

// WatchlistHandler adds the symbol of every newly created rule to the price
// service watchlist. Errors are returned so the consumer can retry or DLQ.
type WatchlistHandler struct {
	topic string
	adder WatchlistAdder
	log   *logger.Logger
}

func NewWatchlistHandler(topic string, adder WatchlistAdder, log *logger.Logger) *WatchlistHandler {
	return &WatchlistHandler{topic: topic, adder: adder, log: log}
}

func (h *WatchlistHandler) Topic() string { return h.topic }

func (h *WatchlistHandler) Handle(ctx context.Context, b []byte) error {
	var m ruleCreated
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("decode rule-created: %w", err)
	}
	symbol := strings.ToUpper(strings.TrimSpace(m.Symbol))
	if symbol == "" {
		return errMissingSymbol
	}
	enabled := true
	if m.Enabled != nil {
		enabled = *m.Enabled
	}

	if err := h.adder.AddToWatchlist(ctx, symbol, enabled, m.Priority); err != nil {
		h.log.Warn("watchlist-add-failed",
			logger.String("symbol", symbol),
			logger.String("rule_id", m.RuleID),
			logger.Error(err))
		return err
	}
	h.log.Debug("watchlist-add", logger.String("symbol", symbol), logger.String("rule_id", m.RuleID))
	return nil
}
