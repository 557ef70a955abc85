package livehttp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// Error codes returned in the "error" field.
const (
	codeInvalidAmount        = "invalid_amount"
	codeInvalidSide          = "invalid_side"
	codeInvalidPrice         = "invalid_price"
	codeInsufficientFunds    = "insufficient_funds"
	codeInsufficientHoldings = "insufficient_holdings"
	codeInvalidThreshold     = "invalid_threshold"
	codeInvalidSnapshot      = "invalid_snapshot"
	codeInvalidRequest       = "invalid_request"
	codeRateLimited          = "rate_limited"
	codeUnavailable          = "unavailable"
	codeInternal             = "internal"
)

// TradeRequest accepts amount as a JSON number or a numeric string.
type TradeRequest struct {
	Side   string          `json:"side"`
	Amount json.RawMessage `json:"amount"`
}

type SizeRequest struct {
	Side    string          `json:"side"`
	Percent json.RawMessage `json:"percent"`
}

type BotRequest struct {
	Active        *bool           `json:"active"`
	TakeProfitPct json.RawMessage `json:"take_profit_pct"`
	StopLossPct   json.RawMessage `json:"stop_loss_pct"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// parseNumber reads a decimal from a JSON number or string literal.
func parseNumber(raw json.RawMessage) (decimal.Decimal, error) {
	if len(raw) == 0 {
		return decimal.Zero, fmt.Errorf("missing value")
	}
	res := gjson.ParseBytes(raw)
	var text string
	switch res.Type {
	case gjson.Number:
		text = res.Raw
	case gjson.String:
		text = strings.TrimSpace(res.Str)
	default:
		return decimal.Zero, fmt.Errorf("not a number: %s", string(raw))
	}
	return decimal.NewFromString(text)
}

// parseOptionalNumber returns nil when the field is absent or null.
func parseOptionalNumber(raw json.RawMessage) (*decimal.Decimal, error) {
	if len(raw) == 0 || gjson.ParseBytes(raw).Type == gjson.Null {
		return nil, nil
	}
	d, err := parseNumber(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
