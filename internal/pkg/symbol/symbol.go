// Package symbol parses BASE/QUOTE pair names.
package symbol

import (
	"strings"
)

// Symbol is a trading pair such as BTC/USD.
type Symbol struct {
	Base  string
	Quote string
}

var knownQuotes = []string{"USDT", "USDC", "USD", "EUR", "BTC", "ETH"}

// String renders the canonical BASE/QUOTE form, or "" when incomplete.
func (s Symbol) String() string {
	if s.Base == "" || s.Quote == "" {
		return ""
	}
	return s.Base + "/" + s.Quote
}

func (s Symbol) Valid() bool {
	return s.Base != "" && s.Quote != ""
}

// Parse accepts "btc/usd", "BTC-USD" and "BTCUSD" (when the quote is a known
// currency). Unparseable input yields the zero Symbol.
func Parse(s string) Symbol {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Symbol{}
	}
	for _, sep := range []string{"/", "-", "_"} {
		if parts := strings.SplitN(s, sep, 2); len(parts) == 2 {
			base, quote := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
			if base == "" || quote == "" {
				return Symbol{}
			}
			return Symbol{Base: base, Quote: quote}
		}
	}
	for _, quote := range knownQuotes {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return Symbol{Base: s[:len(s)-len(quote)], Quote: quote}
		}
	}
	return Symbol{}
}

// Normalize returns the canonical form of s, or "" when it does not parse.
func Normalize(s string) string {
	return Parse(s).String()
}

func IsValid(s string) bool {
	return Parse(s).Valid()
}
