package collector

import "strings"

// quoteAssets are matched longest first so "TUSD" wins over "USD".
var quoteAssets = []string{"TUSD", "USDT", "USDC", "BUSD", "USD", "DAI"}

// NormalizeSymbol returns the BASE/QUOTE form of a pair, e.g. "btcusdt" -> "BTC/USDT".
// Unknown quotes fall back to the last four, then three, characters.
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if strings.Contains(s, "/") {
		return s
	}
	for _, q := range quoteAssets {
		if strings.HasSuffix(s, q) && len(s) > len(q) {
			return s[:len(s)-len(q)] + "/" + q
		}
	}
	switch {
	case len(s) > 4:
		return s[:len(s)-4] + "/" + s[len(s)-4:]
	case len(s) > 3:
		return s[:len(s)-3] + "/" + s[len(s)-3:]
	}
	return s
}

// ExchangeSymbol strips the separator, e.g. "BTC/USDT" -> "BTCUSDT".
func ExchangeSymbol(symbol string) string {
	return strings.ReplaceAll(NormalizeSymbol(symbol), "/", "")
}
