package model

import "strings"

var symbolSeparators = strings.NewReplacer("-", "", "/", "", "_", "")

// NormalizeSymbol unifies exchange symbol formats into one (e.g. BTCUSDT).
func NormalizeSymbol(s string) string {
	return symbolSeparators.Replace(strings.ToUpper(strings.TrimSpace(s)))
}
