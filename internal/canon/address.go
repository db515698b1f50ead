package canon

import (
	"strings"

	"golang.org/x/text/cases"
)

// MatchKey is the identity used to compare a typed address with a stored
// one: surrounding whitespace removed and Unicode case folded. Interior
// spacing and punctuation are kept, so matching stays exact.
func MatchKey(address string) string {
	// Casers keep state, so each call gets its own.
	return cases.Fold().String(strings.TrimSpace(address))
}
