package property

import (
	"strings"

	"github.com/yourorg/homely-api/internal/canon"
)

// Locator resolves typed addresses against a loaded property set.
// It is read-only after construction and safe for concurrent use.
type Locator struct {
	props []Property
	keys  []string
	index map[string]int
}

func NewLocator(props []Property) *Locator {
	l := &Locator{
		props: append([]Property(nil), props...),
		keys:  make([]string, len(props)),
		index: make(map[string]int, len(props)),
	}
	for i, p := range l.props {
		k := canon.MatchKey(p.Address)
		l.keys[i] = k
		// duplicates are kept; the first record owns the key
		if _, dup := l.index[k]; !dup {
			l.index[k] = i
		}
	}
	return l
}

// Find returns the first property whose address equals query after
// trimming and case folding. ok is false when nothing matches.
func (l *Locator) Find(query string) (Property, bool) {
	if l == nil {
		return Property{}, false
	}
	i, ok := l.index[canon.MatchKey(query)]
	if !ok {
		return Property{}, false
	}
	return l.props[i], true
}

// Suggest returns up to limit addresses starting with prefix, in load order.
func (l *Locator) Suggest(prefix string, limit int) []string {
	if l == nil {
		return nil
	}
	if limit <= 0 {
		limit = 10
	}
	p := canon.MatchKey(prefix)
	out := make([]string, 0, limit)
	for i, k := range l.keys {
		if len(out) == limit {
			break
		}
		if strings.HasPrefix(k, p) {
			out = append(out, l.props[i].Address)
		}
	}
	return out
}

func (l *Locator) Len() int {
	if l == nil {
		return 0
	}
	return len(l.props)
}
