// Package reconcile implements the geometry reconciliation engine: priority
// based polygon overlay, connectivity-aware dissolve, and exclusion-mask
// clipping. Every pipeline stage that has to turn overlapping survey layers
// into a topologically clean, non-overlapping feature set goes through this
// package.
package reconcile

import (
	"fmt"
)

// Wildcard matches every feature type not named in any tier. Placing it in a
// tier gives all remaining types that tier's priority.
const Wildcard = "*"

// TypePriority is a total order over feature-type categories, declared as
// tiers from highest to lowest priority. Types within one tier are equal
// priority: they are never cut against each other, and residual overlaps
// between them are reported instead.
//
// Types that appear in no tier (and no Wildcard tier exists) are exempt:
// they neither cut nor get cut.
type TypePriority struct {
	rank     map[string]int
	wildcard int
}

// NewTypePriority builds a priority order from tiers, highest priority
// first. A type listed twice is an error: the order must be unambiguous.
func NewTypePriority(tiers [][]string) (*TypePriority, error) {
	p := &TypePriority{
		rank:     make(map[string]int),
		wildcard: -1,
	}
	for tier, types := range tiers {
		for _, t := range types {
			if t == Wildcard {
				if p.wildcard >= 0 {
					return nil, fmt.Errorf("priority order lists %q twice", Wildcard)
				}
				p.wildcard = tier
				continue
			}
			if _, dup := p.rank[t]; dup {
				return nil, fmt.Errorf("priority order lists type %q twice", t)
			}
			p.rank[t] = tier
		}
	}
	return p, nil
}

// Rank returns the tier of a type (0 is highest priority). ok is false when
// the type is exempt from priority resolution.
func (p *TypePriority) Rank(t string) (rank int, ok bool) {
	if r, found := p.rank[t]; found {
		return r, true
	}
	if p.wildcard >= 0 {
		return p.wildcard, true
	}
	return 0, false
}

// Cuts reports whether an overlay of type a takes precedence over (and
// therefore cuts) a target of type b. Equal or exempt types never cut.
func (p *TypePriority) Cuts(a, b string) bool {
	ra, okA := p.Rank(a)
	rb, okB := p.Rank(b)
	return okA && okB && ra < rb
}
