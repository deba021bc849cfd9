package teetime

import "strings"

// Tier ranks how desirable a slot label is. Higher is better.
type Tier int

const (
	TierNone Tier = iota
	TierSecondary
	TierPrimary
)

func (t Tier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	default:
		return "none"
	}
}

// Mark is a set of substrings that must all appear in a normalized slot label
// for the mark to match. Labels come from portal markup we don't control, so
// matching is substring containment, never equality.
type Mark []string

func (m Mark) matches(label string) bool {
	for _, part := range m {
		if !strings.Contains(label, part) {
			return false
		}
	}
	return true
}

// Policy maps slot labels onto tiers.
type Policy struct {
	Primary   []Mark
	Secondary []Mark
}

// DefaultPolicy is the league's preference window: the three quarter-hour
// marks from 4:15 PM are first choice, 5:00 PM through 5:45 PM second choice.
func DefaultPolicy() Policy {
	return Policy{
		Primary: []Mark{
			{"4:15", "pm"},
			{"4:30", "pm"},
			{"4:45", "pm"},
		},
		Secondary: []Mark{
			{"5:00", "pm"},
			{"5:15", "pm"},
			{"5:30", "pm"},
			{"5:45", "pm"},
		},
	}
}

// Score returns the tier of a raw slot label. Case-insensitive and tolerant
// of surrounding whitespace.
func (p Policy) Score(rawLabel string) Tier {
	label := strings.ToLower(strings.TrimSpace(rawLabel))
	for _, m := range p.Primary {
		if m.matches(label) {
			return TierPrimary
		}
	}
	for _, m := range p.Secondary {
		if m.matches(label) {
			return TierSecondary
		}
	}
	return TierNone
}
