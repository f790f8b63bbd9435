// Package geo implements C3: proximity resolution against a user-configured
// geography of lowercased name stems.
package geo

import (
	"strings"

	"airraidengine/internal/domain/catalogue"
)

// UserGeography holds three sets of lowercased name stems. Immutable after
// startup; construct once via New and never mutate the result.
type UserGeography struct {
	Oblast  []string
	City    []string
	District []string
}

// New builds a UserGeography from raw (already-lowercased, already-split)
// stem lists. Callers are expected to case-fold and split on commas before
// calling this (see internal/infra/config).
func New(oblast, city, district []string) UserGeography {
	return UserGeography{
		Oblast:   append([]string(nil), oblast...),
		City:     append([]string(nil), city...),
		District: append([]string(nil), district...),
	}
}

// Empty reports whether no geography stems were configured at all.
func (g UserGeography) Empty() bool {
	return len(g.Oblast) == 0 && len(g.City) == 0 && len(g.District) == 0
}

// Resolution is the result of a proximity resolution pass.
type Resolution struct {
	Proximity  catalogue.Proximity
	Nationwide bool
}

// Resolve picks the proximity level whose longest matching stem is longest
// overall, breaking ties District > City > Oblast. A plain priority order
// (always prefer District, then City, then Oblast) would misfire on
// Ukrainian place names, where a city stem is frequently a textual prefix of
// its oblast's adjective form (e.g. "київ" is a substring of "київська" in
// "київська область"); picking the longest match instead means the more
// specific mention wins regardless of which level happens to share a root.
// Nationwide is resolved independently of proximity: a message can be both
// nationwide and have no local proximity match.
func Resolve(textLower string, g UserGeography) Resolution {
	nationwide := containsAny(textLower, catalogue.NationwideStems())

	district := longestMatch(textLower, g.District)
	city := longestMatch(textLower, g.City)
	oblast := longestMatch(textLower, g.Oblast)

	switch {
	case district >= city && district >= oblast && district > 0:
		return Resolution{Proximity: catalogue.ProximityDistrict, Nationwide: nationwide}
	case city >= oblast && city > 0:
		return Resolution{Proximity: catalogue.ProximityCity, Nationwide: nationwide}
	case oblast > 0:
		return Resolution{Proximity: catalogue.ProximityOblast, Nationwide: nationwide}
	default:
		return Resolution{Proximity: catalogue.ProximityNone, Nationwide: nationwide}
	}
}

// longestMatch returns the length of the longest stem in stems that appears
// in text, or 0 if none match.
func longestMatch(text string, stems []string) int {
	best := 0
	for _, stem := range stems {
		if stem == "" {
			continue
		}
		if len(stem) > best && strings.Contains(text, stem) {
			best = len(stem)
		}
	}
	return best
}

func containsAny(text string, stems []string) bool {
	for _, stem := range stems {
		if stem == "" {
			continue
		}
		if strings.Contains(text, stem) {
			return true
		}
	}
	return false
}
