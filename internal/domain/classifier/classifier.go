// Package classifier implements C2: substring classification of lowercased
// message text against the stem catalogue.
package classifier

import (
	"strings"

	"airraidengine/internal/domain/catalogue"
)

// Detection is the result of a single classification pass.
type Detection struct {
	Kinds   []catalogue.ThreatKind
	Primary catalogue.ThreatKind
}

// Classify returns the set of ThreatKinds detected in textLower by substring
// match, plus the primary kind (the first hit in catalogue order). AllClear is
// exclusive: if any all-clear stem matches, Classify returns AllClear alone,
// regardless of any other stem present in the text.
//
// textLower must already be lowercased; Classify performs no normalization of
// its own so it can be called from a hot path without incurring a second pass.
func Classify(textLower string) Detection {
	for _, stem := range catalogue.AllClearStems() {
		if strings.Contains(textLower, stem) {
			return Detection{Kinds: []catalogue.ThreatKind{catalogue.AllClear}, Primary: catalogue.AllClear}
		}
	}

	var kinds []catalogue.ThreatKind
	primary := catalogue.None
	for _, entry := range catalogue.Kinds {
		if stemMatches(textLower, entry) {
			kinds = append(kinds, entry.Kind())
			if primary == catalogue.None {
				primary = entry.Kind()
			}
		}
	}

	return Detection{Kinds: kinds, Primary: primary}
}

// stemMatches reports whether any stem of the given catalogue entry appears in
// text. Kept as a tiny helper so Classify stays a single readable loop.
func stemMatches(text string, entry catalogue.Entry) bool {
	for _, stem := range entry.Stems() {
		if strings.Contains(text, stem) {
			return true
		}
	}
	return false
}

// HasUrgencyMarker reports whether textLower contains any urgency stem.
func HasUrgencyMarker(textLower string) bool {
	return containsAny(textLower, catalogue.UrgencyStems())
}

// HasNegativeStatusMarker reports whether textLower contains a negative-status stem.
func HasNegativeStatusMarker(textLower string) bool {
	return containsAny(textLower, catalogue.NegativeStatusStems())
}

// HasTriggerMarker reports whether textLower contains a context-fragment trigger stem.
func HasTriggerMarker(textLower string) bool {
	return containsAny(textLower, catalogue.TriggerStems())
}

func containsAny(text string, stems []string) bool {
	for _, stem := range stems {
		if strings.Contains(text, stem) {
			return true
		}
	}
	return false
}

// KindSetsEqual reports whether two kind sets contain the same elements,
// ignoring order.
func KindSetsEqual(a, b []catalogue.ThreatKind) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[catalogue.ThreatKind]int, len(a))
	for _, k := range a {
		seen[k]++
	}
	for _, k := range b {
		seen[k]--
		if seen[k] < 0 {
			return false
		}
	}
	return true
}

// IsStrictSuperset reports whether `kinds` contains every element of `prev`
// plus at least one more. Used by the deduplicator's "new threat combination"
// rule.
func IsStrictSuperset(kinds, prev []catalogue.ThreatKind) bool {
	prevSet := make(map[catalogue.ThreatKind]struct{}, len(prev))
	for _, k := range prev {
		prevSet[k] = struct{}{}
	}
	kindSet := make(map[catalogue.ThreatKind]struct{}, len(kinds))
	for _, k := range kinds {
		kindSet[k] = struct{}{}
	}
	for k := range prevSet {
		if _, ok := kindSet[k]; !ok {
			return false
		}
	}
	return len(kindSet) > len(prevSet)
}
