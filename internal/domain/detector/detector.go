// Package detector implements C5, the context-aware inference pipeline that
// combines the classifier, the proximity resolver, and the per-channel
// context window into a single detection for one message.
package detector

import (
	"time"

	"airraidengine/internal/domain/catalogue"
	"airraidengine/internal/domain/chancontext"
	"airraidengine/internal/domain/classifier"
	"airraidengine/internal/domain/geo"
)

// Detection is the outcome of the five-step algorithm in spec.md §4.5.
type Detection struct {
	Kinds          []catalogue.ThreatKind
	Primary        catalogue.ThreatKind
	Proximity      catalogue.Proximity
	Nationwide     bool
	Urgent         bool
	NegativeStatus bool
	// AllClear is true when Primary == catalogue.AllClear; kept as its own
	// field so callers don't need to import catalogue just to compare.
	AllClear bool
}

// Detector runs the five-step algorithm against a shared context store.
// A Detector is not safe for concurrent use; the engine (C10) is the single
// writer driving it sequentially per the spec's concurrency model.
type Detector struct {
	contexts *chancontext.Store
	geo      geo.UserGeography
}

// New builds a Detector over the given context store and user geography.
func New(contexts *chancontext.Store, g geo.UserGeography) *Detector {
	return &Detector{contexts: contexts, geo: g}
}

// Detect runs the full C5 algorithm for one message and always seeds the
// channel's context window as its final step, whether or not the message
// will end up forwarded (spec's "seeding context" invariant, P2).
func (d *Detector) Detect(channel, textLower string, now time.Time) Detection {
	base := classifier.Classify(textLower)
	loc := geo.Resolve(textLower, d.geo)
	urgent := classifier.HasUrgencyMarker(textLower)
	negativeStatus := classifier.HasNegativeStatusMarker(textLower)

	// Step 2: AllClear short-circuit. Context is still seeded with the
	// observed facts (the returned detection carries no proximity); the caller (C6/C10) is responsible
	// for clearing dedup + all channel contexts when it sees AllClear.
	if base.Primary == catalogue.AllClear {
		d.contexts.Record(channel, chancontext.Message{
			Timestamp: now,
			TextLower: textLower,
			Kinds:     base.Kinds,
			Proximity: loc.Proximity,
		}, now)
		return Detection{
			Kinds:    base.Kinds,
			Primary:  catalogue.AllClear,
			AllClear: true,
		}
	}

	kinds := base.Kinds
	hasTrigger := classifier.HasTriggerMarker(textLower)

	// Step 3: threat inference, stop at first success.
	if len(kinds) == 0 && hasTrigger {
		if kind, ok := d.contexts.InferThreatFromTriggers(channel, textLower, hasTrigger); ok {
			kinds = []catalogue.ThreatKind{kind}
		}
	}
	if len(kinds) == 0 && loc.Proximity != catalogue.ProximityNone {
		if kind, ok := d.contexts.InferRecentThreat(channel); ok {
			kinds = []catalogue.ThreatKind{kind}
		}
	}
	if len(kinds) == 0 && urgent {
		if kind, ok := d.contexts.InferRecentThreat(channel); ok {
			kinds = []catalogue.ThreatKind{kind}
		}
	}

	// Step 4: location inference, only when we still have no location and no
	// nationwide marker, and only when a threat is now known or the message
	// is urgent.
	proximity := loc.Proximity
	nationwide := loc.Nationwide
	if proximity == catalogue.ProximityNone && !nationwide && (len(kinds) > 0 || urgent) {
		if inferredProximity, _ := d.contexts.InferLocation(channel); inferredProximity > catalogue.ProximityNone {
			proximity = inferredProximity
		}
	}

	// Step 5: always record the *observed* facts (base.Kinds / loc.Proximity),
	// never the inferred ones — context stores facts, not speculations.
	d.contexts.Record(channel, chancontext.Message{
		Timestamp: now,
		TextLower: textLower,
		Kinds:     base.Kinds,
		Proximity: loc.Proximity,
	}, now)

	return Detection{
		Kinds:          kinds,
		Primary:        catalogue.Primary(kinds),
		Proximity:      proximity,
		Nationwide:     nationwide,
		Urgent:         urgent,
		NegativeStatus: negativeStatus,
	}
}
