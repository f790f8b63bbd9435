// Package format implements C8: a pure function composing the
// subscriber-visible alert string from a resolved detection.
//
// Grounded on the teacher's notifications.RenderTemplate: plain string
// composition, no templating engine, no escaping (the source text is already
// safe for the chosen transport).
package format

import (
	"fmt"
	"strings"

	"airraidengine/internal/domain/catalogue"
	"airraidengine/internal/domain/detector"
)

// emoji maps each ThreatKind to its display glyph.
var emoji = map[catalogue.ThreatKind]string{
	catalogue.Hypersonic:    "🚀",
	catalogue.Ballistic:     "🚀",
	catalogue.CruiseMissile: "🛩️",
	catalogue.GuidedBomb:    "💣",
	catalogue.Shahed:        "🛸",
	catalogue.ReconDrone:    "🛰️",
	catalogue.Aircraft:      "✈️",
	catalogue.Missile:       "🚀",
	catalogue.AllClear:      "✅",
	catalogue.Other:         "⚠️",
}

// label maps each ThreatKind to its short Ukrainian display label.
var label = map[catalogue.ThreatKind]string{
	catalogue.Hypersonic:    "Гіперзвукова ракета",
	catalogue.Ballistic:     "Балістична ракета",
	catalogue.CruiseMissile: "Крилата ракета",
	catalogue.GuidedBomb:    "Керована авіабомба",
	catalogue.Shahed:        "Ударний дрон (Шахед)",
	catalogue.ReconDrone:    "Розвідувальний БПЛА",
	catalogue.Aircraft:      "Загроза з повітря",
	catalogue.Missile:       "Ракетна загроза",
	catalogue.AllClear:      "Відбій тривоги",
	catalogue.Other:         "Невідома загроза",
}

// proximityTag maps each Proximity to its display tag. ProximityNone has no
// tag: it is either omitted (FORWARD_ALL_THREATS surfacing a distant alert)
// or superseded by the nationwide tag.
var proximityTag = map[catalogue.Proximity]string{
	catalogue.ProximityOblast:  "🟡 ОБЛАСТЬ",
	catalogue.ProximityCity:    "🟠 МІСТО",
	catalogue.ProximityDistrict: "🔴 РАЙОН",
}

const nationwideTag = "🟣 ВСЯ УКРАЇНА"

// Format composes the subscriber-visible alert string. Format adds no trigger
// or stem of its own — only the emoji, label, proximity/nationwide tag,
// source channel, and the original (already human-authored) text verbatim.
func Format(d detector.Detection, channel, text string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s", emoji[d.Primary], label[d.Primary])

	if tag := locationTag(d); tag != "" {
		fmt.Fprintf(&b, "\n%s", tag)
	}

	fmt.Fprintf(&b, "\nДжерело: %s", channel)
	fmt.Fprintf(&b, "\n\n%s", text)

	return b.String()
}

// locationTag picks the proximity/nationwide tag, or "" when neither applies
// (the FORWARD_ALL_THREATS case surfacing an alert with no resolved location).
func locationTag(d detector.Detection) string {
	if d.Nationwide {
		return nationwideTag
	}
	if tag, ok := proximityTag[d.Proximity]; ok {
		return tag
	}
	return ""
}
