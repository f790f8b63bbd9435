// Package dedup implements C6: the global ThreatKind-keyed deduplicator plus
// the urgency and negative-status cooldowns.
//
// Grounded on the teacher's internal/infra/concurrency.Deduplicator (a
// windowed "seen" map) and internal/domain/notifications.Queue's per-channel
// bookkeeping style; generalized here into the two flat maps the spec's
// design notes (§9) call for: no back-references between context and dedup.
package dedup

import (
	"time"

	"airraidengine/internal/domain/catalogue"
	"airraidengine/internal/domain/classifier"
	"airraidengine/internal/domain/detector"
)

// Decision is the outcome of Admit.
type Decision int

const (
	Skip Decision = iota
	Forward
)

func (d Decision) String() string {
	if d == Forward {
		return "forward"
	}
	return "skip"
}

// Entry records the last forwarded state for one ThreatKind. At most one
// Entry exists per ThreatKind at any moment.
type Entry struct {
	Proximity  catalogue.Proximity
	Timestamp  time.Time
	Nationwide bool
	Kinds      []catalogue.ThreatKind
}

// Cooldown is the per-channel urgency/negative-status gate state.
type Cooldown struct {
	LastUrgent   time.Time
	LastNegative time.Time
}

// Options configures window/cooldown durations. Zero values fall back to the
// spec's documented defaults.
type Options struct {
	DedupWindow            time.Duration
	UrgentCooldown         time.Duration
	NegativeStatusCooldown time.Duration
	ForwardAllThreats      bool
}

const (
	defaultDedupWindow    = 180 * time.Second
	defaultUrgentCooldown = 20 * time.Second
	defaultNegativeWindow = 120 * time.Second
)

func (o Options) normalized() Options {
	if o.DedupWindow <= 0 {
		o.DedupWindow = defaultDedupWindow
	}
	if o.UrgentCooldown <= 0 {
		o.UrgentCooldown = defaultUrgentCooldown
	}
	if o.NegativeStatusCooldown <= 0 {
		o.NegativeStatusCooldown = defaultNegativeWindow
	}
	return o
}

// Deduplicator holds the ThreatKind -> Entry table and the per-channel
// cooldown table. Not safe for concurrent use; the engine (C10) is the
// single writer.
type Deduplicator struct {
	opts      Options
	entries   map[catalogue.ThreatKind]Entry
	cooldowns map[string]*Cooldown
}

// New creates a Deduplicator with the given options (unset fields default per
// the spec's configuration surface).
func New(opts Options) *Deduplicator {
	return &Deduplicator{
		opts:      opts.normalized(),
		entries:   make(map[catalogue.ThreatKind]Entry),
		cooldowns: make(map[string]*Cooldown),
	}
}

// cooldownFor returns (creating if absent) the Cooldown record for a channel.
func (d *Deduplicator) cooldownFor(channel string) *Cooldown {
	c, ok := d.cooldowns[channel]
	if !ok {
		c = &Cooldown{}
		d.cooldowns[channel] = c
	}
	return c
}

// Admit runs the six-step C6 algorithm (spec.md §4.6) and returns Forward or
// Skip. The deduplicator's own state is mutated only on a path that returns
// Forward (or on the AllClear reset, which always forwards).
func (d *Deduplicator) Admit(channel string, det detector.Detection, now time.Time) Decision {
	// Step 1: AllClear always forwards and clears the whole table.
	if det.Primary == catalogue.AllClear {
		d.entries = make(map[catalogue.ThreatKind]Entry)
		return Forward
	}

	// Step 2: no threat at all.
	if det.Primary == catalogue.None || len(det.Kinds) == 0 {
		return Skip
	}

	// Step 3: location filter. Context seeding already happened upstream in
	// C5 regardless of what Admit decides here.
	if det.Proximity == catalogue.ProximityNone && !det.Nationwide && !d.opts.ForwardAllThreats {
		return Skip
	}

	// Step 4: negative-status cooldown, isolated from the dedup table.
	if det.NegativeStatus {
		cd := d.cooldownFor(channel)
		if !cd.LastNegative.IsZero() && now.Sub(cd.LastNegative) < d.opts.NegativeStatusCooldown {
			return Skip
		}
		cd.LastNegative = now
		return Forward
	}

	// Step 5: urgency gate, per-channel cooldown plus cross-channel echo
	// suppression against the dedup table.
	if det.Urgent {
		cd := d.cooldownFor(channel)
		if !cd.LastUrgent.IsZero() && now.Sub(cd.LastUrgent) < d.opts.UrgentCooldown {
			return Skip
		}
		if prev, ok := d.entries[det.Primary]; ok {
			fresh := now.Sub(prev.Timestamp) <= d.opts.DedupWindow
			upgraded := det.Proximity > prev.Proximity
			if fresh && !upgraded {
				return Skip
			}
		}
		cd.LastUrgent = now
		d.upsert(det, now)
		return Forward
	}

	// Step 6: normal path.
	prev, ok := d.entries[det.Primary]
	if !ok || now.Sub(prev.Timestamp) > d.opts.DedupWindow {
		d.upsert(det, now)
		return Forward
	}

	upgraded := det.Proximity > prev.Proximity
	firstNationwide := det.Nationwide && !prev.Nationwide
	newCombination := classifier.IsStrictSuperset(det.Kinds, prev.Kinds)
	if upgraded || firstNationwide || newCombination {
		d.upsert(det, now)
		return Forward
	}

	return Skip
}

// upsert overwrites (or creates) the Entry for det.Primary.
func (d *Deduplicator) upsert(det detector.Detection, now time.Time) {
	d.entries[det.Primary] = Entry{
		Proximity:  det.Proximity,
		Timestamp:  now,
		Nationwide: det.Nationwide,
		Kinds:      append([]catalogue.ThreatKind(nil), det.Kinds...),
	}
}
