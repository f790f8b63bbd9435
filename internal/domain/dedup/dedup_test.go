package dedup

import (
	"testing"
	"time"

	"airraidengine/internal/domain/catalogue"
	"airraidengine/internal/domain/detector"
)

var base = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func at(deltaSec int) time.Time {
	return base.Add(time.Duration(deltaSec) * time.Second)
}

func newTestDedup() *Deduplicator {
	return New(Options{DedupWindow: 180 * time.Second, UrgentCooldown: 20 * time.Second, NegativeStatusCooldown: 120 * time.Second})
}

func det(kinds []catalogue.ThreatKind, proximity catalogue.Proximity, nationwide bool) detector.Detection {
	return detector.Detection{Kinds: kinds, Primary: catalogue.Primary(kinds), Proximity: proximity, Nationwide: nationwide}
}

func TestAdmitFirstForwardsThenSuppressesDuplicate(t *testing.T) {
	t.Parallel()
	d := newTestDedup()
	first := det([]catalogue.ThreatKind{catalogue.Shahed}, catalogue.ProximityCity, false)
	if got := d.Admit("a", first, at(0)); got != Forward {
		t.Fatalf("first Admit = %v, want Forward", got)
	}
	if got := d.Admit("a", first, at(5)); got != Skip {
		t.Fatalf("duplicate within window Admit = %v, want Skip", got)
	}
}

func TestAdmitLocationFilterSkipsNoProximity(t *testing.T) {
	t.Parallel()
	d := newTestDedup()
	far := det([]catalogue.ThreatKind{catalogue.Shahed}, catalogue.ProximityNone, false)
	if got := d.Admit("a", far, at(0)); got != Skip {
		t.Fatalf("Admit = %v, want Skip (no proximity, not nationwide)", got)
	}
}

func TestAdmitForwardAllThreatsBypassesLocationFilter(t *testing.T) {
	t.Parallel()
	d := New(Options{ForwardAllThreats: true})
	far := det([]catalogue.ThreatKind{catalogue.Shahed}, catalogue.ProximityNone, false)
	if got := d.Admit("a", far, at(0)); got != Forward {
		t.Fatalf("Admit = %v, want Forward (ForwardAllThreats)", got)
	}
}

func TestAdmitProximityUpgradeReForwards(t *testing.T) {
	t.Parallel()
	d := newTestDedup()
	oblast := det([]catalogue.ThreatKind{catalogue.Ballistic}, catalogue.ProximityOblast, false)
	if got := d.Admit("a", oblast, at(0)); got != Forward {
		t.Fatalf("first Admit = %v, want Forward", got)
	}
	city := det([]catalogue.ThreatKind{catalogue.Ballistic}, catalogue.ProximityCity, false)
	if got := d.Admit("a", city, at(10)); got != Forward {
		t.Fatalf("proximity upgrade Admit = %v, want Forward", got)
	}
	// regression to a lower proximity within the window is skipped, not
	// re-forwarded.
	oblastAgain := det([]catalogue.ThreatKind{catalogue.Ballistic}, catalogue.ProximityOblast, false)
	if got := d.Admit("a", oblastAgain, at(20)); got != Skip {
		t.Fatalf("regression Admit = %v, want Skip", got)
	}
}

func TestAdmitFirstNationwideReForwards(t *testing.T) {
	t.Parallel()
	d := newTestDedup()
	local := det([]catalogue.ThreatKind{catalogue.Missile}, catalogue.ProximityCity, false)
	d.Admit("a", local, at(0))
	nationwide := det([]catalogue.ThreatKind{catalogue.Missile}, catalogue.ProximityCity, true)
	if got := d.Admit("a", nationwide, at(5)); got != Forward {
		t.Fatalf("first-nationwide Admit = %v, want Forward", got)
	}
}

func TestAdmitNewKindCombinationReForwards(t *testing.T) {
	t.Parallel()
	d := newTestDedup()
	single := det([]catalogue.ThreatKind{catalogue.Missile}, catalogue.ProximityCity, false)
	d.Admit("a", single, at(0))
	// Other ranks after Missile in catalogue order, so Primary stays Missile
	// and this hits the same dedup-table entry instead of a fresh key.
	combo := det([]catalogue.ThreatKind{catalogue.Missile, catalogue.Other}, catalogue.ProximityCity, false)
	if got := d.Admit("a", combo, at(5)); got != Forward {
		t.Fatalf("superset-kind Admit = %v, want Forward", got)
	}
}

func TestAdmitWindowExpiryReForwardsSameState(t *testing.T) {
	t.Parallel()
	d := newTestDedup()
	m := det([]catalogue.ThreatKind{catalogue.Missile}, catalogue.ProximityCity, false)
	d.Admit("a", m, at(0))
	if got := d.Admit("a", m, at(200)); got != Forward {
		t.Fatalf("post-window-expiry Admit = %v, want Forward", got)
	}
}

func TestAdmitAllClearForwardsAndClears(t *testing.T) {
	t.Parallel()
	d := newTestDedup()
	m := det([]catalogue.ThreatKind{catalogue.Missile}, catalogue.ProximityCity, false)
	d.Admit("a", m, at(0))

	allClear := detector.Detection{Primary: catalogue.AllClear}
	if got := d.Admit("a", allClear, at(5)); got != Forward {
		t.Fatalf("AllClear Admit = %v, want Forward", got)
	}
	// table is cleared: the same threat immediately after is forwarded again.
	if got := d.Admit("a", m, at(6)); got != Forward {
		t.Fatalf("post-AllClear Admit = %v, want Forward (table cleared)", got)
	}
}

func TestAdmitUrgentCooldownPerChannel(t *testing.T) {
	t.Parallel()
	d := newTestDedup()
	u := det([]catalogue.ThreatKind{catalogue.Shahed}, catalogue.ProximityCity, false)
	u.Urgent = true

	if got := d.Admit("a", u, at(0)); got != Forward {
		t.Fatalf("first urgent Admit = %v, want Forward", got)
	}
	if got := d.Admit("a", u, at(5)); got != Skip {
		t.Fatalf("urgent within cooldown on same channel Admit = %v, want Skip", got)
	}
	// a different channel has its own per-channel urgent cooldown, but the
	// dedup table itself is global: the same kind/proximity inside the dedup
	// window is a cross-channel echo and is still skipped (spec.md §8
	// scenario 6).
	if got := d.Admit("b", u, at(5)); got != Skip {
		t.Fatalf("cross-channel echo within dedup window Admit = %v, want Skip", got)
	}
	// past the dedup window, the per-channel cooldown is what gates it.
	if got := d.Admit("b", u, at(200)); got != Forward {
		t.Fatalf("urgent on a different channel past dedup window Admit = %v, want Forward", got)
	}
}

func TestAdmitNegativeStatusCooldownIsolatedFromDedupTable(t *testing.T) {
	t.Parallel()
	d := newTestDedup()
	n := det([]catalogue.ThreatKind{catalogue.Shahed}, catalogue.ProximityCity, false)
	n.NegativeStatus = true

	if got := d.Admit("a", n, at(0)); got != Forward {
		t.Fatalf("first negative-status Admit = %v, want Forward", got)
	}
	if got := d.Admit("a", n, at(5)); got != Skip {
		t.Fatalf("negative-status within cooldown Admit = %v, want Skip", got)
	}
	if got := d.Admit("a", n, at(121)); got != Forward {
		t.Fatalf("negative-status after cooldown expiry Admit = %v, want Forward", got)
	}
}
