package detector

import (
	"testing"
	"time"

	"airraidengine/internal/domain/catalogue"
	"airraidengine/internal/domain/chancontext"
	"airraidengine/internal/domain/geo"
)

var base = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func at(deltaSec int) time.Time {
	return base.Add(time.Duration(deltaSec) * time.Second)
}

func newTestDetector() *Detector {
	return New(chancontext.NewStore(300), geo.New([]string{"київська"}, []string{"київ"}, nil))
}

func TestDetectDirectThreatAndLocation(t *testing.T) {
	t.Parallel()
	d := newTestDetector()
	got := d.Detect("a", "балістика на київ", at(0))
	if got.Primary != catalogue.Ballistic {
		t.Fatalf("primary = %v, want Ballistic", got.Primary)
	}
	if got.Proximity != catalogue.ProximityCity {
		t.Fatalf("proximity = %v, want City", got.Proximity)
	}
}

func TestDetectLocationFollowUpInfersThreat(t *testing.T) {
	t.Parallel()
	d := newTestDetector()
	d.Detect("a", "балістика на харківщині", at(0))
	// no threat stem of its own, but a location mention: history has a known
	// threat, so it's inferred.
	got := d.Detect("a", "ціль на київ", at(5))
	if got.Primary != catalogue.Ballistic {
		t.Fatalf("primary = %v, want Ballistic inferred from history", got.Primary)
	}
	if got.Proximity != catalogue.ProximityCity {
		t.Fatalf("proximity = %v, want City", got.Proximity)
	}
}

func TestDetectAllClearSeedsContextButShortCircuits(t *testing.T) {
	t.Parallel()
	d := newTestDetector()
	got := d.Detect("a", "відбій тривоги", at(0))
	if !got.AllClear {
		t.Fatal("expected AllClear")
	}
	if got.Proximity != catalogue.ProximityNone {
		t.Fatalf("proximity = %v, want None on an AllClear detection", got.Proximity)
	}
}

func TestDetectChannelIsolation(t *testing.T) {
	t.Parallel()
	d := newTestDetector()
	d.Detect("chA", "балістика на київ", at(0))
	// chB has no history of its own: a bare location follow-up infers nothing.
	got := d.Detect("chB", "ціль на київ", at(1))
	if got.Primary != catalogue.None {
		t.Fatalf("primary = %v, want None (no cross-channel context)", got.Primary)
	}
}

func TestDetectContextStoresObservedNotInferredProximity(t *testing.T) {
	t.Parallel()
	d := newTestDetector()
	// first message: threat with no location.
	d.Detect("a", "балістика", at(0))
	// second message: urgent re-alert, no location of its own — infers the
	// threat from history; InferLocation finds no proximity there, and the
	// context record it seeds carries the *observed* proximity (None).
	d.Detect("a", "повторно", at(5))
	// a third bare urgent message should NOT see a location in history, since
	// neither prior message actually observed one.
	got := d.Detect("a", "повторно", at(10))
	if got.Proximity != catalogue.ProximityNone {
		t.Fatalf("proximity = %v, want None: inferred proximity must never leak into context", got.Proximity)
	}
}

func TestDetectNationwideBypassesLocationInference(t *testing.T) {
	t.Parallel()
	d := newTestDetector()
	got := d.Detect("a", "ракетна загроза по всій території україни", at(0))
	if !got.Nationwide {
		t.Fatal("expected nationwide")
	}
	if got.Proximity != catalogue.ProximityNone {
		t.Fatalf("proximity = %v, want None alongside nationwide", got.Proximity)
	}
}
