package geo

import (
	"testing"

	"airraidengine/internal/domain/catalogue"
)

func testGeography() UserGeography {
	return New(
		[]string{"київська"},
		[]string{"київ"},
		[]string{"голосіївськ"},
	)
}

func TestResolveDistrictWins(t *testing.T) {
	t.Parallel()
	res := Resolve("балістика, голосіївський район києва", testGeography())
	if res.Proximity != catalogue.ProximityDistrict {
		t.Fatalf("proximity = %v, want District", res.Proximity)
	}
}

func TestResolveCityStemIsPrefixOfOblastAdjective(t *testing.T) {
	t.Parallel()
	g := testGeography()

	// "київ" is a textual prefix of "київська" — a fixed District>City>Oblast
	// priority cascade using plain substring containment would get these two
	// cases backwards, since both stems always match whenever the oblast
	// form appears. Picking the longest match gets both right.
	cityOnly := Resolve("балістика на київ", g)
	if cityOnly.Proximity != catalogue.ProximityCity {
		t.Fatalf("proximity = %v, want City for a bare city mention", cityOnly.Proximity)
	}

	oblastForm := Resolve("балістика київська область", g)
	if oblastForm.Proximity != catalogue.ProximityOblast {
		t.Fatalf("proximity = %v, want Oblast when only the oblast adjective form is present", oblastForm.Proximity)
	}
}

func TestResolveNationwideIndependentOfProximity(t *testing.T) {
	t.Parallel()
	res := Resolve("ракетна загроза по всій території україни", testGeography())
	if !res.Nationwide {
		t.Fatal("expected nationwide to be true")
	}
	if res.Proximity != catalogue.ProximityNone {
		t.Fatalf("proximity = %v, want None (no local stem present)", res.Proximity)
	}
}

func TestResolveNoMatch(t *testing.T) {
	t.Parallel()
	res := Resolve("балістика на полтавщині", testGeography())
	if res.Proximity != catalogue.ProximityNone {
		t.Fatalf("proximity = %v, want None", res.Proximity)
	}
	if res.Nationwide {
		t.Fatal("did not expect nationwide")
	}
}

func TestEmpty(t *testing.T) {
	t.Parallel()
	if !(UserGeography{}).Empty() {
		t.Fatal("zero-value UserGeography should be Empty")
	}
	if testGeography().Empty() {
		t.Fatal("configured UserGeography should not be Empty")
	}
}
