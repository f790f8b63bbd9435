package format

import (
	"strings"
	"testing"

	"airraidengine/internal/domain/catalogue"
	"airraidengine/internal/domain/detector"
)

func TestFormatIncludesLabelProximityAndSourceText(t *testing.T) {
	t.Parallel()
	d := detector.Detection{Primary: catalogue.Ballistic, Proximity: catalogue.ProximityCity}
	got := Format(d, "air_alert_ua", "балістика на київ")

	for _, want := range []string{"Балістична ракета", "МІСТО", "Джерело: air_alert_ua", "балістика на київ"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output %q missing %q", got, want)
		}
	}
}

func TestFormatNationwideTagSupersedesProximity(t *testing.T) {
	t.Parallel()
	d := detector.Detection{Primary: catalogue.Missile, Proximity: catalogue.ProximityCity, Nationwide: true}
	got := Format(d, "air_alert_ua", "ракетна загроза по всій території")

	if !strings.Contains(got, "ВСЯ УКРАЇНА") {
		t.Fatalf("output %q missing nationwide tag", got)
	}
	if strings.Contains(got, "МІСТО") {
		t.Fatalf("output %q should not also carry a proximity tag", got)
	}
}

func TestFormatNoLocationTagWhenNeitherApplies(t *testing.T) {
	t.Parallel()
	d := detector.Detection{Primary: catalogue.Shahed, Proximity: catalogue.ProximityNone}
	got := Format(d, "air_alert_ua", "шахеди на заході країни")

	for _, tag := range []string{"МІСТО", "ОБЛАСТЬ", "РАЙОН", "ВСЯ УКРАЇНА"} {
		if strings.Contains(got, tag) {
			t.Fatalf("output %q should carry no location tag, found %q", got, tag)
		}
	}
}
