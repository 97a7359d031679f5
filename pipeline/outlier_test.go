package pipeline

import (
	"testing"

	appconfig "github.com/rachealA924/Team-6-Taxi-App/config"
	"github.com/rachealA924/Team-6-Taxi-App/models"
)

func testOutlierPolicy() appconfig.OutlierConfig {
	return appconfig.OutlierConfig{
		MaxSpeedMph:    80,
		MaxFarePerMile: 50,
		MaxIdleMinutes: 120,
	}
}

func TestOutlierCheck(t *testing.T) {
	f := NewOutlierFilter(testOutlierPolicy())

	cases := []struct {
		name     string
		speed    float64
		perMile  float64
		idle     float64
		rejected bool
	}{
		{"typical trip", 18, 4, 10, false},
		{"speed exactly at threshold", 80, 4, 10, false},
		{"speed just above threshold", 80.01, 4, 10, true},
		{"fare per mile exactly at threshold", 18, 50, 10, false},
		{"fare per mile above threshold", 18, 50.5, 10, true},
		{"idle exactly at threshold", 18, 4, 120, false},
		{"idle above threshold", 18, 4, 120.5, true},
		{"all zero", 0, 0, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &models.EnrichedTripRecord{
				TripSpeedMph:    tc.speed,
				FarePerMile:     tc.perMile,
				IdleTimeMinutes: tc.idle,
			}
			rej := f.Check(rec)
			if tc.rejected && rej == nil {
				t.Fatal("expected outlier rejection")
			}
			if !tc.rejected && rej != nil {
				t.Fatalf("expected record to pass, got %s: %s", rej.reason, rej.detail)
			}
			if rej != nil && rej.reason != models.ReasonOutlier {
				t.Errorf("expected reason %s, got %s", models.ReasonOutlier, rej.reason)
			}
		})
	}
}
