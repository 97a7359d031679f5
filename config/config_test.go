package config

import (
	"os"
	"testing"
)

// writeTempConfig creates a minimal configuration file required for
// LoadConfig and returns its path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	return f.Name()
}

const minimalYAML = `taxiflow:
  name: "TestApp"
  version: "1.0"
`

func TestLoadConfigDefaults(t *testing.T) {
	path := writeTempConfig(t, minimalYAML)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Taxiflow.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.Taxiflow.Name)
	}
	if cfg.Validation.MinPickupYear != 2015 || cfg.Validation.MaxPickupYear != 2020 {
		t.Errorf("unexpected pickup window: %d-%d", cfg.Validation.MinPickupYear, cfg.Validation.MaxPickupYear)
	}
	if cfg.Derivation.AssumedCitySpeedMph != 12 {
		t.Errorf("unexpected assumed city speed: %v", cfg.Derivation.AssumedCitySpeedMph)
	}
	if cfg.Outliers.MaxSpeedMph != 80 {
		t.Errorf("unexpected outlier speed threshold: %v", cfg.Outliers.MaxSpeedMph)
	}
	if cfg.Pipeline.LoadChunkSize != 1000 {
		t.Errorf("unexpected load chunk size: %d", cfg.Pipeline.LoadChunkSize)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeTempConfig(t, minimalYAML+`outliers:
  max_speed_mph: 60
  max_fare_per_mile: 40
  max_idle_minutes: 90
validation:
  min_pickup_year: 2019
  max_pickup_year: 2023
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Outliers.MaxSpeedMph != 60 {
		t.Errorf("override not applied: %v", cfg.Outliers.MaxSpeedMph)
	}
	if cfg.Validation.MaxPickupYear != 2023 {
		t.Errorf("override not applied: %d", cfg.Validation.MaxPickupYear)
	}
}

func TestLoadConfigRejectsBadPolicy(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing name", `taxiflow: {version: "1.0"}`},
		{"speed threshold above clamp", minimalYAML + "outliers: {max_speed_mph: 120}\n"},
		{"inverted year window", minimalYAML + "validation: {min_pickup_year: 2021, max_pickup_year: 2015}\n"},
		{"zero workers", minimalYAML + "pipeline: {workers: -1}\n"},
	}
	for _, c := range cases {
		path := writeTempConfig(t, c.yaml)
		if _, err := LoadConfig(path); err == nil {
			t.Errorf("%s: expected error, got none", c.name)
		}
	}
}

func TestGeoBoundsContains(t *testing.T) {
	b := GeoBounds{MinLat: 40.4774, MaxLat: 40.9176, MinLon: -74.2591, MaxLon: -73.7004}
	cases := []struct {
		lat, lon float64
		want     bool
	}{
		{40.75, -73.98, true},
		{41.5, -73.98, false},
		{40.75, -75.0, false},
		{40.4774, -74.2591, true},
	}
	for _, c := range cases {
		if got := b.Contains(c.lat, c.lon); got != c.want {
			t.Errorf("Contains(%v, %v) = %v, want %v", c.lat, c.lon, got, c.want)
		}
	}
}

func TestIsValidS3Bucket(t *testing.T) {
	cases := []struct {
		name  string
		valid bool
	}{
		{"valid-bucket", true},
		{"Invalid", false},
		{"ab", false},
		{"my..bucket", false},
	}
	for _, c := range cases {
		if got := isValidS3Bucket(c.name); got != c.valid {
			t.Errorf("isValidS3Bucket(%q) = %v, want %v", c.name, got, c.valid)
		}
	}
}
