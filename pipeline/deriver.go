package pipeline

import (
	appconfig "github.com/rachealA924/Team-6-Taxi-App/config"
	"github.com/rachealA924/Team-6-Taxi-App/models"
)

// Deriver computes the derived trip features from a validated record. It is
// a pure function of its input and never rejects: implausible values are
// clamped here and judged by the outlier filter afterwards.
type Deriver struct {
	policy appconfig.DerivationConfig
}

func NewDeriver(policy appconfig.DerivationConfig) *Deriver {
	return &Deriver{policy: policy}
}

// Derive computes trip speed, fare per mile, idle time and tip percentage.
// Speed is clamped at the configured cap so a short GPS-noisy trip scales
// sanely; the outlier filter applies its own, tighter threshold.
func (d *Deriver) Derive(rec *models.ValidatedTripRecord) *models.EnrichedTripRecord {
	enriched := &models.EnrichedTripRecord{ValidatedTripRecord: *rec}

	if rec.TripDistanceMiles > 0 && rec.TripDurationSeconds > 0 {
		speed := rec.TripDistanceMiles / (float64(rec.TripDurationSeconds) / 3600)
		if speed > d.policy.SpeedCapMph {
			speed = d.policy.SpeedCapMph
		}
		enriched.TripSpeedMph = speed
	}

	if rec.TripDistanceMiles > 0 {
		enriched.FarePerMile = rec.FareAmount / rec.TripDistanceMiles
	}

	// Idle time estimates waiting/traffic time against a constant reference
	// city speed; a deliberate approximation, not a measured baseline.
	expectedMovingMinutes := (rec.TripDistanceMiles / d.policy.AssumedCitySpeedMph) * 60
	actualMinutes := float64(rec.TripDurationSeconds) / 60
	if idle := actualMinutes - expectedMovingMinutes; idle > 0 {
		enriched.IdleTimeMinutes = idle
	}

	if rec.FareAmount > 0 {
		enriched.TipPercentage = (rec.TipAmount / rec.FareAmount) * 100
	}

	return enriched
}
