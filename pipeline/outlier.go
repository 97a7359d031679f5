package pipeline

import (
	appconfig "github.com/rachealA924/Team-6-Taxi-App/config"
	"github.com/rachealA924/Team-6-Taxi-App/models"
)

// OutlierFilter rejects enriched records whose derived metrics are
// implausible even though every raw field passed validation (GPS noise can
// yield a physically unrealistic speed from correct-looking fields).
type OutlierFilter struct {
	policy appconfig.OutlierConfig
}

func NewOutlierFilter(policy appconfig.OutlierConfig) *OutlierFilter {
	return &OutlierFilter{policy: policy}
}

// Check returns a rejection when any derived metric exceeds its threshold.
// Thresholds are exclusive: a value exactly at the threshold passes.
func (f *OutlierFilter) Check(rec *models.EnrichedTripRecord) *rejection {
	if rec.TripSpeedMph > f.policy.MaxSpeedMph {
		return reject(models.ReasonOutlier, "trip_speed_mph %v above %v", rec.TripSpeedMph, f.policy.MaxSpeedMph)
	}
	if rec.FarePerMile > f.policy.MaxFarePerMile {
		return reject(models.ReasonOutlier, "fare_per_mile %v above %v", rec.FarePerMile, f.policy.MaxFarePerMile)
	}
	if rec.IdleTimeMinutes > f.policy.MaxIdleMinutes {
		return reject(models.ReasonOutlier, "idle_time_minutes %v above %v", rec.IdleTimeMinutes, f.policy.MaxIdleMinutes)
	}
	return nil
}
