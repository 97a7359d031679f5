package models

import (
	"math"
	"time"
)

// FeatureStats summarizes one derived feature over the accepted records.
type FeatureStats struct {
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// DerivedFeatureStats carries the summary for the three primary derived
// features.
type DerivedFeatureStats struct {
	TripSpeedMph    FeatureStats `json:"trip_speed_mph"`
	FarePerMile     FeatureStats `json:"fare_per_mile"`
	IdleTimeMinutes FeatureStats `json:"idle_time_minutes"`
}

// CleaningReport is the operator-facing summary of one batch run.
type CleaningReport struct {
	BatchID             string               `json:"batch_id"`
	StartedAt           time.Time            `json:"started_at"`
	FinishedAt          time.Time            `json:"finished_at"`
	TotalRecords        int                  `json:"total_records"`
	ProcessedRecords    int                  `json:"processed_records"`
	ExcludedRecords     int                  `json:"excluded_records"`
	ExclusionRate       float64              `json:"exclusion_rate"`
	ExclusionReasons    map[RejectReason]int `json:"exclusion_reasons"`
	DerivedFeatureStats DerivedFeatureStats  `json:"derived_feature_stats"`
	Exclusions          []ExclusionEntry     `json:"exclusions,omitempty"`
}

// statsAccumulator folds feature values into running min/max/sum.
type statsAccumulator struct {
	count    int
	sum      float64
	min, max float64
}

func (a *statsAccumulator) add(v float64) {
	if a.count == 0 {
		a.min, a.max = v, v
	} else {
		a.min = math.Min(a.min, v)
		a.max = math.Max(a.max, v)
	}
	a.sum += v
	a.count++
}

func (a *statsAccumulator) stats() FeatureStats {
	if a.count == 0 {
		return FeatureStats{}
	}
	return FeatureStats{Average: a.sum / float64(a.count), Min: a.min, Max: a.max}
}

// ReportBuilder folds per-record results into the final CleaningReport. It
// holds the only mutable state of a batch run and is not safe for
// concurrent use; the orchestrator feeds it from the reduction step.
type ReportBuilder struct {
	report CleaningReport
	speed  statsAccumulator
	fare   statsAccumulator
	idle   statsAccumulator
}

func NewReportBuilder(batchID string) *ReportBuilder {
	return &ReportBuilder{
		report: CleaningReport{
			BatchID:          batchID,
			StartedAt:        time.Now().UTC(),
			ExclusionReasons: make(map[RejectReason]int),
		},
	}
}

// Add folds one result into the report counters.
func (b *ReportBuilder) Add(res Result) {
	b.report.TotalRecords++
	if !res.IsAccepted() {
		b.report.ExcludedRecords++
		b.report.ExclusionReasons[res.Reason]++
		b.report.Exclusions = append(b.report.Exclusions, res.Exclusion())
		return
	}
	b.report.ProcessedRecords++
	b.speed.add(res.Record.TripSpeedMph)
	b.fare.add(res.Record.FarePerMile)
	b.idle.add(res.Record.IdleTimeMinutes)
}

// Build finalizes and returns the report. Exclusion rate is a percentage of
// the total input, rounded to two decimals.
func (b *ReportBuilder) Build() CleaningReport {
	r := b.report
	r.FinishedAt = time.Now().UTC()
	if r.TotalRecords > 0 {
		r.ExclusionRate = math.Round(float64(r.ExcludedRecords)/float64(r.TotalRecords)*10000) / 100
	}
	r.DerivedFeatureStats = DerivedFeatureStats{
		TripSpeedMph:    b.speed.stats(),
		FarePerMile:     b.fare.stats(),
		IdleTimeMinutes: b.idle.stats(),
	}
	return r
}
