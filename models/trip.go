package models

import (
	"time"
)

// RawTripRecord is one row of the source CSV exactly as read. Every field is
// a string and any of them may be empty or malformed; nothing is trusted
// until the validator has coerced it.
type RawTripRecord struct {
	VendorID             string `csv:"vendor_id"`
	PickupDatetime       string `csv:"pickup_datetime"`
	DropoffDatetime      string `csv:"dropoff_datetime"`
	PassengerCount       string `csv:"passenger_count"`
	TripDistance         string `csv:"trip_distance"`
	PickupLongitude      string `csv:"pickup_longitude"`
	PickupLatitude       string `csv:"pickup_latitude"`
	RateCodeID           string `csv:"rate_code_id"`
	StoreAndFwdFlag      string `csv:"store_and_fwd_flag"`
	DropoffLongitude     string `csv:"dropoff_longitude"`
	DropoffLatitude      string `csv:"dropoff_latitude"`
	PaymentType          string `csv:"payment_type"`
	FareAmount           string `csv:"fare_amount"`
	Extra                string `csv:"extra"`
	MtaTax               string `csv:"mta_tax"`
	TipAmount            string `csv:"tip_amount"`
	TollsAmount          string `csv:"tolls_amount"`
	ImprovementSurcharge string `csv:"improvement_surcharge"`
	TotalAmount          string `csv:"total_amount"`
}

// ValidatedTripRecord is a raw record after every validation stage has
// passed: fields are typed, coerced and inside their documented bounds.
// Records are treated as immutable once constructed.
type ValidatedTripRecord struct {
	PickupTime          time.Time `json:"pickup_datetime"`
	DropoffTime         time.Time `json:"dropoff_datetime"`
	PassengerCount      int       `json:"passenger_count"`
	TripDistanceMiles   float64   `json:"trip_distance"`
	TripDurationSeconds int64     `json:"trip_duration"`
	PickupLatitude      float64   `json:"pickup_latitude"`
	PickupLongitude     float64   `json:"pickup_longitude"`
	DropoffLatitude     float64   `json:"dropoff_latitude"`
	DropoffLongitude    float64   `json:"dropoff_longitude"`
	FareAmount          float64   `json:"fare_amount"`
	TipAmount           float64   `json:"tip_amount"`
	TollsAmount         float64   `json:"tolls_amount"`
	TotalAmount         float64   `json:"total_amount"`
	PaymentType         int       `json:"payment_type"`
	VendorID            string    `json:"vendor_id,omitempty"`
	StoreAndFwdFlag     string    `json:"store_and_fwd_flag,omitempty"`
}

// EnrichedTripRecord is a validated record plus the derived features. The
// derived fields are always present and non-negative; speed is clamped at
// the configured cap rather than rejected here.
type EnrichedTripRecord struct {
	ValidatedTripRecord

	TripSpeedMph    float64 `json:"trip_speed_mph"`
	FarePerMile     float64 `json:"fare_per_mile"`
	IdleTimeMinutes float64 `json:"idle_time_minutes"`
	TipPercentage   float64 `json:"tip_percentage"`
}

// PaymentTypeNames maps the six payment codes to their display names.
var PaymentTypeNames = map[int]string{
	1: "Credit card",
	2: "Cash",
	3: "No charge",
	4: "Dispute",
	5: "Unknown",
	6: "Voided trip",
}
