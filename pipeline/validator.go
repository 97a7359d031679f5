package pipeline

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	appconfig "github.com/rachealA924/Team-6-Taxi-App/config"
	"github.com/rachealA924/Team-6-Taxi-App/models"
)

// timestampLayouts are tried in order when parsing pickup/dropoff times.
// The historical dataset uses the space-separated layout; ISO 8601 is
// accepted for newer exports.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// Validator decides whether one raw record is admissible and coerces its
// fields into a typed record as a side effect. Stages run in a fixed order
// and short-circuit: only the first failing stage's reason is reported.
type Validator struct {
	policy appconfig.ValidationConfig
}

func NewValidator(policy appconfig.ValidationConfig) *Validator {
	return &Validator{policy: policy}
}

// rejection carries the stage outcome; a nil *rejection means the stage
// passed.
type rejection struct {
	reason models.RejectReason
	detail string
}

func reject(reason models.RejectReason, format string, args ...interface{}) *rejection {
	return &rejection{reason: reason, detail: fmt.Sprintf(format, args...)}
}

// Validate runs every stage against the raw record. On success it returns
// the fully coerced record; on failure it returns the first stage's
// rejection.
func (v *Validator) Validate(raw models.RawTripRecord) (*models.ValidatedTripRecord, *rejection) {
	if rej := v.checkCriticalFields(raw); rej != nil {
		return nil, rej
	}

	rec := &models.ValidatedTripRecord{
		VendorID:        strings.TrimSpace(raw.VendorID),
		StoreAndFwdFlag: strings.TrimSpace(raw.StoreAndFwdFlag),
	}

	if rej := v.validateTimestamps(raw, rec); rej != nil {
		return nil, rej
	}
	if rej := v.validateCoordinates(raw, rec); rej != nil {
		return nil, rej
	}
	if rej := v.validateTripMetrics(raw, rec); rej != nil {
		return nil, rej
	}
	if rej := v.validateFareData(raw, rec); rej != nil {
		return nil, rej
	}

	return rec, nil
}

// checkCriticalFields rejects records missing any field the rest of the
// chain cannot work without. Non-critical fields are defaulted later, not
// rejected.
func (v *Validator) checkCriticalFields(raw models.RawTripRecord) *rejection {
	critical := []struct {
		name  string
		value string
	}{
		{"pickup_datetime", raw.PickupDatetime},
		{"dropoff_datetime", raw.DropoffDatetime},
		{"pickup_longitude", raw.PickupLongitude},
		{"pickup_latitude", raw.PickupLatitude},
		{"dropoff_longitude", raw.DropoffLongitude},
		{"dropoff_latitude", raw.DropoffLatitude},
	}
	for _, f := range critical {
		if strings.TrimSpace(f.value) == "" {
			return reject(models.ReasonMissingCriticalData, "missing %s", f.name)
		}
	}
	return nil
}

func (v *Validator) validateTimestamps(raw models.RawTripRecord, rec *models.ValidatedTripRecord) *rejection {
	pickup, err := parseTimestamp(raw.PickupDatetime)
	if err != nil {
		return reject(models.ReasonInvalidTimestamps, "unparseable pickup_datetime %q", raw.PickupDatetime)
	}
	dropoff, err := parseTimestamp(raw.DropoffDatetime)
	if err != nil {
		return reject(models.ReasonInvalidTimestamps, "unparseable dropoff_datetime %q", raw.DropoffDatetime)
	}

	if dropoff.Before(pickup) {
		return reject(models.ReasonInvalidTimestamps, "dropoff precedes pickup")
	}

	if year := pickup.Year(); year < v.policy.MinPickupYear || year > v.policy.MaxPickupYear {
		return reject(models.ReasonInvalidTimestamps, "pickup year %d outside accepted window %d-%d",
			year, v.policy.MinPickupYear, v.policy.MaxPickupYear)
	}

	duration := int64(dropoff.Sub(pickup).Seconds())
	if duration < v.policy.MinTripSeconds || duration > v.policy.MaxTripSeconds {
		return reject(models.ReasonInvalidTimestamps, "trip duration %ds outside [%d, %d]",
			duration, v.policy.MinTripSeconds, v.policy.MaxTripSeconds)
	}

	rec.PickupTime = pickup
	rec.DropoffTime = dropoff
	rec.TripDurationSeconds = duration
	return nil
}

func (v *Validator) validateCoordinates(raw models.RawTripRecord, rec *models.ValidatedTripRecord) *rejection {
	coords := []struct {
		name  string
		value string
		dest  *float64
	}{
		{"pickup_latitude", raw.PickupLatitude, &rec.PickupLatitude},
		{"pickup_longitude", raw.PickupLongitude, &rec.PickupLongitude},
		{"dropoff_latitude", raw.DropoffLatitude, &rec.DropoffLatitude},
		{"dropoff_longitude", raw.DropoffLongitude, &rec.DropoffLongitude},
	}
	for _, c := range coords {
		f, err := strconv.ParseFloat(strings.TrimSpace(c.value), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return reject(models.ReasonInvalidCoordinates, "unparseable %s %q", c.name, c.value)
		}
		*c.dest = f
	}

	if !v.policy.Bounds.Contains(rec.PickupLatitude, rec.PickupLongitude) {
		return reject(models.ReasonInvalidCoordinates, "pickup (%v, %v) outside bounding box",
			rec.PickupLatitude, rec.PickupLongitude)
	}
	if !v.policy.Bounds.Contains(rec.DropoffLatitude, rec.DropoffLongitude) {
		return reject(models.ReasonInvalidCoordinates, "dropoff (%v, %v) outside bounding box",
			rec.DropoffLatitude, rec.DropoffLongitude)
	}
	return nil
}

func (v *Validator) validateTripMetrics(raw models.RawTripRecord, rec *models.ValidatedTripRecord) *rejection {
	passengers, err := parseIntField(raw.PassengerCount, 1)
	if err != nil {
		return reject(models.ReasonInvalidTripMetrics, "unparseable passenger_count %q", raw.PassengerCount)
	}
	if passengers < 1 || passengers > v.policy.MaxPassengers {
		return reject(models.ReasonInvalidTripMetrics, "passenger_count %d outside [1, %d]", passengers, v.policy.MaxPassengers)
	}

	distance, err := parseFloatField(raw.TripDistance, 0)
	if err != nil {
		return reject(models.ReasonInvalidTripMetrics, "unparseable trip_distance %q", raw.TripDistance)
	}
	if distance < 0 || distance > v.policy.MaxTripDistance {
		return reject(models.ReasonInvalidTripMetrics, "trip_distance %v outside [0, %v]", distance, v.policy.MaxTripDistance)
	}

	rec.PassengerCount = passengers
	rec.TripDistanceMiles = distance
	return nil
}

func (v *Validator) validateFareData(raw models.RawTripRecord, rec *models.ValidatedTripRecord) *rejection {
	amounts := []struct {
		name  string
		value string
		max   float64
		dest  *float64
	}{
		{"fare_amount", raw.FareAmount, v.policy.MaxFareAmount, &rec.FareAmount},
		{"tip_amount", raw.TipAmount, v.policy.MaxTipAmount, &rec.TipAmount},
		{"tolls_amount", raw.TollsAmount, v.policy.MaxTollsAmount, &rec.TollsAmount},
		{"total_amount", raw.TotalAmount, v.policy.MaxTotalAmount, &rec.TotalAmount},
	}
	for _, a := range amounts {
		f, err := parseFloatField(a.value, 0)
		if err != nil {
			return reject(models.ReasonInvalidFareData, "unparseable %s %q", a.name, a.value)
		}
		if f < 0 || f > a.max {
			return reject(models.ReasonInvalidFareData, "%s %v outside [0, %v]", a.name, f, a.max)
		}
		*a.dest = f
	}

	payment, err := parseIntField(raw.PaymentType, 1)
	if err != nil {
		return reject(models.ReasonInvalidFareData, "unparseable payment_type %q", raw.PaymentType)
	}
	if payment < 1 || payment > 6 {
		return reject(models.ReasonInvalidFareData, "payment_type %d outside [1, 6]", payment)
	}
	rec.PaymentType = payment
	return nil
}

func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("no layout matched %q", value)
}

// parseFloatField coerces an optional numeric column, substituting def when
// the column is absent or empty.
func parseFloatField(value string, def float64) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number: %q", value)
	}
	return f, nil
}

// parseIntField coerces an optional integer column, tolerating float
// renderings like "2.0" that appear in re-exported datasets.
func parseIntField(value string, def int) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return def, nil
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("not an integer: %q", value)
	}
	return int(f), nil
}
