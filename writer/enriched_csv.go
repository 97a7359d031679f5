package writer

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"

	appconfig "github.com/rachealA924/Team-6-Taxi-App/config"
	"github.com/rachealA924/Team-6-Taxi-App/logger"
	"github.com/rachealA924/Team-6-Taxi-App/models"
)

const csvTimeLayout = "2006-01-02 15:04:05"

// enrichedCSVRow is the flat export shape of one accepted trip. Validated
// columns come first, derived features last, matching the source column
// order as closely as possible.
type enrichedCSVRow struct {
	VendorID        string  `csv:"vendor_id"`
	PickupDatetime  string  `csv:"pickup_datetime"`
	DropoffDatetime string  `csv:"dropoff_datetime"`
	PassengerCount  int     `csv:"passenger_count"`
	TripDistance    float64 `csv:"trip_distance"`
	TripDuration    int64   `csv:"trip_duration"`
	PickupLongitude float64 `csv:"pickup_longitude"`
	PickupLatitude  float64 `csv:"pickup_latitude"`
	StoreAndFwdFlag string  `csv:"store_and_fwd_flag"`
	DropoffLong     float64 `csv:"dropoff_longitude"`
	DropoffLat      float64 `csv:"dropoff_latitude"`
	PaymentType     int     `csv:"payment_type"`
	FareAmount      float64 `csv:"fare_amount"`
	TipAmount       float64 `csv:"tip_amount"`
	TollsAmount     float64 `csv:"tolls_amount"`
	TotalAmount     float64 `csv:"total_amount"`
	TripSpeedMph    float64 `csv:"trip_speed_mph"`
	FarePerMile     float64 `csv:"fare_per_mile"`
	IdleTimeMinutes float64 `csv:"idle_time_minutes"`
	TipPercentage   float64 `csv:"tip_percentage"`
}

// WriteEnrichedCSV exports the accepted records, in order, to the configured
// output file and returns its path.
func WriteEnrichedCSV(cfg *appconfig.Config, records []models.EnrichedTripRecord) (string, error) {
	log := logger.GetLogger().WithComponent("csv_writer").WithFields(logger.Fields{
		"record_count": len(records),
	})

	if err := os.MkdirAll(cfg.Storage.Output.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(cfg.Storage.Output.Dir, cfg.Storage.Output.EnrichedCSV)

	rows := make([]enrichedCSVRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, enrichedCSVRow{
			VendorID:        rec.VendorID,
			PickupDatetime:  rec.PickupTime.Format(csvTimeLayout),
			DropoffDatetime: rec.DropoffTime.Format(csvTimeLayout),
			PassengerCount:  rec.PassengerCount,
			TripDistance:    rec.TripDistanceMiles,
			TripDuration:    rec.TripDurationSeconds,
			PickupLongitude: rec.PickupLongitude,
			PickupLatitude:  rec.PickupLatitude,
			StoreAndFwdFlag: rec.StoreAndFwdFlag,
			DropoffLong:     rec.DropoffLongitude,
			DropoffLat:      rec.DropoffLatitude,
			PaymentType:     rec.PaymentType,
			FareAmount:      rec.FareAmount,
			TipAmount:       rec.TipAmount,
			TollsAmount:     rec.TollsAmount,
			TotalAmount:     rec.TotalAmount,
			TripSpeedMph:    rec.TripSpeedMph,
			FarePerMile:     rec.FarePerMile,
			IdleTimeMinutes: rec.IdleTimeMinutes,
			TipPercentage:   rec.TipPercentage,
		})
	}

	start := time.Now()
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return "", fmt.Errorf("failed to write enriched csv: %w", err)
	}

	logger.LogPerformanceEntry(log, "csv_writer", "write_enriched_csv", time.Since(start), logger.Fields{
		"path": path,
	})
	return path, nil
}
