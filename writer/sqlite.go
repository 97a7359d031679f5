package writer

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	appconfig "github.com/rachealA924/Team-6-Taxi-App/config"
	"github.com/rachealA924/Team-6-Taxi-App/logger"
	"github.com/rachealA924/Team-6-Taxi-App/models"
)

const sqliteTimeLayout = "2006-01-02 15:04:05"

// TripStore persists accepted trips into SQLite for the analytics API. The
// table carries CHECK constraints matching the validation policy, so a row
// that somehow bypassed the pipeline still cannot land in the store.
type TripStore struct {
	config *appconfig.Config
	db     *sql.DB
	log    *logger.Log
}

func NewTripStore(cfg *appconfig.Config) (*TripStore, error) {
	path := cfg.Storage.SQLite.Path
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	s := &TripStore{
		config: cfg,
		db:     db,
		log:    logger.GetLogger(),
	}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}

	s.log.WithComponent("trip_store").WithFields(logger.Fields{"path": path}).Info("trip store initialized")
	return s, nil
}

func (s *TripStore) createSchema() error {
	v := s.config.Validation
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS trips (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id TEXT NOT NULL,
		pickup_datetime DATETIME NOT NULL,
		dropoff_datetime DATETIME NOT NULL,
		passenger_count INTEGER NOT NULL CHECK (passenger_count BETWEEN 1 AND %d),
		trip_distance REAL NOT NULL CHECK (trip_distance BETWEEN 0 AND %v),
		trip_duration INTEGER NOT NULL CHECK (trip_duration BETWEEN %d AND %d),
		pickup_latitude REAL NOT NULL CHECK (pickup_latitude BETWEEN %v AND %v),
		pickup_longitude REAL NOT NULL CHECK (pickup_longitude BETWEEN %v AND %v),
		dropoff_latitude REAL NOT NULL CHECK (dropoff_latitude BETWEEN %v AND %v),
		dropoff_longitude REAL NOT NULL CHECK (dropoff_longitude BETWEEN %v AND %v),
		fare_amount REAL NOT NULL CHECK (fare_amount BETWEEN 0 AND %v),
		tip_amount REAL NOT NULL CHECK (tip_amount BETWEEN 0 AND %v),
		tolls_amount REAL NOT NULL CHECK (tolls_amount BETWEEN 0 AND %v),
		total_amount REAL NOT NULL CHECK (total_amount BETWEEN 0 AND %v),
		payment_type INTEGER NOT NULL CHECK (payment_type BETWEEN 1 AND 6),
		trip_speed_mph REAL NOT NULL CHECK (trip_speed_mph >= 0),
		fare_per_mile REAL NOT NULL CHECK (fare_per_mile >= 0),
		idle_time_minutes REAL NOT NULL CHECK (idle_time_minutes >= 0),
		tip_percentage REAL NOT NULL CHECK (tip_percentage >= 0),
		vendor_id TEXT,
		store_and_fwd_flag TEXT
	);`,
		v.MaxPassengers, v.MaxTripDistance,
		v.MinTripSeconds, v.MaxTripSeconds,
		v.Bounds.MinLat, v.Bounds.MaxLat,
		v.Bounds.MinLon, v.Bounds.MaxLon,
		v.Bounds.MinLat, v.Bounds.MaxLat,
		v.Bounds.MinLon, v.Bounds.MaxLon,
		v.MaxFareAmount, v.MaxTipAmount, v.MaxTollsAmount, v.MaxTotalAmount,
	)

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create trips table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_trips_pickup_datetime ON trips(pickup_datetime)`,
		`CREATE INDEX IF NOT EXISTS idx_trips_fare_amount ON trips(fare_amount)`,
		`CREATE INDEX IF NOT EXISTS idx_trips_trip_distance ON trips(trip_distance)`,
		`CREATE INDEX IF NOT EXISTS idx_trips_payment_type ON trips(payment_type)`,
		`CREATE INDEX IF NOT EXISTS idx_trips_trip_speed_mph ON trips(trip_speed_mph)`,
		`CREATE INDEX IF NOT EXISTS idx_trips_fare_per_mile ON trips(fare_per_mile)`,
		`CREATE INDEX IF NOT EXISTS idx_trips_pickup_location ON trips(pickup_latitude, pickup_longitude)`,
		`CREATE INDEX IF NOT EXISTS idx_trips_dropoff_location ON trips(dropoff_latitude, dropoff_longitude)`,
	}
	for _, idx := range indexes {
		if _, err := s.db.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// LoadBatch inserts the accepted records inside one transaction, preserving
// slice order. Statements are grouped in chunks only for progress logging;
// any failure rolls the whole batch back.
func (s *TripStore) LoadBatch(ctx context.Context, batchID string, records []models.EnrichedTripRecord) error {
	log := s.log.WithComponent("trip_store").WithFields(logger.Fields{
		"batch_id":     batchID,
		"record_count": len(records),
		"operation":    "load_batch",
	})

	if len(records) == 0 {
		log.Info("no accepted records to load")
		return nil
	}

	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trips (
			batch_id, pickup_datetime, dropoff_datetime,
			passenger_count, trip_distance, trip_duration,
			pickup_latitude, pickup_longitude, dropoff_latitude, dropoff_longitude,
			fare_amount, tip_amount, tolls_amount, total_amount, payment_type,
			trip_speed_mph, fare_per_mile, idle_time_minutes, tip_percentage,
			vendor_id, store_and_fwd_flag
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	chunkSize := s.config.Pipeline.LoadChunkSize
	if chunkSize < 1 {
		chunkSize = 1000
	}

	for i, rec := range records {
		_, err := stmt.ExecContext(ctx,
			batchID,
			rec.PickupTime.Format(sqliteTimeLayout),
			rec.DropoffTime.Format(sqliteTimeLayout),
			rec.PassengerCount,
			rec.TripDistanceMiles,
			rec.TripDurationSeconds,
			rec.PickupLatitude,
			rec.PickupLongitude,
			rec.DropoffLatitude,
			rec.DropoffLongitude,
			rec.FareAmount,
			rec.TipAmount,
			rec.TollsAmount,
			rec.TotalAmount,
			rec.PaymentType,
			rec.TripSpeedMph,
			rec.FarePerMile,
			rec.IdleTimeMinutes,
			rec.TipPercentage,
			rec.VendorID,
			rec.StoreAndFwdFlag,
		)
		if err != nil {
			return fmt.Errorf("failed to insert record %d: %w", i, err)
		}
		if (i+1)%chunkSize == 0 {
			log.WithFields(logger.Fields{"loaded": i + 1}).Debug("load progress")
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}

	logger.IncrementStoreWrites(int64(len(records)))
	logger.LogPerformanceEntry(log, "trip_store", "load_batch", time.Since(start), logger.Fields{
		"rows": len(records),
	})
	logger.LogDataFlowEntry(log, "cleaner", "trip_store", len(records), "enriched_records")
	return nil
}

// CountTrips reports the number of stored trips, mostly for smoke checks.
func (s *TripStore) CountTrips(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trips`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count trips: %w", err)
	}
	return n, nil
}

// DB exposes the underlying handle for the analytics API.
func (s *TripStore) DB() *sql.DB {
	return s.db
}

func (s *TripStore) Close() error {
	return s.db.Close()
}
