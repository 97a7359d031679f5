package writer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	appconfig "github.com/rachealA924/Team-6-Taxi-App/config"
	"github.com/rachealA924/Team-6-Taxi-App/models"
)

func testStorageConfig(t *testing.T) *appconfig.Config {
	t.Helper()
	dir := t.TempDir()
	return &appconfig.Config{
		Taxiflow: appconfig.TaxiflowConfig{Name: "taxiflow", Version: "test"},
		Pipeline: appconfig.PipelineConfig{LoadChunkSize: 2},
		Validation: appconfig.ValidationConfig{
			MinPickupYear:   2015,
			MaxPickupYear:   2020,
			MinTripSeconds:  30,
			MaxTripSeconds:  86400,
			MaxPassengers:   6,
			MaxTripDistance: 500,
			MaxFareAmount:   1000,
			MaxTipAmount:    500,
			MaxTollsAmount:  100,
			MaxTotalAmount:  2000,
			Bounds: appconfig.GeoBounds{
				MinLat: 40.4774,
				MaxLat: 40.9176,
				MinLon: -74.2591,
				MaxLon: -73.7004,
			},
		},
		Storage: appconfig.StorageConfig{
			SQLite: appconfig.SQLiteConfig{Path: filepath.Join(dir, "trips.db")},
			Output: appconfig.OutputConfig{
				Dir:         filepath.Join(dir, "processed"),
				EnrichedCSV: "cleaned_trips.csv",
				ReportFile:  "cleaning_summary.json",
			},
			Parquet: appconfig.ParquetConfig{Compression: "snappy"},
		},
	}
}

func sampleEnriched(distance float64) models.EnrichedTripRecord {
	pickup := time.Date(2016, 3, 14, 17, 24, 55, 0, time.UTC)
	return models.EnrichedTripRecord{
		ValidatedTripRecord: models.ValidatedTripRecord{
			PickupTime:          pickup,
			DropoffTime:         pickup.Add(20 * time.Minute),
			PassengerCount:      1,
			TripDistanceMiles:   distance,
			TripDurationSeconds: 1200,
			PickupLatitude:      40.7614,
			PickupLongitude:     -73.9776,
			DropoffLatitude:     40.6513,
			DropoffLongitude:    -73.9496,
			FareAmount:          12,
			TipAmount:           1.2,
			TotalAmount:         13.2,
			PaymentType:         1,
			VendorID:            "CMT",
			StoreAndFwdFlag:     "N",
		},
		TripSpeedMph:    distance * 3,
		FarePerMile:     4,
		IdleTimeMinutes: 5,
		TipPercentage:   10,
	}
}

func TestTripStoreLoadBatch(t *testing.T) {
	cfg := testStorageConfig(t)
	store, err := NewTripStore(cfg)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	records := []models.EnrichedTripRecord{
		sampleEnriched(1), sampleEnriched(2), sampleEnriched(3),
	}
	if err := store.LoadBatch(context.Background(), "batch-1", records); err != nil {
		t.Fatalf("load batch failed: %v", err)
	}

	count, err := store.CountTrips(context.Background())
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 stored trips, got %d", count)
	}

	// Insertion order must match slice order.
	rows, err := store.DB().Query(`SELECT trip_distance FROM trips ORDER BY id`)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	defer rows.Close()
	want := []float64{1, 2, 3}
	for i := 0; rows.Next(); i++ {
		var d float64
		if err := rows.Scan(&d); err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		if d != want[i] {
			t.Errorf("row %d: expected distance %v, got %v", i, want[i], d)
		}
	}
}

// A record violating a table constraint must roll back the entire batch.
func TestTripStoreLoadBatchAllOrNothing(t *testing.T) {
	cfg := testStorageConfig(t)
	store, err := NewTripStore(cfg)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	bad := sampleEnriched(2)
	bad.PassengerCount = 0 // violates the passenger_count CHECK

	records := []models.EnrichedTripRecord{sampleEnriched(1), bad, sampleEnriched(3)}
	if err := store.LoadBatch(context.Background(), "batch-2", records); err == nil {
		t.Fatal("expected constraint violation to fail the batch")
	}

	count, err := store.CountTrips(context.Background())
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected rollback to leave 0 rows, got %d", count)
	}
}

func TestTripStoreEmptyBatch(t *testing.T) {
	cfg := testStorageConfig(t)
	store, err := NewTripStore(cfg)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	if err := store.LoadBatch(context.Background(), "batch-3", nil); err != nil {
		t.Fatalf("empty batch should be a no-op, got %v", err)
	}
}

func TestWriteEnrichedCSV(t *testing.T) {
	cfg := testStorageConfig(t)

	path, err := WriteEnrichedCSV(cfg, []models.EnrichedTripRecord{sampleEnriched(3)})
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}

	header := lines[0]
	for _, col := range []string{"pickup_datetime", "trip_duration", "trip_speed_mph", "fare_per_mile", "idle_time_minutes", "tip_percentage"} {
		if !strings.Contains(header, col) {
			t.Errorf("header missing column %s: %s", col, header)
		}
	}
	if !strings.Contains(lines[1], "2016-03-14 17:24:55") {
		t.Errorf("expected formatted pickup time in row: %s", lines[1])
	}
}

func TestWriteReport(t *testing.T) {
	cfg := testStorageConfig(t)

	report := models.CleaningReport{
		BatchID:          "batch-9",
		TotalRecords:     10,
		ProcessedRecords: 8,
		ExcludedRecords:  2,
		ExclusionRate:    20,
		ExclusionReasons: map[models.RejectReason]int{models.ReasonOutlier: 2},
	}
	path, err := WriteReport(cfg, report)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	var decoded models.CleaningReport
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report is not valid json: %v", err)
	}
	if decoded.BatchID != "batch-9" || decoded.ExcludedRecords != 2 {
		t.Errorf("unexpected decoded report: %+v", decoded)
	}
	if decoded.ExclusionReasons[models.ReasonOutlier] != 2 {
		t.Errorf("expected outlier count 2, got %d", decoded.ExclusionReasons[models.ReasonOutlier])
	}
}

func TestArchiveWriterLocalParquet(t *testing.T) {
	cfg := testStorageConfig(t)
	cfg.Storage.Parquet.Enabled = true

	w, err := NewArchiveWriter(cfg)
	if err != nil {
		t.Fatalf("failed to create archive writer: %v", err)
	}

	path, err := w.WriteBatch(context.Background(), "batch-7", []models.EnrichedTripRecord{
		sampleEnriched(1), sampleEnriched(2),
	})
	if err != nil {
		t.Fatalf("write batch failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected parquet file at %s: %v", path, err)
	}
	if info.Size() == 0 {
		t.Error("expected non-empty parquet file")
	}
	if !strings.Contains(filepath.Base(path), "batch-7") {
		t.Errorf("expected batch id in filename, got %s", filepath.Base(path))
	}
}

func TestArchiveWriterEmptyBatch(t *testing.T) {
	cfg := testStorageConfig(t)
	w, err := NewArchiveWriter(cfg)
	if err != nil {
		t.Fatalf("failed to create archive writer: %v", err)
	}
	path, err := w.WriteBatch(context.Background(), "batch-8", nil)
	if err != nil {
		t.Fatalf("empty batch should be a no-op, got %v", err)
	}
	if path != "" {
		t.Errorf("expected no file for empty batch, got %s", path)
	}
}

func TestGenerateS3Key(t *testing.T) {
	cfg := testStorageConfig(t)
	cfg.Storage.S3.Prefix = "taxi/archive"

	w := &ArchiveWriter{config: cfg}
	pickup := time.Date(2016, 3, 14, 17, 24, 55, 0, time.UTC)
	written := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	key := w.generateS3Key("abc", pickup, written)
	want := "taxi/archive/year=2016/month=03/day=14/trips_20260830120000_abc.parquet"
	if key != want {
		t.Errorf("expected key %s, got %s", want, key)
	}
}
