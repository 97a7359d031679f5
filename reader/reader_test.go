package reader

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	appconfig "github.com/rachealA924/Team-6-Taxi-App/config"
	"github.com/rachealA924/Team-6-Taxi-App/internal/channel"
	"github.com/rachealA924/Team-6-Taxi-App/models"
)

const sampleCSV = `vendor_id,pickup_datetime,dropoff_datetime,passenger_count,trip_distance,pickup_longitude,pickup_latitude,rate_code_id,store_and_fwd_flag,dropoff_longitude,dropoff_latitude,payment_type,fare_amount,extra,mta_tax,tip_amount,tolls_amount,improvement_surcharge,total_amount
CMT,2016-03-14 17:24:55,2016-03-14 17:44:55,1,3.0,-73.9776,40.7614,1,N,-73.9496,40.6513,1,12.0,0.5,0.5,1.2,0,0.3,14.5
VTS,2016-03-14 18:00:00,2016-03-14 18:10:00,2,1.5,-73.9857,40.7484,1,N,-73.9772,40.7527,2,7.5,0,0.5,0,0,0.3,8.3
`

func writeSampleCSV(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "trips.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatalf("failed to write sample csv: %v", err)
	}
	return path
}

func drain(t *testing.T, channels *channel.Channels) []models.RawTripRecord {
	t.Helper()
	var records []models.RawTripRecord
	for rec := range channels.Raw {
		records = append(records, rec)
	}
	return records
}

func TestReaderStreamsCSVRows(t *testing.T) {
	path := writeSampleCSV(t, t.TempDir())

	channels := channel.NewChannels(10)
	r := NewTripReader(&appconfig.Config{}, path, channels)

	done := make(chan error, 1)
	go func() { done <- r.Start(context.Background()) }()

	// RowsRead may be called while Start is still streaming.
	var records []models.RawTripRecord
	for rec := range channels.Raw {
		records = append(records, rec)
		if n := r.RowsRead(); n < 0 || n > 2 {
			t.Errorf("implausible mid-stream row count %d", n)
		}
	}
	if err := <-done; err != nil {
		t.Fatalf("unexpected reader error: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	first := records[0]
	if first.VendorID != "CMT" || first.PickupDatetime != "2016-03-14 17:24:55" {
		t.Errorf("unexpected first record: %+v", first)
	}
	if first.TripDistance != "3.0" || first.FareAmount != "12.0" {
		t.Errorf("expected raw string fields to pass through untouched, got %+v", first)
	}
	if records[1].PaymentType != "2" {
		t.Errorf("expected second record payment type 2, got %q", records[1].PaymentType)
	}
	if r.RowsRead() != 2 {
		t.Errorf("expected 2 rows read, got %d", r.RowsRead())
	}
}

func TestReaderMissingFile(t *testing.T) {
	channels := channel.NewChannels(1)
	r := NewTripReader(&appconfig.Config{}, filepath.Join(t.TempDir(), "absent.csv"), channels)

	done := make(chan error, 1)
	go func() { done <- r.Start(context.Background()) }()
	drain(t, channels)

	if err := <-done; err == nil {
		t.Fatal("expected error for missing input file")
	}
}

func TestReaderExtractsZippedInput(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "trips.zip")

	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}
	zw := zip.NewWriter(f)
	entry, err := zw.Create("trips.csv")
	if err != nil {
		t.Fatalf("failed to add archive entry: %v", err)
	}
	if _, err := entry.Write([]byte(sampleCSV)); err != nil {
		t.Fatalf("failed to write archive entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finalize archive: %v", err)
	}
	f.Close()

	channels := channel.NewChannels(10)
	r := NewTripReader(&appconfig.Config{}, zipPath, channels)

	done := make(chan error, 1)
	go func() { done <- r.Start(context.Background()) }()
	records := drain(t, channels)

	if err := <-done; err != nil {
		t.Fatalf("unexpected reader error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records from zipped input, got %d", len(records))
	}
	if _, err := os.Stat(filepath.Join(dir, "trips.csv")); err != nil {
		t.Errorf("expected extracted csv next to the archive: %v", err)
	}
}

func TestExtractArchiveNoCSV(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "empty.zip")

	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}
	zw := zip.NewWriter(f)
	entry, err := zw.Create("readme.txt")
	if err != nil {
		t.Fatalf("failed to add archive entry: %v", err)
	}
	if _, err := entry.Write([]byte("no data here")); err != nil {
		t.Fatalf("failed to write archive entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finalize archive: %v", err)
	}
	f.Close()

	if _, err := ExtractArchive(zipPath, dir); err == nil {
		t.Fatal("expected error for archive without a csv entry")
	}
}
