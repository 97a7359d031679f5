package pipeline

import (
	"context"
	"fmt"
	"testing"

	appconfig "github.com/rachealA924/Team-6-Taxi-App/config"
	"github.com/rachealA924/Team-6-Taxi-App/logger"
	"github.com/rachealA924/Team-6-Taxi-App/models"
)

func testConfig() *appconfig.Config {
	return &appconfig.Config{
		Pipeline: appconfig.PipelineConfig{
			Workers:       4,
			ChannelBuffer: 16,
		},
		Validation: testValidationPolicy(),
		Derivation: testDerivationPolicy(),
		Outliers:   testOutlierPolicy(),
	}
}

func feed(records []models.RawTripRecord) <-chan models.RawTripRecord {
	ch := make(chan models.RawTripRecord, len(records))
	for _, r := range records {
		ch <- r
	}
	close(ch)
	return ch
}

func TestRunPartitionsBatch(t *testing.T) {
	missing := validRaw()
	missing.PickupDatetime = ""

	badFare := validRaw()
	badFare.FareAmount = "-10"

	// 1 mile in 31 seconds is over 100 mph raw; clamped to the cap and then
	// excluded by the speed threshold.
	speeding := validRaw()
	speeding.TripDistance = "1"
	speeding.DropoffDatetime = "2016-03-14 17:25:26"

	input := []models.RawTripRecord{validRaw(), missing, validRaw(), badFare, speeding, validRaw()}

	c := NewCleaner(testConfig())
	records, report, err := c.Run(context.Background(), feed(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.TotalRecords != 6 {
		t.Errorf("expected 6 total records, got %d", report.TotalRecords)
	}
	if report.ProcessedRecords != 3 || len(records) != 3 {
		t.Errorf("expected 3 accepted records, got %d in report and %d returned",
			report.ProcessedRecords, len(records))
	}
	if report.ExcludedRecords != 3 {
		t.Errorf("expected 3 excluded records, got %d", report.ExcludedRecords)
	}
	if report.TotalRecords != report.ProcessedRecords+report.ExcludedRecords {
		t.Error("accepted and excluded must partition the input")
	}
	if report.ExclusionRate != 50.0 {
		t.Errorf("expected exclusion rate 50.0, got %v", report.ExclusionRate)
	}

	expectedReasons := map[models.RejectReason]int{
		models.ReasonMissingCriticalData: 1,
		models.ReasonInvalidFareData:     1,
		models.ReasonOutlier:             1,
	}
	for reason, count := range expectedReasons {
		if report.ExclusionReasons[reason] != count {
			t.Errorf("expected %d %s exclusions, got %d", count, reason, report.ExclusionReasons[reason])
		}
	}
	if len(report.Exclusions) != 3 {
		t.Fatalf("expected 3 exclusion entries, got %d", len(report.Exclusions))
	}
	if report.Exclusions[0].RecordIndex != 1 || report.Exclusions[1].RecordIndex != 3 || report.Exclusions[2].RecordIndex != 4 {
		t.Errorf("exclusion entries out of input order: %+v", report.Exclusions)
	}
}

// Accepted records come back in input order regardless of which worker
// finished first.
func TestRunPreservesInputOrder(t *testing.T) {
	const n = 500
	input := make([]models.RawTripRecord, 0, n)
	for i := 0; i < n; i++ {
		raw := validRaw()
		// Distinct passenger counts encode the input position.
		raw.PassengerCount = fmt.Sprintf("%d", i%6+1)
		input = append(input, raw)
	}

	c := NewCleaner(testConfig())
	records, report, err := c.Run(context.Background(), feed(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != n {
		t.Fatalf("expected %d accepted records, got %d", n, len(records))
	}
	if report.ExcludedRecords != 0 {
		t.Fatalf("expected no exclusions, got %d", report.ExcludedRecords)
	}

	for i, rec := range records {
		if rec.PassengerCount != i%6+1 {
			t.Fatalf("record %d out of order: passenger count %d", i, rec.PassengerCount)
		}
	}
}

func TestRunEmptyInput(t *testing.T) {
	c := NewCleaner(testConfig())
	records, report, err := c.Run(context.Background(), feed(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 || report.TotalRecords != 0 {
		t.Errorf("expected empty batch, got %d records, %d total", len(records), report.TotalRecords)
	}
	if report.ExclusionRate != 0 {
		t.Errorf("expected zero exclusion rate for empty batch, got %v", report.ExclusionRate)
	}
	if report.BatchID == "" {
		t.Error("expected a batch id even for an empty batch")
	}
}

// The same cleaner can run consecutive batches and a batch of already-clean
// records survives a second pass unchanged.
func TestRunConsecutiveBatches(t *testing.T) {
	input := []models.RawTripRecord{validRaw(), validRaw(), validRaw()}

	c := NewCleaner(testConfig())
	first, _, err := c.Run(context.Background(), feed(input))
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, report, err := c.Run(context.Background(), feed(input))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("expected identical batch sizes, got %d and %d", len(first), len(second))
	}
	if report.ExcludedRecords != 0 {
		t.Errorf("expected clean input to survive a repeat run, got %d exclusions", report.ExcludedRecords)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("record %d differs between runs", i)
		}
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := make([]models.RawTripRecord, 100)
	for i := range input {
		input[i] = validRaw()
	}

	c := NewCleaner(testConfig())
	if _, _, err := c.Run(ctx, feed(input)); err == nil {
		t.Fatal("expected cancellation error")
	}
}

// One well-formed row, ISO timestamps included, all the way through the
// per-record chain.
func TestProcessRecordEndToEnd(t *testing.T) {
	raw := models.RawTripRecord{
		PickupDatetime:   "2019-05-01T08:00:00",
		DropoffDatetime:  "2019-05-01T08:20:00",
		PassengerCount:   "2",
		TripDistance:     "3",
		PickupLatitude:   "40.75",
		PickupLongitude:  "-73.98",
		DropoffLatitude:  "40.76",
		DropoffLongitude: "-73.97",
		FareAmount:       "12",
		TipAmount:        "2",
		TollsAmount:      "0",
		TotalAmount:      "14",
		PaymentType:      "1",
	}

	c := NewCleaner(testConfig())
	res := c.processRecord(0, raw)
	if !res.IsAccepted() {
		t.Fatalf("expected acceptance, got %s: %s", res.Reason, res.Detail)
	}

	rec := res.Record
	if rec.TripDurationSeconds != 1200 {
		t.Errorf("expected duration 1200s, got %d", rec.TripDurationSeconds)
	}
	if !near(rec.TripSpeedMph, 9.0) || !near(rec.FarePerMile, 4.0) || !near(rec.IdleTimeMinutes, 5.0) {
		t.Errorf("unexpected derived features: speed=%v perMile=%v idle=%v",
			rec.TripSpeedMph, rec.FarePerMile, rec.IdleTimeMinutes)
	}
}

// A panic while processing one record is confined to that record.
func TestProcessRecordRecoversPanic(t *testing.T) {
	c := &Cleaner{
		config:   testConfig(),
		deriver:  NewDeriver(testDerivationPolicy()),
		outliers: NewOutlierFilter(testOutlierPolicy()),
		log:      logger.GetLogger(),
	}

	// A nil validator makes the stage chain panic for this record.
	res := c.processRecord(7, validRaw())
	if res.IsAccepted() {
		t.Fatal("expected the record to be rejected")
	}
	if res.Reason != models.ReasonProcessingError {
		t.Errorf("expected reason %s, got %s", models.ReasonProcessingError, res.Reason)
	}
	if res.Index != 7 {
		t.Errorf("expected index 7, got %d", res.Index)
	}
}
