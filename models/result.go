package models

// RejectReason classifies why a record was excluded from the output set.
type RejectReason string

const (
	ReasonMissingCriticalData RejectReason = "missing_critical_data"
	ReasonInvalidTimestamps   RejectReason = "invalid_timestamps"
	ReasonInvalidCoordinates  RejectReason = "invalid_coordinates"
	ReasonInvalidTripMetrics  RejectReason = "invalid_trip_metrics"
	ReasonInvalidFareData     RejectReason = "invalid_fare_data"
	ReasonOutlier             RejectReason = "outlier"
	ReasonProcessingError     RejectReason = "processing_error"
)

// Result is the outcome of pushing one raw record through the full
// validate → derive → filter chain. Exactly one of Record or Reason is set.
// Index is the record's position in the input sequence, not the output.
type Result struct {
	Index  int
	Record *EnrichedTripRecord
	Reason RejectReason
	Detail string
}

func Accepted(index int, record *EnrichedTripRecord) Result {
	return Result{Index: index, Record: record}
}

func Rejected(index int, reason RejectReason, detail string) Result {
	return Result{Index: index, Reason: reason, Detail: detail}
}

func (r Result) IsAccepted() bool {
	return r.Record != nil
}

// Exclusion converts a rejected result into its log entry.
func (r Result) Exclusion() ExclusionEntry {
	return ExclusionEntry{RecordIndex: r.Index, Reason: r.Reason, Detail: r.Detail}
}

// ExclusionEntry records one dropped record for the cleaning report.
type ExclusionEntry struct {
	RecordIndex int          `json:"record_index"`
	Reason      RejectReason `json:"reason_code"`
	Detail      string       `json:"detail"`
}
