package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	appconfig "github.com/rachealA924/Team-6-Taxi-App/config"
	"github.com/rachealA924/Team-6-Taxi-App/logger"
	"github.com/rachealA924/Team-6-Taxi-App/models"
)

// Cleaner drives one batch of raw records through the full
// validate → derive → filter chain and folds the per-record results into an
// ordered accepted sequence plus a cleaning report. Records are independent
// of each other, so the work fans out across workers and a final reduction
// re-establishes input order.
type Cleaner struct {
	config    *appconfig.Config
	validator *Validator
	deriver   *Deriver
	outliers  *OutlierFilter
	log       *logger.Log

	mu      sync.Mutex
	running bool
}

func NewCleaner(cfg *appconfig.Config) *Cleaner {
	return &Cleaner{
		config:    cfg,
		validator: NewValidator(cfg.Validation),
		deriver:   NewDeriver(cfg.Derivation),
		outliers:  NewOutlierFilter(cfg.Outliers),
		log:       logger.GetLogger(),
	}
}

type job struct {
	index int
	raw   models.RawTripRecord
}

// Run consumes the raw channel until it is closed and returns the accepted
// records in input order together with the batch report. Per-record
// failures never abort the batch; only cancellation surfaces as an error.
func (c *Cleaner) Run(ctx context.Context, rawChan <-chan models.RawTripRecord) ([]models.EnrichedTripRecord, models.CleaningReport, error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil, models.CleaningReport{}, fmt.Errorf("cleaner already running")
	}
	c.running = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	batchID := uuid.New().String()
	log := c.log.WithComponent("cleaner").WithFields(logger.Fields{"batch_id": batchID})

	workers := c.config.Pipeline.Workers
	if workers < 1 {
		workers = 1
	}
	buffer := c.config.Pipeline.ChannelBuffer
	if buffer < 1 {
		buffer = 1
	}

	log.WithFields(logger.Fields{"workers": workers}).Info("starting batch cleaning")
	start := time.Now()

	jobs := make(chan job, buffer)
	resultCh := make(chan models.Result, buffer)

	// Feeder assigns input-order indexes as rows arrive.
	go func() {
		defer close(jobs)
		index := 0
		for raw := range rawChan {
			select {
			case <-ctx.Done():
				return
			case jobs <- job{index: index, raw: raw}:
				index++
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := range jobs {
				resultCh <- c.processRecord(j.index, j.raw)
			}
		}(i)
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// Reduction: collect every result, then restore input order.
	results := make([]models.Result, 0, buffer)
	var accepted, excluded int
	progressEvery := c.config.Pipeline.ProgressInterval
	for res := range resultCh {
		if res.IsAccepted() {
			accepted++
			logger.IncrementRecordsAccepted(1)
		} else {
			excluded++
			logger.IncrementRecordsExcluded(1)
		}
		results = append(results, res)

		if progressEvery > 0 && len(results)%progressEvery == 0 {
			log.WithFields(logger.Fields{
				"processed": len(results),
				"accepted":  accepted,
				"excluded":  excluded,
			}).Info("cleaning progress")
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

	builder := models.NewReportBuilder(batchID)
	records := make([]models.EnrichedTripRecord, 0, accepted)
	for _, res := range results {
		builder.Add(res)
		if res.IsAccepted() {
			records = append(records, *res.Record)
		}
	}
	report := builder.Build()

	if err := ctx.Err(); err != nil {
		log.WithFields(logger.Fields{"processed": report.TotalRecords}).Warn("batch cleaning cancelled")
		return nil, report, err
	}

	retained := 0.0
	if report.TotalRecords > 0 {
		retained = float64(report.ProcessedRecords) / float64(report.TotalRecords) * 100
	}
	logger.LogPerformanceEntry(log, "cleaner", "run_batch", time.Since(start), logger.Fields{
		"total":        report.TotalRecords,
		"accepted":     report.ProcessedRecords,
		"excluded":     report.ExcludedRecords,
		"retained_pct": fmt.Sprintf("%.1f", retained),
	})
	logger.LogDataFlowEntry(log, "raw_channel", "batch_loader", report.ProcessedRecords, "enriched_records")

	return records, report, nil
}

// processRecord runs one raw record through all stages. A panic anywhere in
// the chain is confined to this record and classified as a processing
// error so a corrupt minority of rows never blocks the rest of the batch.
func (c *Cleaner) processRecord(index int, raw models.RawTripRecord) (res models.Result) {
	defer func() {
		if r := recover(); r != nil {
			c.log.WithComponent("cleaner").WithFields(logger.Fields{
				"record_index": index,
				"panic":        fmt.Sprintf("%v", r),
			}).Warn("record processing panicked")
			res = models.Rejected(index, models.ReasonProcessingError, fmt.Sprintf("panic: %v", r))
		}
	}()

	validated, rej := c.validator.Validate(raw)
	if rej != nil {
		return models.Rejected(index, rej.reason, rej.detail)
	}

	enriched := c.deriver.Derive(validated)

	if rej := c.outliers.Check(enriched); rej != nil {
		return models.Rejected(index, rej.reason, rej.detail)
	}

	return models.Accepted(index, enriched)
}
