package reader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gocarina/gocsv"

	appconfig "github.com/rachealA924/Team-6-Taxi-App/config"
	"github.com/rachealA924/Team-6-Taxi-App/internal/channel"
	"github.com/rachealA924/Team-6-Taxi-App/logger"
	"github.com/rachealA924/Team-6-Taxi-App/models"
)

// TripReader streams raw trip rows from a CSV (or zipped CSV) file into the
// raw channel in file order. Reading the source is the only blocking input
// step of a batch run; everything downstream operates on in-memory records.
type TripReader struct {
	config   *appconfig.Config
	path     string
	channels *channel.Channels
	mu       sync.Mutex
	running  bool
	log      *logger.Log

	rowsRead int64
}

func NewTripReader(cfg *appconfig.Config, path string, channels *channel.Channels) *TripReader {
	return &TripReader{
		config:   cfg,
		path:     path,
		channels: channels,
		log:      logger.GetLogger(),
	}
}

// Start reads the input file and pushes every row to the raw channel. It
// blocks until the file is fully read or the context is cancelled, then
// closes the channel so downstream stages can drain and finish.
func (r *TripReader) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("trip reader already running")
	}
	r.running = true
	r.mu.Unlock()

	defer r.channels.Close()

	log := r.log.WithComponent("trip_reader").WithFields(logger.Fields{"path": r.path})

	path := r.path
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		extracted, err := ExtractArchive(path, filepath.Dir(path))
		if err != nil {
			return fmt.Errorf("failed to extract archive: %w", err)
		}
		path = extracted
		log = log.WithFields(logger.Fields{"extracted": path})
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	log.Info("reading raw trip records")

	err = gocsv.UnmarshalToCallbackWithError(file, func(rec models.RawTripRecord) error {
		if !r.channels.SendRaw(ctx, rec) {
			return ctx.Err()
		}
		atomic.AddInt64(&r.rowsRead, 1)
		logger.IncrementRecordsRead(1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	log.WithFields(logger.Fields{"rows": r.RowsRead()}).Info("finished reading raw trip records")
	return nil
}

// RowsRead reports how many rows have been emitted so far. Safe to call
// while Start is still streaming.
func (r *TripReader) RowsRead() int64 {
	return atomic.LoadInt64(&r.rowsRead)
}
