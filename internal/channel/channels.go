package channel

import (
	"context"
	"sync"
	"time"

	"github.com/rachealA924/Team-6-Taxi-App/logger"
	"github.com/rachealA924/Team-6-Taxi-App/models"
)

type ChannelStats struct {
	RawSent    int64
	RawDropped int64
}

// Channels owns the raw-record channel connecting the reader to the
// cleaner. The reader closes Raw when the input file is exhausted; nothing
// else closes it.
type Channels struct {
	Raw chan models.RawTripRecord

	stats      ChannelStats
	statsMutex sync.RWMutex
	log        *logger.Log
}

func NewChannels(rawBufferSize int) *Channels {
	log := logger.GetLogger()
	c := &Channels{
		Raw: make(chan models.RawTripRecord, rawBufferSize),
		log: log,
	}

	log.WithComponent("channels").WithFields(logger.Fields{
		"raw_buffer_size": rawBufferSize,
	}).Info("pipeline channels initialized")

	return c
}

// Close ends the raw stream; the reader calls it once the input file is
// fully consumed.
func (c *Channels) Close() {
	close(c.Raw)
	c.log.WithComponent("channels").Info("pipeline channels closed")
}

// SendRaw offers a record, blocking until the cleaner drains the buffer or
// the batch is cancelled.
func (c *Channels) SendRaw(ctx context.Context, rec models.RawTripRecord) bool {
	select {
	case c.Raw <- rec:
		c.statsMutex.Lock()
		c.stats.RawSent++
		c.statsMutex.Unlock()
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Channels) GetStats() ChannelStats {
	c.statsMutex.RLock()
	defer c.statsMutex.RUnlock()
	return c.stats
}

// StartMetricsReporting periodically records channel occupancy so the
// runtime report can show backpressure between reader and cleaner.
func (c *Channels) StartMetricsReporting(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.log.LogMetric("channels", "raw_channel_len", len(c.Raw), "gauge", logger.Fields{})
				logger.RecordChannelMessage("raw_channel_occupancy", len(c.Raw))
			}
		}
	}()
}
