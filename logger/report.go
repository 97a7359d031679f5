package logger

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type channelStat struct {
	messages int64
	bytes    int64
}

var (
	errorsPipeline  int64
	errorsWriter    int64
	warnsPipeline   int64
	warnsWriter     int64
	recordsRead     int64
	recordsAccepted int64
	recordsExcluded int64
	storeWrites     int64
	archiveWrites   int64
	channels        sync.Map // map[string]*channelStat
)

func recordWarn(component string) {
	if strings.Contains(component, "writer") || strings.Contains(component, "loader") {
		atomic.AddInt64(&warnsWriter, 1)
	} else {
		atomic.AddInt64(&warnsPipeline, 1)
	}
}

func recordError(component string) {
	if strings.Contains(component, "writer") || strings.Contains(component, "loader") {
		atomic.AddInt64(&errorsWriter, 1)
	} else {
		atomic.AddInt64(&errorsPipeline, 1)
	}
}

func IncrementRecordsRead(n int) {
	atomic.AddInt64(&recordsRead, int64(n))
	recordChannel("raw_records", n)
}

func IncrementRecordsAccepted(n int) {
	atomic.AddInt64(&recordsAccepted, int64(n))
	recordChannel("accepted_records", n)
}

func IncrementRecordsExcluded(n int) {
	atomic.AddInt64(&recordsExcluded, int64(n))
	recordChannel("excluded_records", n)
}

func IncrementStoreWrites(rows int64) {
	atomic.AddInt64(&storeWrites, 1)
	recordChannel("store_write", int(rows))
}

func IncrementArchiveWrites(size int64) {
	atomic.AddInt64(&archiveWrites, 1)
	recordChannel("archive_write", int(size))
}

func RecordChannelMessage(name string, size int) {
	recordChannel(name, size)
}

func recordChannel(name string, size int) {
	v, _ := channels.LoadOrStore(name, &channelStat{})
	cs := v.(*channelStat)
	atomic.AddInt64(&cs.messages, 1)
	atomic.AddInt64(&cs.bytes, int64(size))
}

// StartReport begins periodic logging of system and pipeline statistics.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")
	channelData := map[string]map[string]int64{}
	channels.Range(func(k, v any) bool {
		name := k.(string)
		cs := v.(*channelStat)
		channelData[name] = map[string]int64{
			"messages": atomic.LoadInt64(&cs.messages),
			"bytes":    atomic.LoadInt64(&cs.bytes),
		}
		return true
	})

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	fields := Fields{
		"errors_pipeline":  atomic.LoadInt64(&errorsPipeline),
		"errors_writer":    atomic.LoadInt64(&errorsWriter),
		"warns_pipeline":   atomic.LoadInt64(&warnsPipeline),
		"warns_writer":     atomic.LoadInt64(&warnsWriter),
		"records_read":     atomic.LoadInt64(&recordsRead),
		"records_accepted": atomic.LoadInt64(&recordsAccepted),
		"records_excluded": atomic.LoadInt64(&recordsExcluded),
		"store_writes":     atomic.LoadInt64(&storeWrites),
		"archive_writes":   atomic.LoadInt64(&archiveWrites),
		"goroutines":       runtime.NumGoroutine(),
		"cpu_percent":      cpuPct,
		"memory_mb":        int64(memStats.Used) / 1024 / 1024,
		"disk_mb":          int64(diskStats.Used) / 1024 / 1024,
		"channels":         channelData,
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	var data []cwtypes.MetricDatum
	data = append(data,
		cwtypes.MetricDatum{MetricName: aws.String("Taxi-CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		cwtypes.MetricDatum{MetricName: aws.String("Taxi-MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("Taxi-RecordsRead"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["records_read"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Taxi-RecordsAccepted"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["records_accepted"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Taxi-RecordsExcluded"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["records_excluded"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Taxi-StoreWrites"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["store_writes"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Taxi-ArchiveWrites"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["archive_writes"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Taxi-ErrorsPipeline"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_pipeline"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Taxi-ErrorsWriter"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_writer"].(int64)))},
	)

	for name, stats := range channelData {
		data = append(data,
			cwtypes.MetricDatum{
				MetricName: aws.String("Taxi-ChannelMessages"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Channel"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["messages"])),
			},
			cwtypes.MetricDatum{
				MetricName: aws.String("Taxi-ChannelBytes"),
				Unit:       cwtypes.StandardUnitBytes,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Channel"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["bytes"])),
			},
		)
	}

	publishMetrics(ctx, data)
}
