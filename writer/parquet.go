package writer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	appconfig "github.com/rachealA924/Team-6-Taxi-App/config"
	"github.com/rachealA924/Team-6-Taxi-App/logger"
	"github.com/rachealA924/Team-6-Taxi-App/models"
)

// ParquetTripRecord is the columnar layout of one accepted trip. Timestamps
// are unix milliseconds.
type ParquetTripRecord struct {
	PickupDatetime  int64   `parquet:"name=pickup_datetime, type=INT64"`
	DropoffDatetime int64   `parquet:"name=dropoff_datetime, type=INT64"`
	PassengerCount  int32   `parquet:"name=passenger_count, type=INT32"`
	TripDistance    float64 `parquet:"name=trip_distance, type=DOUBLE"`
	TripDuration    int64   `parquet:"name=trip_duration, type=INT64"`
	PickupLatitude  float64 `parquet:"name=pickup_latitude, type=DOUBLE"`
	PickupLongitude float64 `parquet:"name=pickup_longitude, type=DOUBLE"`
	DropoffLat      float64 `parquet:"name=dropoff_latitude, type=DOUBLE"`
	DropoffLong     float64 `parquet:"name=dropoff_longitude, type=DOUBLE"`
	FareAmount      float64 `parquet:"name=fare_amount, type=DOUBLE"`
	TipAmount       float64 `parquet:"name=tip_amount, type=DOUBLE"`
	TollsAmount     float64 `parquet:"name=tolls_amount, type=DOUBLE"`
	TotalAmount     float64 `parquet:"name=total_amount, type=DOUBLE"`
	PaymentType     int32   `parquet:"name=payment_type, type=INT32"`
	TripSpeedMph    float64 `parquet:"name=trip_speed_mph, type=DOUBLE"`
	FarePerMile     float64 `parquet:"name=fare_per_mile, type=DOUBLE"`
	IdleTimeMin     float64 `parquet:"name=idle_time_minutes, type=DOUBLE"`
	TipPercentage   float64 `parquet:"name=tip_percentage, type=DOUBLE"`
	VendorID        string  `parquet:"name=vendor_id, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// memoryFileWriter implements the ParquetFile interface over a byte buffer
// so the file can be assembled before touching disk or S3.
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{buffer: &bytes.Buffer{}}
}

func (mfw *memoryFileWriter) Create(name string) (source.ParquetFile, error) { return mfw, nil }
func (mfw *memoryFileWriter) Open(name string) (source.ParquetFile, error)   { return mfw, nil }

func (mfw *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	// Write-only usage never seeks backwards.
	return int64(mfw.buffer.Len()), nil
}

func (mfw *memoryFileWriter) Read(b []byte) (int, error)  { return mfw.buffer.Read(b) }
func (mfw *memoryFileWriter) Write(b []byte) (int, error) { return mfw.buffer.Write(b) }
func (mfw *memoryFileWriter) Close() error                { return nil }
func (mfw *memoryFileWriter) Bytes() []byte               { return mfw.buffer.Bytes() }

// ArchiveWriter turns a cleaned batch into a parquet file in the output
// directory and, when configured, mirrors it to S3 for long-term storage.
type ArchiveWriter struct {
	config   *appconfig.Config
	s3Client *s3.Client
	log      *logger.Log
}

func NewArchiveWriter(cfg *appconfig.Config) (*ArchiveWriter, error) {
	log := logger.GetLogger()

	w := &ArchiveWriter{config: cfg, log: log}

	if cfg.Storage.S3.Enabled {
		loadOpts := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(cfg.Storage.S3.Region),
		}
		if cfg.Storage.S3.AccessKeyID != "" && cfg.Storage.S3.SecretAccessKey != "" {
			loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(
					cfg.Storage.S3.AccessKeyID,
					cfg.Storage.S3.SecretAccessKey,
					"",
				),
			))
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
		}
		creds, err := awsCfg.Credentials.Retrieve(context.Background())
		if err != nil || !creds.HasKeys() {
			return nil, fmt.Errorf("aws credentials not found")
		}

		w.s3Client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Storage.S3.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Storage.S3.Endpoint)
			}
			o.UsePathStyle = cfg.Storage.S3.PathStyle
		})

		log.WithComponent("archive_writer").WithFields(logger.Fields{
			"bucket":     cfg.Storage.S3.Bucket,
			"region":     cfg.Storage.S3.Region,
			"endpoint":   cfg.Storage.S3.Endpoint,
			"path_style": cfg.Storage.S3.PathStyle,
		}).Info("s3 archive target initialized")
	}

	return w, nil
}

// WriteBatch archives the accepted records of one batch and returns the
// local parquet path.
func (w *ArchiveWriter) WriteBatch(ctx context.Context, batchID string, records []models.EnrichedTripRecord) (string, error) {
	log := w.log.WithComponent("archive_writer").WithFields(logger.Fields{
		"batch_id":     batchID,
		"record_count": len(records),
		"operation":    "write_batch",
	})

	if len(records) == 0 {
		log.Debug("batch has no accepted records, skipping archive")
		return "", nil
	}

	start := time.Now()

	data, err := w.createParquetFile(records)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(w.config.Storage.Output.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	filename := fmt.Sprintf("trips_%s_%s.parquet", start.UTC().Format("20060102150405"), batchID)
	path := filepath.Join(w.config.Storage.Output.Dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write parquet file: %w", err)
	}

	logger.IncrementArchiveWrites(int64(len(data)))
	log = log.WithFields(logger.Fields{"file_size": len(data), "path": path})

	if w.s3Client != nil {
		key := w.generateS3Key(batchID, records[0].PickupTime, start)
		if err := w.uploadToS3(ctx, key, data); err != nil {
			log.WithError(err).
				WithEnv("S3_BUCKET").
				WithFields(logger.Fields{"bucket": w.config.Storage.S3.Bucket, "s3_key": key}).
				Error("failed to upload archive to S3")
			return path, err
		}
		log = log.WithFields(logger.Fields{"s3_key": key})
	}

	logger.LogPerformanceEntry(log, "archive_writer", "write_batch", time.Since(start), logger.Fields{
		"rows": len(records),
	})
	return path, nil
}

// generateS3Key partitions archives by pickup date so downstream query
// engines can prune by day.
func (w *ArchiveWriter) generateS3Key(batchID string, pickup, written time.Time) string {
	parts := []string{}
	if prefix := w.config.Storage.S3.Prefix; prefix != "" {
		parts = append(parts, prefix)
	}
	parts = append(parts,
		fmt.Sprintf("year=%04d", pickup.Year()),
		fmt.Sprintf("month=%02d", pickup.Month()),
		fmt.Sprintf("day=%02d", pickup.Day()),
		fmt.Sprintf("trips_%s_%s.parquet", written.UTC().Format("20060102150405"), batchID),
	)
	return filepath.ToSlash(filepath.Join(parts...))
}

func (w *ArchiveWriter) createParquetFile(records []models.EnrichedTripRecord) ([]byte, error) {
	fw := newMemoryFileWriter()

	pw, err := writer.NewParquetWriter(fw, new(ParquetTripRecord), 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	switch w.config.Storage.Parquet.Compression {
	case "snappy":
		pw.CompressionType = parquet.CompressionCodec_SNAPPY
	case "gzip":
		pw.CompressionType = parquet.CompressionCodec_GZIP
	default:
		pw.CompressionType = parquet.CompressionCodec_UNCOMPRESSED
	}

	for _, rec := range records {
		row := ParquetTripRecord{
			PickupDatetime:  rec.PickupTime.UnixMilli(),
			DropoffDatetime: rec.DropoffTime.UnixMilli(),
			PassengerCount:  int32(rec.PassengerCount),
			TripDistance:    rec.TripDistanceMiles,
			TripDuration:    rec.TripDurationSeconds,
			PickupLatitude:  rec.PickupLatitude,
			PickupLongitude: rec.PickupLongitude,
			DropoffLat:      rec.DropoffLatitude,
			DropoffLong:     rec.DropoffLongitude,
			FareAmount:      rec.FareAmount,
			TipAmount:       rec.TipAmount,
			TollsAmount:     rec.TollsAmount,
			TotalAmount:     rec.TotalAmount,
			PaymentType:     int32(rec.PaymentType),
			TripSpeedMph:    rec.TripSpeedMph,
			FarePerMile:     rec.FarePerMile,
			IdleTimeMin:     rec.IdleTimeMinutes,
			TipPercentage:   rec.TipPercentage,
			VendorID:        rec.VendorID,
		}
		if err := pw.Write(row); err != nil {
			pw.WriteStop()
			return nil, fmt.Errorf("failed to write parquet record: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet writing: %w", err)
	}
	return fw.Bytes(), nil
}

func (w *ArchiveWriter) uploadToS3(ctx context.Context, key string, data []byte) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(w.config.Storage.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"content-type":     "parquet",
			"compression":      w.config.Storage.Parquet.Compression,
			"taxiflow-version": w.config.Taxiflow.Version,
		},
	}

	if _, err := w.s3Client.PutObject(context.WithoutCancel(ctx), input); err != nil {
		return fmt.Errorf("failed to upload to S3 bucket %s: %w", w.config.Storage.S3.Bucket, err)
	}
	return nil
}
