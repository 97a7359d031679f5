package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rachealA924/Team-6-Taxi-App/api"
	"github.com/rachealA924/Team-6-Taxi-App/config"
	"github.com/rachealA924/Team-6-Taxi-App/internal/channel"
	"github.com/rachealA924/Team-6-Taxi-App/logger"
	"github.com/rachealA924/Team-6-Taxi-App/pipeline"
	"github.com/rachealA924/Team-6-Taxi-App/reader"
	"github.com/rachealA924/Team-6-Taxi-App/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	inputPath := flag.String("input", "", "Path to the raw trip CSV (or zipped CSV) to clean")
	serve := flag.Bool("serve", false, "Keep the analytics API running after the batch finishes")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Taxiflow.Name,
		"version": cfg.Taxiflow.Version,
	}).Info("starting taxiflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")
		cancel()
	}()

	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}
	if cfg.Storage.S3.Enabled {
		logger.InitCloudWatch(cfg.Storage.S3.Region, "TaxiFlow", cfg.Logging.DashboardName)
	}

	store, err := writer.NewTripStore(cfg)
	if err != nil {
		log.WithError(err).Error("failed to open trip store")
		os.Exit(1)
	}
	defer store.Close()

	if *inputPath != "" {
		if err := runBatch(ctx, cfg, log, store, *inputPath); err != nil {
			log.WithError(err).Error("batch cleaning failed")
			os.Exit(1)
		}
	} else {
		log.WithComponent("main").Info("no input file given; skipping batch cleaning")
	}

	if cfg.API.Enabled && (*serve || *inputPath == "") {
		server := api.NewServer(cfg.API, store.DB())
		if err := server.Run(ctx); err != nil {
			log.WithError(err).Error("analytics api failed")
			os.Exit(1)
		}
	}

	log.Info("taxiflow stopped")
}

// runBatch drives one full cleaning run: stream the file, clean it, then
// fan the accepted records out to the store, the CSV export and the
// parquet archive.
func runBatch(ctx context.Context, cfg *config.Config, log *logger.Log, store *writer.TripStore, inputPath string) error {
	channels := channel.NewChannels(cfg.Pipeline.ChannelBuffer)
	channels.StartMetricsReporting(ctx)

	tripReader := reader.NewTripReader(cfg, inputPath, channels)
	cleaner := pipeline.NewCleaner(cfg)

	var wg sync.WaitGroup
	var readErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		readErr = tripReader.Start(ctx)
	}()

	records, report, err := cleaner.Run(ctx, channels.Raw)
	wg.Wait()
	if err != nil {
		return err
	}
	if readErr != nil {
		return readErr
	}

	if err := store.LoadBatch(ctx, report.BatchID, records); err != nil {
		return err
	}

	csvPath, err := writer.WriteEnrichedCSV(cfg, records)
	if err != nil {
		return err
	}

	reportPath, err := writer.WriteReport(cfg, report)
	if err != nil {
		return err
	}

	if cfg.Storage.Parquet.Enabled {
		archive, err := writer.NewArchiveWriter(cfg)
		if err != nil {
			return err
		}
		if _, err := archive.WriteBatch(ctx, report.BatchID, records); err != nil {
			return err
		}
	}

	log.WithComponent("main").WithFields(logger.Fields{
		"batch_id":       report.BatchID,
		"total":          report.TotalRecords,
		"accepted":       report.ProcessedRecords,
		"excluded":       report.ExcludedRecords,
		"exclusion_rate": report.ExclusionRate,
		"enriched_csv":   csvPath,
		"report":         reportPath,
	}).Info("batch cleaning completed")
	return nil
}
