package writer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	appconfig "github.com/rachealA924/Team-6-Taxi-App/config"
	"github.com/rachealA924/Team-6-Taxi-App/logger"
	"github.com/rachealA924/Team-6-Taxi-App/models"
)

// WriteReport persists the batch cleaning summary as pretty-printed JSON so
// operators can diff runs without tooling.
func WriteReport(cfg *appconfig.Config, report models.CleaningReport) (string, error) {
	if err := os.MkdirAll(cfg.Storage.Output.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(cfg.Storage.Output.Dir, cfg.Storage.Output.ReportFile)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal cleaning report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write cleaning report: %w", err)
	}

	logger.GetLogger().WithComponent("report_writer").WithFields(logger.Fields{
		"path":           path,
		"batch_id":       report.BatchID,
		"total_records":  report.TotalRecords,
		"excluded":       report.ExcludedRecords,
		"exclusion_rate": report.ExclusionRate,
	}).Info("cleaning report written")
	return path, nil
}
