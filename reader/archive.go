package reader

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rachealA924/Team-6-Taxi-App/logger"
)

// ExtractArchive unpacks the first CSV inside a zip archive into destDir and
// returns the extracted file path. Extraction is skipped when the target
// already exists.
func ExtractArchive(archivePath, destDir string) (string, error) {
	log := logger.GetLogger().WithComponent("trip_reader").WithFields(logger.Fields{"archive": archivePath})

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.EqualFold(filepath.Ext(f.Name), ".csv") {
			continue
		}

		// Guard against zip-slip entries
		name := filepath.Base(f.Name)
		target := filepath.Join(destDir, name)

		if _, err := os.Stat(target); err == nil {
			log.WithFields(logger.Fields{"target": target}).Info("extracted file already exists, skipping extraction")
			return target, nil
		}

		if err := extractFile(f, target); err != nil {
			return "", err
		}

		log.WithFields(logger.Fields{"target": target}).Info("archive extracted")
		return target, nil
	}

	return "", fmt.Errorf("no csv file found in archive %s", archivePath)
}

func extractFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	return nil
}
