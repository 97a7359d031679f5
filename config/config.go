package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Taxiflow   TaxiflowConfig   `yaml:"taxiflow"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Validation ValidationConfig `yaml:"validation"`
	Derivation DerivationConfig `yaml:"derivation"`
	Outliers   OutlierConfig    `yaml:"outliers"`
	Storage    StorageConfig    `yaml:"storage"`
	API        APIConfig        `yaml:"api"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type TaxiflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type PipelineConfig struct {
	Workers          int `yaml:"workers"`
	ChannelBuffer    int `yaml:"channel_buffer"`
	ProgressInterval int `yaml:"progress_interval"`
	LoadChunkSize    int `yaml:"load_chunk_size"`
}

// ValidationConfig holds the admissibility policy for raw records. The
// defaults match the historical NYC dataset the dashboard was built around;
// they are deployment policy, not law.
type ValidationConfig struct {
	MinPickupYear   int       `yaml:"min_pickup_year"`
	MaxPickupYear   int       `yaml:"max_pickup_year"`
	MinTripSeconds  int64     `yaml:"min_trip_seconds"`
	MaxTripSeconds  int64     `yaml:"max_trip_seconds"`
	MaxPassengers   int       `yaml:"max_passengers"`
	MaxTripDistance float64   `yaml:"max_trip_distance"`
	MaxFareAmount   float64   `yaml:"max_fare_amount"`
	MaxTipAmount    float64   `yaml:"max_tip_amount"`
	MaxTollsAmount  float64   `yaml:"max_tolls_amount"`
	MaxTotalAmount  float64   `yaml:"max_total_amount"`
	Bounds          GeoBounds `yaml:"bounds"`
}

// GeoBounds is the coarse geofence for coordinate plausibility.
type GeoBounds struct {
	MinLat float64 `yaml:"min_lat"`
	MaxLat float64 `yaml:"max_lat"`
	MinLon float64 `yaml:"min_lon"`
	MaxLon float64 `yaml:"max_lon"`
}

func (b GeoBounds) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

type DerivationConfig struct {
	AssumedCitySpeedMph float64 `yaml:"assumed_city_speed_mph"`
	SpeedCapMph         float64 `yaml:"speed_cap_mph"`
}

// OutlierConfig bounds the derived metrics. MaxSpeedMph sits below the
// derivation clamp on purpose: speeds in (max, cap] are clamped during
// computation yet still excluded afterwards.
type OutlierConfig struct {
	MaxSpeedMph    float64 `yaml:"max_speed_mph"`
	MaxFarePerMile float64 `yaml:"max_fare_per_mile"`
	MaxIdleMinutes float64 `yaml:"max_idle_minutes"`
}

type StorageConfig struct {
	SQLite  SQLiteConfig  `yaml:"sqlite"`
	Output  OutputConfig  `yaml:"output"`
	Parquet ParquetConfig `yaml:"parquet"`
	S3      S3Config      `yaml:"s3"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type OutputConfig struct {
	Dir         string `yaml:"dir"`
	EnrichedCSV string `yaml:"enriched_csv"`
	ReportFile  string `yaml:"report_file"`
}

type ParquetConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Compression string `yaml:"compression"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

type LoggingConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"`
	Output        string `yaml:"output"`
	MaxAge        int    `yaml:"max_age"`
	DashboardName string `yaml:"dashboard_name"`
}

// LoadConfig reads and validates the YAML configuration at path. Policy
// values that are omitted fall back to the historical NYC defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := defaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override S3 settings from environment variables if available
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}
	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func defaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			Workers:          4,
			ChannelBuffer:    1000,
			ProgressInterval: 10000,
			LoadChunkSize:    1000,
		},
		Validation: ValidationConfig{
			MinPickupYear:   2015,
			MaxPickupYear:   2020,
			MinTripSeconds:  30,
			MaxTripSeconds:  86400,
			MaxPassengers:   6,
			MaxTripDistance: 500,
			MaxFareAmount:   1000,
			MaxTipAmount:    500,
			MaxTollsAmount:  100,
			MaxTotalAmount:  2000,
			Bounds: GeoBounds{
				MinLat: 40.4774,  // Staten Island
				MaxLat: 40.9176,  // Bronx
				MinLon: -74.2591, // New Jersey border
				MaxLon: -73.7004, // Queens
			},
		},
		Derivation: DerivationConfig{
			AssumedCitySpeedMph: 12,
			SpeedCapMph:         100,
		},
		Outliers: OutlierConfig{
			MaxSpeedMph:    80,
			MaxFarePerMile: 50,
			MaxIdleMinutes: 120,
		},
		Storage: StorageConfig{
			SQLite: SQLiteConfig{Path: "data/trips.db"},
			Output: OutputConfig{
				Dir:         "data/processed",
				EnrichedCSV: "cleaned_trips.csv",
				ReportFile:  "cleaning_summary.json",
			},
			Parquet: ParquetConfig{Compression: "snappy"},
		},
		API:     APIConfig{Address: ":8080"},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Taxiflow.Name == "" {
		return fmt.Errorf("taxiflow.name is required")
	}
	if cfg.Taxiflow.Version == "" {
		return fmt.Errorf("taxiflow.version is required")
	}

	if cfg.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline.workers must be greater than 0")
	}
	if cfg.Pipeline.ChannelBuffer <= 0 {
		return fmt.Errorf("pipeline.channel_buffer must be greater than 0")
	}
	if cfg.Pipeline.LoadChunkSize <= 0 {
		return fmt.Errorf("pipeline.load_chunk_size must be greater than 0")
	}

	if cfg.Validation.MinPickupYear > cfg.Validation.MaxPickupYear {
		return fmt.Errorf("validation.min_pickup_year must not exceed validation.max_pickup_year")
	}
	if cfg.Validation.MinTripSeconds <= 0 || cfg.Validation.MaxTripSeconds <= cfg.Validation.MinTripSeconds {
		return fmt.Errorf("validation trip duration window is invalid")
	}
	b := cfg.Validation.Bounds
	if b.MinLat >= b.MaxLat || b.MinLon >= b.MaxLon {
		return fmt.Errorf("validation.bounds is not a valid bounding box")
	}

	if cfg.Derivation.AssumedCitySpeedMph <= 0 {
		return fmt.Errorf("derivation.assumed_city_speed_mph must be greater than 0")
	}
	if cfg.Derivation.SpeedCapMph <= 0 {
		return fmt.Errorf("derivation.speed_cap_mph must be greater than 0")
	}
	if cfg.Outliers.MaxSpeedMph > cfg.Derivation.SpeedCapMph {
		return fmt.Errorf("outliers.max_speed_mph must not exceed derivation.speed_cap_mph")
	}

	if cfg.Storage.SQLite.Path == "" {
		return fmt.Errorf("storage.sqlite.path is required")
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
