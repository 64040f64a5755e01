package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Sources   SourcesConfig   `yaml:"sources"`
	Output    OutputConfig    `yaml:"output"`
	Storage   StorageConfig   `yaml:"storage"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Server    ServerConfig    `yaml:"server"`
	Report    ReportConfig    `yaml:"report"`
	LogLevel  string          `yaml:"logLevel"`
}

// SourcesConfig locates the three input datasets
type SourcesConfig struct {
	ArchivePath     string `yaml:"archivePath"`
	PredictionsPath string `yaml:"predictionsPath"`
	PredictionsURL  string `yaml:"predictionsURL"` // downloaded instead of read when set
	MetricsPath     string `yaml:"metricsPath"`
}

// OutputConfig holds output file locations. Empty ParquetPath or
// ReportPath disables that output.
type OutputConfig struct {
	CSVPath     string `yaml:"csvPath"`
	ParquetPath string `yaml:"parquetPath"`
	ReportPath  string `yaml:"reportPath"`
}

// StorageConfig holds storage-related configuration
type StorageConfig struct {
	Type          string `yaml:"type"`      // "memory", "dynamodb", "mongodb", "postgresql"
	Region        string `yaml:"region"`    // For AWS DynamoDB
	TableName     string `yaml:"tableName"` // table or collection holding the master records
	Endpoint      string `yaml:"endpoint"`  // Custom endpoint for local testing
	MongoDBURI    string `yaml:"mongodbURI"`
	MongoDatabase string `yaml:"mongodbDatabase"`
	PostgresURI   string `yaml:"postgresURI"`
}

// IngestionConfig holds acquisition-related configuration
type IngestionConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	RetryCount int           `yaml:"retryCount"` // total download attempts
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int `yaml:"port"`
}

// ReportConfig holds reporting thresholds
type ReportConfig struct {
	MinBreedCount int `yaml:"minBreedCount"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Sources: SourcesConfig{
			ArchivePath:     "twitter-archive-enhanced.csv",
			PredictionsPath: "image-predictions.tsv",
			MetricsPath:     "tweet-json.txt",
		},
		Output: OutputConfig{
			CSVPath: "twitter_archive_master.csv",
		},
		Storage: StorageConfig{
			Type:          "memory",
			Region:        "us-west-2",
			TableName:     "twitter_archive_master",
			MongoDatabase: "dogratings",
		},
		Ingestion: IngestionConfig{
			Timeout:    30 * time.Second,
			RetryCount: 1,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Report: ReportConfig{
			MinBreedCount: 15,
		},
		LogLevel: "info",
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Sources.ArchivePath = getEnv("ARCHIVE_PATH", cfg.Sources.ArchivePath)
	cfg.Sources.PredictionsPath = getEnv("PREDICTIONS_PATH", cfg.Sources.PredictionsPath)
	cfg.Sources.PredictionsURL = getEnv("PREDICTIONS_URL", cfg.Sources.PredictionsURL)
	cfg.Sources.MetricsPath = getEnv("METRICS_PATH", cfg.Sources.MetricsPath)

	cfg.Output.CSVPath = getEnv("OUTPUT_CSV", cfg.Output.CSVPath)
	cfg.Output.ParquetPath = getEnv("OUTPUT_PARQUET", cfg.Output.ParquetPath)
	cfg.Output.ReportPath = getEnv("OUTPUT_REPORT", cfg.Output.ReportPath)

	cfg.Storage.Type = getEnv("STORAGE_TYPE", cfg.Storage.Type)
	cfg.Storage.Region = getEnv("AWS_REGION", cfg.Storage.Region)
	cfg.Storage.TableName = getEnv("TABLE_NAME", cfg.Storage.TableName)
	cfg.Storage.Endpoint = getEnv("DYNAMODB_ENDPOINT", cfg.Storage.Endpoint) // For local DynamoDB
	cfg.Storage.MongoDBURI = getEnv("MONGODB_URI", cfg.Storage.MongoDBURI)
	cfg.Storage.MongoDatabase = getEnv("MONGODB_DATABASE", cfg.Storage.MongoDatabase)
	cfg.Storage.PostgresURI = getEnv("POSTGRES_URI", cfg.Storage.PostgresURI)

	cfg.Ingestion.Timeout = getEnvDuration("API_TIMEOUT", cfg.Ingestion.Timeout)
	cfg.Ingestion.RetryCount = getEnvInt("RETRY_COUNT", cfg.Ingestion.RetryCount)

	cfg.Server.Port = getEnvInt("SERVER_PORT", cfg.Server.Port)
	cfg.Report.MinBreedCount = getEnvInt("MIN_BREED_COUNT", cfg.Report.MinBreedCount)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
}

// Validate reports the first setting that makes a run impossible.
func (c *Config) Validate() error {
	if c.Sources.ArchivePath == "" {
		return fmt.Errorf("archive path is required")
	}
	if c.Sources.PredictionsPath == "" && c.Sources.PredictionsURL == "" {
		return fmt.Errorf("predictions path or URL is required")
	}
	if c.Sources.MetricsPath == "" {
		return fmt.Errorf("metrics path is required")
	}
	if c.Output.CSVPath == "" {
		return fmt.Errorf("output CSV path is required")
	}
	if c.Ingestion.RetryCount < 1 {
		return fmt.Errorf("retry count must be at least 1, got %d", c.Ingestion.RetryCount)
	}
	if c.Report.MinBreedCount < 0 {
		return fmt.Errorf("min breed count must not be negative")
	}

	switch c.Storage.Type {
	case "memory":
	case "dynamodb":
		if c.Storage.TableName == "" {
			return fmt.Errorf("table name is required for dynamodb")
		}
	case "mongodb":
		if c.Storage.MongoDBURI == "" {
			return fmt.Errorf("mongodb URI is required for mongodb")
		}
	case "postgresql":
		if c.Storage.PostgresURI == "" {
			return fmt.Errorf("postgres URI is required for postgresql")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
