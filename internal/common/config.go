package common

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/contracts-extractor/constants"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	OCR        OCRConfig        `yaml:"ocr"`
	LLM        LLMConfig        `yaml:"llm"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Processing ProcessingConfig `yaml:"processing"`
	Notify     NotifyConfig     `yaml:"notify"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string        `yaml:"driver"` // "postgres" | "sqlite"
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
	HTTPAddr string `yaml:"http_addr"`
}

// StorageConfig selects where original PDF bytes live.
type StorageConfig struct {
	Backend   string `yaml:"backend"` // "fs" | "gcs"
	Dir       string `yaml:"dir"`
	GCSBucket string `yaml:"gcs_bucket"`
	GCSPrefix string `yaml:"gcs_prefix"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Pdftoppm       string        `yaml:"pdftoppm"`
	Tesseract      string        `yaml:"tesseract"`
	Language       string        `yaml:"language"`
	DPI            int           `yaml:"dpi"`
	TessdataDir    string        `yaml:"tessdata_dir"`
	MinCharDensity float64       `yaml:"min_char_density"` // chars per 10,000 pt²
	CallTimeout    time.Duration `yaml:"call_timeout"`
	Parallelism    int           `yaml:"parallelism"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"-"`
	BaseURL     string        `yaml:"base_url"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxChars    int           `yaml:"max_chars"`
}

// ScoringConfig holds the thresholds and weights used by extraction and scoring.
type ScoringConfig struct {
	LowConfidence        float64                           `yaml:"low_confidence"`
	DerivedLowConfidence float64                           `yaml:"derived_low_confidence"`
	HighConfidence       float64                           `yaml:"high_confidence"`
	NeedsConfirmation    float64                           `yaml:"needs_confirmation"`
	AmbiguityPenalty     float64                           `yaml:"ambiguity_penalty"`
	Weights              map[constants.WeightGroup]float64 `yaml:"weights"`
}

// ProcessingConfig holds worker pool and intake limits.
type ProcessingConfig struct {
	Workers         int           `yaml:"workers"`
	QueueSize       int           `yaml:"queue_size"`
	JobTimeout      time.Duration `yaml:"job_timeout"`
	RunLease        time.Duration `yaml:"run_lease"`
	MaxUploadSize   int64         `yaml:"max_upload_size"`
	AllowDuplicates bool          `yaml:"allow_duplicates"`
}

// NotifyConfig configures status-change publication.
type NotifyConfig struct {
	RedisURL string `yaml:"redis_url"`
	Channel  string `yaml:"channel"`
}

// TelemetryConfig configures tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "file:contracts.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
			MaxConns:        20,
			MinConns:        5,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{
			GRPCAddr: ":8080",
			HTTPAddr: ":8000",
		},
		Storage: StorageConfig{
			Backend: "fs",
			Dir:     "./uploads",
		},
		OCR: OCRConfig{
			Enabled:        true,
			Pdftoppm:       "pdftoppm",
			Tesseract:      "tesseract",
			Language:       "eng",
			DPI:            300,
			MinCharDensity: 2.0,
			CallTimeout:    60 * time.Second,
			Parallelism:    4,
		},
		LLM: LLMConfig{
			Enabled:     false,
			Model:       "gpt-4o-mini",
			BaseURL:     "https://api.openai.com/v1",
			Temperature: 0.0,
			Timeout:     45 * time.Second,
			MaxChars:    12000,
		},
		Scoring: ScoringConfig{
			LowConfidence:        0.6,
			DerivedLowConfidence: 0.7,
			HighConfidence:       0.8,
			NeedsConfirmation:    0.6,
			AmbiguityPenalty:     0.15,
			Weights:              constants.DefaultWeights(),
		},
		Processing: ProcessingConfig{
			Workers:       4,
			QueueSize:     256,
			JobTimeout:    120 * time.Second,
			RunLease:      10 * time.Minute,
			MaxUploadSize: constants.MaxUploadSizeDefault,
		},
		Notify: NotifyConfig{
			Channel: "contracts:status",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "contracts-extractor",
			SampleRatio: 0.1,
		},
	}
}

// LoadConfig loads configuration from environment variables on top of the defaults.
func LoadConfig() *Config {
	cfg := DefaultConfig()
	cfg.applyEnv()
	return cfg
}

// LoadConfigFile reads defaults, then the YAML file at path (if any), then env overrides.
func LoadConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, NewAppError("CONFIG_ERROR", "read config file", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, NewAppError("CONFIG_ERROR", "parse config file "+path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)
	c.Database.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", c.Database.StatementTimeout)

	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)

	c.Storage.Backend = getEnv("STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.Dir = getEnv("UPLOAD_DIR", c.Storage.Dir)
	c.Storage.GCSBucket = getEnv("GCS_BUCKET", c.Storage.GCSBucket)
	c.Storage.GCSPrefix = getEnv("GCS_PREFIX", c.Storage.GCSPrefix)

	c.OCR.Enabled = getEnvAsBool("OCR_ENABLED", c.OCR.Enabled)
	c.OCR.Pdftoppm = getEnv("PDFTOPPM_BIN", c.OCR.Pdftoppm)
	c.OCR.Tesseract = getEnv("TESSERACT_BIN", c.OCR.Tesseract)
	c.OCR.Language = getEnv("OCR_LANGUAGE", c.OCR.Language)
	c.OCR.DPI = getEnvAsInt("OCR_DPI", c.OCR.DPI)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.MinCharDensity = getEnvAsFloat64("OCR_MIN_CHAR_DENSITY", c.OCR.MinCharDensity)
	c.OCR.CallTimeout = getEnvAsDuration("OCR_CALL_TIMEOUT", c.OCR.CallTimeout)
	c.OCR.Parallelism = getEnvAsInt("OCR_PARALLELISM", c.OCR.Parallelism)

	c.LLM.Enabled = getEnvAsBool("LLM_ENABLED", c.LLM.Enabled)
	c.LLM.Model = getEnv("OPENAI_MODEL", c.LLM.Model)
	c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = getEnv("OPENAI_BASE_URL", c.LLM.BaseURL)
	c.LLM.Temperature = getEnvAsFloat32("OPENAI_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = getEnvAsDuration("OPENAI_TIMEOUT", c.LLM.Timeout)

	c.Scoring.LowConfidence = getEnvAsFloat64("LOW_CONFIDENCE_THRESHOLD", c.Scoring.LowConfidence)
	c.Scoring.DerivedLowConfidence = getEnvAsFloat64("DERIVED_LOW_CONFIDENCE_THRESHOLD", c.Scoring.DerivedLowConfidence)
	c.Scoring.HighConfidence = getEnvAsFloat64("HIGH_CONFIDENCE_THRESHOLD", c.Scoring.HighConfidence)
	c.Scoring.NeedsConfirmation = getEnvAsFloat64("NEEDS_CONFIRMATION_THRESHOLD", c.Scoring.NeedsConfirmation)

	c.Processing.Workers = getEnvAsInt("MAX_CONCURRENT_PROCESSING", c.Processing.Workers)
	c.Processing.QueueSize = getEnvAsInt("QUEUE_SIZE", c.Processing.QueueSize)
	c.Processing.JobTimeout = getEnvAsDuration("PROCESSING_TIMEOUT", c.Processing.JobTimeout)
	c.Processing.RunLease = getEnvAsDuration("RUN_LEASE", c.Processing.RunLease)
	c.Processing.MaxUploadSize = getEnvAsInt64("MAX_UPLOAD_SIZE", c.Processing.MaxUploadSize)
	c.Processing.AllowDuplicates = getEnvAsBool("ALLOW_DUPLICATES", c.Processing.AllowDuplicates)

	c.Notify.RedisURL = getEnv("REDIS_URL", c.Notify.RedisURL)
	c.Notify.Channel = getEnv("NOTIFY_CHANNEL", c.Notify.Channel)

	c.Telemetry.Enabled = getEnvAsBool("OTEL_ENABLED", c.Telemetry.Enabled)
	c.Telemetry.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.Telemetry.OTLPEndpoint)
	c.Telemetry.SampleRatio = getEnvAsFloat64("OTEL_SAMPLER_RATIO", c.Telemetry.SampleRatio)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("database.driver", c.Database.Driver, OneOf("postgres", "sqlite", "sqlite3"))
	v.Field("database.dsn", c.Database.DSN, Required)
	v.Field("storage.backend", c.Storage.Backend, OneOf("fs", "gcs"))
	if c.Storage.Backend == "gcs" {
		v.Field("storage.gcs_bucket", c.Storage.GCSBucket, Required)
	} else {
		v.Field("storage.dir", c.Storage.Dir, Required)
	}
	if c.LLM.Enabled {
		v.Field("llm.api_key (OPENAI_API_KEY)", c.LLM.APIKey, Required)
	}
	v.Field("processing.workers", c.Processing.Workers, IntRange(1, 256))
	v.Field("processing.max_upload_size", c.Processing.MaxUploadSize, Int64Range(1, math.MaxInt64))
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return c.Scoring.Validate()
}

// Validate checks thresholds and that the weights sum to 1.
func (s ScoringConfig) Validate() error {
	for name, t := range map[string]float64{
		"low_confidence":         s.LowConfidence,
		"derived_low_confidence": s.DerivedLowConfidence,
		"high_confidence":        s.HighConfidence,
		"needs_confirmation":     s.NeedsConfirmation,
		"ambiguity_penalty":      s.AmbiguityPenalty,
	} {
		if t < 0 || t > 1 {
			return NewAppError("CONFIG_ERROR", fmt.Sprintf("scoring.%s must be within [0,1], got %v", name, t), ErrInvalidInput)
		}
	}
	if s.LowConfidence > s.HighConfidence {
		return NewAppError("CONFIG_ERROR", "scoring.low_confidence must not exceed scoring.high_confidence", ErrInvalidInput)
	}
	var sum float64
	var unknown []string
	for g, w := range s.Weights {
		if !isWeightGroup(g) {
			unknown = append(unknown, string(g))
		}
		if w < 0 {
			return NewAppError("CONFIG_ERROR", fmt.Sprintf("scoring weight for %q is negative", g), ErrInvalidInput)
		}
		sum += w
	}
	if len(unknown) > 0 {
		return NewAppError("CONFIG_ERROR", "unknown scoring weight groups: "+strings.Join(unknown, ", "), ErrInvalidInput)
	}
	if math.Abs(sum-1) > 1e-9 {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("scoring weights must sum to 1, got %.4f", sum), ErrInvalidInput)
	}
	return nil
}

func isWeightGroup(g constants.WeightGroup) bool {
	for _, known := range constants.WeightGroups {
		if g == known {
			return true
		}
	}
	return false
}
