package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for skinfetch.
type Config struct {
	// Source texture API settings
	API APIConfig `yaml:"api" json:"api"`

	// Crawl settings
	Crawler CrawlerConfig `yaml:"crawler" json:"crawler"`

	// Upload settings
	Uploader UploaderConfig `yaml:"uploader" json:"uploader"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig holds settings for the texture metadata and download endpoints.
type APIConfig struct {
	BaseURL         string        `yaml:"base_url" json:"base_url"`
	UserAgent       string        `yaml:"user_agent" json:"user_agent"`
	Referer         string        `yaml:"referer" json:"referer"`
	MetadataTimeout time.Duration `yaml:"metadata_timeout" json:"metadata_timeout"`
	DownloadTimeout time.Duration `yaml:"download_timeout" json:"download_timeout"`
}

// CrawlerConfig holds crawl-specific configuration.
type CrawlerConfig struct {
	OutputDir         string        `yaml:"output_dir" json:"output_dir"`
	Workers           int           `yaml:"workers" json:"workers"`
	MaxAttempts       int           `yaml:"max_attempts" json:"max_attempts"`
	RetryDelay        time.Duration `yaml:"retry_delay" json:"retry_delay"`
	RequestDelay      time.Duration `yaml:"request_delay" json:"request_delay"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// UploaderConfig holds upload-specific configuration.
type UploaderConfig struct {
	Endpoint      string        `yaml:"endpoint" json:"endpoint"`
	UserAgent     string        `yaml:"user_agent" json:"user_agent"`
	Workers       int           `yaml:"workers" json:"workers"`
	BatchSize     int           `yaml:"batch_size" json:"batch_size"`
	MaxAttempts   int           `yaml:"max_attempts" json:"max_attempts"`
	RequestDelay  time.Duration `yaml:"request_delay" json:"request_delay"`
	SingleTimeout time.Duration `yaml:"single_timeout" json:"single_timeout"`
	BatchTimeout  time.Duration `yaml:"batch_timeout" json:"batch_timeout"`
	MaxFileSize   int64         `yaml:"max_file_size" json:"max_file_size"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:         "https://littleskin.cn",
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			Referer:         "https://littleskin.cn/",
			MetadataTimeout: 10 * time.Second,
			DownloadTimeout: 30 * time.Second,
		},
		Crawler: CrawlerConfig{
			OutputDir:         "imgs",
			Workers:           5,
			MaxAttempts:       3,
			RetryDelay:        time.Second,
			RequestDelay:      500 * time.Millisecond,
			RequestsPerMinute: 0, // 0 means fixed-delay pacing
		},
		Uploader: UploaderConfig{
			Endpoint:      "",
			UserAgent:     "skinfetch-uploader/1.0",
			Workers:       3,
			BatchSize:     5,
			MaxAttempts:   3,
			RequestDelay:  time.Second,
			SingleTimeout: 30 * time.Second,
			BatchTimeout:  60 * time.Second,
			MaxFileSize:   5 * 1024 * 1024,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables.
func (c *Config) LoadFromEnv() error {
	if baseURL := os.Getenv("SKINFETCH_BASE_URL"); baseURL != "" {
		c.API.BaseURL = baseURL
	}
	if userAgent := os.Getenv("SKINFETCH_USER_AGENT"); userAgent != "" {
		c.API.UserAgent = userAgent
	}
	if outputDir := os.Getenv("SKINFETCH_OUTPUT_DIR"); outputDir != "" {
		c.Crawler.OutputDir = outputDir
	}
	if workers := os.Getenv("SKINFETCH_CRAWL_WORKERS"); workers != "" {
		var val int
		fmt.Sscanf(workers, "%d", &val)
		if val > 0 {
			c.Crawler.Workers = val
		}
	}
	if rpm := os.Getenv("SKINFETCH_REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.Crawler.RequestsPerMinute = val
		}
	}
	if endpoint := os.Getenv("SKINFETCH_UPLOAD_ENDPOINT"); endpoint != "" {
		c.Uploader.Endpoint = endpoint
	}
	if workers := os.Getenv("SKINFETCH_UPLOAD_WORKERS"); workers != "" {
		var val int
		fmt.Sscanf(workers, "%d", &val)
		if val > 0 {
			c.Uploader.Workers = val
		}
	}
	if batchSize := os.Getenv("SKINFETCH_BATCH_SIZE"); batchSize != "" {
		var val int
		fmt.Sscanf(batchSize, "%d", &val)
		if val > 0 {
			c.Uploader.BatchSize = val
		}
	}
	if logLevel := os.Getenv("SKINFETCH_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("SKINFETCH_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file.
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for a config file in standard locations.
func (c *Config) findConfigFile() string {
	locations := []string{
		".skinfetch.yaml",
		".skinfetch.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "skinfetch", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "skinfetch", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".skinfetch.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("API base URL is required"))
	}
	if c.API.MetadataTimeout <= 0 {
		errs = append(errs, errors.New("metadata timeout must be positive"))
	}
	if c.API.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}

	if c.Crawler.OutputDir == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Crawler.Workers <= 0 {
		errs = append(errs, errors.New("crawl workers must be positive"))
	}
	if c.Crawler.Workers > 20 {
		errs = append(errs, errors.New("crawl workers should not exceed 20"))
	}
	if c.Crawler.MaxAttempts < 1 {
		errs = append(errs, errors.New("crawl max attempts must be at least 1"))
	}
	if c.Crawler.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}

	if c.Uploader.Workers <= 0 {
		errs = append(errs, errors.New("upload workers must be positive"))
	}
	if c.Uploader.BatchSize <= 0 {
		errs = append(errs, errors.New("batch size must be positive"))
	}
	if c.Uploader.MaxAttempts < 1 {
		errs = append(errs, errors.New("upload max attempts must be at least 1"))
	}
	if c.Uploader.MaxFileSize <= 0 {
		errs = append(errs, errors.New("max file size must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Crawler.OutputDir = outputDir
	}
	if workers, ok := flags["crawl-workers"].(int); ok && workers > 0 {
		c.Crawler.Workers = workers
	}
	if delay, ok := flags["request-delay"].(time.Duration); ok && delay >= 0 {
		c.Crawler.RequestDelay = delay
	}
	if baseURL, ok := flags["base-url"].(string); ok && baseURL != "" {
		c.API.BaseURL = baseURL
	}
	if endpoint, ok := flags["endpoint"].(string); ok && endpoint != "" {
		c.Uploader.Endpoint = endpoint
	}
	if workers, ok := flags["upload-workers"].(int); ok && workers > 0 {
		c.Uploader.Workers = workers
	}
	if batchSize, ok := flags["batch-size"].(int); ok && batchSize > 0 {
		c.Uploader.BatchSize = batchSize
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile, ok := flags["log-file"].(string); ok && logFile != "" {
		c.Logging.File = logFile
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".skinfetch.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
