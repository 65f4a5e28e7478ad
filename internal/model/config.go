package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// PlaneConfig holds the connection settings for the Plane API.
type PlaneConfig struct {
	// BaseURL is the root of the REST API (e.g., https://api.plane.so/api/v1).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// AppURL is the root of the web app, used to build issue links.
	AppURL string `mapstructure:"app_url" yaml:"app_url"`

	// APIKey is sent as X-API-Key. When empty the system keyring is consulted.
	APIKey string `mapstructure:"api_key" yaml:"api_key"`

	WorkspaceSlug string `mapstructure:"workspace_slug" yaml:"workspace_slug"`
	ProjectID     string `mapstructure:"project_id" yaml:"project_id"`

	// RequestsPerMinute caps outbound API calls. Zero disables the limit.
	RequestsPerMinute int `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`

	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

// UploadConfig holds per-phase deadlines for attachment uploads.
type UploadConfig struct {
	CredentialTimeout time.Duration `mapstructure:"credential_timeout" yaml:"credential_timeout"`
	StorageTimeout    time.Duration `mapstructure:"storage_timeout" yaml:"storage_timeout"`
	CompleteTimeout   time.Duration `mapstructure:"complete_timeout" yaml:"complete_timeout"`
}

// LogConfig controls process logging.
type LogConfig struct {
	Level     string `mapstructure:"level" yaml:"level"`
	FileLogs  bool   `mapstructure:"file_logs" yaml:"file_logs"`
	Directory string `mapstructure:"dir" yaml:"dir"`
}

// JournalConfig locates the upload journal database.
type JournalConfig struct {
	// Path is the SQLite file path, or ":memory:" to keep nothing on disk.
	Path string `mapstructure:"path" yaml:"path"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Plane   PlaneConfig   `mapstructure:"plane" yaml:"plane"`
	Upload  UploadConfig  `mapstructure:"upload" yaml:"upload"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Journal JournalConfig `mapstructure:"journal" yaml:"journal"`
}

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"plane.base_url":       "PLANE_BASE_URL",
	"plane.api_key":        "PLANE_API_KEY",
	"plane.workspace_slug": "WORKSPACE_SLUG",
	"plane.project_id":     "PROJECT_ID",
	"log.level":            "LOG_LEVEL",
	"log.file_logs":        "ENABLE_FILE_LOGS",
	"journal.path":         "JOURNAL_PATH",
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/planeissues/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "planeissues", "config.yaml")
}

// DefaultJournalPath returns the default upload journal location.
func DefaultJournalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "journal.db")
	}
	return filepath.Join(home, ".config", "planeissues", "journal.db")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("plane.base_url", "https://api.plane.so/api/v1")
	v.SetDefault("plane.app_url", "https://app.plane.so")
	v.SetDefault("plane.requests_per_minute", 60)
	v.SetDefault("plane.request_timeout", 30*time.Second)
	v.SetDefault("upload.credential_timeout", 30*time.Second)
	v.SetDefault("upload.storage_timeout", 2*time.Minute)
	v.SetDefault("upload.complete_timeout", 30*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file_logs", false)
	v.SetDefault("log.dir", "logs")
	v.SetDefault("journal.path", DefaultJournalPath())
}

// LoadConfig loads a .env file from the working directory if present, then
// reads the YAML file at path using Viper and applies environment
// overrides. A missing config file is not an error.
func LoadConfig(path string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s to %s: %w", key, env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, os.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks that the settings every API call depends on are present.
// The values themselves are only validated by the remote service.
func (c *AppConfig) Validate() error {
	var missing []string
	if c.Plane.WorkspaceSlug == "" {
		missing = append(missing, "plane.workspace_slug (WORKSPACE_SLUG)")
	}
	if c.Plane.ProjectID == "" {
		missing = append(missing, "plane.project_id (PROJECT_ID)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v", missing)
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed. The API key is never written;
// it belongs in the keyring.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	plane := cfg.Plane
	plane.APIKey = ""

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("plane", plane)
	v.Set("upload", cfg.Upload)
	v.Set("log", cfg.Log)
	v.Set("journal", cfg.Journal)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
