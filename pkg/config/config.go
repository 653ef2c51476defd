// Package config loads and validates the static pipeline configuration.
// The YAML file declares schema, cleaning, outlier, de-identification and
// sink settings; secrets and endpoints come from the environment only.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration. It is loaded once per
// run and treated as read-only by every component.
type Config struct {
	InputFormat string        `yaml:"input_format"`
	FileGlob    string        `yaml:"file_glob"`
	Watcher     WatcherConfig `yaml:"watcher"`
	Dirs        DirsConfig    `yaml:"dirs"`

	Schema     SchemaConfig     `yaml:"schema"`
	Cleaning   CleaningConfig   `yaml:"cleaning"`
	Outliers   OutlierConfig    `yaml:"outliers"`
	SafeHarbor SafeHarborConfig `yaml:"hipaa_safe_harbor"`
	Sinks      SinksConfig      `yaml:"sinks"`

	Retry   RetryConfig   `yaml:"retry"`
	Logging LoggingConfig `yaml:"logging"`
}

// WatcherConfig holds polling loop settings.
type WatcherConfig struct {
	PollSeconds int `yaml:"poll_seconds"`
}

// PollInterval returns the configured sleep between scans.
func (w WatcherConfig) PollInterval() time.Duration {
	return time.Duration(w.PollSeconds) * time.Second
}

// DirsConfig holds the well-known directories.
type DirsConfig struct {
	Incoming   string `yaml:"incoming"`
	Quarantine string `yaml:"quarantine"`
	MaskedOut  string `yaml:"masked_out"`
	Logs       string `yaml:"logs"`
}

// SchemaConfig declares required columns and target column types.
type SchemaConfig struct {
	RequiredColumns []string          `yaml:"required_columns"`
	Types           map[string]string `yaml:"types"`
}

// CleaningConfig holds range clipping and ZIP padding settings.
type CleaningConfig struct {
	ZipPadLeft *bool            `yaml:"zip_pad_left"`
	ZipLength  int              `yaml:"zip_length"`
	ClipRanges map[string]Range `yaml:"clip_ranges"`
}

// PadZipLeft reports whether ZIP codes are left-zero-padded before
// cleaning (default true).
func (c CleaningConfig) PadZipLeft() bool {
	return c.ZipPadLeft == nil || *c.ZipPadLeft
}

// Range is an inclusive [Lo, Hi] clamping bound, written in YAML as a
// two-element sequence.
type Range struct {
	Lo float64
	Hi float64
}

// UnmarshalYAML decodes a `[lo, hi]` sequence.
func (r *Range) UnmarshalYAML(node *yaml.Node) error {
	var pair []float64
	if err := node.Decode(&pair); err != nil {
		return fmt.Errorf("clip range must be a [lo, hi] pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("clip range must have exactly two bounds, got %d", len(pair))
	}
	r.Lo, r.Hi = pair[0], pair[1]
	return nil
}

// OutlierConfig selects the detection method and the policy applied to
// flagged rows.
type OutlierConfig struct {
	Method        string  `yaml:"method"`
	IQRMultiplier float64 `yaml:"iqr_multiplier"`
	MADThreshold  float64 `yaml:"mad_threshold"`
	Action        string  `yaml:"action"`
}

// SafeHarborConfig holds the de-identification rules.
type SafeHarborConfig struct {
	HashIDColumn   string    `yaml:"hash_id_column"`
	HashSaltEnv    string    `yaml:"hash_salt_env"`
	Dates          DateRules `yaml:"dates"`
	ZipTruncateTo3 *bool     `yaml:"zip_truncate_to_3"`
	Remove         []string  `yaml:"remove"`
}

// TruncateZip reports whether ZIP3 truncation is enabled (default true).
func (c SafeHarborConfig) TruncateZip() bool {
	return c.ZipTruncateTo3 == nil || *c.ZipTruncateTo3
}

// DateRules selects date generalization: "year_only" for dob,
// "date_only" for event_ts. Empty disables the transform.
type DateRules struct {
	DOB     string `yaml:"dob"`
	EventTS string `yaml:"event_ts"`
}

// SinksConfig enables and targets the durable sinks.
type SinksConfig struct {
	Parquet    ParquetSinkConfig    `yaml:"parquet"`
	Relational RelationalSinkConfig `yaml:"relational"`
	Push       PushSinkConfig       `yaml:"push"`
}

// ParquetSinkConfig targets the append-only columnar file sink.
type ParquetSinkConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Mode    string `yaml:"mode"`
}

// RelationalSinkConfig targets the relational table sink. The URI selects
// the driver: postgres:// for PostgreSQL, anything else for SQLite.
type RelationalSinkConfig struct {
	Enabled bool   `yaml:"enabled"`
	URI     string `yaml:"uri"`
	Table   string `yaml:"table"`
}

// PushSinkConfig targets the push endpoint sink. The URL is read from
// the named environment variable at startup.
type PushSinkConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DatasetURLEnv string `yaml:"dataset_url_env"`
}

// RetryConfig bounds the retry primitive used by transient-aware sinks.
type RetryConfig struct {
	Attempts int `yaml:"attempts"`
	DelayMS  int `yaml:"delay_ms"`
}

// Delay returns the initial retry delay; it doubles each attempt.
func (r RetryConfig) Delay() time.Duration {
	return time.Duration(r.DelayMS) * time.Millisecond
}

// LoggingConfig selects log level and encoder format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads, defaults and validates a configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with all defaults applied and no
// schema, cleaning or sink settings.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.InputFormat == "" {
		c.InputFormat = "csv"
	}
	if c.FileGlob == "" {
		c.FileGlob = "events_*.csv"
	}
	if c.Watcher.PollSeconds <= 0 {
		c.Watcher.PollSeconds = 3
	}
	if c.Dirs.Incoming == "" {
		c.Dirs.Incoming = "incoming"
	}
	if c.Dirs.Quarantine == "" {
		c.Dirs.Quarantine = "quarantine"
	}
	if c.Dirs.MaskedOut == "" {
		c.Dirs.MaskedOut = "masked_out"
	}
	if c.Dirs.Logs == "" {
		c.Dirs.Logs = "logs"
	}
	if c.Cleaning.ZipLength <= 0 {
		c.Cleaning.ZipLength = 5
	}
	if c.Outliers.Method == "" {
		c.Outliers.Method = "iqr"
	}
	if c.Outliers.IQRMultiplier <= 0 {
		c.Outliers.IQRMultiplier = 1.5
	}
	if c.Outliers.MADThreshold <= 0 {
		c.Outliers.MADThreshold = 6.0
	}
	if c.Outliers.Action == "" {
		c.Outliers.Action = "flag"
	}
	if c.SafeHarbor.HashIDColumn == "" {
		c.SafeHarbor.HashIDColumn = "patient_id"
	}
	if c.SafeHarbor.HashSaltEnv == "" {
		c.SafeHarbor.HashSaltEnv = "VITALS_HASH_SALT"
	}
	if c.Sinks.Parquet.Mode == "" {
		c.Sinks.Parquet.Mode = "append"
	}
	if c.Retry.Attempts <= 0 {
		c.Retry.Attempts = 3
	}
	if c.Retry.DelayMS <= 0 {
		c.Retry.DelayMS = 1000
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate ensures all configuration is present and consistent.
func (c *Config) Validate() error {
	if c.InputFormat != "csv" && c.InputFormat != "jsonl" {
		return fmt.Errorf("input_format must be csv or jsonl, got %q", c.InputFormat)
	}
	if c.Outliers.Method != "iqr" && c.Outliers.Method != "mad" {
		return fmt.Errorf("outliers.method must be iqr or mad, got %q", c.Outliers.Method)
	}
	if c.Outliers.Action != "flag" && c.Outliers.Action != "quarantine" {
		return fmt.Errorf("outliers.action must be flag or quarantine, got %q", c.Outliers.Action)
	}
	if c.Sinks.Parquet.Mode != "append" && c.Sinks.Parquet.Mode != "overwrite" {
		return fmt.Errorf("sinks.parquet.mode must be append or overwrite, got %q", c.Sinks.Parquet.Mode)
	}
	if c.Sinks.Parquet.Enabled && c.Sinks.Parquet.Path == "" {
		return errors.New("sinks.parquet.path is required when the parquet sink is enabled")
	}
	if c.Sinks.Relational.Enabled {
		if c.Sinks.Relational.URI == "" {
			return errors.New("sinks.relational.uri is required when the relational sink is enabled")
		}
		if c.Sinks.Relational.Table == "" {
			return errors.New("sinks.relational.table is required when the relational sink is enabled")
		}
	}
	if c.Sinks.Push.Enabled && c.Sinks.Push.DatasetURLEnv == "" {
		return errors.New("sinks.push.dataset_url_env is required when the push sink is enabled")
	}

	for _, name := range c.Schema.RequiredColumns {
		if name == "" {
			return errors.New("schema.required_columns must not contain empty names")
		}
	}
	for col, typ := range c.Schema.Types {
		switch typ {
		case "string", "int", "float", "date", "datetime":
		default:
			return fmt.Errorf("schema.types[%s]: unknown type %q", col, typ)
		}
	}

	// Deterministic validation order for map-keyed settings.
	cols := make([]string, 0, len(c.Cleaning.ClipRanges))
	for col := range c.Cleaning.ClipRanges {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		r := c.Cleaning.ClipRanges[col]
		if r.Lo > r.Hi {
			return fmt.Errorf("cleaning.clip_ranges[%s]: lo %v exceeds hi %v", col, r.Lo, r.Hi)
		}
	}

	return nil
}
