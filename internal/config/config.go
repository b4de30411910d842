package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the config file inside a data folder.
const FileName = "photocat.toml"

// DefaultAllowedExtensions are indexed when allowed_extensions is unset.
var DefaultAllowedExtensions = []string{"jpg", "jpeg", "heic", "mov", "png", "raw", "tiff", "arw", "nef", "dng"}

// Config represents the configuration of one photocat data folder.
type Config struct {
	LogDir            string           `toml:"log_dir"`
	Concurrency       int              `toml:"concurrency"`
	AllowedExtensions []string         `toml:"allowed_extensions"`
	Columns           []string         `toml:"columns,omitempty"`
	Extractor         ExtractorConfig  `toml:"extractor"`
	Sidecar           SidecarConfig    `toml:"sidecar"`
	Manifest          ManifestConfig   `toml:"manifest"`
	Filesystem        FilesystemConfig `toml:"filesystem"`
}

// ExtractorConfig selects how metadata is extracted.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ExtractorConfig struct {
	Type     string   `toml:"type"`              // "command" (default) or "goexif"
	Command  string   `toml:"command,omitempty"` // only used for type=command
	Timeout  Duration `toml:"timeout"`
	MaxProcs int      `toml:"max_procs"` // only used for type=command
}

// SidecarConfig represents configuration for the sidecar store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type SidecarConfig struct {
	Type string `toml:"type"` // "filesystem" (default), "memory" or "s3"

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
}

// ManifestConfig represents configuration for the manifest database.
type ManifestConfig struct {
	Type string `toml:"type"` // "sqlite" (default) or "memory"
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"`
}

// Duration is a time.Duration written as a string ("30s") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// NewConfig creates a Config with defaults for the data folder at baseDir.
func NewConfig(baseDir string) *Config {
	cfg := &Config{LogDir: filepath.Join(baseDir, "log")}
	cfg.ApplyDefaults(baseDir)
	return cfg
}

// ApplyDefaults fills every unset field.
func (c *Config) ApplyDefaults(baseDir string) {
	if c.LogDir == "" {
		c.LogDir = filepath.Join(baseDir, "log")
	}
	if c.Concurrency <= 0 {
		c.Concurrency = runtime.NumCPU()
	}
	if len(c.AllowedExtensions) == 0 {
		c.AllowedExtensions = append([]string(nil), DefaultAllowedExtensions...)
	}
	if c.Extractor.Type == "" {
		c.Extractor.Type = "command"
	}
	if c.Extractor.Type == "command" && c.Extractor.Command == "" {
		c.Extractor.Command = "exiftool -b -j -"
	}
	if c.Extractor.Timeout.Duration <= 0 {
		c.Extractor.Timeout.Duration = 30 * time.Second
	}
	if c.Extractor.MaxProcs <= 0 {
		c.Extractor.MaxProcs = runtime.NumCPU()
	}
	if c.Sidecar.Type == "" {
		c.Sidecar.Type = "filesystem"
	}
	if c.Manifest.Type == "" {
		c.Manifest.Type = "sqlite"
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader. Unknown keys are rejected.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads baseDir/photocat.toml if it exists and fills in defaults.
// A missing file yields the default configuration.
func Load(baseDir string) (*Config, error) {
	cfg, err := ReadFromFile(filepath.Join(baseDir, FileName))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = &Config{}
	}
	cfg.ApplyDefaults(baseDir)
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
