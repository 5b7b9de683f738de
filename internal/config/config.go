package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/refx/internal/errors"
)

const (
	// DefaultPort is the default preview server port.
	DefaultPort = 4100

	// DefaultHost is the default preview server host.
	DefaultHost = "localhost"

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "refx"

	// DefaultTracerName is the default OpenTelemetry tracer name.
	DefaultTracerName = "refx"
)

// FileNames lists the configuration files Load looks for, in order.
var FileNames = []string{"refx.json", "refx.yaml", "refx.yml", "refx.toml"}

// Format is a configuration file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatForPath returns the encoding implied by path's extension. Unknown
// extensions are treated as JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

// Config is the complete refx configuration.
type Config struct {
	// Runtime configures binding resolution.
	Runtime RuntimeConfig `json:"runtime,omitempty" yaml:"runtime,omitempty" toml:"runtime,omitempty"`

	// Preview configures the preview server.
	Preview PreviewConfig `json:"preview,omitempty" yaml:"preview,omitempty" toml:"preview,omitempty"`

	// Log configures the slog handler built by the CLI.
	Log LogConfig `json:"log,omitempty" yaml:"log,omitempty" toml:"log,omitempty"`

	// Telemetry configures metrics and tracing.
	Telemetry TelemetryConfig `json:"telemetry,omitempty" yaml:"telemetry,omitempty" toml:"telemetry,omitempty"`

	// Storage configures remote template storage.
	Storage StorageConfig `json:"storage,omitempty" yaml:"storage,omitempty" toml:"storage,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// RuntimeConfig contains runtime settings.
type RuntimeConfig struct {
	// ErrorPolicy is "ignore" (default) or "detach".
	ErrorPolicy string `json:"errorPolicy,omitempty" yaml:"errorPolicy,omitempty" toml:"errorPolicy,omitempty"`

	// SanitizeHTML runs innerHTML values through a bluemonday UGC policy.
	SanitizeHTML bool `json:"sanitizeHTML,omitempty" yaml:"sanitizeHTML,omitempty" toml:"sanitizeHTML,omitempty"`

	// NonBubbling replaces the set of event names bound with direct
	// listeners. Empty keeps the built-in set.
	NonBubbling []string `json:"nonBubbling,omitempty" yaml:"nonBubbling,omitempty" toml:"nonBubbling,omitempty"`
}

// PreviewConfig contains preview server settings.
type PreviewConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty" yaml:"host,omitempty" toml:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty" yaml:"port,omitempty" toml:"port,omitempty"`

	// Template is the default template file or s3:// URL.
	Template string `json:"template,omitempty" yaml:"template,omitempty" toml:"template,omitempty"`

	// Title is the preview page title.
	Title string `json:"title,omitempty" yaml:"title,omitempty" toml:"title,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level,omitempty" yaml:"level,omitempty" toml:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty" yaml:"format,omitempty" toml:"format,omitempty"`
}

// TelemetryConfig contains metrics and tracing settings.
type TelemetryConfig struct {
	// Namespace is the Prometheus namespace.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty" toml:"namespace,omitempty"`

	// TracerName is the OpenTelemetry tracer name.
	TracerName string `json:"tracerName,omitempty" yaml:"tracerName,omitempty" toml:"tracerName,omitempty"`

	// Metrics enables the Prometheus collectors and the /metrics endpoint.
	Metrics bool `json:"metrics,omitempty" yaml:"metrics,omitempty" toml:"metrics,omitempty"`
}

// StorageConfig contains remote storage settings.
type StorageConfig struct {
	S3 S3Config `json:"s3,omitempty" yaml:"s3,omitempty" toml:"s3,omitempty"`
}

// S3Config locates templates in an S3 bucket.
type S3Config struct {
	// Bucket is the default bucket for keys without one.
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty" toml:"bucket,omitempty"`

	// Region is the AWS region.
	Region string `json:"region,omitempty" yaml:"region,omitempty" toml:"region,omitempty"`

	// Endpoint overrides the S3 endpoint, e.g. for MinIO.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" toml:"endpoint,omitempty"`

	// Prefix is prepended to every key.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty" toml:"prefix,omitempty"`

	// UsePathStyle addresses the bucket in the path instead of the host.
	UsePathStyle bool `json:"usePathStyle,omitempty" yaml:"usePathStyle,omitempty" toml:"usePathStyle,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			ErrorPolicy: "ignore",
		},
		Preview: PreviewConfig{
			Host:  DefaultHost,
			Port:  DefaultPort,
			Title: "refx preview",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			Namespace:  DefaultNamespace,
			TracerName: DefaultTracerName,
			Metrics:    true,
		},
	}
}

// Load reads configuration from the first of FileNames found in dir.
func Load(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("E180").
		WithDetail("No refx.json, refx.yaml or refx.toml found in " + dir).
		WithSuggestion("Create refx.json or pass --config")
}

// LoadFile reads configuration from the specified file path. The encoding
// follows the file extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E180").
				WithDetail("No configuration file at " + path)
		}
		return nil, errors.New("E180").Wrap(err)
	}

	cfg := New()
	if err := decode(FormatForPath(path), data, cfg); err != nil {
		return nil, errors.New("E180").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that " + filepath.Base(path) + " is valid " + strings.ToUpper(string(FormatForPath(path))))
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

func decode(f Format, data []byte, cfg *Config) error {
	switch f {
	case FormatYAML:
		return yaml.Unmarshal(data, cfg)
	case FormatTOML:
		_, err := toml.Decode(string(data), cfg)
		return err
	default:
		return json.Unmarshal(data, cfg)
	}
}

// Encode renders the configuration in format f.
func (c *Config) Encode(f Format) ([]byte, error) {
	switch f {
	case FormatYAML:
		return yaml.Marshal(c)
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path, encoded by its
// extension.
func (c *Config) SaveTo(path string) error {
	data, err := c.Encode(FormatForPath(path))
	if err != nil {
		return errors.New("E180").Wrap(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E180").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Runtime.ErrorPolicy == "" {
		c.Runtime.ErrorPolicy = "ignore"
	}
	if c.Preview.Host == "" {
		c.Preview.Host = DefaultHost
	}
	if c.Preview.Port == 0 {
		c.Preview.Port = DefaultPort
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Telemetry.Namespace == "" {
		c.Telemetry.Namespace = DefaultNamespace
	}
	if c.Telemetry.TracerName == "" {
		c.Telemetry.TracerName = DefaultTracerName
	}
	for i, name := range c.Runtime.NonBubbling {
		c.Runtime.NonBubbling[i] = strings.ToLower(strings.TrimSpace(name))
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Preview.Port < 0 || c.Preview.Port > 65535 {
		return errors.New("E181").
			WithDetail("preview.port must be between 0 and 65535")
	}
	switch strings.ToLower(c.Runtime.ErrorPolicy) {
	case "", "ignore", "detach":
	default:
		return errors.New("E181").
			WithDetailf("runtime.errorPolicy %q is not ignore or detach", c.Runtime.ErrorPolicy)
	}
	if _, ok := parseLevel(c.Log.Level); !ok {
		return errors.New("E181").
			WithDetailf("log.level %q is not debug, info, warn or error", c.Log.Level)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return errors.New("E181").
			WithDetailf("log.format %q is not text or json", c.Log.Format)
	}
	for _, name := range c.Runtime.NonBubbling {
		if name == "" || strings.HasPrefix(name, "on") {
			return errors.New("E181").
				WithDetailf("runtime.nonBubbling entry %q must be an event name without the on prefix", name).
				WithSuggestion(`Use "ended" rather than "onended"`)
		}
	}
	s3 := c.Storage.S3
	if (s3.Prefix != "" || s3.Endpoint != "") && s3.Bucket == "" {
		return errors.New("E181").
			WithDetail("storage.s3.bucket is required when prefix or endpoint is set")
	}
	return nil
}

// PreviewAddress returns the listen address for the preview server.
func (c *Config) PreviewAddress() string {
	return c.Preview.Host + ":" + strconv.Itoa(c.Preview.Port)
}

// SlogLevel returns the configured log level. Unknown levels are info.
func (c *Config) SlogLevel() slog.Level {
	l, _ := parseLevel(c.Log.Level)
	return l
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "", "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// Exists checks if any configuration file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range FileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing a configuration file, or an error if
// not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E180").
				WithDetail("No refx configuration found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadOrDefault loads the configuration of the project containing dir, or
// returns the defaults when there is none.
func LoadOrDefault(dir string) (*Config, error) {
	root, err := FindProjectRoot(dir)
	if err != nil {
		return New(), nil
	}
	return Load(root)
}
