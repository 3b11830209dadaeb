package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without
	// extension).
	ConfigFileName = "finvoice"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "FINVOICE"
)

// Loader handles loading configuration from files, environment
// variables and bound flags.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader over the global viper instance so cobra
// flag bindings are visible.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// NewLoaderWith creates a loader over a private viper instance,
// mainly for tests.
func NewLoaderWith(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load reads configuration from the search paths, the environment and
// the defaults, then validates the result. A missing config file is
// not an error.
func (l *Loader) Load() (*Config, error) {
	cfg, err := l.load("")
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadWithFile loads configuration from a specific file path. An
// empty path behaves like Load.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	if configFile == "" {
		return l.Load()
	}
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configFile)
	}
	cfg, err := l.load(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (l *Loader) load(configFile string) (*Config, error) {
	if configFile != "" {
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}

	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// Get returns a raw value from the configuration.
func (l *Loader) Get(key string) interface{} { return l.v.Get(key) }

// Set sets a value in the configuration.
func (l *Loader) Set(key string, value interface{}) { l.v.Set(key, value) }

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string { return l.v.ConfigFileUsed() }

// GetViper returns the underlying viper instance.
func (l *Loader) GetViper() *viper.Viper { return l.v }

func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
	}
	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		l.v.AddConfigPath(filepath.Join(configDir, "finvoice"))
	} else if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(home, ".config", "finvoice"))
	}
	l.v.AddConfigPath("/etc/finvoice")
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("log_level", defaults.LogLevel)
	l.v.SetDefault("verbose", defaults.Verbose)

	l.v.SetDefault("ocr.backend", defaults.OCR.Backend)
	l.v.SetDefault("ocr.url", defaults.OCR.URL)
	l.v.SetDefault("ocr.timeout", defaults.OCR.Timeout)
	l.v.SetDefault("ocr.fixture", defaults.OCR.Fixture)

	l.v.SetDefault("llm.extractor_url", defaults.LLM.ExtractorURL)
	l.v.SetDefault("llm.agent_url", defaults.LLM.AgentURL)
	l.v.SetDefault("llm.timeout", defaults.LLM.Timeout)

	l.v.SetDefault("pipeline.layout.vendor_x_frac", defaults.Pipeline.Layout.VendorXFrac)
	l.v.SetDefault("pipeline.layout.vendor_y_frac", defaults.Pipeline.Layout.VendorYFrac)
	l.v.SetDefault("pipeline.layout.totals_x_frac", defaults.Pipeline.Layout.TotalsXFrac)
	l.v.SetDefault("pipeline.layout.totals_y_frac", defaults.Pipeline.Layout.TotalsYFrac)
	l.v.SetDefault("pipeline.layout.row_threshold", defaults.Pipeline.Layout.RowThreshold)
	l.v.SetDefault("pipeline.layout.proximity_threshold", defaults.Pipeline.Layout.ProximityThreshold)
	l.v.SetDefault("pipeline.layout.numeric_cluster_gap", defaults.Pipeline.Layout.NumericClusterGap)

	l.v.SetDefault("pipeline.validate.tolerance", defaults.Pipeline.Validate.Tolerance)
	l.v.SetDefault("pipeline.validate.line_arithmetic", defaults.Pipeline.Validate.LineArithmetic)
	l.v.SetDefault("pipeline.validate.invoice_arithmetic", defaults.Pipeline.Validate.InvoiceArithmetic)
	l.v.SetDefault("pipeline.validate.line_sum_subtotal", defaults.Pipeline.Validate.LineSumSubtotal)
	l.v.SetDefault("pipeline.validate.non_negativity", defaults.Pipeline.Validate.NonNegativity)
	l.v.SetDefault("pipeline.validate.date_ordering", defaults.Pipeline.Validate.DateOrdering)
	l.v.SetDefault("pipeline.validate.duplicate_items", defaults.Pipeline.Validate.DuplicateItems)

	l.v.SetDefault("pipeline.retry.attempts", defaults.Pipeline.Retry.Attempts)
	l.v.SetDefault("pipeline.retry.base", defaults.Pipeline.Retry.Base)

	l.v.SetDefault("pipeline.parallel.max_workers", defaults.Pipeline.Parallel.MaxWorkers)

	l.v.SetDefault("store.dir", defaults.Store.Dir)

	l.v.SetDefault("output.format", defaults.Output.Format)
	l.v.SetDefault("output.file", defaults.Output.File)
	l.v.SetDefault("output.pretty", defaults.Output.Pretty)

	l.v.SetDefault("batch.workers", defaults.Batch.Workers)
	l.v.SetDefault("batch.continue_on_error", defaults.Batch.ContinueOnError)
	l.v.SetDefault("batch.progress", defaults.Batch.Progress)
}

// GetConfigSearchPaths returns the paths where configuration files
// are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home, filepath.Join(home, ".config", "finvoice"))
	}
	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, "finvoice"))
	}
	return append(paths, "/etc/finvoice")
}

// WriteConfigToFile writes the current configuration to a file.
func (l *Loader) WriteConfigToFile(filename string) error {
	return l.v.WriteConfigAs(filename)
}

// GenerateDefaultConfigFile writes the default configuration to
// filename, defaulting to finvoice.yaml.
func GenerateDefaultConfigFile(filename string) error {
	loader := NewLoaderWith(viper.New())
	loader.setDefaults()
	if filename == "" {
		filename = "finvoice.yaml"
	}
	return loader.WriteConfigToFile(filename)
}
