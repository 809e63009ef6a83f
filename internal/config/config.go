// Package config holds every path and option the pipeline, the CLI and the
// HTTP server need.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. MOVORA_STORE_DSN.
const EnvPrefix = "MOVORA"

// Config is the root configuration.
type Config struct {
	Sources      []Source       `mapstructure:"sources" yaml:"sources"`
	ProcessedDir string         `mapstructure:"processed_dir" yaml:"processed_dir"`
	Master       OutputConfig   `mapstructure:"master" yaml:"master"`
	ML           OutputConfig   `mapstructure:"ml" yaml:"ml"`
	Schema       SchemaConfig   `mapstructure:"schema" yaml:"schema"`
	Features     FeaturesConfig `mapstructure:"features" yaml:"features"`
	Price        PriceConfig    `mapstructure:"price" yaml:"price"`
	Store        StoreConfig    `mapstructure:"store" yaml:"store"`
	Server       ServerConfig   `mapstructure:"server" yaml:"server"`
	Log          LogConfig      `mapstructure:"log" yaml:"log"`
}

// Source is one input CSV. Name is also the table it is persisted to.
type Source struct {
	Name string `mapstructure:"name" yaml:"name"`
	Path string `mapstructure:"path" yaml:"path"`
}

// OutputConfig is a flat-file and table destination. Empty disables it.
type OutputConfig struct {
	CSV   string `mapstructure:"csv" yaml:"csv"`
	Table string `mapstructure:"table" yaml:"table"`
}

type SchemaConfig struct {
	Strict         bool     `mapstructure:"strict" yaml:"strict"`
	NumericColumns []string `mapstructure:"numeric_columns" yaml:"numeric_columns"`
}

type FeaturesConfig struct {
	// Source is "master" or the name of one source.
	Source             string   `mapstructure:"source" yaml:"source"`
	SeatingColumn      string   `mapstructure:"seating_column" yaml:"seating_column"`
	DisplacementColumn string   `mapstructure:"displacement_column" yaml:"displacement_column"`
	Exclude            []string `mapstructure:"exclude" yaml:"exclude"`
}

type PriceConfig struct {
	Column        string `mapstructure:"column" yaml:"column"`
	CleanedColumn string `mapstructure:"cleaned_column" yaml:"cleaned_column"`
	// NumericUnit is the unit of plain numbers in Column: lakh or rupee.
	NumericUnit string `mapstructure:"numeric_unit" yaml:"numeric_unit"`
}

// StoreConfig selects the relational sink. Driver is sqlite or postgres.
type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

type ServerConfig struct {
	Addr  string `mapstructure:"addr" yaml:"addr"`
	Mode  string `mapstructure:"mode" yaml:"mode"`
	Table string `mapstructure:"table" yaml:"table"`
}

type LogConfig struct {
	Level     string `mapstructure:"level" yaml:"level"`
	Format    string `mapstructure:"format" yaml:"format"`
	Output    string `mapstructure:"output" yaml:"output"`
	FilePath  string `mapstructure:"file_path" yaml:"file_path"`
	AddSource bool   `mapstructure:"add_source" yaml:"add_source"`
}

// Default returns the built-in configuration, laid out under Data/.
func Default() *Config {
	return &Config{
		Sources: []Source{
			{Name: "cars_all", Path: filepath.Join("Data", "raw", "All_cars_dataset.csv")},
			{Name: "cars_indian", Path: filepath.Join("Data", "raw", "Indian_Cars_Data.csv")},
		},
		ProcessedDir: filepath.Join("Data", "processed"),
		Master: OutputConfig{
			CSV:   filepath.Join("Data", "processed", "cars_master.csv"),
			Table: "cars_master",
		},
		ML: OutputConfig{
			CSV:   filepath.Join("Data", "processed", "cars_master_ml.csv"),
			Table: "cars_master_ml",
		},
		Features: FeaturesConfig{
			Source:             "master",
			SeatingColumn:      "Seating Capacity",
			DisplacementColumn: "Displacement (cc)",
		},
		Price: PriceConfig{
			Column:        "price",
			CleanedColumn: "price_cleaned",
			NumericUnit:   "lakh",
		},
		Store:  StoreConfig{Driver: "sqlite", DSN: filepath.Join("Data", "movora.db")},
		Server: ServerConfig{Addr: ":8080", Mode: "release", Table: "cars_master"},
		Log:    LogConfig{Level: "info", Format: "text", Output: "stderr"},
	}
}

// Load reads configPath (or ./movora.yaml, ./configs/movora.yaml when empty),
// applies MOVORA_* environment overrides and validates the result. A missing
// default file is not an error; a missing explicit file is.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("movora")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if len(cfg.Sources) == 0 {
		cfg.Sources = Default().Sources
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("processed_dir", d.ProcessedDir)
	v.SetDefault("master.csv", d.Master.CSV)
	v.SetDefault("master.table", d.Master.Table)
	v.SetDefault("ml.csv", d.ML.CSV)
	v.SetDefault("ml.table", d.ML.Table)
	v.SetDefault("schema.strict", d.Schema.Strict)
	v.SetDefault("features.source", d.Features.Source)
	v.SetDefault("features.seating_column", d.Features.SeatingColumn)
	v.SetDefault("features.displacement_column", d.Features.DisplacementColumn)
	v.SetDefault("price.column", d.Price.Column)
	v.SetDefault("price.cleaned_column", d.Price.CleanedColumn)
	v.SetDefault("price.numeric_unit", d.Price.NumericUnit)
	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.dsn", d.Store.DSN)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.table", d.Server.Table)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output", d.Log.Output)
	v.SetDefault("log.file_path", d.Log.FilePath)
	v.SetDefault("log.add_source", d.Log.AddSource)
}

// Validate checks the configuration for values the pipeline cannot use.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}
	names := map[string]bool{}
	files := map[string]string{}
	for i, s := range c.Sources {
		if s.Name == "" || s.Path == "" {
			return fmt.Errorf("sources[%d]: name and path are required", i)
		}
		if names[s.Name] {
			return fmt.Errorf("duplicate source name: %s", s.Name)
		}
		names[s.Name] = true
		// processed copies are written as <processed_dir>/<file name>
		if c.ProcessedDir != "" {
			base := filepath.Base(s.Path)
			if other, ok := files[base]; ok {
				return fmt.Errorf("sources %s and %s share the file name %s and would overwrite each other in %s", other, s.Name, base, c.ProcessedDir)
			}
			files[base] = s.Name
		}
	}
	if c.Features.Source != "master" && !names[c.Features.Source] {
		return fmt.Errorf("invalid features.source: %s, must be 'master' or a source name", c.Features.Source)
	}

	if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
		return fmt.Errorf("invalid store driver: %s, must be 'sqlite' or 'postgres'", c.Store.Driver)
	}
	if c.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required")
	}

	if c.Price.NumericUnit != "lakh" && c.Price.NumericUnit != "rupee" {
		return fmt.Errorf("invalid price.numeric_unit: %s, must be 'lakh' or 'rupee'", c.Price.NumericUnit)
	}

	if c.Server.Mode != "debug" && c.Server.Mode != "release" && c.Server.Mode != "test" {
		return fmt.Errorf("invalid server mode: %s", c.Server.Mode)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("invalid log format: %s, must be 'json' or 'text'", c.Log.Format)
	}
	return nil
}

// Save writes cfg as YAML, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
