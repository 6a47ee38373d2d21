package config

import (
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Input     InputConfig     `yaml:"input" mapstructure:"input"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Normalize NormalizeConfig `yaml:"normalize" mapstructure:"normalize"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// InputConfig locates the service-request feature collection.
type InputConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// OutputConfig locates the derived reports. Empty optional paths disable
// that output.
type OutputConfig struct {
	GeoJSONPath   string `yaml:"geojson_path" mapstructure:"geojson_path"`
	ReportPath    string `yaml:"report_path" mapstructure:"report_path"`
	CSVPath       string `yaml:"csv_path" mapstructure:"csv_path"`
	ShapefilePath string `yaml:"shapefile_path" mapstructure:"shapefile_path"`
	XLSXPath      string `yaml:"xlsx_path" mapstructure:"xlsx_path"`
}

// NormalizeConfig configures record normalization.
type NormalizeConfig struct {
	TimeZone        string `yaml:"time_zone" mapstructure:"time_zone"`
	CaseIDPrefixLen int    `yaml:"case_id_prefix_len" mapstructure:"case_id_prefix_len"`
	DefaultCaseType string `yaml:"default_case_type" mapstructure:"default_case_type"`
}

// StoreConfig configures the optional run archive.
type StoreConfig struct {
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("REPEAT311")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("input.path", "311-2.geojson")
	v.SetDefault("output.geojson_path", "filtered_features.geojson")
	v.SetDefault("output.report_path", "addresses_w_multiple_requests.txt")
	v.SetDefault("output.csv_path", "sorted_features.csv")
	v.SetDefault("output.shapefile_path", "")
	v.SetDefault("output.xlsx_path", "")
	v.SetDefault("normalize.time_zone", "America/New_York")
	v.SetDefault("normalize.case_id_prefix_len", 7)
	v.SetDefault("normalize.default_case_type", "N/A")
	v.SetDefault("store.sqlite_path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the required paths are set and the normalization
// settings are usable.
func (c *Config) Validate() error {
	required := []struct {
		key, value string
	}{
		{"input.path", c.Input.Path},
		{"output.geojson_path", c.Output.GeoJSONPath},
		{"output.report_path", c.Output.ReportPath},
		{"output.csv_path", c.Output.CSVPath},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return eris.Errorf("config: %s is required", r.key)
		}
	}
	if c.Normalize.CaseIDPrefixLen < 0 {
		return eris.Errorf("config: normalize.case_id_prefix_len must be >= 0, got %d", c.Normalize.CaseIDPrefixLen)
	}
	if _, err := time.LoadLocation(c.Normalize.TimeZone); err != nil {
		return eris.Wrapf(err, "config: normalize.time_zone %q", c.Normalize.TimeZone)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
