package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the intelligence core
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Database DatabaseConfig `mapstructure:"database"`
	Intel    IntelConfig    `mapstructure:"intel"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Version     string `mapstructure:"version"`
	Debug       bool   `mapstructure:"debug"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	TimeFormat string `mapstructure:"time_format"`
}

type DatabaseConfig struct {
	Path        string        `mapstructure:"path"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
}

// DSN builds the sqlite connection string. WAL keeps readers unblocked by
// the single writer; busy_timeout lets concurrent short transactions queue
// instead of failing.
func (c DatabaseConfig) DSN() string {
	timeoutMS := int(c.BusyTimeout / time.Millisecond)
	if timeoutMS <= 0 {
		timeoutMS = 5000
	}
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d&_foreign_keys=on", c.Path, timeoutMS)
}

type IntelConfig struct {
	IOCFile            string `mapstructure:"ioc_file"`
	BaselineMaxRows    int    `mapstructure:"baseline_max_rows"`
	TrainingMinSamples int    `mapstructure:"training_min_samples"`
	TrainingMaxRows    int    `mapstructure:"training_max_rows"`
	CampaignLimit      int    `mapstructure:"campaign_limit"`
	MinClusterSize     int    `mapstructure:"min_cluster_size"`
	DashboardTopN      int    `mapstructure:"dashboard_top_n"`
	ExportLimit        int    `mapstructure:"export_limit"`
}

// Load reads configuration from file and environment variables. A missing
// config file is not an error: defaults plus env vars are a complete
// configuration for library use.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/adscope-lab")
	}

	v.SetEnvPrefix("ADSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

	return &cfg, nil
}

// LoadDefault loads configuration with default search paths
func LoadDefault() (*Config, error) {
	return Load("")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "adscope-lab")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.debug", false)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.time_format", time.RFC3339)

	v.SetDefault("database.path", "data/adscope.db")
	v.SetDefault("database.busy_timeout", 5*time.Second)

	v.SetDefault("intel.ioc_file", "config/intel_iocs.json")
	v.SetDefault("intel.baseline_max_rows", 500)
	v.SetDefault("intel.training_min_samples", 20)
	v.SetDefault("intel.training_max_rows", 5000)
	v.SetDefault("intel.campaign_limit", 2000)
	v.SetDefault("intel.min_cluster_size", 2)
	v.SetDefault("intel.dashboard_top_n", 20)
	v.SetDefault("intel.export_limit", 100)
}
