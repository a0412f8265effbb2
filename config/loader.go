package config

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/spf13/viper"

	"github.com/rasnes/wikiviews/constants"
)

type Config struct {
	Extract   ExtractConfig
	Storage   StorageConfig
	DuckDB    DuckDBConfig
	MySQL     MySQLConfig
	Wikimedia WikimediaConfig
	Env       string
}

type ExtractConfig struct {
	Backoff BackoffConfig
}

type BackoffConfig struct {
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min"`
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max"`
	RetryMax     int           `mapstructure:"retry_max"`
}

// StorageConfig selects the backend ("duckdb", "mysql" or "postgres") and the tables it uses.
type StorageConfig struct {
	Driver      string `mapstructure:"driver"`
	SymbolTable string `mapstructure:"symbol_table"`
	ViewsTable  string `mapstructure:"views_table"`
}

type DuckDBConfig struct {
	Path              string   `mapstructure:"path"`
	ConnInitFnQueries []string `mapstructure:"conn_init_fn_queries"`
}

// MySQLConfig holds the non-secret connection settings. The password is read from MYSQL_PASSWORD.
type MySQLConfig struct {
	Host   string `mapstructure:"host"`
	Port   string `mapstructure:"port"`
	User   string `mapstructure:"user"`
	DBName string `mapstructure:"dbname"`
}

type WikimediaConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	Project        string `mapstructure:"project"`
	Access         string `mapstructure:"access"`
	Agent          string `mapstructure:"agent"`
	UserAgent      string `mapstructure:"user_agent"`
	MaxConcurrency int    `mapstructure:"max_concurrency"`
	LookbackDays   int    `mapstructure:"lookback_days"`
}

func setDefaults() {
	viper.SetDefault("storage.driver", "duckdb")
	viper.SetDefault("storage.symbol_table", constants.SymbolTable)
	viper.SetDefault("storage.views_table", constants.DailyViewsTable)
	viper.SetDefault("wikimedia.base_url", "https://wikimedia.org/api/rest_v1")
	viper.SetDefault("wikimedia.project", constants.WikipediaProject)
	viper.SetDefault("wikimedia.access", "all-access")
	viper.SetDefault("wikimedia.agent", "all-agents")
	viper.SetDefault("wikimedia.max_concurrency", 10)
	viper.SetDefault("wikimedia.lookback_days", constants.DefaultLookback)
}

// NewConfig loads the configuration from the provided base config reader
// and merges it with the environment-specific configuration.
func NewConfig(baseConfigReader io.Reader, envConfigReader io.Reader, env string) (*Config, error) {
	if env == "" { // Use the provided 'env' or default to "dev"
		env = "dev"
	}

	viper.SetConfigType("yaml")
	setDefaults()

	// Read the base configuration
	if err := viper.ReadConfig(baseConfigReader); err != nil {
		return nil, fmt.Errorf("error reading base config: %w", err)
	}

	// Merge with environment-specific configuration (only if provided)
	if envConfigReader != nil {
		if err := viper.MergeConfig(envConfigReader); err != nil {
			log.Printf("Error merging environment-specific config: %s", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	config.Env = env

	return &config, nil
}
