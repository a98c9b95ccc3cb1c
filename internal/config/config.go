package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/hypervisual/fincore/pkg/utils"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Identity   IdentityConfig   `mapstructure:"identity"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Extractor  ExtractorConfig  `mapstructure:"extractor"`
	Matcher    MatcherConfig    `mapstructure:"matcher"`
	Report     ReportConfig     `mapstructure:"report"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// IdentityConfig names the company operating the system. Classification
// direction depends entirely on these values, so they are configuration,
// never constants.
type IdentityConfig struct {
	CompanyNames []string `mapstructure:"company_names"`
	TaxIDs       []string `mapstructure:"tax_ids"`
}

// ClassifierConfig holds classifier thresholds
type ClassifierConfig struct {
	TieEpsilon float64 `mapstructure:"tie_epsilon"`
	MinScore   float64 `mapstructure:"min_score"`
}

// ExtractorConfig holds extractor thresholds
type ExtractorConfig struct {
	SnapTolerance float64 `mapstructure:"snap_tolerance"`
	MinConfidence float64 `mapstructure:"min_confidence"`
}

// MatcherConfig holds reconciliation thresholds
type MatcherConfig struct {
	CommitThreshold float64 `mapstructure:"commit_threshold"`
	ReviewThreshold float64 `mapstructure:"review_threshold"`
	WindowDays      int     `mapstructure:"window_days"`
	AmountTolerance float64 `mapstructure:"amount_tolerance"`
}

// ReportConfig holds review workbook configuration
type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Override with environment variables
	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/fincore.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// Classifier defaults
	viper.SetDefault("classifier.tie_epsilon", 10.0)
	viper.SetDefault("classifier.min_score", 25.0)

	// Extractor defaults
	viper.SetDefault("extractor.snap_tolerance", 0.3)
	viper.SetDefault("extractor.min_confidence", 0.6)

	// Matcher defaults
	viper.SetDefault("matcher.commit_threshold", 85.0)
	viper.SetDefault("matcher.review_threshold", 60.0)
	viper.SetDefault("matcher.window_days", 90)
	viper.SetDefault("matcher.amount_tolerance", 0.01)

	// Report defaults
	viper.SetDefault("report.output_dir", "reports")

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	viper.BindEnv("identity.company_names", "FINCORE_COMPANY_NAMES")
	viper.BindEnv("identity.tax_ids", "FINCORE_TAX_IDS")
	viper.BindEnv("database.path", "FINCORE_DB_PATH")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.Identity.CompanyNames) == 0 {
		return fmt.Errorf("identity.company_names is required")
	}
	for _, id := range c.Identity.TaxIDs {
		if err := utils.ValidateTaxID(id); err != nil {
			return fmt.Errorf("identity.tax_ids: %w", err)
		}
	}

	if c.Matcher.ReviewThreshold >= c.Matcher.CommitThreshold {
		return fmt.Errorf("matcher.review_threshold must be below matcher.commit_threshold")
	}
	if c.Matcher.WindowDays <= 0 {
		return fmt.Errorf("matcher.window_days must be positive")
	}

	if c.Extractor.MinConfidence < 0 || c.Extractor.MinConfidence > 1 {
		return fmt.Errorf("extractor.min_confidence must be within [0, 1]")
	}

	return nil
}
