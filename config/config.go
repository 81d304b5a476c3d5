package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Accounts    []AccountConfig `mapstructure:"accounts"`
	Ledger      LedgerConfig    `mapstructure:"ledger"`
	Batch       BatchConfig     `mapstructure:"batch"`
	Label       LabelConfig     `mapstructure:"label"`
	SFTP        SFTPConfig      `mapstructure:"sftp"`
	Email       EmailConfig     `mapstructure:"email"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Tracing     TracingConfig   `mapstructure:"tracing"`
	API         APIConfig       `mapstructure:"api"`
	Worker      WorkerConfig    `mapstructure:"worker"`
}

// AccountConfig holds credentials and shop identity for one retailer account.
// The shop name is threaded explicitly through the pipeline so multiple
// accounts can run without shared mutable state.
type AccountConfig struct {
	Name         string `mapstructure:"name"`
	Shop         string `mapstructure:"shop"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	TestMode     bool   `mapstructure:"test_mode"`
}

// LedgerConfig holds the processed-order ledger configuration
type LedgerConfig struct {
	Path string `mapstructure:"path"`
}

// BatchConfig holds batch file output configuration
type BatchConfig struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"` // csv or xlsx
}

// LabelConfig holds label acquisition configuration
type LabelConfig struct {
	Dir              string        `mapstructure:"dir"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	MaxPolls         int           `mapstructure:"max_polls"`
	DownloadRetries  int           `mapstructure:"download_retries"`
	DownloadInterval time.Duration `mapstructure:"download_interval"`
	Format           string        `mapstructure:"format"`
}

// SFTPConfig holds the file-drop publisher configuration
type SFTPConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	RemoteBatchDir string `mapstructure:"remote_batch_dir"`
	RemoteLabelDir string `mapstructure:"remote_label_dir"`
}

// EmailConfig holds summary notification configuration
type EmailConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	SMTPHost        string   `mapstructure:"smtp_host"`
	SMTPPort        int      `mapstructure:"smtp_port"`
	Username        string   `mapstructure:"username"`
	Password        string   `mapstructure:"password"`
	From            string   `mapstructure:"from"`
	Recipients      []string `mapstructure:"recipients"`
	SubjectTemplate string   `mapstructure:"subject_template"`
	BodyTemplate    string   `mapstructure:"body_template"`
}

// RedisConfig holds the optional token cache configuration
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	LicenseKey     string `mapstructure:"license_key"`
	AppName        string `mapstructure:"app_name"`
	LogEnabled     bool   `mapstructure:"log_enabled"`
	DistribTracing bool   `mapstructure:"distributed_tracing_enabled"`
}

// APIConfig holds the status API configuration
type APIConfig struct {
	Address string `mapstructure:"address"`
}

// WorkerConfig holds scheduler configuration
type WorkerConfig struct {
	// ProcessTimes are HH:MM (24h) times at which a processing run starts.
	ProcessTimes []string `mapstructure:"process_times"`
}

// LoadConfig reads configuration from file or environment variables
func LoadConfig(path string) (Config, error) {
	v := viper.New()

	setDefaults(v)

	v.AddConfigPath(path)
	v.AddConfigPath("./config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Continue with ENV vars and defaults only
			fmt.Printf("Warning: No configuration file found: %v\n", err)
		} else {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Enable environment variables to override config
	v.SetEnvPrefix("BOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("unable to unmarshal config: %w", err)
	}

	if len(config.Accounts) == 0 {
		config.Accounts = []AccountConfig{{
			Name:         v.GetString("account.name"),
			Shop:         v.GetString("account.shop"),
			ClientID:     v.GetString("account.client_id"),
			ClientSecret: v.GetString("account.client_secret"),
			TestMode:     v.GetBool("account.test_mode"),
		}}
	}

	return config, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	// Single-account fallback when no accounts list is configured
	v.SetDefault("account.name", "default")
	v.SetDefault("account.shop", "Trivium")
	v.SetDefault("account.test_mode", true)

	// Ledger settings
	v.SetDefault("ledger.path", "bol_orders.db")

	// Batch output settings
	v.SetDefault("batch.dir", "batches")
	v.SetDefault("batch.format", "csv")

	// Label acquisition settings
	v.SetDefault("label.dir", "label")
	v.SetDefault("label.poll_interval", "2s")
	v.SetDefault("label.max_polls", 10)
	v.SetDefault("label.download_retries", 3)
	v.SetDefault("label.download_interval", "2s")
	v.SetDefault("label.format", "PDF")

	// SFTP settings
	v.SetDefault("sftp.enabled", false)
	v.SetDefault("sftp.port", 22)
	v.SetDefault("sftp.remote_batch_dir", "/FTP/Batches")
	v.SetDefault("sftp.remote_label_dir", "/FTP/Label")

	// Email settings
	v.SetDefault("email.enabled", false)
	v.SetDefault("email.smtp_port", 465)
	v.SetDefault("email.subject_template",
		"Bol.com orders summary: [total_orders] orders need to be processed")
	v.SetDefault("email.body_template",
		"Today, [total_orders] orders need to be processed.\n"+
			"This number is based on the orders included in the generated batch files.")

	// Redis settings
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.enabled", false)

	// Tracing settings
	v.SetDefault("tracing.app_name", "Order Batch Pipeline")
	v.SetDefault("tracing.log_enabled", true)
	v.SetDefault("tracing.distributed_tracing_enabled", true)

	// Status API settings
	v.SetDefault("api.address", "0.0.0.0:8080")

	// Worker settings
	v.SetDefault("worker.process_times", []string{"08:00", "15:01"})
}
