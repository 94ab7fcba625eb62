// Package config loads and validates grabber configuration via Viper.
package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all grabber configuration knobs loaded via Viper.
type Config struct {
	DB      DBConfig      `mapstructure:"db"`
	API     APIConfig     `mapstructure:"api"`
	Grab    GrabConfig    `mapstructure:"grab"`
	Chart   ChartConfig   `mapstructure:"chart"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Storage StorageConfig `mapstructure:"storage"`
}

// DBConfig controls access to the PostgreSQL store. Host and port are
// distinct fields and are only ever combined through DSN.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN renders the pool connection string with credentials escaped.
func (d DBConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	if d.SSLMode != "" {
		q := url.Values{}
		q.Set("sslmode", d.SSLMode)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// APIConfig points the client at the Crime Data Explorer API.
type APIConfig struct {
	Key            string `mapstructure:"key"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Timeout converts the configured request timeout into a duration.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// GrabConfig governs what a run fetches and how wide the fan-out goes.
type GrabConfig struct {
	State       string `mapstructure:"state"`
	YearFrom    int    `mapstructure:"year_from"`
	YearTo      int    `mapstructure:"year_to"`
	Concurrency int    `mapstructure:"concurrency"`
}

// ChartConfig selects the fields rendered in the summary chart.
type ChartConfig struct {
	XField string   `mapstructure:"x_field"`
	Series []string `mapstructure:"series"`
}

// LogConfig controls the zap sinks.
type LogConfig struct {
	Dir         string `mapstructure:"dir"`
	Development bool   `mapstructure:"development"`
}

// MetricsConfig enables the debug listener when Listen is non-empty.
type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

// NotifyConfig selects the run-report publisher.
type NotifyConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// StorageConfig selects the chart artifact destination.
type StorageConfig struct {
	Provider  string `mapstructure:"provider"`
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRIMES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Required keys are registered empty so AutomaticEnv can resolve them
	// without a config file.
	v.SetDefault("db.host", "")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("api.key", "")
	v.SetDefault("api.base_url", "https://api.usa.gov/crime/fbi/cde")
	v.SetDefault("api.timeout_seconds", 30)
	v.SetDefault("grab.state", "CO")
	v.SetDefault("grab.year_from", 2000)
	v.SetDefault("grab.year_to", 2024)
	v.SetDefault("grab.concurrency", 40)
	v.SetDefault("chart.x_field", "data_year")
	v.SetDefault("chart.series", []string{"Rape", "Aggravated Assault"})
	v.SetDefault("log.dir", "log_files")
	v.SetDefault("log.development", false)
	v.SetDefault("metrics.listen", "")
	v.SetDefault("notify.provider", "noop")
	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.local_dir", "charts")
	v.SetDefault("storage.prefix", "charts")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.DB.Host == "" {
		return fmt.Errorf("db.host must be set")
	}
	if c.DB.Port <= 0 {
		return fmt.Errorf("db.port must be > 0")
	}
	if c.DB.User == "" {
		return fmt.Errorf("db.user must be set")
	}
	if c.DB.Password == "" {
		return fmt.Errorf("db.password must be set")
	}
	if c.DB.Name == "" {
		return fmt.Errorf("db.name must be set")
	}
	if c.API.Key == "" {
		return fmt.Errorf("api.key must be set")
	}
	if c.API.TimeoutSeconds <= 0 {
		return fmt.Errorf("api.timeout_seconds must be > 0")
	}
	if c.Grab.State == "" {
		return fmt.Errorf("grab.state must be set")
	}
	if c.Grab.YearFrom > c.Grab.YearTo {
		return fmt.Errorf("grab.year_from must be <= grab.year_to")
	}
	if c.Grab.Concurrency <= 0 {
		return fmt.Errorf("grab.concurrency must be > 0")
	}
	if c.Chart.XField == "" {
		return fmt.Errorf("chart.x_field must be set")
	}
	if c.Notify.Provider == "pubsub" && (c.Notify.ProjectID == "" || c.Notify.Topic == "") {
		return fmt.Errorf("notify.project_id and notify.topic must be set when notify.provider is pubsub")
	}
	if c.Storage.Provider == "gcs" && c.Storage.GCSBucket == "" {
		return fmt.Errorf("storage.gcs_bucket must be set when storage.provider is gcs")
	}
	return nil
}
