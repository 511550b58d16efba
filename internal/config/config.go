package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/hamed0406/flvexporter/internal/domain"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ServerConfig struct {
	Address string `mapstructure:"address"`
	// Per-client limit on the JSON endpoints. 0 disables it.
	APIRatePerMin int `mapstructure:"api_rate_per_min"`
	APIBurst      int `mapstructure:"api_burst"`
}

type LoggingConfig struct {
	Dir   string `mapstructure:"dir"`
	Level string `mapstructure:"level"`
}

// CheckConfig holds the check tunables. Durations are milliseconds.
type CheckConfig struct {
	TimeoutMS          int  `mapstructure:"timeout"`
	Threads            int  `mapstructure:"threads"`
	Retries            int  `mapstructure:"retries"`
	IntervalMS         int  `mapstructure:"interval"`
	RetryDelayMS       int  `mapstructure:"retry_delay"`
	RoundDeadlineMS    int  `mapstructure:"round_deadline"` // 0 means 2 x timeout
	ShutdownGraceMS    int  `mapstructure:"shutdown_grace"`
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify"`
}

func (c CheckConfig) Timeout() time.Duration       { return ms(c.TimeoutMS) }
func (c CheckConfig) Interval() time.Duration      { return ms(c.IntervalMS) }
func (c CheckConfig) RetryDelay() time.Duration    { return ms(c.RetryDelayMS) }
func (c CheckConfig) ShutdownGrace() time.Duration { return ms(c.ShutdownGraceMS) }

// RoundDeadline defaults to twice the single-check timeout. That ceiling
// does not grow with stream count or retries; raise round_deadline for
// large fleets.
func (c CheckConfig) RoundDeadline() time.Duration {
	if c.RoundDeadlineMS > 0 {
		return ms(c.RoundDeadlineMS)
	}
	return 2 * c.Timeout()
}

type FlvConfig struct {
	Check CheckConfig         `mapstructure:"check"`
	URLs  map[string][]string `mapstructure:"-"`
}

type NotifyConfig struct {
	SlackWebhook    string `mapstructure:"slack_webhook"`
	AlertOnRecovery bool   `mapstructure:"alert_on_recovery"`
	CooldownMS      int    `mapstructure:"cooldown"`
}

func (n NotifyConfig) Cooldown() time.Duration { return ms(n.CooldownMS) }

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Flv     FlvConfig     `mapstructure:"flv"`
	Notify  NotifyConfig  `mapstructure:"notify"`

	// File is the config file actually read, empty when none was found.
	File string `mapstructure:"-"`
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.api_rate_per_min", 120)
	v.SetDefault("server.api_burst", 60)
	v.SetDefault("logging.dir", "logs")
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("flv.check.timeout", 10000)
	v.SetDefault("flv.check.threads", 10)
	v.SetDefault("flv.check.retries", 3)
	v.SetDefault("flv.check.interval", 30000)
	v.SetDefault("flv.check.retry_delay", 1000)
	v.SetDefault("flv.check.round_deadline", 0)
	v.SetDefault("flv.check.shutdown_grace", 5000)
	v.SetDefault("flv.check.insecure_skip_verify", true)
	v.SetDefault("notify.slack_webhook", "")
	v.SetDefault("notify.alert_on_recovery", true)
	v.SetDefault("notify.cooldown", 600000)
}

// Load is Read followed by Validate.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Read layers defaults, then the config file (path, or config.yaml in
// ./config or .), then FLV_CHECK_TIMEOUT style environment overrides. The
// result is not validated.
func Read(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if cfg.File != "" {
		urls, err := readURLs(cfg.File)
		if err != nil {
			return nil, err
		}
		cfg.Flv.URLs = urls
	}
	return &cfg, nil
}

// readURLs decodes flv.urls straight from the file; viper lower-cases map
// keys and project labels are case sensitive.
func readURLs(file string) (map[string][]string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var raw struct {
		Flv struct {
			URLs map[string][]string `yaml:"urls"`
		} `yaml:"flv"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode flv.urls: %w", err)
	}
	return raw.Flv.URLs, nil
}

// Targets derives the stream targets from the project map.
func (c *Config) Targets() []domain.StreamTarget {
	return domain.BuildTargets(c.Flv.URLs)
}

// Validate checks tunables and the uniqueness of derived stream names.
// Malformed stream URLs are accepted, see URLWarnings. All problems are
// returned together.
func (c *Config) Validate() error {
	var err error
	err = multierr.Append(err, validation.ValidateStruct(&c.Server,
		validation.Field(&c.Server.Address, validation.Required, validation.By(validateHostPort)),
		validation.Field(&c.Server.APIRatePerMin, validation.Min(0)),
		validation.Field(&c.Server.APIBurst, validation.Min(0)),
	))
	err = multierr.Append(err, validation.ValidateStruct(&c.Logging,
		validation.Field(&c.Logging.Dir, validation.Required),
		validation.Field(&c.Logging.Level,
			validation.Required,
			validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
		),
	))
	chk := &c.Flv.Check
	err = multierr.Append(err, validation.ValidateStruct(chk,
		validation.Field(&chk.TimeoutMS, validation.Required, validation.Min(1)),
		validation.Field(&chk.Threads, validation.Required, validation.Min(1)),
		validation.Field(&chk.Retries, validation.Required, validation.Min(1)),
		validation.Field(&chk.IntervalMS, validation.Required, validation.Min(1)),
		validation.Field(&chk.RetryDelayMS, validation.Min(0)),
		validation.Field(&chk.RoundDeadlineMS, validation.Min(0)),
		validation.Field(&chk.ShutdownGraceMS, validation.Min(0)),
	))
	err = multierr.Append(err, validation.ValidateStruct(&c.Notify,
		validation.Field(&c.Notify.SlackWebhook, is.URL),
		validation.Field(&c.Notify.CooldownMS, validation.Min(0)),
	))

	for project := range c.Flv.URLs {
		if strings.TrimSpace(project) == "" {
			err = multierr.Append(err, errors.New("flv.urls: empty project name"))
		}
	}
	for _, e := range domain.CheckUnique(c.Targets()) {
		err = multierr.Append(err, fmt.Errorf("flv.urls: %w", e))
	}
	return err
}

// URLWarnings lists stream URLs that are not http(s) with a host. They do
// not fail Validate: such a stream gets a fallback name and reports down.
func (c *Config) URLWarnings() []error {
	var out []error
	for _, t := range c.Targets() {
		if e := validateStreamURL(t.URL); e != nil {
			out = append(out, fmt.Errorf("flv.urls.%s: %q (%s): %w", t.Project, t.URL, t.Name, e))
		}
	}
	return out
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}
	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}
	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}
	return nil
}

func validateStreamURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}
	if u.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}
	return nil
}
