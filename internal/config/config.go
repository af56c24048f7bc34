package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrMissingSetting is returned by Validate when a required setting is empty.
var ErrMissingSetting = errors.New("missing required setting")

// Config holds all configuration for the application.
type Config struct {
	Brokerage Brokerage `mapstructure:"brokerage"`
	Social    Social    `mapstructure:"social"`
	Schedule  Schedule  `mapstructure:"schedule"`
	Logger    Logger    `mapstructure:"logger"`
	Database  Database  `mapstructure:"database"`
	HTTP      HTTP      `mapstructure:"http"`
	DryRun    bool      `mapstructure:"dry_run"`
}

// Brokerage holds the brokerage account and OAuth2 settings.
type Brokerage struct {
	BaseURL      string `mapstructure:"base_url"`
	ClientID     string `mapstructure:"client_id"`
	AccountID    string `mapstructure:"account_id"`
	RedirectURI  string `mapstructure:"redirect_uri"`
	AuthCode     string `mapstructure:"code"`
	RefreshToken string `mapstructure:"refresh_token"`
}

// Social holds the OAuth1 credentials of the account the alerts are posted to.
type Social struct {
	BaseURL        string `mapstructure:"base_url"`
	ConsumerKey    string `mapstructure:"key"`
	ConsumerSecret string `mapstructure:"secret_key"`
	AccessToken    string `mapstructure:"token"`
	AccessSecret   string `mapstructure:"secret_token"`
	ScreenName     string `mapstructure:"screen_name"`
	PageSize       int    `mapstructure:"page_size"`
}

// Schedule holds the cron specs of the two jobs.
type Schedule struct {
	Timezone  string `mapstructure:"timezone"`
	Trades    string `mapstructure:"trades"`
	Positions string `mapstructure:"positions"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Database holds the configuration for the thread index database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// HTTP holds settings shared by both API clients.
type HTTP struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

// envBindings maps config keys onto the environment variable names used by
// existing deployments.
var envBindings = map[string]string{
	"brokerage.client_id":     "CLIENT_ID",
	"brokerage.account_id":    "ACCOUNT_ID",
	"brokerage.redirect_uri":  "REDIRECT_URI",
	"brokerage.code":          "CODE",
	"brokerage.refresh_token": "REFRESH_TOKEN",
	"social.key":              "TWITTER_KEY",
	"social.secret_key":       "TWITTER_SECRET_KEY",
	"social.token":            "TWITTER_TOKEN",
	"social.secret_token":     "TWITTER_SECRET_TOKEN",
}

// LoadConfig reads configuration from an optional config.yml in path and from
// environment variables, which always take precedence.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, env := range envBindings {
		if err = v.BindEnv(key, env); err != nil {
			return
		}
	}

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("brokerage.base_url", "https://api.tdameritrade.com/v1")
	v.SetDefault("social.base_url", "https://api.twitter.com/1.1")
	v.SetDefault("social.screen_name", "")
	v.SetDefault("social.page_size", 200)
	v.SetDefault("schedule.timezone", "America/New_York")
	v.SetDefault("schedule.trades", "0 6 * * TUE-SAT")
	v.SetDefault("schedule.positions", "55 5 * * MON")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("database.dsn", "file::memory:")
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.rate_limit", 0) // requests per second, 0 is unlimited
	v.SetDefault("http.rate_limit_burst", 1)
	v.SetDefault("dry_run", false)
}

// Validate fails when a secret needed by either flow is empty, so the process
// stops at startup instead of sending unauthenticated requests later.
func (c *Config) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"CLIENT_ID", c.Brokerage.ClientID},
		{"ACCOUNT_ID", c.Brokerage.AccountID},
		{"REDIRECT_URI", c.Brokerage.RedirectURI},
		{"TWITTER_KEY", c.Social.ConsumerKey},
		{"TWITTER_SECRET_KEY", c.Social.ConsumerSecret},
		{"TWITTER_TOKEN", c.Social.AccessToken},
		{"TWITTER_SECRET_TOKEN", c.Social.AccessSecret},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingSetting, r.key)
		}
	}
	if c.Brokerage.RefreshToken == "" && c.Brokerage.AuthCode == "" {
		return fmt.Errorf("%w: REFRESH_TOKEN or CODE", ErrMissingSetting)
	}
	return nil
}
