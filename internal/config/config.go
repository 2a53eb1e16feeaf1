package config

import (
	"bytes"
	_ "embed"
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	HTTP         HTTPConfig         `mapstructure:"http"`
	MySQL        DatabaseConfig     `mapstructure:"mysql"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Twilio       TwilioConfig       `mapstructure:"twilio"`
	Dispatcher   DispatcherConfig   `mapstructure:"dispatcher"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Sweep        SweepConfig        `mapstructure:"sweep"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Log          LogConfig          `mapstructure:"log"`
}

// ---- Leaf structs ----

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type TwilioConfig struct {
	AccountSID string        `mapstructure:"account_sid"`
	AuthToken  string        `mapstructure:"auth_token"`
	From       string        `mapstructure:"from"` // whatsapp:+E164 sender
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Breaker    BreakerConfig `mapstructure:"breaker"`
}

// Validate checks the credentials a dispatching process cannot run without.
// migrate and seed never send, so they load config without calling this.
func (c TwilioConfig) Validate() error {
	if c.AccountSID == "" || c.AuthToken == "" {
		return errors.New("config: twilio account_sid and auth_token are required (APPTBOT_TWILIO_ACCOUNT_SID, APPTBOT_TWILIO_AUTH_TOKEN)")
	}
	return nil
}

type BreakerConfig struct {
	FailThreshold int           `mapstructure:"fail_threshold"`
	OpenFor       time.Duration `mapstructure:"open_for"`
}

type DispatcherConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	ButtonLimit  int           `mapstructure:"button_limit"`
}

type ConversationConfig struct {
	StateTTL time.Duration `mapstructure:"state_ttl"`
	Timezone string        `mapstructure:"timezone"` // IANA name or "Local"
}

type SweepConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type RateLimitConfig struct {
	PerMinute int `mapstructure:"per_minute"` // inbound messages per sender
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (APPTBOT_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (APPTBOT_*, dots become underscores)
	v.SetEnvPrefix("APPTBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
