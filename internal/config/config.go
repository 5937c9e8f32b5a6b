package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Log       Log       `mapstructure:"log"`
	HTTP      HTTP      `mapstructure:"http"`
	Database  Database  `mapstructure:"database"`
	Billing   Billing   `mapstructure:"billing"`
	Entry     Lane      `mapstructure:"entry"`
	Exit      Lane      `mapstructure:"exit"`
	Payment   Payment   `mapstructure:"payment"`
	Snapshots Snapshots `mapstructure:"snapshots"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

type HTTP struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	Auth           Auth     `mapstructure:"auth"`
}

type Auth struct {
	JWTSecret        string        `mapstructure:"jwt_secret"`
	OperatorPassword string        `mapstructure:"operator_password"`
	TokenTTL         time.Duration `mapstructure:"token_ttl"`
}

type Database struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

type Billing struct {
	RatePerHour int64 `mapstructure:"rate_per_hour"`
}

// Port selects a serial device: an explicit name wins, otherwise the
// attached ports are scanned for a description matching one of the hints.
type Port struct {
	Name     string   `mapstructure:"name"`
	Hints    []string `mapstructure:"hints"`
	BaudRate int      `mapstructure:"baud_rate"`
}

// Lane configures one detection lane (entry or exit).
type Lane struct {
	Port            Port          `mapstructure:"port"`
	Sensor          string        `mapstructure:"sensor"` // simulated | serial
	TriggerDistance float64       `mapstructure:"trigger_distance_cm"`
	WindowSize      int           `mapstructure:"window_size"`
	Cooldown        time.Duration `mapstructure:"cooldown"`
	GateDwell       time.Duration `mapstructure:"gate_dwell"`
	ScanInterval    time.Duration `mapstructure:"scan_interval"`
	// DemoPlates feeds the bench-rig scripted camera; empty in
	// production where the real capture pipeline is attached.
	DemoPlates []string `mapstructure:"demo_plates"`
}

type Payment struct {
	Port            Port          `mapstructure:"port"`
	CardPollTimeout time.Duration `mapstructure:"card_poll_timeout"`
	ReadyTimeout    time.Duration `mapstructure:"ready_timeout"`
	ConfirmAttempts int           `mapstructure:"confirm_attempts"`
	ConfirmTimeout  time.Duration `mapstructure:"confirm_timeout"`
	// RetryDelay is the fixed wait between confirm attempts. The total
	// confirm bound is ConfirmAttempts*ConfirmTimeout plus
	// (ConfirmAttempts-1)*RetryDelay; the defaults come to 10s.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

type Snapshots struct {
	Dir string `mapstructure:"dir"`
}

// Load reads the yaml config file (if present) with PARKGATE_* environment
// overrides on top of the defaults below.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("log.level", "info")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.allowed_origins", []string{"*"})
	v.SetDefault("http.auth.token_ttl", 24*time.Hour)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "car_logs.db")
	v.SetDefault("billing.rate_per_hour", 500)
	v.SetDefault("snapshots.dir", "plates")

	for _, lane := range []string{"entry", "exit"} {
		v.SetDefault(lane+".port.baud_rate", 9600)
		v.SetDefault(lane+".port.hints", []string{"Arduino", "USB-SERIAL"})
		v.SetDefault(lane+".sensor", "simulated")
		v.SetDefault(lane+".trigger_distance_cm", 50)
		v.SetDefault(lane+".window_size", 3)
		v.SetDefault(lane+".scan_interval", 200*time.Millisecond)
	}
	v.SetDefault("entry.cooldown", 5*time.Minute)
	v.SetDefault("entry.gate_dwell", 2*time.Second)
	v.SetDefault("exit.cooldown", time.Duration(0))
	v.SetDefault("exit.gate_dwell", 15*time.Second)

	v.SetDefault("payment.port.baud_rate", 9600)
	v.SetDefault("payment.port.hints", []string{"Arduino", "USB-SERIAL"})
	v.SetDefault("payment.card_poll_timeout", time.Second)
	v.SetDefault("payment.ready_timeout", 5*time.Second)
	v.SetDefault("payment.confirm_attempts", 3)
	v.SetDefault("payment.confirm_timeout", 3*time.Second)
	v.SetDefault("payment.retry_delay", 500*time.Millisecond)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("PARKGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
