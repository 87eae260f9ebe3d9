package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	JWT          JWTConfig          `yaml:"jwt"`
	Log          LogConfig          `yaml:"log"`
	Matching     MatchingConfig     `yaml:"matching"`
	Operator     OperatorConfig     `yaml:"operator"`
	Relay        RelayConfig        `yaml:"relay"`
	Entitlements EntitlementsConfig `yaml:"entitlements"`
	APNS         APNSConfig         `yaml:"apns"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// MatchingConfig holds candidate matching configuration
type MatchingConfig struct {
	MinAge int `yaml:"min_age"`
	MaxAge int `yaml:"max_age"`
}

// OperatorConfig identifies the distinguished operator identity whose
// relayed messages are always attributed with a fixed label.
type OperatorConfig struct {
	UserID int64  `yaml:"user_id"`
	Label  string `yaml:"label"`
}

// RelayConfig holds message relay configuration
type RelayConfig struct {
	MaxPayloadBytes int `yaml:"max_payload_bytes"`
}

// EntitlementsConfig holds grant durations for promo codes and purchases
type EntitlementsConfig struct {
	PromoVIPDuration time.Duration `yaml:"-"`
	BoostDuration    time.Duration `yaml:"-"`
	SuperlikePackN   int           `yaml:"superlike_pack_n"`
}

// UnmarshalYAML parses the duration fields from Go duration strings like
// "72h" or "30m".
func (e *EntitlementsConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		PromoVIPDuration string `yaml:"promo_vip_duration"`
		BoostDuration    string `yaml:"boost_duration"`
		SuperlikePackN   int    `yaml:"superlike_pack_n"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	e.SuperlikePackN = raw.SuperlikePackN
	for _, field := range []struct {
		src string
		dst *time.Duration
	}{
		{raw.PromoVIPDuration, &e.PromoVIPDuration},
		{raw.BoostDuration, &e.BoostDuration},
	} {
		if field.src == "" {
			continue
		}
		d, err := time.ParseDuration(field.src)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", field.src, err)
		}
		*field.dst = d
	}
	return nil
}

// APNSConfig holds push notification configuration. Push is disabled when
// the certificate path is empty.
type APNSConfig struct {
	CertFile     string `yaml:"cert_file"`
	CertPassword string `yaml:"cert_password"`
	Topic        string `yaml:"topic"`
	Production   bool   `yaml:"production"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Matching.MinAge == 0 {
		c.Matching.MinAge = 16
	}
	if c.Matching.MaxAge == 0 {
		c.Matching.MaxAge = 100
	}
	if c.Relay.MaxPayloadBytes == 0 {
		c.Relay.MaxPayloadBytes = 64 * 1024
	}
	if c.Entitlements.PromoVIPDuration == 0 {
		c.Entitlements.PromoVIPDuration = 7 * 24 * time.Hour
	}
	if c.Entitlements.BoostDuration == 0 {
		c.Entitlements.BoostDuration = 24 * time.Hour
	}
	if c.Entitlements.SuperlikePackN == 0 {
		c.Entitlements.SuperlikePackN = 5
	}
	if c.Operator.Label == "" {
		c.Operator.Label = "operator"
	}
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
