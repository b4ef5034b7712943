package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the security event worker.
// All configuration is loaded from YAML and can be overridden by environment
// variables (SENTINEL_* names, see applyEnvOverrides).
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Detection DetectionConfig `yaml:"detection"`
	Evidence  EvidenceConfig  `yaml:"evidence"`
	Rules     RulesConfig     `yaml:"rules"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// DetectionConfig contains settings for the image detection collaborator.
type DetectionConfig struct {
	// BaseURL is the root of the detection service (no trailing slash).
	BaseURL string `yaml:"base_url"`

	// Timeout is the per-request timeout in seconds. The detection call is
	// fire-and-forget; a timeout is expected and swallowed.
	Timeout int `yaml:"timeout"`
}

// TimeoutDuration returns the detection request timeout as a duration.
func (c DetectionConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// EvidenceConfig contains evidence frame storage settings.
type EvidenceConfig struct {
	// Path is the root directory for stored frames. Evidence rows reference
	// file paths relative to this root.
	Path string `yaml:"path"`
}

// RulesConfig contains the motion automation rule parameters.
type RulesConfig struct {
	// MotionCooldown is the minimum time in seconds between accepted motion
	// events for the same zone.
	MotionCooldown int `yaml:"motion_cooldown"`

	// AutoLightsDuration is the relay on-duration in seconds sent with
	// motion-triggered relay commands.
	AutoLightsDuration int `yaml:"auto_lights_duration"`

	// CaptureFrames is the number of frames cameras are asked to capture
	// on a motion event.
	CaptureFrames int `yaml:"capture_frames"`
}

// CooldownDuration returns the motion cooldown as a duration.
func (c RulesConfig) CooldownDuration() time.Duration {
	return time.Duration(c.MotionCooldown) * time.Second
}

// InfluxDBConfig contains InfluxDB connection settings for the optional
// telemetry time-series mirror.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default values applied before the YAML file is parsed.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "data/sentinel.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "sentinel-worker",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Detection: DetectionConfig{
			BaseURL: "http://localhost:5001",
			Timeout: 2,
		},
		Evidence: EvidenceConfig{
			Path: "data/evidences",
		},
		Rules: RulesConfig{
			MotionCooldown:     30,
			AutoLightsDuration: 300,
			CaptureFrames:      5,
		},
		InfluxDB: InfluxDBConfig{
			Enabled:       false,
			URL:           "http://localhost:8086",
			Bucket:        "telemetry",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Load reads, parses and validates the configuration file at path.
//
// Order of precedence (lowest to highest): built-in defaults, YAML file,
// environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only settings that differ per deployment (paths, hosts, secrets) are
// overridable; rule tuning lives in the YAML file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SENTINEL_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("SENTINEL_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("SENTINEL_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("SENTINEL_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("SENTINEL_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("SENTINEL_DETECTION_URL"); v != "" {
		cfg.Detection.BaseURL = v
	}
	if v := os.Getenv("SENTINEL_EVIDENCE_PATH"); v != "" {
		cfg.Evidence.Path = v
	}
	if v := os.Getenv("SENTINEL_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for invalid or inconsistent values.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.MQTT.Broker.Host == "" {
		return fmt.Errorf("mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port <= 0 || c.MQTT.Broker.Port > 65535 {
		return fmt.Errorf("mqtt.broker.port must be between 1 and 65535, got %d", c.MQTT.Broker.Port)
	}
	if c.MQTT.Broker.ClientID == "" {
		return fmt.Errorf("mqtt.broker.client_id is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	if c.Detection.BaseURL == "" {
		return fmt.Errorf("detection.base_url is required")
	}
	if strings.HasSuffix(c.Detection.BaseURL, "/") {
		return fmt.Errorf("detection.base_url must not end with a slash")
	}
	if c.Detection.Timeout <= 0 {
		return fmt.Errorf("detection.timeout must be positive, got %d", c.Detection.Timeout)
	}
	if c.Evidence.Path == "" {
		return fmt.Errorf("evidence.path is required")
	}
	if c.Rules.MotionCooldown < 0 {
		return fmt.Errorf("rules.motion_cooldown must not be negative, got %d", c.Rules.MotionCooldown)
	}
	if c.Rules.AutoLightsDuration <= 0 {
		return fmt.Errorf("rules.auto_lights_duration must be positive, got %d", c.Rules.AutoLightsDuration)
	}
	if c.Rules.CaptureFrames <= 0 {
		return fmt.Errorf("rules.capture_frames must be positive, got %d", c.Rules.CaptureFrames)
	}
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			return fmt.Errorf("influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			return fmt.Errorf("influxdb.bucket is required when influxdb is enabled")
		}
	}
	return nil
}
