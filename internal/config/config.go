package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort       = 8080
	DefaultStreamInterval = 5 * time.Second
	DefaultStateTTL       = 5 * time.Minute
	DefaultScrapeInterval = 30 * time.Second
)

// Config is the full configuration parsed from config.yaml.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Redis      RedisConfig      `yaml:"redis"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Scrape     ScrapeConfig     `yaml:"scrape"`
}

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API and WebSocket hub listen on
	// (default 8080).
	HTTPPort int `yaml:"http_port"`

	// Auth configures how API clients authenticate.
	Auth AuthConfig `yaml:"auth"`

	// StreamInterval is how often the WebSocket hub broadcasts device
	// summaries. Default: 5s.
	StreamInterval time.Duration `yaml:"stream_interval"`
}

// AuthConfig controls client authentication on the HTTP surface.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the
	// expected API key. Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header name to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// StorageConfig selects and configures the telemetry store backend.
type StorageConfig struct {
	// Driver is one of: postgres | memory. The memory driver is for
	// development only; it does not survive restarts.
	Driver string `yaml:"driver"`

	// DSNEnv is the name of the environment variable holding the postgres
	// connection string. Required when Driver == "postgres".
	DSNEnv string `yaml:"dsn_env"`
}

// DSN returns the connection string resolved from the environment.
func (s StorageConfig) DSN() string {
	if s.DSNEnv == "" {
		return ""
	}
	return os.Getenv(s.DSNEnv)
}

// RedisConfig configures the optional live-state publisher. Leaving Addr
// empty disables it.
type RedisConfig struct {
	Addr        string        `yaml:"addr"`
	PasswordEnv string        `yaml:"password_env"`
	DB          int           `yaml:"db"`
	StateTTL    time.Duration `yaml:"state_ttl"`
}

// Enabled reports whether live-state publishing is configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// Password returns the redis password resolved from the environment.
func (r RedisConfig) Password() string {
	if r.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(r.PasswordEnv)
}

// MQTTConfig configures the optional message-bus intake. Leaving Broker
// empty disables it.
type MQTTConfig struct {
	Broker      string   `yaml:"broker"`
	ClientID    string   `yaml:"client_id"`
	Topics      []string `yaml:"topics"`
	QoS         int      `yaml:"qos"`
	UsernameEnv string   `yaml:"username_env"`
	PasswordEnv string   `yaml:"password_env"`
}

// Enabled reports whether the bus intake is configured.
func (m MQTTConfig) Enabled() bool { return m.Broker != "" }

// Username returns the broker username resolved from the environment.
func (m MQTTConfig) Username() string {
	if m.UsernameEnv == "" {
		return ""
	}
	return os.Getenv(m.UsernameEnv)
}

// Password returns the broker password resolved from the environment.
func (m MQTTConfig) Password() string {
	if m.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(m.PasswordEnv)
}

// ClassifierConfig configures feature derivation and the learned model.
type ClassifierConfig struct {
	// FeatureKeys is the derivation order. Must match the artifact's
	// feature_order when an artifact is configured.
	FeatureKeys []string `yaml:"feature_keys"`

	// ArtifactPath points at the frozen classifier artifact. Empty means
	// rule-based classification only.
	ArtifactPath string `yaml:"artifact_path"`

	// Watch reloads the artifact when the file changes.
	Watch bool `yaml:"watch"`
}

// ScrapeConfig configures the optional gateway diagnostics poller.
type ScrapeConfig struct {
	Interval time.Duration  `yaml:"interval"`
	Targets  []ScrapeTarget `yaml:"targets"`
}

// Enabled reports whether any scrape targets are configured.
func (s ScrapeConfig) Enabled() bool { return len(s.Targets) > 0 }

// ScrapeTarget is one gateway diagnostics endpoint polled for metrics.
type ScrapeTarget struct {
	// DeviceKey identifies the device the scraped metrics belong to.
	DeviceKey string `yaml:"device_key"`

	// Endpoint is the Prometheus text exposition URL.
	Endpoint string `yaml:"endpoint"`

	// Metrics maps exposition family names to canonical metric names,
	// e.g. node_cpu_usage_percent -> cpuusage.
	Metrics map[string]string `yaml:"metrics"`
}

// Load reads and parses the config file at path. Missing fields are filled
// with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:       DefaultHTTPPort,
			StreamInterval: DefaultStreamInterval,
		},
		Storage: StorageConfig{
			Driver: "memory",
		},
		Redis: RedisConfig{
			StateTTL: DefaultStateTTL,
		},
		MQTT: MQTTConfig{
			ClientID: "edgepulse-server",
			QoS:      1,
		},
		Classifier: ClassifierConfig{
			FeatureKeys: []string{"used_memory", "used_storage", "cpuusage", "temperature"},
		},
		Scrape: ScrapeConfig{
			Interval: DefaultScrapeInterval,
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	if cfg.Server.StreamInterval <= 0 {
		return fmt.Errorf("server.stream_interval must be positive")
	}
	switch cfg.Server.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", cfg.Server.Auth.Mode)
	}

	switch cfg.Storage.Driver {
	case "memory":
	case "postgres":
		if cfg.Storage.DSNEnv == "" {
			return fmt.Errorf("storage.dsn_env is required for the postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver %q unknown: want postgres|memory", cfg.Storage.Driver)
	}

	if cfg.Redis.StateTTL <= 0 {
		return fmt.Errorf("redis.state_ttl must be positive")
	}
	if cfg.MQTT.QoS < 0 || cfg.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos %d is out of range [0, 2]", cfg.MQTT.QoS)
	}
	if cfg.MQTT.Enabled() && len(cfg.MQTT.Topics) == 0 {
		return fmt.Errorf("mqtt.topics must list at least one topic when a broker is set")
	}

	if len(cfg.Classifier.FeatureKeys) == 0 {
		return fmt.Errorf("classifier.feature_keys must not be empty")
	}
	if cfg.Classifier.Watch && cfg.Classifier.ArtifactPath == "" {
		return fmt.Errorf("classifier.watch requires classifier.artifact_path")
	}

	if cfg.Scrape.Interval <= 0 {
		return fmt.Errorf("scrape.interval must be positive")
	}
	for i, t := range cfg.Scrape.Targets {
		if t.DeviceKey == "" || t.Endpoint == "" {
			return fmt.Errorf("scrape.targets[%d] needs both device_key and endpoint", i)
		}
	}
	return nil
}
