package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Gray Logic device viewer.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
	Viewer    ViewerConfig    `yaml:"viewer"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path" env:"GRAYLOGIC_DATABASE_PATH"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
// When disabled the device store runs standalone with no cross-instance feed.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled" env:"GRAYLOGIC_MQTT_ENABLED"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host" env:"GRAYLOGIC_MQTT_HOST"`
	Port     int    `yaml:"port" env:"GRAYLOGIC_MQTT_PORT"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id" env:"GRAYLOGIC_MQTT_CLIENT_ID"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username" env:"GRAYLOGIC_MQTT_USERNAME"`
	Password string `yaml:"password" env:"GRAYLOGIC_MQTT_PASSWORD"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host" env:"GRAYLOGIC_API_HOST"`
	Port     int              `yaml:"port" env:"GRAYLOGIC_API_PORT"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled" env:"GRAYLOGIC_INFLUXDB_ENABLED"`
	URL           string `yaml:"url" env:"GRAYLOGIC_INFLUXDB_URL"`
	Token         string `yaml:"token" env:"GRAYLOGIC_INFLUXDB_TOKEN"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"GRAYLOGIC_LOG_LEVEL"`
	Format string `yaml:"format" env:"GRAYLOGIC_LOG_FORMAT"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret         string `yaml:"secret" env:"GRAYLOGIC_JWT_SECRET"`
	AccessTokenTTL int    `yaml:"access_token_ttl"`
}

// ViewerConfig contains the 3D viewport settings.
type ViewerConfig struct {
	Surface   SurfaceConfig   `yaml:"surface"`
	Camera    CameraConfig    `yaml:"camera"`
	Layout    LayoutConfig    `yaml:"layout"`
	Animation AnimationConfig `yaml:"animation"`
	Assets    AssetsConfig    `yaml:"assets"`
}

// SurfaceConfig describes the host drawing surface.
type SurfaceConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	FrameRate int `yaml:"frame_rate" env:"GRAYLOGIC_VIEWER_FRAME_RATE"`
}

// CameraConfig contains perspective camera parameters.
type CameraConfig struct {
	FOV  float32 `yaml:"fov"`
	Near float32 `yaml:"near"`
	Far  float32 `yaml:"far"`
}

// LayoutConfig controls how device models are placed in the scene.
type LayoutConfig struct {
	Spacing float32 `yaml:"spacing"`
}

// AnimationConfig controls camera transitions.
type AnimationConfig struct {
	// DurationMS is the length of a camera transition in milliseconds.
	DurationMS int `yaml:"duration_ms"`
}

// AssetsConfig controls where device models are loaded from.
type AssetsConfig struct {
	// Root is the local directory that relative model paths resolve against.
	Root string `yaml:"root" env:"GRAYLOGIC_ASSETS_ROOT"`

	// BaseURL, when set, makes relative model paths resolve over HTTP instead.
	BaseURL string `yaml:"base_url" env:"GRAYLOGIC_ASSETS_BASE_URL"`

	// Timeout is the per-load timeout in seconds.
	Timeout int `yaml:"timeout"`

	// CacheSize bounds the number of decoded models kept in memory.
	CacheSize int `yaml:"cache_size"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
// For example: GRAYLOGIC_DATABASE_PATH, GRAYLOGIC_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/viewer.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-viewer",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 15,
			},
		},
		Viewer: ViewerConfig{
			Surface: SurfaceConfig{
				Width:     800,
				Height:    600,
				FrameRate: 30,
			},
			Camera: CameraConfig{
				FOV:  75,
				Near: 0.1,
				Far:  1000,
			},
			Layout: LayoutConfig{
				Spacing: 3,
			},
			Animation: AnimationConfig{
				DurationMS: 1000,
			},
			Assets: AssetsConfig{
				Root:      "./assets",
				Timeout:   10,
				CacheSize: 64,
			},
		},
	}
}

// applyEnvOverrides applies GRAYLOGIC_* environment variables on top of the
// file values. Only variables that are set replace the current value.
func applyEnvOverrides(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parsing environment overrides: %w", err)
	}
	return nil
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Mutating endpoints are guarded by JWTs signed with this secret.
	const minJWTSecretLength = 32
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set GRAYLOGIC_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
	}

	errs = append(errs, c.Viewer.validate()...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (v ViewerConfig) validate() []string {
	var errs []string

	if v.Surface.Width <= 0 || v.Surface.Height <= 0 {
		errs = append(errs, "viewer.surface width and height must be positive")
	}
	if v.Surface.FrameRate < 1 || v.Surface.FrameRate > 240 {
		errs = append(errs, "viewer.surface.frame_rate must be between 1 and 240")
	}
	if v.Camera.FOV <= 0 || v.Camera.FOV >= 180 {
		errs = append(errs, "viewer.camera.fov must be between 0 and 180 degrees")
	}
	if v.Camera.Near <= 0 || v.Camera.Far <= v.Camera.Near {
		errs = append(errs, "viewer.camera requires 0 < near < far")
	}
	if v.Layout.Spacing <= 0 {
		errs = append(errs, "viewer.layout.spacing must be positive")
	}
	if v.Animation.DurationMS <= 0 {
		errs = append(errs, "viewer.animation.duration_ms must be positive")
	}
	if v.Assets.Root == "" && v.Assets.BaseURL == "" {
		errs = append(errs, "viewer.assets requires root or base_url")
	}

	return errs
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// FrameInterval returns the render loop cadence.
func (v ViewerConfig) FrameInterval() time.Duration {
	return time.Second / time.Duration(v.Surface.FrameRate)
}

// AnimationDuration returns the camera transition length.
func (v ViewerConfig) AnimationDuration() time.Duration {
	return time.Duration(v.Animation.DurationMS) * time.Millisecond
}

// AssetTimeout returns the per-model load timeout.
func (v ViewerConfig) AssetTimeout() time.Duration {
	return time.Duration(v.Assets.Timeout) * time.Second
}
