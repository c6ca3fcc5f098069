package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EngineConfig bounds the repair phase of the assignment engine
type EngineConfig struct {
	MaxRepairIterations int           `yaml:"maxRepairIterations" validate:"min=0"`
	TimeBudget          time.Duration `yaml:"timeBudget" validate:"min=0"`
}

// RedisConfig configures the generation result cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"min=0"`
	TTL      time.Duration `yaml:"ttl" validate:"min=0"`
}

// LogConfig selects the zap level and encoder
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// Config represents the server configuration
type Config struct {
	Port    string `yaml:"port" validate:"required,numeric"`
	GinMode string `yaml:"ginMode" validate:"omitempty,oneof=debug release test"`

	// DatabaseURL selects Postgres; otherwise SQLite at DataPath is used
	DatabaseURL string `yaml:"databaseURL"`
	DataPath    string `yaml:"dataPath" validate:"required"`

	// InitialDataPath is the seed roster served before anything is saved
	InitialDataPath string `yaml:"initialDataPath" validate:"required"`

	// RequireAPIKey protects the generation routes with HMAC API keys
	RequireAPIKey bool `yaml:"requireAPIKey"`

	JWTSecret       string `yaml:"-"`
	APIMasterSecret string `yaml:"-"`
	AdminUsername   string `yaml:"adminUsername" validate:"required"`
	AdminPassword   string `yaml:"-"`

	Redis  RedisConfig  `yaml:"redis"`
	Engine EngineConfig `yaml:"engine"`
	Log    LogConfig    `yaml:"log"`
}

// DefaultConfigFile is looked up in the working directory when SHIFT_CONFIG is unset
const DefaultConfigFile = "shift_config.yaml"

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		Port:            "8000",
		DataPath:        "shift_roster.db",
		InitialDataPath: "input_data.json",
		AdminUsername:   "admin",
		AdminPassword:   "admin123",
		Redis:           RedisConfig{TTL: time.Hour},
		Engine: EngineConfig{
			MaxRepairIterations: 20000,
			TimeBudget:          5 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads .env (if present), the YAML config file (if present), then
// environment variable overrides, and validates the result.
func Load() (*Config, error) {
	// Try root and parent directories for flexibility
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			break
		}
	}

	path := os.Getenv("SHIFT_CONFIG")
	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}

	cfg := Default()
	if path != "" {
		if err := readFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromPath loads and validates the configuration from a specific YAML file
// without consulting the environment.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := readFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// Validate validates the configuration struct
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	setString(&c.Port, "PORT")
	setString(&c.GinMode, "GIN_MODE")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.DataPath, "DATA_PATH")
	setString(&c.InitialDataPath, "INITIAL_DATA_PATH")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.APIMasterSecret, "API_MASTER_SECRET")
	setString(&c.AdminUsername, "ADMIN_USERNAME")
	setString(&c.AdminPassword, "ADMIN_PASSWORD")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")

	if v, err := strconv.ParseBool(os.Getenv("REQUIRE_API_KEY")); err == nil {
		c.RequireAPIKey = v
	}
	if v, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil {
		c.Redis.DB = v
	}
	if v, err := time.ParseDuration(os.Getenv("CACHE_TTL")); err == nil {
		c.Redis.TTL = v
	}
	if v, err := strconv.Atoi(os.Getenv("ENGINE_MAX_REPAIR_ITERATIONS")); err == nil {
		c.Engine.MaxRepairIterations = v
	}
	if v, err := time.ParseDuration(os.Getenv("ENGINE_TIME_BUDGET")); err == nil {
		c.Engine.TimeBudget = v
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
