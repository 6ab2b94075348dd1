package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds all server-related settings
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds database configuration settings
type DatabaseConfig struct {
	Type string `yaml:"type"` // "postgres", "mongo" or "memory"
	URI  string `yaml:"uri"`
	Name string `yaml:"name"`
}

// AuthConfig holds token signing settings
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// Config holds the complete application configuration
type Config struct {
	Server         ServerConfig   `yaml:"server"`
	Database       DatabaseConfig `yaml:"database"`
	Auth           AuthConfig     `yaml:"auth"`
	MediaDir       string         `yaml:"media_dir"`
	IndexCacheTTL  time.Duration  `yaml:"index_cache_ttl"`
	AllowedOrigins []string       `yaml:"allowed_origins"`
	Debug          bool           `yaml:"debug"`
}

// DefaultConfig provides defaults suitable for local development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Type: "postgres",
			Name: "fernpost",
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		MediaDir:       "media",
		IndexCacheTTL:  20 * time.Second,
		AllowedOrigins: []string{"*"},
	}
}

// LoadConfig builds configuration in three layers: defaults, an optional YAML
// file (path argument or CONFIG_FILE), then environment variables. A .env file
// is probed in the working directory and two levels up for when the binary
// runs from cmd/fernpost.
func LoadConfig(configFile string) (*Config, error) {
	for _, location := range []string{".env", "../../.env"} {
		if err := godotenv.Load(location); err == nil {
			break
		}
	}

	cfg := DefaultConfig()

	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
	}

	applyEnv(cfg)

	if cfg.Database.Type != "memory" && cfg.Database.URI == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for database type %q", cfg.Database.Type)
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if host := os.Getenv("HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			cfg.Server.Port = port
		}
	}

	if dbType := os.Getenv("DB_TYPE"); dbType != "" {
		cfg.Database.Type = dbType
	}
	if uri := os.Getenv("DATABASE_URL"); uri != "" {
		cfg.Database.URI = uri
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Database.Name = name
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if ttlStr := os.Getenv("TOKEN_TTL"); ttlStr != "" {
		if ttl, err := time.ParseDuration(ttlStr); err == nil {
			cfg.Auth.TokenTTL = ttl
		}
	}

	if dir := os.Getenv("MEDIA_DIR"); dir != "" {
		cfg.MediaDir = dir
	}
	if ttlStr := os.Getenv("INDEX_CACHE_TTL"); ttlStr != "" {
		if ttl, err := time.ParseDuration(ttlStr); err == nil {
			cfg.IndexCacheTTL = ttl
		}
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = strings.Split(origins, ",")
	}
	if os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
	}
}

// Addr is the host:port the HTTP server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
