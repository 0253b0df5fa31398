package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig
	Log         LogConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	RateLimit   RateLimitConfig
	Auth        AuthConfig
	Vision      VisionConfig
	Google      GoogleConfig
	Azure       AzureConfig
	HuggingFace HuggingFaceConfig `mapstructure:"huggingface"`

	v *viper.Viper
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// DatabaseConfig holds persistence configuration
type DatabaseConfig struct {
	Driver      string `mapstructure:"driver"` // "postgres" or "sqlite"
	DSN         string `mapstructure:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP  int `mapstructure:"per_ip"` // requests per minute
	Vision int `mapstructure:"vision"` // provider requests per minute
}

// AuthConfig holds token signing configuration
type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

// VisionConfig selects and bounds the vision provider chain
type VisionConfig struct {
	UseSimpleFallback   bool          `mapstructure:"use_simple_fallback"`
	UseGoogle           bool          `mapstructure:"use_google"`
	UseAzure            bool          `mapstructure:"use_azure"`
	UseHuggingFace      bool          `mapstructure:"use_huggingface"`
	EnableLocalFallback bool          `mapstructure:"enable_local_fallback"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxUploadBytes      int64         `mapstructure:"max_upload_bytes"`
}

// GoogleConfig holds Google Cloud Vision configuration
type GoogleConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"` // multiplied by the attempt number
}

// AzureConfig holds Azure Computer Vision configuration
type AzureConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	APIKey        string        `mapstructure:"api_key"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDuration time.Duration `mapstructure:"retry_duration"`
}

// HuggingFaceConfig holds Hugging Face inference configuration
type HuggingFaceConfig struct {
	APIToken     string        `mapstructure:"api_token"`
	ModelURL     string        `mapstructure:"model_url"`
	FallbackURLs []string      `mapstructure:"fallback_urls"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryDelay   time.Duration `mapstructure:"retry_delay"`
	TimeoutDelay time.Duration `mapstructure:"timeout_delay"`
}

// VisionFlags is the provider selection state evaluated for one request
type VisionFlags struct {
	UseSimpleFallback   bool
	UseGoogle           bool
	UseAzure            bool
	UseHuggingFace      bool
	EnableLocalFallback bool
}

// legacyEnv maps config keys to the environment names used by earlier deployments
var legacyEnv = map[string]string{
	"google.api_key":             "GOOGLE_VISION_API_KEY",
	"huggingface.api_token":      "HUGGINGFACE_API_TOKEN",
	"vision.use_google":          "USE_GOOGLE_VISION",
	"vision.use_huggingface":     "USE_HUGGINGFACE_VISION",
	"vision.use_simple_fallback": "USE_SIMPLE_VISION_FALLBACK",
	"database.dsn":               "DATABASE_URL",
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/compario/")

	// Environment variable settings
	v.SetEnvPrefix("COMPARIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	for key, env := range legacyEnv {
		envKey := "COMPARIO_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	// Read config file (optional - will use env vars if file doesn't exist)
	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		fileLoaded = false
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	config.v = v

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Provider flags are re-read per request, so pick up file edits
	if fileLoaded {
		v.WatchConfig()
	}

	return &config, nil
}

// VisionFlags returns the current provider selection flags. When the config
// was loaded through Load the values are read live from viper.
func (c *Config) VisionFlags() VisionFlags {
	if c.v == nil {
		return VisionFlags{
			UseSimpleFallback:   c.Vision.UseSimpleFallback,
			UseGoogle:           c.Vision.UseGoogle,
			UseAzure:            c.Vision.UseAzure,
			UseHuggingFace:      c.Vision.UseHuggingFace,
			EnableLocalFallback: c.Vision.EnableLocalFallback,
		}
	}
	return VisionFlags{
		UseSimpleFallback:   c.v.GetBool("vision.use_simple_fallback"),
		UseGoogle:           c.v.GetBool("vision.use_google"),
		UseAzure:            c.v.GetBool("vision.use_azure"),
		UseHuggingFace:      c.v.GetBool("vision.use_huggingface"),
		EnableLocalFallback: c.v.GetBool("vision.enable_local_fallback"),
	}
}

// GoogleAPIKey returns the current Google Vision API key
func (c *Config) GoogleAPIKey() string {
	if c.v == nil {
		return c.Google.APIKey
	}
	return c.v.GetString("google.api_key")
}

// loadEnvFile loads a .env file from the working directory. Variables that
// are already set are left untouched; a missing file is not an error.
func loadEnvFile() error {
	err := godotenv.Load()
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "compario.db")
	v.SetDefault("database.auto_migrate", true)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "24h")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.vision", 60)

	// Auth defaults
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_token_ttl", "60m")
	v.SetDefault("auth.refresh_token_ttl", "168h")

	// Vision defaults
	v.SetDefault("vision.use_simple_fallback", false)
	v.SetDefault("vision.use_google", true)
	v.SetDefault("vision.use_azure", false)
	v.SetDefault("vision.use_huggingface", false)
	v.SetDefault("vision.enable_local_fallback", true)
	v.SetDefault("vision.timeout", "30s")
	v.SetDefault("vision.max_upload_bytes", 5*1024*1024)

	// Provider defaults
	v.SetDefault("google.api_key", "")
	v.SetDefault("google.base_url", "https://vision.googleapis.com")
	v.SetDefault("google.max_attempts", 3)
	v.SetDefault("google.retry_backoff", "500ms")
	v.SetDefault("azure.endpoint", "")
	v.SetDefault("azure.api_key", "")
	v.SetDefault("azure.retry_attempts", 3)
	v.SetDefault("azure.retry_duration", "30s")
	v.SetDefault("huggingface.api_token", "")
	v.SetDefault("huggingface.model_url", "https://api-inference.huggingface.co/models/facebook/deit-base-distilled-patch16-224")
	v.SetDefault("huggingface.fallback_urls", []string{
		"https://api-inference.huggingface.co/models/google/vit-base-patch16-224",
		"https://api-inference.huggingface.co/models/microsoft/swin-base-patch4-window7-224",
	})
	v.SetDefault("huggingface.max_retries", 3)
	v.SetDefault("huggingface.retry_delay", "15s")
	v.SetDefault("huggingface.timeout_delay", "5s")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required (set COMPARIO_AUTH_JWT_SECRET)")
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	if config.Database.Driver != "postgres" && config.Database.Driver != "sqlite" {
		return fmt.Errorf("database driver must be 'postgres' or 'sqlite', got: %s", config.Database.Driver)
	}

	if config.Database.DSN == "" {
		return fmt.Errorf("database DSN is required (set COMPARIO_DATABASE_DSN)")
	}

	if config.Vision.MaxUploadBytes <= 0 {
		return fmt.Errorf("vision max upload bytes must be positive, got: %d", config.Vision.MaxUploadBytes)
	}

	return nil
}
