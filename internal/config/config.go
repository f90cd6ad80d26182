// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	DBHost         string `mapstructure:"DB_HOST"`
	DBPort         string `mapstructure:"DB_PORT"`
	DBUser         string `mapstructure:"DB_USER"`
	DBPassword     string `mapstructure:"DB_PASSWORD"`
	DBName         string `mapstructure:"DB_NAME"`
	DBSSLMode      string `mapstructure:"DB_SSLMODE"`
	RedisURL       string `mapstructure:"REDIS_URL"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	StorageBackend string `mapstructure:"STORAGE_BACKEND"`
	UploadDir      string `mapstructure:"UPLOAD_DIR"`

	MaxUploadSizeMB        int    `mapstructure:"MAX_UPLOAD_SIZE_MB"`
	AvatarMaxSizeMB        int    `mapstructure:"AVATAR_MAX_SIZE_MB"`
	AllowedImageExtensions string `mapstructure:"ALLOWED_IMAGE_EXTENSIONS"`
	MaxImagesPerPost       int    `mapstructure:"MAX_IMAGES_PER_POST"`
	MaxImageWidth          int    `mapstructure:"MAX_IMAGE_WIDTH"`
	AvatarSize             int    `mapstructure:"AVATAR_SIZE"`

	PostsPerPage    int `mapstructure:"POSTS_PER_PAGE"`
	CommentsPerPage int `mapstructure:"COMMENTS_PER_PAGE"`
	NotificationCap int `mapstructure:"NOTIFICATION_CAP"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The config file is optional; environment variables and defaults cover
	// development setups.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			log.Printf("No profile-specific configuration config.%s.yml, continuing with environment", env)
		}
	}

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("JWT_SECRET", "change-me-in-production")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "dojo")
	viper.SetDefault("DB_PASSWORD", "dojo")
	viper.SetDefault("DB_NAME", "dojo")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")

	viper.SetDefault("STORAGE_BACKEND", "local")
	viper.SetDefault("UPLOAD_DIR", "uploads")

	viper.SetDefault("MAX_UPLOAD_SIZE_MB", 5)
	viper.SetDefault("AVATAR_MAX_SIZE_MB", 2)
	viper.SetDefault("ALLOWED_IMAGE_EXTENSIONS", "jpg,jpeg,png,webp,gif")
	viper.SetDefault("MAX_IMAGES_PER_POST", 5)
	viper.SetDefault("MAX_IMAGE_WIDTH", 1920)
	viper.SetDefault("AVATAR_SIZE", 256)

	viper.SetDefault("POSTS_PER_PAGE", 12)
	viper.SetDefault("COMMENTS_PER_PAGE", 20)
	viper.SetDefault("NOTIFICATION_CAP", 100)

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.DBSSLMode = strings.ToLower(strings.TrimSpace(config.DBSSLMode))
	config.StorageBackend = strings.ToLower(strings.TrimSpace(config.StorageBackend))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.StorageBackend != "local" && c.StorageBackend != "memory" {
		return fmt.Errorf("STORAGE_BACKEND must be 'local' or 'memory', got %q", c.StorageBackend)
	}
	if c.StorageBackend == "local" && c.UploadDir == "" {
		return errors.New("UPLOAD_DIR is required when STORAGE_BACKEND is 'local'")
	}
	if c.MaxUploadSizeMB <= 0 || c.AvatarMaxSizeMB <= 0 {
		return errors.New("upload size limits must be positive")
	}
	if c.MaxImagesPerPost <= 0 || c.MaxImageWidth <= 0 || c.AvatarSize <= 0 {
		return errors.New("image processing limits must be positive")
	}
	if c.PostsPerPage <= 0 || c.CommentsPerPage <= 0 {
		return errors.New("page sizes must be positive")
	}
	if c.NotificationCap <= 0 {
		return errors.New("NOTIFICATION_CAP must be positive")
	}

	isProduction := c.Env == "production" || c.Env == "prod"

	if isProduction {
		if c.JWTSecret == "change-me-in-production" {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "dojo" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			log.Println("WARNING: DB_SSLMODE is 'disable' in production. Use SSL for database connections.")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Use a stronger secret for production.")
	}

	return nil
}

// ImageExtensions returns the allowed image extensions as a slice.
func (c *Config) ImageExtensions() []string {
	return splitList(c.AllowedImageExtensions)
}

// Origins returns the allowed CORS origins as a slice.
func (c *Config) Origins() []string {
	return splitList(c.AllowedOrigins)
}

// MaxUploadBytes is the hard request limit for post image uploads.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadSizeMB) << 20
}

// AvatarMaxBytes is the hard request limit for avatar uploads.
func (c *Config) AvatarMaxBytes() int64 {
	return int64(c.AvatarMaxSizeMB) << 20
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
