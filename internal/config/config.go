package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Clicks    ClicksConfig
	Geo       GeoConfig
}

type AppConfig struct {
	Port    string
	BaseURL string // префикс для коротких ссылок, например https://sh.example.com
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Host string
	Port string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

type ClicksConfig struct {
	Workers    int
	BufferSize int
}

type GeoConfig struct {
	BaseURL string // пустое значение отключает геопоиск
	Timeout time.Duration
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// .env опционален, переменные окружения достаточны
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	var cfg Config
	cfg.App.Port = viper.GetString("APP_PORT")
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	cfg.App.BaseURL = viper.GetString("BASE_URL")
	if cfg.App.BaseURL == "" {
		cfg.App.BaseURL = "http://localhost:" + cfg.App.Port
	}

	cfg.DB.Host = viper.GetString("DB_HOST")
	cfg.DB.Port = viper.GetString("DB_PORT")
	cfg.DB.User = viper.GetString("DB_USER")
	cfg.DB.Password = viper.GetString("DB_PASSWORD")
	cfg.DB.Name = viper.GetString("DB_NAME")
	cfg.Redis.Host = viper.GetString("REDIS_HOST")
	cfg.Redis.Port = viper.GetString("REDIS_PORT")

	cfg.Auth.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	cfg.Auth.TokenTTL = viper.GetDuration("JWT_TTL")
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}

	cfg.RateLimit.RequestsPerSecond = viper.GetFloat64("RATE_LIMIT_RPS")
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 10
	}
	cfg.RateLimit.BurstSize = viper.GetInt("RATE_LIMIT_BURST")
	if cfg.RateLimit.BurstSize == 0 {
		cfg.RateLimit.BurstSize = 20
	}

	cfg.Clicks.Workers = viper.GetInt("CLICK_WORKERS")
	if cfg.Clicks.Workers == 0 {
		cfg.Clicks.Workers = 3
	}
	cfg.Clicks.BufferSize = viper.GetInt("CLICK_BUFFER")
	if cfg.Clicks.BufferSize == 0 {
		cfg.Clicks.BufferSize = 1000
	}

	cfg.Geo.BaseURL = viper.GetString("GEO_BASE_URL")
	if cfg.Geo.BaseURL == "" {
		cfg.Geo.BaseURL = "http://ip-api.com"
	}
	cfg.Geo.Timeout = viper.GetDuration("GEO_TIMEOUT")
	if cfg.Geo.Timeout == 0 {
		cfg.Geo.Timeout = 2 * time.Second
	}

	return &cfg, nil
}
