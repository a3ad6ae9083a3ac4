// Package config предоставляет структуры и функции для парсинга и загрузки конфига
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string          `yaml:"env" env:"ENV" env-default:"local"`
	GRPCAuthAddress         string          `yaml:"grpc_auth_address" env:"GRPC_AUTH_ADDRESS"`
	StorageConnectionString string          `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string          `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	HTTPServer              HTTPServer      `yaml:"http_server"`
	RedisConnection         RedisConnection `yaml:"redis_connection"`
	RabbitMQ                RabbitMQ        `yaml:"rabbitmq"`
	JWT                     JWT             `yaml:"jwt"`
	Auth                    Auth            `yaml:"auth"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	Address            string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	Timeout            time.Duration `yaml:"timeout" env-default:"5s"`
	IdleTimeout        time.Duration `yaml:"idle_timeout" env-default:"60s"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins" env:"HTTP_CORS_ALLOWED_ORIGINS" env-default:"http://localhost:3000"`
}

// RedisConnection структура для настройки подключения к redis.
// Пустой Address отключает кэш списков записей.
type RedisConnection struct {
	Address      string        `yaml:"address" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user" env:"REDIS_USER"`
	DB           int           `yaml:"db" env:"REDIS_DB"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	Timeout      time.Duration `yaml:"timeout" env-default:"3s"`
	ListCacheTTL time.Duration `yaml:"list_cache_ttl" env-default:"30s"`
}

// RabbitMQ структура для настройки публикации событий.
// Пустой URL отключает публикацию.
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	Exchange   string        `yaml:"exchange" env-default:"appointments"`
	Retries    int           `yaml:"retries" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// JWT структура для работы с jwt-токеном
type JWT struct {
	Secret    string        `yaml:"secret" env:"JWT_SECRET"`
	Algorithm string        `yaml:"algorithm" env:"JWT_ALGORITHM" env-default:"HS256"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"JWT_TOKEN_TTL" env-default:"30m"`
}

// Auth настройки регистрации и входа
type Auth struct {
	BcryptCost       int     `yaml:"bcrypt_cost" env-default:"10"`
	AllowAdminSignup bool    `yaml:"allow_admin_signup" env:"AUTH_ALLOW_ADMIN_SIGNUP"`
	SeedFile         string  `yaml:"seed_file" env:"AUTH_SEED_FILE"`
	RateLimitRPS     float64 `yaml:"rate_limit_rps" env-default:"1"`
	RateLimitBurst   int     `yaml:"rate_limit_burst" env-default:"5"`
}

// Load читает конфиг по пути path, подставляя переменные окружения и значения по умолчанию.
func Load(path string) (*Config, error) {
	const op = "config.Load"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: file %s does not exist", op, path)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad функция для загрузки конфига по пути из CONFIG_PATH, при ошибке завершает процесс
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Validate проверяет настройки, без которых сервис не может выдавать токены.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt secret is empty")
	}
	if c.JWT.TokenTTL <= 0 {
		return errors.New("jwt token ttl must be positive")
	}
	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"GRPCAuthAddress: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"RedisConnection:\n"+
			"  Address: %s\n"+
			"  DB: %d\n"+
			"  ListCacheTTL: %s\n"+
			"RabbitMQ:\n"+
			"  Exchange: %s\n"+
			"JWT:\n"+
			"  Algorithm: %s\n"+
			"  TokenTTL: %s\n"+
			"Auth:\n"+
			"  AllowAdminSignup: %t\n"+
			"  SeedFile: %s\n",
		c.Env,
		c.GRPCAuthAddress,
		c.HTTPServer.Address,
		c.HTTPServer.Timeout,
		c.HTTPServer.IdleTimeout,
		c.RedisConnection.Address,
		c.RedisConnection.DB,
		c.RedisConnection.ListCacheTTL,
		c.RabbitMQ.Exchange,
		c.JWT.Algorithm,
		c.JWT.TokenTTL,
		c.Auth.AllowAdminSignup,
		c.Auth.SeedFile,
	)
}
