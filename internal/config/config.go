// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING" env-required:"true"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQ                `yaml:"rabbitmq"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	SMTP                    `yaml:"smtp"`
	Dispatcher              `yaml:"dispatcher"`
	Analytics               `yaml:"analytics"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP    string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP    time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env-default:"60s"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-separator:","`
	RateLimitRPS   float64       `yaml:"rate_limit_rps" env-default:"10"`
	RateLimitBurst int           `yaml:"rate_limit_burst" env-default:"20"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user" env:"REDIS_USER"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// RabbitMQ структура для подключения к брокеру сообщений
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY" env-required:"true"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// SMTP настройки почтового сервера. Пустой хост или логин означает,
// что отправка писем недоступна.
type SMTP struct {
	SMTPHost    string        `yaml:"host" env:"SMTP_HOST"`
	SMTPPort    string        `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	SMTPUser    string        `yaml:"user" env:"SMTP_USER"`
	SMTPPass    string        `yaml:"password" env:"SMTP_PASSWORD"`
	SMTPFrom    string        `yaml:"from" env:"SMTP_FROM"`
	SMTPTimeout time.Duration `yaml:"timeout" env-default:"15s"`
}

// Dispatcher настройки рассылки напоминаний.
type Dispatcher struct {
	DispatchSchedule string        `yaml:"schedule" env:"DISPATCH_SCHEDULE" env-default:"0 9 * * *"`
	DispatchMode     string        `yaml:"mode" env:"DISPATCH_MODE" env-default:"overdue"`
	BatchSize        int           `yaml:"batch_size" env-default:"500"`
	ClaimLease       time.Duration `yaml:"claim_lease" env-default:"30m"`
	LockTTL          time.Duration `yaml:"lock_ttl" env-default:"30m"`
	ReminderLeadTime time.Duration `yaml:"reminder_lead_time" env-default:"48h"`
	MetricsAddress   string        `yaml:"metrics_address" env:"DISPATCH_METRICS_ADDRESS" env-default:":9091"`
	Timezone         string        `yaml:"timezone" env:"DISPATCH_TIMEZONE" env-default:"UTC"`
}

// Analytics настройки расчёта аналитики расходов.
type Analytics struct {
	CacheTTL time.Duration `yaml:"cache_ttl" env-default:"10m"`
}

// MustLoad функция для загрузки конфига. Путь берётся из CONFIG_PATH,
// переменные окружения (в том числе из .env) перекрывают значения файла.
func MustLoad() *Config {
	cfg, err := Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load читает конфиг по указанному пути.
func Load(configPath string) (*Config, error) {
	// .env опционален, его отсутствие не ошибка
	_ = godotenv.Load()

	if configPath == "" {
		return nil, fmt.Errorf("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("file: %s - does not exist", configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, err
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid dispatcher timezone %q: %w", cfg.Timezone, err)
	}
	return &cfg, nil
}

// Location возвращает часовой пояс, в котором считаются сутки для рассылки.
func (d Dispatcher) Location() *time.Location {
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// MailEnabled сообщает, заданы ли параметры SMTP.
func (s SMTP) MailEnabled() bool {
	return s.SMTPHost != "" && s.SMTPUser != ""
}

// From возвращает адрес отправителя писем.
func (s SMTP) From() string {
	if s.SMTPFrom != "" {
		return s.SMTPFrom
	}
	return s.SMTPUser
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"SMTP:\n"+
			"  Host: %s:%s\n"+
			"  Enabled: %t\n"+
			"Dispatcher:\n"+
			"  Schedule: %s\n"+
			"  Mode: %s\n",
		c.Env,
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.SMTPHost,
		c.SMTPPort,
		c.MailEnabled(),
		c.DispatchSchedule,
		c.DispatchMode,
	)
}
