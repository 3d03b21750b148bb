package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env        string           `yaml:"env" env:"APP_ENV" env-default:"development"` // environment
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	Database   DatabaseConfig   `yaml:"database"`
	JWT        JWTConfig        `yaml:"jwt"`
	Migrations MigrationsConfig `yaml:"migrations"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Uploads    UploadsConfig    `yaml:"uploads"`
	Jobs       JobsConfig       `yaml:"jobs"`
	Mail       MailConfig       `yaml:"mail"`
	Orders     OrdersConfig     `yaml:"orders"`
}

// HTTPServerConfig структура http сервера
type HTTPServerConfig struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// DatabaseConfig структура по работе с БД
type DatabaseConfig struct {
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"DB_USER" env-required:"true"`
	Password string `yaml:"-" env:"DB_PASSWORD" env-required:"true"`
	Name     string `yaml:"name" env:"DB_NAME" env-required:"true"`
}

// JWTConfig настройка jwt
type JWTConfig struct {
	Secret   string `yaml:"-" env:"JWT_SECRET" env-required:"true"`
	TokenTTL int    `yaml:"token_ttl" env-default:"60"`
}

type MigrationsConfig struct {
	Path string `yaml:"path" env-default:"./migrations"`
}

// RedisConfig используется для realtime-канала сообщений, deny-list токенов и кэша статистики
type RedisConfig struct {
	Address  string `yaml:"address" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env-default:"0"`
}

// KafkaConfig пустой список брокеров отключает публикацию событий
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `yaml:"topic" env-default:"iwanyu.orders"`
}

// UploadsConfig файловое хранилище (бакеты = каталоги)
type UploadsConfig struct {
	Dir      string `yaml:"dir" env:"UPLOADS_DIR" env-default:"./uploads"`
	MaxBytes int64  `yaml:"max_bytes" env-default:"5242880"`
}

// OrdersConfig фиксированная стоимость доставки в RWF
type OrdersConfig struct {
	ShippingFee int64 `yaml:"shipping_fee" env-default:"1500"`
}

type JobsConfig struct {
	StatsRefresh string `yaml:"stats_refresh" env-default:"@every 1m"`
}

// MailConfig SMTP для писем сброса пароля. Пустой host - письма только в лог
type MailConfig struct {
	Host      string `yaml:"host" env:"SMTP_HOST"`
	Port      int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username  string `yaml:"username" env:"SMTP_USER"`
	Password  string `yaml:"-" env:"SMTP_PASSWORD"`
	From      string `yaml:"from" env-default:"noreply@iwanyu.rw"`
	ResetLink string `yaml:"reset_link" env-default:"http://localhost:8080/reset-password"`
}

// MustLoad - если не загружаем - паникуем
func MustLoad() *Config {
	// .env не обязателен, удобно для локального запуска
	_ = godotenv.Load()

	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	// флаг мог быть уже объявлен и разобран вызывающей командой (cmd/migrator)
	if f := flag.Lookup("config"); f != nil {
		path = f.Value.String()
	} else {
		flag.StringVar(&path, "config", "", "path to config file")
		flag.Parse()
	}

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can't read config file %s: %v", configPath, err)
	}

	return &cfg
}
