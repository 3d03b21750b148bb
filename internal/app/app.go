package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/iwanyu/marketplace/internal/config"
	"github.com/iwanyu/marketplace/internal/events"
	"github.com/iwanyu/marketplace/internal/redisx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// producerBuffer очередь событий перед отправкой в Kafka
const producerBuffer = 256

type App struct {
	Config *config.Config
	Logger *slog.Logger
	DB     *sql.DB
	Redis  *redis.Client
	Events events.Publisher

	producer *events.Producer
	started  bool
}

// PostgresDSN строка подключения к БД
func PostgresDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
	)
}

// NewApp открывает соединения с Postgres и Redis и поднимает публикацию событий.
// Пустой список брокеров Kafka - события не отправляются
func NewApp(ctx context.Context, log *slog.Logger, cfg *config.Config) (*App, error) {
	db, err := sql.Open("postgres", PostgresDSN(cfg.Database))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	rdb, err := redisx.New(ctx, cfg.Redis)
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to connect to redis")
	}

	app := &App{
		Config: cfg,
		Logger: log,
		DB:     db,
		Redis:  rdb,
		Events: events.Noop{},
	}

	if len(cfg.Kafka.Brokers) > 0 {
		app.producer = events.NewProducer(log, cfg.Kafka.Brokers, cfg.Kafka.Topic, producerBuffer)
		app.Events = app.producer
		log.Info("kafka events enabled", slog.Any("brokers", cfg.Kafka.Brokers), slog.String("topic", cfg.Kafka.Topic))
	} else {
		log.Warn("kafka brokers are not configured, events are disabled")
	}

	return app, nil
}

// Start запускает фоновые компоненты. Они работают до Close, а не до сигнала остановки
func (a *App) Start() {
	if a.producer != nil {
		a.producer.Start()
		a.started = true
	}
}

// Close досылает события и закрывает соединения; вызывается после остановки HTTP-сервера
func (a *App) Close() error {
	if a.started {
		a.producer.Close()
	}
	redisErr := a.Redis.Close()
	if err := a.DB.Close(); err != nil {
		return errors.Wrap(err, "failed to close database")
	}
	if redisErr != nil {
		return errors.Wrap(redisErr, "failed to close redis")
	}
	return nil
}
