package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/iwanyu/marketplace/internal/app"
	"github.com/iwanyu/marketplace/internal/app/handlers"
	"github.com/iwanyu/marketplace/internal/config"
	"github.com/iwanyu/marketplace/internal/filestore"
	"github.com/iwanyu/marketplace/internal/jobs"
	"github.com/iwanyu/marketplace/internal/lib/logger"
	"github.com/iwanyu/marketplace/internal/mailer"
	"github.com/iwanyu/marketplace/internal/realtime"
	"github.com/iwanyu/marketplace/internal/redisx"
	"github.com/iwanyu/marketplace/internal/service"
	"github.com/iwanyu/marketplace/internal/storage"
	pkgerrors "github.com/pkg/errors"
)

// roleCacheTTL сколько держится разрешённая роль без событий аутентификации
const roleCacheTTL = time.Minute

func main() {
	// загрузка конфигурации
	cfg := config.MustLoad()

	// инициализация логгера, зависит от настройки окружения
	log := logger.SetupLogger(cfg.Env)
	log.Info("starting iwanyu marketplace", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// подключения к Postgres, Redis и Kafka
	application, err := app.NewApp(ctx, log, cfg)
	if err != nil {
		log.Error("failed to initialize app", logger.Err(err))
		panic(pkgerrors.Wrap(err, "failed to initialize app"))
	}
	application.Start()
	// Close срабатывает после srv.Shutdown
	defer func() {
		if err := application.Close(); err != nil {
			log.Error("failed to close app", logger.Err(err))
		}
	}()

	// репозитории
	profiles := storage.NewProfileRepository(application.DB)
	vendorRepo := storage.NewVendorRepository(application.DB)
	productRepo := storage.NewProductRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)
	payoutRepo := storage.NewPayoutRepository(application.DB)
	messageRepo := storage.NewMessageRepository(application.DB)

	tokens := redisx.NewTokenStore(application.Redis)
	statsCache := redisx.NewJSONCache(application.Redis)
	broker := realtime.NewBroker(log, application.Redis)

	files, err := filestore.New(log, cfg.Uploads.Dir, cfg.Uploads.MaxBytes)
	if err != nil {
		log.Error("failed to initialize file storage", logger.Err(err))
		panic(pkgerrors.Wrap(err, "failed to initialize file storage"))
	}

	// события аутентификации сбрасывают кэш ролей
	bus := service.NewEventBus()
	resolver := service.NewRoleResolver(log, profiles, vendorRepo, roleCacheTTL)
	if err := resolver.SubscribeTo(bus); err != nil {
		panic(pkgerrors.Wrap(err, "failed to subscribe role cache"))
	}

	authService := service.NewAuthService(
		log,
		profiles,
		tokens,
		resolver,
		mailer.New(log, cfg.Mail),
		bus,
		cfg.JWT.Secret,
		time.Duration(cfg.JWT.TokenTTL)*time.Minute,
	)
	vendorService := service.NewVendorService(log, vendorRepo, bus, application.Events)
	productService := service.NewProductService(log, productRepo)
	orderService := service.NewOrderService(log, application.DB, orderRepo, productRepo, vendorRepo, application.Events, cfg.Orders.ShippingFee)
	payoutService := service.NewPayoutService(log, application.DB, vendorRepo, orderRepo, payoutRepo, application.Events)
	messageService := service.NewMessageService(log, messageRepo, profiles, broker)
	profileService := service.NewProfileService(log, profiles, bus)
	dashboardService := service.NewDashboardService(
		log, vendorRepo, productRepo, orderRepo, payoutRepo, messageRepo, payoutService, statsCache,
	)

	// фоновое обновление админской статистики
	scheduler := jobs.New(log)
	if err := scheduler.AddStatsRefresh(cfg.Jobs.StatsRefresh, jobs.StatsRefresherFunc(func(ctx context.Context) error {
		_, err := dashboardService.RefreshAdminStats(ctx)
		return err
	})); err != nil {
		panic(pkgerrors.Wrap(err, "failed to schedule stats refresh"))
	}
	scheduler.Start()

	router := app.NewRouter(log, app.Deps{
		JWTSecret:   cfg.JWT.Secret,
		Revocations: tokens,
		Resolver:    resolver,
		Auth:        authService,
		Vendors:     vendorService,
		Products:    productService,
		Orders:      orderService,
		Payouts:     payoutService,
		Messages:    messageService,
		Dashboard:   dashboardService,
		Profiles:    profileService,
		Files:       files,
		Health: map[string]handlers.Pinger{
			"postgres": application.DB,
			"redis": handlers.PingerFunc(func(ctx context.Context) error {
				return application.Redis.Ping(ctx).Err()
			}),
		},
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", logger.Err(err))
			stop()
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	log.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	scheduler.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", logger.Err(err))
	}
	log.Info("server gracefully stopped")
}
