package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"stocktrade/internal/api"
	"stocktrade/internal/config"
	"stocktrade/internal/repository"
	"stocktrade/internal/service"
	"stocktrade/internal/websocket"
	"stocktrade/pkg/utils"

	_ "github.com/lib/pq"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	logger, err := utils.InitLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	// Инициализация базы данных
	db, err := initDatabase(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database",
			zap.String("dsn", cfg.Database.DSNWithoutPassword()),
			zap.Error(err),
		)
	}
	defer db.Close()

	logger.Info("connected to database", zap.String("dsn", cfg.Database.DSNWithoutPassword()))

	// Применение схемы
	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 30*time.Second)
	if err := repository.ApplySchema(schemaCtx, db); err != nil {
		cancelSchema()
		logger.Fatal("failed to apply database schema", zap.Error(err))
	}
	cancelSchema()

	// Инициализация репозиториев
	txRunner := repository.NewTxRunner(db)
	orderRepo := repository.NewOrderRepository(db)
	shareRepo := repository.NewShareRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	refRepo := repository.NewRefRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Инициализация сервисов
	orderService := service.NewOrderService(
		txRunner,
		orderRepo,
		shareRepo,
		historyRepo,
		refRepo,
		cfg.Engine,
		logger.Named("orders"),
	)

	notificationService := service.NewNotificationService(
		notificationRepo,
		logger.Named("notifications"),
	)

	// WebSocket hub для real-time уведомлений
	hub := websocket.NewHub(logger.Named("websocket"))
	go hub.Run()

	notificationService.SetWebSocketHub(hub)
	orderService.SetNotifier(notificationService)

	// Зеркалирование pool-покупок на основную платформу (опционально)
	if mirror := service.NewMirrorClient(cfg.Mirror, logger.Named("mirror")); mirror != nil {
		orderService.SetMirror(mirror)
		logger.Info("pool purchase mirroring enabled", zap.String("url", cfg.Mirror.BaseURL))
	}

	// Настройка зависимостей для API
	deps := &api.Dependencies{
		OrderService:        orderService,
		NotificationService: notificationService,
		WSHandler: func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(hub, w, r)
		},
		DeviceSecretHash: cfg.Security.DeviceSecretHash,
		Logger:           logger.Named("http"),
	}

	// Настройка HTTP роутера
	router := api.SetupRoutes(deps)

	// HTTP сервер
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запуск сервера в отдельной горутине
	go func() {
		logger.Info("starting server", zap.String("addr", server.Addr))
		if cfg.Server.UseHTTPS {
			if err := server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile); err != nil && err != http.ErrServerClosed {
				logger.Fatal("server failed", zap.Error(err))
			}
		} else {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal("server failed", zap.Error(err))
			}
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Проверка подключения
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
