package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"stocktrade/internal/api/handlers"
	"stocktrade/internal/api/middleware"
	"stocktrade/internal/service"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	OrderService        service.OrderServiceInterface
	NotificationService service.NotificationServiceInterface

	// WSHandler обслуживает websocket подключения (/ws/stream)
	WSHandler http.HandlerFunc

	// DeviceSecretHash - bcrypt-хеш секрета для Auth middleware;
	// пустая строка выключает аутентификацию
	DeviceSecretHash string

	Logger *zap.Logger
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── /orders/
//	│   ├── POST /                        - размещение заявки (с матчингом)
//	│   ├── GET /                         - список заявок с пагинацией
//	│   ├── POST /pool-purchase           - покупка акций из пула
//	│   ├── POST /pool-purchase/sell/{id} - продажа акций в пул
//	│   └── POST /cancel/{id}             - отмена PENDING заявки
//	└── /notifications/
//	    └── GET / - журнал уведомлений
//
// /ws/
//
//	└── /stream - WebSocket для real-time уведомлений
//
// /health  - liveness проверка (без auth)
// /metrics - Prometheus метрики (без auth)
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
// 4. Auth (только для /api/v1)
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Глобальные middleware (применяются ко всем маршрутам)
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logging(logger))
	router.Use(middleware.CORS)

	// API v1 routes под аутентификацией device secret'ом
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Auth(deps.DeviceSecretHash))

	if deps.OrderService != nil {
		orderHandler := handlers.NewOrderHandler(deps.OrderService)

		api.HandleFunc("/orders", orderHandler.PlaceOrder).Methods("POST")
		api.HandleFunc("/orders", orderHandler.ListOrders).Methods("GET")
		api.HandleFunc("/orders/pool-purchase", orderHandler.PoolPurchase).Methods("POST")
		api.HandleFunc("/orders/pool-purchase/sell/{id}", orderHandler.SellToPool).Methods("POST")
		api.HandleFunc("/orders/cancel/{id}", orderHandler.CancelOrder).Methods("POST")
	}

	if deps.NotificationService != nil {
		notificationHandler := handlers.NewNotificationHandler(deps.NotificationService)

		api.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
	}

	// WebSocket route
	if deps.WSHandler != nil {
		router.HandleFunc("/ws/stream", deps.WSHandler)
	}

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Prometheus метрики
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return router
}
