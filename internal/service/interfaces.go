package service

import (
	"context"
	"database/sql"

	"stocktrade/internal/models"
	"stocktrade/internal/repository"
)

// TxRunnerInterface определяет интерфейс запуска scoped-транзакций
type TxRunnerInterface interface {
	WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// OrderRepositoryInterface определяет интерфейс репозитория заявок
type OrderRepositoryInterface interface {
	Create(ctx context.Context, q repository.Querier, order *models.Order) error
	GetByID(ctx context.Context, id int) (*models.Order, error)
	GetByIDTx(ctx context.Context, q repository.Querier, id int) (*models.Order, error)
	ListOpenCounterOrders(ctx context.Context, q repository.Querier, stockID, side string, quantity int) ([]*models.Order, error)
	MarkCompleted(ctx context.Context, q repository.Querier, id int) error
	MarkCanceled(ctx context.Context, q repository.Querier, id int, canceledBy string) (*models.Order, error)
	ListPaginated(ctx context.Context, page, limit int, order string) ([]*models.Order, error)
	Count(ctx context.Context) (int, error)
}

// ShareRepositoryInterface определяет интерфейс репозитория холдингов
type ShareRepositoryInterface interface {
	GetForUpdate(ctx context.Context, q repository.Querier, userID, stockID string) (*models.PurchasedShare, error)
	Create(ctx context.Context, q repository.Querier, share *models.PurchasedShare) error
	AddQuantity(ctx context.Context, q repository.Querier, id, delta int) error
	ExtendIssuance(ctx context.Context, q repository.Querier, id, delta, startNumber, endNumber int) error
	Delete(ctx context.Context, q repository.Querier, id int) error
	MaxEndNumber(ctx context.Context, q repository.Querier) (int, error)
}

// HistoryRepositoryInterface определяет интерфейс репозитория истории транзакций
type HistoryRepositoryInterface interface {
	Append(ctx context.Context, q repository.Querier, rec *models.TransactionRecord) error
	ListByOrder(ctx context.Context, orderID int) ([]*models.TransactionRecord, error)
}

// RefRepositoryInterface определяет интерфейс проверок справочных сущностей
type RefRepositoryInterface interface {
	StockExists(ctx context.Context, q repository.Querier, id string) (bool, error)
	UserExists(ctx context.Context, q repository.Querier, id string) (bool, error)
}

// NotificationRepositoryInterface определяет интерфейс репозитория уведомлений
type NotificationRepositoryInterface interface {
	Create(ctx context.Context, notif *models.Notification) error
	GetRecent(ctx context.Context, limit int) ([]*models.Notification, error)
}

// Проверяем, что реальные репозитории реализуют интерфейсы
var _ TxRunnerInterface = (*repository.TxRunner)(nil)
var _ OrderRepositoryInterface = (*repository.OrderRepository)(nil)
var _ ShareRepositoryInterface = (*repository.ShareRepository)(nil)
var _ HistoryRepositoryInterface = (*repository.HistoryRepository)(nil)
var _ RefRepositoryInterface = (*repository.RefRepository)(nil)
var _ NotificationRepositoryInterface = (*repository.NotificationRepository)(nil)

// ============ Интерфейсы сервисов для Dependency Injection ============

// OrderServiceInterface определяет интерфейс сервиса заявок
type OrderServiceInterface interface {
	PlaceOrder(ctx context.Context, params PlaceOrderParams) (*models.Order, error)
	CancelOrder(ctx context.Context, orderID int, canceledBy string) (*models.Order, error)
	PoolPurchase(ctx context.Context, params PoolPurchaseParams) (*PoolPurchaseResult, error)
	SellToPool(ctx context.Context, orderID int, params SellToPoolParams) (*PoolSaleResult, error)
	ListOrders(ctx context.Context, page, limit int, order string) (*OrderPage, error)
}

// NotificationServiceInterface определяет интерфейс сервиса уведомлений
type NotificationServiceInterface interface {
	GetNotifications(ctx context.Context, limit int) ([]*models.Notification, error)
}

// Проверяем, что реальные сервисы реализуют интерфейсы
var _ OrderServiceInterface = (*OrderService)(nil)
var _ NotificationServiceInterface = (*NotificationService)(nil)
