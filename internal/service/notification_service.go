package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"stocktrade/internal/models"
)

// WebSocketBroadcaster - интерфейс для отправки WebSocket сообщений
//
// Позволяет избежать циклических зависимостей между пакетами
// и упрощает тестирование (можно подставить mock)
type WebSocketBroadcaster interface {
	BroadcastNotification(notif *models.Notification)
}

// NotificationService предоставляет бизнес-логику для управления уведомлениями.
//
// Отвечает за:
// - Создание уведомлений по событиям движка (сделка, отмена, пул)
// - Broadcast уведомлений через WebSocket
// - Получение журнала уведомлений
//
// Все Notify* методы - fire-and-forget: сбой записи или broadcast
// логируется и никогда не влияет на исход породившей его операции.
type NotificationService struct {
	notificationRepo NotificationRepositoryInterface
	wsHub            WebSocketBroadcaster
	logger           *zap.Logger
}

// NewNotificationService создает новый экземпляр NotificationService.
func NewNotificationService(notificationRepo NotificationRepositoryInterface, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		logger:           logger,
	}
}

// SetWebSocketHub устанавливает WebSocket hub для broadcast уведомлений.
//
// Вызывается после инициализации Hub в main.go:
//
//	notifService := service.NewNotificationService(notifRepo, logger)
//	notifService.SetWebSocketHub(wsHub)
func (s *NotificationService) SetWebSocketHub(hub WebSocketBroadcaster) {
	s.wsHub = hub
}

// NotifyTrade уведомляет обе стороны об исполнении сделки.
func (s *NotificationService) NotifyTrade(result *TradeResult) {
	sellerMsg := fmt.Sprintf("Продано %d акций %s по цене %d",
		result.Quantity, result.StockID, result.Price)
	buyerMsg := fmt.Sprintf("Куплено %d акций %s по цене %d",
		result.Quantity, result.StockID, result.Price)

	sellOrderID, buyOrderID := result.NewOrder.ID, result.MatchedOrder.ID
	if result.NewOrder.Side == models.OrderSideBuy {
		sellOrderID, buyOrderID = buyOrderID, sellOrderID
	}

	s.deliver(&models.Notification{
		Type:    models.NotificationTrade,
		OrderID: &sellOrderID,
		UserID:  result.SellerID,
		Message: sellerMsg,
	})
	s.deliver(&models.Notification{
		Type:    models.NotificationTrade,
		OrderID: &buyOrderID,
		UserID:  result.BuyerID,
		Message: buyerMsg,
	})
}

// NotifyCancellation уведомляет владельца об отмене заявки.
func (s *NotificationService) NotifyCancellation(order *models.Order) {
	orderID := order.ID
	s.deliver(&models.Notification{
		Type:    models.NotificationCancellation,
		OrderID: &orderID,
		UserID:  order.UserID,
		Message: fmt.Sprintf("Заявка %d на %d акций %s отменена", order.ID, order.Quantity, order.StockID),
	})
}

// NotifyPoolPurchase уведомляет покупателя о покупке из пула.
func (s *NotificationService) NotifyPoolPurchase(result *PoolPurchaseResult) {
	orderID := result.Order.ID
	s.deliver(&models.Notification{
		Type:    models.NotificationPoolPurchase,
		OrderID: &orderID,
		UserID:  result.Order.UserID,
		Message: fmt.Sprintf("Куплено %d акций %s из пула (номера %d-%d)",
			result.Order.Quantity, result.Order.StockID, result.StartNumber, result.EndNumber),
	})
}

// NotifyPoolSale уведомляет продавца о выкупе акций пулом.
func (s *NotificationService) NotifyPoolSale(result *PoolSaleResult) {
	orderID := result.Order.ID
	s.deliver(&models.Notification{
		Type:    models.NotificationPoolSale,
		OrderID: &orderID,
		UserID:  result.Order.UserID,
		Message: fmt.Sprintf("Продано %d акций %s в пул по цене %d",
			result.Quantity, result.Order.StockID, result.Price),
	})
}

// GetNotifications возвращает последние уведомления (новые сверху).
func (s *NotificationService) GetNotifications(ctx context.Context, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	return s.notificationRepo.GetRecent(ctx, limit)
}

// deliver записывает уведомление и рассылает его подписчикам
//
// Запись выполняется вне settlement-транзакции: уведомление о
// закоммиченной сделке важнее строгой атомарности журнала.
func (s *NotificationService) deliver(notif *models.Notification) {
	if err := s.notificationRepo.Create(context.Background(), notif); err != nil {
		s.logger.Warn("failed to persist notification",
			zap.String("type", notif.Type),
			zap.String("user_id", notif.UserID),
			zap.Error(err),
		)
		// Broadcast всё равно отправляем - подписчикам важнее сам факт
	}

	if s.wsHub != nil {
		s.wsHub.BroadcastNotification(notif)
	}
}

// Проверяем, что NotificationService удовлетворяет контракту движка
var _ Notifier = (*NotificationService)(nil)
