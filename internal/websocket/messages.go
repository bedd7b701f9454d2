package websocket

import (
	"time"

	"stocktrade/internal/models"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeNotification - новое уведомление движка
	// Отправляется при событиях: сделка, отмена заявки, операции с пулом
	MessageTypeNotification MessageType = "notification"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// NotificationMessage - сообщение о новом уведомлении
type NotificationMessage struct {
	BaseMessage
	Data *NotificationData `json:"data"`
}

// NotificationData - данные уведомления
type NotificationData struct {
	// ID уведомления в БД (0, если запись не удалась)
	ID int `json:"id"`

	// Тип уведомления (TRADE, CANCELLATION, POOL_PURCHASE, POOL_SALE)
	Type string `json:"type"`

	// ID связанной заявки
	OrderID *int `json:"order_id,omitempty"`

	// Пользователь, которого касается событие
	UserID string `json:"user_id"`

	// Текст сообщения
	Message string `json:"message"`
}

// NewNotificationMessage создает сообщение уведомления
func NewNotificationMessage(notif *models.Notification) *NotificationMessage {
	return &NotificationMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeNotification,
			Timestamp: time.Now(),
		},
		Data: &NotificationData{
			ID:      notif.ID,
			Type:    notif.Type,
			OrderID: notif.OrderID,
			UserID:  notif.UserID,
			Message: notif.Message,
		},
	}
}
