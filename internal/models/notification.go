package models

import "time"

// Notification - уведомление о событии торгового движка
//
// Уведомления отправляются fire-and-forget: сбой доставки логируется,
// но никогда не откатывает сделку и не блокирует settlement.
type Notification struct {
	ID        int       `json:"id" db:"id"`
	Type      string    `json:"type" db:"type"`
	OrderID   *int      `json:"order_id,omitempty" db:"order_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Типы уведомлений
const (
	NotificationTrade        = "TRADE"         // завершение сделки
	NotificationCancellation = "CANCELLATION"  // отмена заявки
	NotificationPoolPurchase = "POOL_PURCHASE" // покупка из пула
	NotificationPoolSale     = "POOL_SALE"     // продажа в пул
)
