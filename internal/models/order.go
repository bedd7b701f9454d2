package models

import "time"

// Order представляет заявку пользователя на покупку или продажу акций
//
// Заявка неизменяема после создания: stock_id, user_id, side, quantity и
// offered_price фиксируются при размещении. Меняется только статус
// (и canceled_by при отмене). Записи никогда не удаляются - они служат
// audit trail для истории торгов.
type Order struct {
	ID           int       `json:"id" db:"id"`
	StockID      string    `json:"stock_id" db:"stock_id"`
	UserID       string    `json:"user_id" db:"user_id"`
	Side         string    `json:"side" db:"side"`                   // BUY, SELL
	Quantity     int       `json:"quantity" db:"quantity"`           // количество акций (> 0)
	OfferedPrice int       `json:"offered_price" db:"offered_price"` // цена в минорных единицах валюты
	Status       string    `json:"status" db:"status"`               // PENDING, COMPLETED, CANCELED
	PaymentID    *string   `json:"payment_id,omitempty" db:"payment_id"`
	CanceledBy   *string   `json:"canceled_by,omitempty" db:"canceled_by"` // USER, SYSTEM
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Стороны заявки
const (
	OrderSideBuy  = "BUY"
	OrderSideSell = "SELL"
)

// Статусы заявки
//
// Переходы монотонны:
// PENDING -> COMPLETED (только через settlement)
// PENDING -> CANCELED  (только через явную отмену)
// COMPLETED и CANCELED - терминальные состояния
const (
	OrderStatusPending   = "PENDING"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCanceled  = "CANCELED"
)

// Инициаторы отмены заявки
const (
	CanceledByUser   = "USER"
	CanceledBySystem = "SYSTEM"
)

// IsValidSide проверяет корректность стороны заявки
func IsValidSide(side string) bool {
	return side == OrderSideBuy || side == OrderSideSell
}

// IsValidCanceledBy проверяет корректность инициатора отмены
func IsValidCanceledBy(canceledBy string) bool {
	return canceledBy == CanceledByUser || canceledBy == CanceledBySystem
}

// CounterSide возвращает противоположную сторону заявки
func CounterSide(side string) string {
	if side == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}
