package models

import "time"

// PurchasedShare представляет текущий пакет акций пользователя по конкретной акции
//
// Инвариант: quantity >= 0 в любой момент времени.
// Запись с quantity == 0 удаляется из БД (а не хранится нулевой),
// чтобы таблица холдингов не разрасталась.
//
// Для акций, выпущенных из пула (первичное размещение), заполняется
// диапазон нумерации StartNumber..EndNumber. Акции, полученные через
// peer-to-peer сделку, не перенумеровываются.
type PurchasedShare struct {
	ID           int       `json:"id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	StockID      string    `json:"stock_id" db:"stock_id"`
	Quantity     int       `json:"quantity" db:"quantity"`
	StartNumber  *int      `json:"start_number,omitempty" db:"start_number"`
	EndNumber    *int      `json:"end_number,omitempty" db:"end_number"`
	PurchaseType string    `json:"purchase_type" db:"purchase_type"` // POOL, TRADE
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Происхождение пакета акций
const (
	PurchaseTypePool  = "POOL"  // первичное размещение из пула эмитента
	PurchaseTypeTrade = "TRADE" // получено через peer-to-peer сделку
)
