package models

import "time"

// TransactionRecord - неизменяемая запись в истории транзакций
//
// Журнал append-only: записи никогда не изменяются и не удаляются.
// На каждое создание заявки приходится ровно одна запись PLACEMENT,
// на каждую завершённую сделку - ровно одна пара SALE/PURCHASE
// (по записи на каждую сторону), на отмену - одна запись REJECTION.
type TransactionRecord struct {
	ID        int       `json:"id" db:"id"`
	StockID   string    `json:"stock_id" db:"stock_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	OrderID   int       `json:"order_id" db:"order_id"`
	Type      string    `json:"type" db:"type"` // PLACEMENT, SALE, PURCHASE, REJECTION
	Quantity  int       `json:"quantity" db:"quantity"`
	Price     int       `json:"price" db:"price"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Типы записей истории транзакций
const (
	TransactionPlacement = "PLACEMENT"
	TransactionSale      = "SALE"
	TransactionPurchase  = "PURCHASE"
	TransactionRejection = "REJECTION"
)
