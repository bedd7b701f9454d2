package repository

import (
	"context"
	"database/sql"

	"stocktrade/internal/models"
)

// HistoryRepository - работа с таблицей transaction_history
//
// Журнал append-only: репозиторий умеет только добавлять записи
// и читать их. Изменение и удаление истории не предусмотрено.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository создает новый экземпляр репозитория
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append добавляет запись в историю транзакций
func (r *HistoryRepository) Append(ctx context.Context, q Querier, rec *models.TransactionRecord) error {
	query := `
		INSERT INTO transaction_history (stock_id, user_id, order_id, type, quantity, price)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := q.QueryRowContext(
		ctx,
		query,
		rec.StockID,
		rec.UserID,
		rec.OrderID,
		rec.Type,
		rec.Quantity,
		rec.Price,
	).Scan(&rec.ID, &rec.CreatedAt)

	if err != nil {
		return err
	}

	return nil
}

// ListByOrder возвращает записи истории для конкретной заявки
func (r *HistoryRepository) ListByOrder(ctx context.Context, orderID int) ([]*models.TransactionRecord, error) {
	query := `
		SELECT id, stock_id, user_id, order_id, type, quantity, price, created_at
		FROM transaction_history
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.TransactionRecord
	for rows.Next() {
		rec := &models.TransactionRecord{}
		err := rows.Scan(
			&rec.ID,
			&rec.StockID,
			&rec.UserID,
			&rec.OrderID,
			&rec.Type,
			&rec.Quantity,
			&rec.Price,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
