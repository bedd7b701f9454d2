package repository

import (
	"context"
	"database/sql"

	"stocktrade/internal/models"
)

// NotificationRepository - работа с таблицей notifications
//
// Уведомления пишутся вне settlement-транзакции (fire-and-forget):
// сбой записи уведомления не должен откатывать сделку.
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository создает новый экземпляр репозитория
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create создает новое уведомление
func (r *NotificationRepository) Create(ctx context.Context, notif *models.Notification) error {
	query := `
		INSERT INTO notifications (type, order_id, user_id, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		notif.Type,
		notif.OrderID,
		notif.UserID,
		notif.Message,
	).Scan(&notif.ID, &notif.CreatedAt)

	if err != nil {
		return err
	}

	return nil
}

// GetRecent возвращает последние N уведомлений
func (r *NotificationRepository) GetRecent(ctx context.Context, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, type, order_id, user_id, message, created_at
		FROM notifications
		ORDER BY created_at DESC, id DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifs []*models.Notification
	for rows.Next() {
		notif := &models.Notification{}
		err := rows.Scan(
			&notif.ID,
			&notif.Type,
			&notif.OrderID,
			&notif.UserID,
			&notif.Message,
			&notif.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		notifs = append(notifs, notif)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return notifs, nil
}
