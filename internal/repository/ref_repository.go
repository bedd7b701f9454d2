package repository

import (
	"context"
	"database/sql"
)

// RefRepository - проверки существования справочных сущностей
//
// Акции и пользователей создаёт основная платформа; движку нужны
// только проверки ссылочной целостности при размещении заявок.
type RefRepository struct {
	db *sql.DB
}

// NewRefRepository создает новый экземпляр репозитория
func NewRefRepository(db *sql.DB) *RefRepository {
	return &RefRepository{db: db}
}

// StockExists проверяет существование акции
func (r *RefRepository) StockExists(ctx context.Context, q Querier, id string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM stocks WHERE id = $1)`

	var exists bool
	err := q.QueryRowContext(ctx, query, id).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

// UserExists проверяет существование пользователя
func (r *RefRepository) UserExists(ctx context.Context, q Querier, id string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`

	var exists bool
	err := q.QueryRowContext(ctx, query, id).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}
