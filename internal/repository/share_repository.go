package repository

import (
	"context"
	"database/sql"
	"errors"

	"stocktrade/internal/models"
)

// Ошибки репозитория холдингов
var (
	ErrShareNotFound = errors.New("purchased share not found")
)

const shareColumns = "id, user_id, stock_id, quantity, start_number, end_number, purchase_type, created_at"

// ShareRepository - работа с таблицей purchased_shares (холдинги)
//
// Строки холдингов - самый нагруженный ресурс движка: много заявок
// по одной акции трогают один и тот же небольшой набор строк.
// Блокировки берутся только на строки одной сделки (FOR UPDATE),
// никогда - на весь стакан.
type ShareRepository struct {
	db *sql.DB
}

// NewShareRepository создает новый экземпляр репозитория
func NewShareRepository(db *sql.DB) *ShareRepository {
	return &ShareRepository{db: db}
}

// scanShare читает одну строку холдинга
func scanShare(row interface{ Scan(dest ...interface{}) error }, share *models.PurchasedShare) error {
	return row.Scan(
		&share.ID,
		&share.UserID,
		&share.StockID,
		&share.Quantity,
		&share.StartNumber,
		&share.EndNumber,
		&share.PurchaseType,
		&share.CreatedAt,
	)
}

// GetForUpdate возвращает холдинг пользователя по акции с блокировкой строки
//
// FOR UPDATE сужает окно гонки: конкурирующий settlement по тому же
// холдингу будет ждать, а не читать устаревшее количество.
func (r *ShareRepository) GetForUpdate(ctx context.Context, q Querier, userID, stockID string) (*models.PurchasedShare, error) {
	query := `
		SELECT ` + shareColumns + `
		FROM purchased_shares
		WHERE user_id = $1 AND stock_id = $2
		FOR UPDATE`

	share := &models.PurchasedShare{}
	err := scanShare(q.QueryRowContext(ctx, query, userID, stockID), share)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShareNotFound
		}
		return nil, err
	}

	return share, nil
}

// Create создает новый холдинг
func (r *ShareRepository) Create(ctx context.Context, q Querier, share *models.PurchasedShare) error {
	query := `
		INSERT INTO purchased_shares (user_id, stock_id, quantity, start_number, end_number, purchase_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := q.QueryRowContext(
		ctx,
		query,
		share.UserID,
		share.StockID,
		share.Quantity,
		share.StartNumber,
		share.EndNumber,
		share.PurchaseType,
	).Scan(&share.ID, &share.CreatedAt)

	if err != nil {
		return err
	}

	return nil
}

// AddQuantity изменяет количество акций в холдинге на delta
// (delta может быть отрицательной при списании)
func (r *ShareRepository) AddQuantity(ctx context.Context, q Querier, id, delta int) error {
	query := `
		UPDATE purchased_shares
		SET quantity = quantity + $1
		WHERE id = $2`

	result, err := q.ExecContext(ctx, query, delta, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrShareNotFound
	}

	return nil
}

// ExtendIssuance зачисляет в холдинг новый выпуск из пула
//
// Кроме количества двигает end_number на конец выданного диапазона -
// иначе следующий MaxEndNumber не увидит выпуск и выдаст те же
// номера другому покупателю. start_number заполняется только если
// холдинг был создан peer-to-peer сделкой и диапазона ещё не имел.
func (r *ShareRepository) ExtendIssuance(ctx context.Context, q Querier, id, delta, startNumber, endNumber int) error {
	query := `
		UPDATE purchased_shares
		SET quantity = quantity + $1,
		    start_number = COALESCE(start_number, $2),
		    end_number = $3
		WHERE id = $4`

	result, err := q.ExecContext(ctx, query, delta, startNumber, endNumber, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrShareNotFound
	}

	return nil
}

// Delete удаляет холдинг
//
// Вызывается, когда количество достигло ровно нуля - нулевые
// записи не хранятся, чтобы ограничить размер таблицы.
func (r *ShareRepository) Delete(ctx context.Context, q Querier, id int) error {
	query := `DELETE FROM purchased_shares WHERE id = $1`

	result, err := q.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrShareNotFound
	}

	return nil
}

// MaxEndNumber возвращает максимальный конечный номер среди всех
// выпущенных из пула акций (0, если выпусков ещё не было)
//
// Используется для нумерации акций первичного размещения:
// новый диапазон начинается с max+1.
func (r *ShareRepository) MaxEndNumber(ctx context.Context, q Querier) (int, error) {
	query := `SELECT COALESCE(MAX(end_number), 0) FROM purchased_shares`

	var maxNumber int
	err := q.QueryRowContext(ctx, query).Scan(&maxNumber)
	if err != nil {
		return 0, err
	}

	return maxNumber, nil
}
