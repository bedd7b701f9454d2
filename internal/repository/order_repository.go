package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"stocktrade/internal/models"
)

// Ошибки репозитория заявок
var (
	ErrOrderNotFound = errors.New("order not found")

	// ErrStatusConflict - заявка уже не в статусе PENDING.
	// Возникает при CAS-обновлении статуса: конкурирующая транзакция
	// успела завершить или отменить заявку первой.
	ErrStatusConflict = errors.New("order status conflict")
)

const orderColumns = "id, stock_id, user_id, side, quantity, offered_price, status, payment_id, canceled_by, created_at, updated_at"

// OrderRepository - работа с таблицей orders
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository создает новый экземпляр репозитория
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// scanOrder читает одну строку заявки
func scanOrder(row interface{ Scan(dest ...interface{}) error }, order *models.Order) error {
	return row.Scan(
		&order.ID,
		&order.StockID,
		&order.UserID,
		&order.Side,
		&order.Quantity,
		&order.OfferedPrice,
		&order.Status,
		&order.PaymentID,
		&order.CanceledBy,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
}

// Create создает новую заявку со статусом PENDING
//
// id, created_at и updated_at назначает БД - время создания
// участвует в price/time priority и должно идти от одних часов.
func (r *OrderRepository) Create(ctx context.Context, q Querier, order *models.Order) error {
	query := `
		INSERT INTO orders (stock_id, user_id, side, quantity, offered_price, status, payment_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	order.Status = models.OrderStatusPending

	err := q.QueryRowContext(
		ctx,
		query,
		order.StockID,
		order.UserID,
		order.Side,
		order.Quantity,
		order.OfferedPrice,
		order.Status,
		order.PaymentID,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)

	if err != nil {
		return err
	}

	return nil
}

// GetByID возвращает заявку по ID
func (r *OrderRepository) GetByID(ctx context.Context, id int) (*models.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)

	order := &models.Order{}
	err := scanOrder(r.db.QueryRowContext(ctx, query, id), order)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	return order, nil
}

// GetByIDTx возвращает заявку по ID внутри транзакции
func (r *OrderRepository) GetByIDTx(ctx context.Context, q Querier, id int) (*models.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)

	order := &models.Order{}
	err := scanOrder(q.QueryRowContext(ctx, query, id), order)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	return order, nil
}

// ListOpenCounterOrders возвращает все PENDING заявки противоположной
// стороны по той же акции с точно таким же количеством
//
// Ценовой фильтр и выбор лучшего кандидата выполняет matcher -
// здесь только сырой набор кандидатов. Сортировка по created_at
// фиксирует порядок для детерминизма.
func (r *OrderRepository) ListOpenCounterOrders(ctx context.Context, q Querier, stockID, side string, quantity int) ([]*models.Order, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM orders
		WHERE stock_id = $1 AND side = $2 AND status = $3 AND quantity = $4
		ORDER BY created_at ASC, id ASC`, orderColumns)

	rows, err := q.QueryContext(ctx, query, stockID, side, models.OrderStatusPending, quantity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order := &models.Order{}
		if err := scanOrder(rows, order); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

// MarkCompleted переводит заявку PENDING -> COMPLETED
//
// CAS-обновление: условие status = PENDING в WHERE гарантирует, что
// две транзакции не завершат одну заявку дважды. Ноль затронутых
// строк означает, что заявку уже забрала конкурирующая транзакция
// (или её отменили) - вся сделка должна быть откачена.
func (r *OrderRepository) MarkCompleted(ctx context.Context, q Querier, id int) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3`

	result, err := q.ExecContext(ctx, query, models.OrderStatusCompleted, id, models.OrderStatusPending)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrStatusConflict
	}

	return nil
}

// MarkCanceled переводит заявку PENDING -> CANCELED
//
// Тот же CAS, что и в MarkCompleted: отмена и settlement по одной
// заявке взаимно исключены, побеждает первая закоммитившаяся
// транзакция. Возвращает обновлённую заявку.
func (r *OrderRepository) MarkCanceled(ctx context.Context, q Querier, id int, canceledBy string) (*models.Order, error) {
	query := fmt.Sprintf(`
		UPDATE orders
		SET status = $1, canceled_by = $2, updated_at = now()
		WHERE id = $3 AND status = $4
		RETURNING %s`, orderColumns)

	order := &models.Order{}
	err := scanOrder(q.QueryRowContext(ctx, query, models.OrderStatusCanceled, canceledBy, id, models.OrderStatusPending), order)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStatusConflict
		}
		return nil, err
	}

	return order, nil
}

// ListPaginated возвращает страницу заявок, отсортированных по времени создания
//
// order: "asc" или "desc" (валидируется сервисом; здесь - защитный whitelist,
// так как ORDER BY нельзя передать плейсхолдером)
func (r *OrderRepository) ListPaginated(ctx context.Context, page, limit int, order string) ([]*models.Order, error) {
	direction := "ASC"
	if strings.EqualFold(order, "desc") {
		direction = "DESC"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM orders
		ORDER BY created_at %s, id %s
		LIMIT $1 OFFSET $2`, orderColumns, direction, direction)

	offset := (page - 1) * limit

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order := &models.Order{}
		if err := scanOrder(rows, order); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

// Count возвращает общее количество заявок
func (r *OrderRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM orders`

	var count int
	err := r.db.QueryRowContext(ctx, query).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}
