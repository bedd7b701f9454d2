package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Querier - общий интерфейс *sql.DB и *sql.Tx
//
// Позволяет репозиториям выполнять запросы как напрямую,
// так и внутри открытой транзакции, не зная о её существовании.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

// ErrSerializationConflict - конфликт сериализации при коммите транзакции
//
// Возникает, когда конкурирующая транзакция изменила те же строки
// (статус заявки, количество акций в холдинге). Транзакция откачена
// целиком; вызывающая сторона может повторить её с нуля.
var ErrSerializationConflict = errors.New("transaction serialization conflict")

// Коды SQLSTATE, которые трактуем как конфликт сериализации
const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

// TxRunner выполняет функции внутри одной транзакции БД
//
// Заменяет неявную транзакционную обёртку ORM явной абстракцией:
// открыть транзакцию, выполнить все чтения/записи через неё,
// закоммитить или откатить как единое целое. Rollback гарантирован
// при любой ошибке или панике внутри fn.
//
// Уровень изоляции - SERIALIZABLE: settlement требует обнаружения
// write-write конфликтов на Order.status и PurchasedShare.quantity,
// read-committed здесь недостаточен (возможен double-spend акций).
type TxRunner struct {
	db *sql.DB
}

// NewTxRunner создает новый экземпляр TxRunner
func NewTxRunner(db *sql.DB) *TxRunner {
	return &TxRunner{db: db}
}

// WithinTx выполняет fn внутри SERIALIZABLE транзакции
//
// Возвращает:
//   - ошибку fn, если fn завершилась с ошибкой (транзакция откачена)
//   - ErrSerializationConflict, если БД обнаружила конфликт
//     сериализации при выполнении или коммите
func (r *TxRunner) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	// Гарантируем rollback при панике внутри fn
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		if isSerializationConflict(err) {
			return ErrSerializationConflict
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		// Конфликт сериализации может проявиться только на коммите
		if isSerializationConflict(err) {
			return ErrSerializationConflict
		}
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// isSerializationConflict проверяет, является ли ошибка конфликтом
// сериализации Postgres (SQLSTATE 40001 или 40P01)
func isSerializationConflict(err error) bool {
	if errors.Is(err, ErrSerializationConflict) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pqSerializationFailure ||
			string(pqErr.Code) == pqDeadlockDetected
	}
	return false
}
