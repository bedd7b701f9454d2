package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// ApplySchema применяет встроенную схему БД
//
// DDL написан идемпотентно (CREATE ... IF NOT EXISTS), поэтому
// вызов при каждом старте сервиса безопасен. Миграции с изменением
// существующих таблиц выполняются отдельно, вне приложения.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
