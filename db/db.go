// db/db.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/gestore-cpu/gestione-doc-security/config"
	logger "github.com/gestore-cpu/gestione-doc-security/logging"
)

var SQL *sql.DB

func InitPostgres() error {
	dsn := config.GetString("postgres.dsn")
	logger.Info("Connecting to Postgres")

	var err error
	SQL, err = sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open Postgres connection: %w", err)
	}

	SQL.SetMaxOpenConns(50)
	SQL.SetMaxIdleConns(25)
	SQL.SetConnMaxLifetime(30 * time.Minute)
	SQL.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := SQL.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	logger.Info("Successfully connected to Postgres")
	return nil
}

func ClosePostgres() {
	if SQL != nil {
		if err := SQL.Close(); err != nil {
			logger.Error("Error closing Postgres connection", zap.Error(err))
		} else {
			logger.Info("Postgres connection closed successfully")
		}
	}
}

// WithTransaction runs the given work inside a transaction, rolling back
// on error. Administrative mutations are all-or-nothing.
func WithTransaction(ctx context.Context, sqlDB *sql.DB, work func(tx *sql.Tx) error) error {
	tx, err := sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := work(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
