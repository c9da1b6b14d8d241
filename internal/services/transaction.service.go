package services

import (
	"context"
	"errors"
	"fmt"
	"rentflow/internal/database"
	"rentflow/pkg/logger"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// maxAttempts bounds retries of a transaction that lost a lock race.
const maxAttempts = 3

// retryable reports Postgres serialization failures and deadlocks, which are
// safe to retry from the start.
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// Transactor runs fn inside one database transaction.
type Transactor interface {
	Execute(ctx context.Context, fn func(context.Context, *gorm.DB) error) error
}

// TransactionService runs request work in one Postgres transaction.
type TransactionService struct {
	db  database.DB
	log logger.Logger
}

func NewTransactionService(db database.DB) *TransactionService {
	return &TransactionService{
		db:  db,
		log: logger.New("TransactionService"),
	}
}

// Execute commits when fn returns nil and rolls back otherwise. Serialization
// failures and deadlocks rerun fn, so fn must not have side effects outside
// tx. A panic inside fn is rolled back and returned as an error; a failed
// rollback after a panic re-panics.
func (ts *TransactionService) Execute(
	ctx context.Context,
	fn func(context.Context, *gorm.DB) error,
) error {
	log := ts.log.Function("Execute")

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = ts.attempt(ctx, log, fn)
		if err == nil || !retryable(err) || ctx.Err() != nil {
			return err
		}
		log.Warn("transaction conflicted, retrying", "attempt", attempt, "error", err)
	}
	return log.Err("transaction kept conflicting", err, "attempts", maxAttempts)
}

func (ts *TransactionService) attempt(
	ctx context.Context,
	log logger.Logger,
	fn func(context.Context, *gorm.DB) error,
) (err error) {
	tx := ts.db.SQLWithContext(ctx).Begin()
	if tx.Error != nil {
		return log.Err("failed to begin transaction", tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			panicErr := log.ErrMsg("panic during transaction: " + fmt.Sprintf("%v", r))
			log.Er("panic during transaction, rolling back", panicErr)

			if rollbackErr := tx.Rollback().Error; rollbackErr != nil {
				log.Er("CRITICAL: failed to rollback after panic", rollbackErr, "panic", r)
				panic(
					fmt.Sprintf(
						"transaction rollback failed: %v (original panic: %v)",
						rollbackErr,
						r,
					),
				)
			}

			log.Info("transaction rolled back successfully after panic")
			err = panicErr
		}
	}()

	if err = fn(ctx, tx); err != nil {
		if rollbackErr := tx.Rollback().Error; rollbackErr != nil {
			log.Er("CRITICAL: failed to rollback after function error", rollbackErr, "originalError", err)
			return log.Error("transaction rollback failed", "rollbackError", rollbackErr, "originalError", err)
		}
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return log.Err("failed to commit transaction", err)
	}

	return nil
}
