package storage

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// коды ошибок PostgreSQL, которые разбираем явно
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgLockNotAvailable    = "55P03"
)

var (
	ErrAlreadyExists = errors.New("already exists")
	ErrLocked        = errors.New("resource is locked, please try again")
	ErrConstraint    = errors.New("constraint violation")

	// ErrStatusConflict строка ушла из ожидаемого статуса между чтением и записью
	ErrStatusConflict = errors.New("status changed concurrently")
)

// translatePgError приводит ошибки драйвера к ошибкам пакета storage
func translatePgError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pgUniqueViolation:
			return ErrAlreadyExists
		case pgLockNotAvailable:
			return ErrLocked
		case pgCheckViolation, pgForeignKeyViolation:
			return ErrConstraint
		}
	}
	return err
}

// Rollback откатывает транзакцию, уже завершённая транзакция ошибкой не считается
func Rollback(tx *sql.Tx) error {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
