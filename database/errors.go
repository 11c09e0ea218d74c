package database

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"workshop-backend/domain"
)

// translate maps driver errors onto domain sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return &domain.DuplicateError{Constraint: pgErr.ConstraintName}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &domain.DuplicateError{}
	}
	return err
}
