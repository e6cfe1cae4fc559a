package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrEstoqueInsuficiente is returned by conditional stock updates that
	// would leave a variation with negative stock.
	ErrEstoqueInsuficiente = errors.New("estoque insuficiente")
	// ErrEstadoAlterado is returned when a conditional status transition
	// matched no rows because another request got there first.
	ErrEstadoAlterado = errors.New("registro alterado por outra operação")
)

// conn picks the transaction when the caller is inside one, otherwise the
// repository's own connection.
func conn(ctx context.Context, db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsUniqueViolation reports whether err is a PostgreSQL unique_violation.
// gorm translates it to ErrDuplicatedKey when TranslateError is enabled.
func IsUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
