package persistence

import (
	"errors"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// uniqueViolationCode is the PostgreSQL error code for unique_violation
const uniqueViolationCode = "23505"

// isUniqueViolation reports whether err is a unique constraint violation.
// GORM translates driver errors when TranslateError is enabled; the pq
// check covers raw driver errors that bypass translation.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolationCode
	}
	return false
}
