package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrConcurrentUpdate marks a guarded write that matched no row because a
// competing transaction changed it first. RunAtomic treats it as transient.
var ErrConcurrentUpdate = errors.New("concurrent update detected")

const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgCheckViolation       = "23514"
)

var transientPGCodes = map[string]struct{}{
	pgSerializationFailure: {},
	pgDeadlockDetected:     {},
	pgLockNotAvailable:     {},
}

// IsTransientConflict reports whether retrying the enclosing transaction from
// scratch can succeed.
func IsTransientConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConcurrentUpdate) {
		return true
	}
	if code := pgErrorCode(err); code != "" {
		_, ok := transientPGCodes[code]
		return ok
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "sqlite_busy")
}

// IsCheckViolation reports whether err comes from a CHECK constraint, such as
// the non-negative count guard on products.
func IsCheckViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if pgErrorCode(err) == pgCheckViolation {
		return constraintName == "" || strings.Contains(err.Error(), constraintName)
	}
	msg := err.Error()
	if !strings.Contains(msg, "CHECK constraint failed") {
		return false
	}
	return constraintName == "" || strings.Contains(msg, constraintName)
}

func pgErrorCode(err error) string {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
