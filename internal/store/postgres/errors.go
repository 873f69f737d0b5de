package postgres

import (
	"errors"

	"github.com/lib/pq"
)

// Retryable lock/contention error codes. Anything else (constraint
// violations included) is treated as a hard error for the term's diff.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// IsRetryable reports whether err is a transient contention error worth
// retrying with backoff.
func IsRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch string(pqErr.Code) {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return true
	}
	return false
}
