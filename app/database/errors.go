package database

import (
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicateKey is returned by Insert operations when a database-level
// unique constraint rejects the row. The unique constraint, not any
// application-level existence check, is the source of truth for entity
// creation races: callers are expected to re-fetch by key and merge.
var ErrDuplicateKey = errors.New("duplicate key")

const pqUniqueViolation = "23505"

func translateInsertError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return ErrDuplicateKey
	}
	return err
}
