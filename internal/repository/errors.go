package repository

import (
	"fmt"

	"github.com/abelzeko/ecms-bot/internal/entities"
)

// StorageError reports a failed database operation. Callers surface it as is;
// nothing in the repository retries.
type StorageError struct {
	Op   string
	Kind entities.RecordKind
	Err  error
}

func (e *StorageError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s failed: %v", e.Op, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, kind entities.RecordKind, err error) error {
	return &StorageError{Op: op, Kind: kind, Err: err}
}
