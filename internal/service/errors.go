package service

import (
	"errors"
	"fmt"
)

// ErrStaleRecord means the entity handed to Update or Delete no longer has a
// row in the store, or never had one.
var ErrStaleRecord = errors.New("todo is not currently stored")

// StorageError reports a store failure for one operation.
type StorageError struct {
	Op  string
	ID  uint
	Err error
}

func (e *StorageError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("%s todo %d: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("%s todo: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
