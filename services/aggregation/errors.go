package aggregation

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageFailure matches every StorageError
	ErrStorageFailure = errors.New("aggregation storage failure")
	// ErrUserNotFound is returned when the user row does not exist
	ErrUserNotFound = errors.New("user not found")
	// ErrSubjectNotFound is returned when a subject does not exist for the user
	ErrSubjectNotFound = errors.New("subject not found")
)

// StorageError reports a failed read or write against the grade store. Nothing the
// failing run wrote is committed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("aggregation: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorageFailure
}

// storageErr wraps err as a StorageError unless it is a lookup miss or already wrapped
func storageErr(op string, err error) error {
	if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrSubjectNotFound) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
