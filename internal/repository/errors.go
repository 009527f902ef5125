package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Error codes mirror the ones the hosted data service reports, so callers can
// branch on them without knowing which driver produced the failure.
const (
	CodeNotFound = "PGRST116"
	CodeConflict = "23505"
	CodeInvalid  = "22023"
	CodeUnknown  = "unknown"
)

// Error is the only error type the repository returns.
type Error struct {
	Op   string
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return err
	}
	code := CodeUnknown
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		code = CodeNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		code = CodeConflict
	}
	return &Error{Op: op, Code: code, Err: err}
}

func notFound(op string) error {
	return &Error{Op: op, Code: CodeNotFound, Err: gorm.ErrRecordNotFound}
}

func invalid(op, msg string) error {
	return &Error{Op: op, Code: CodeInvalid, Err: errors.New(msg)}
}

// CodeOf returns the error code, or "" if err did not come from the repository.
func CodeOf(err error) string {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

func IsConflict(err error) bool { return CodeOf(err) == CodeConflict }
