package services

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not found")
	ErrCommentNotFound    = fmt.Errorf("comment %w", ErrNotFound)
	ErrPostNotFound       = fmt.Errorf("post %w", ErrNotFound)
	ErrConflict           = errors.New("conflicting concurrent update, please retry")
	ErrUsernameTaken      = errors.New("username already used")
	ErrInvalidCredentials = errors.New("incorrect username or password")
)

// ValidationError carries a user-facing message and still matches ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// postgres SQLSTATEs that mean "try again", not "broken"
var transientCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
	"57014": true, // query_canceled (lock_timeout / statement_timeout)
}

// classify maps store errors onto the service taxonomy. Sentinels already in
// the taxonomy pass through untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && transientCodes[pgErr.Code] {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
