package aggregates

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/slotswap-backend/internal/domain/aggregates"
)

var (
	// ErrValidation indicates caller input validation failure.
	ErrValidation = errors.New("aggregate validation")
	// ErrNotFound indicates a referenced record does not exist.
	ErrNotFound = errors.New("aggregate not found")
	// ErrUnauthorized indicates the caller is not the party allowed to act.
	ErrUnauthorized = errors.New("aggregate unauthorized")
	// ErrSelfSwap indicates both sides of a swap resolve to the same slot or owner.
	ErrSelfSwap = errors.New("aggregate self swap")
	// ErrInvalidState indicates a record is not in the state the transition needs.
	ErrInvalidState = errors.New("aggregate invalid state")
	// ErrConflict marks an invalid state caused by a lost compare-and-set.
	ErrConflict = errors.New("aggregate conflict")
	// ErrRetryable indicates transient retryable failure.
	ErrRetryable = errors.New("aggregate retryable")
)

// taggedError reads as its message alone while matching its sentinels
// through errors.Is.
type taggedError struct {
	msg  string
	tags []error
}

func (e *taggedError) Error() string   { return e.msg }
func (e *taggedError) Unwrap() []error { return e.tags }

func tagged(msg string, tags ...error) error {
	return &taggedError{msg: strings.TrimSpace(msg), tags: tags}
}

func ValidationError(msg string) error {
	return tagged(msg, ErrValidation)
}

func NotFoundError(msg string) error {
	return tagged(msg, ErrNotFound)
}

func UnauthorizedError(msg string) error {
	return tagged(msg, ErrUnauthorized)
}

func SelfSwapError(msg string) error {
	return tagged(msg, ErrSelfSwap)
}

// InvalidStateError tags a precondition failure on record state.
func InvalidStateError(msg string) error {
	return tagged(msg, ErrInvalidState)
}

// ConflictError tags a concurrent modification. It maps to the invalid_state
// code and is counted separately by hooks.
func ConflictError(msg string) error {
	return tagged(msg, ErrInvalidState, ErrConflict)
}

func RetryableError(msg string) error {
	return tagged(msg, ErrRetryable)
}

// MapError maps infrastructure/domain failures into aggregate error codes.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*domainagg.Error); ok {
		return err
	}
	switch {
	case errors.Is(err, ErrValidation):
		return domainagg.Wrap(domainagg.CodeValidation, op, err)
	case errors.Is(err, ErrNotFound):
		return domainagg.Wrap(domainagg.CodeNotFound, op, err)
	case errors.Is(err, ErrUnauthorized):
		return domainagg.Wrap(domainagg.CodeUnauthorized, op, err)
	case errors.Is(err, ErrSelfSwap):
		return domainagg.Wrap(domainagg.CodeSelfSwap, op, err)
	case errors.Is(err, ErrInvalidState):
		return domainagg.Wrap(domainagg.CodeInvalidState, op, err)
	case errors.Is(err, ErrRetryable):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domainagg.Wrap(domainagg.CodeNotFound, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domainagg.Wrap(domainagg.CodeInvalidState, op, err)
	}
	if errors.Is(err, redis.TxFailedErr) {
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return domainagg.Wrap(domainagg.CodeInvalidState, op, err) // unique_violation
		case "40001", "40P01", "55P03":
			return domainagg.Wrap(domainagg.CodeRetryable, op, err) // serialization/deadlock/lock_not_available
		}
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch {
		case liteErr.ExtendedCode == sqlite3.ErrConstraintUnique,
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
			return domainagg.Wrap(domainagg.CodeInvalidState, op, err)
		case liteErr.Code == sqlite3.ErrBusy, liteErr.Code == sqlite3.ErrLocked:
			return domainagg.Wrap(domainagg.CodeRetryable, op, err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	}
	return domainagg.Wrap(domainagg.CodeInternal, op, err)
}
