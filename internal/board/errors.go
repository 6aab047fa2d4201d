package board

import (
	"errors"
	"fmt"
)

// ErrNotFound matches column_not_found and card_not_found failures with errors.Is.
var ErrNotFound = errors.New("not found")

// Kind classifies why a board operation was rejected.
type Kind string

const (
	KindColumnNotFound      Kind = "column_not_found"
	KindCardNotFound        Kind = "card_not_found"
	KindTaskAlreadyPlaced   Kind = "task_already_placed"
	KindDuplicateColumnName Kind = "duplicate_column_name"
	KindLastStatusColumn    Kind = "cannot_remove_last_status_column"
	KindPositionOutOfRange  Kind = "position_out_of_range"
	KindInvalidNeighbor     Kind = "invalid_neighbor"
	KindInvalidColumnName   Kind = "invalid_column_name"
	KindInvalidColumnLimit  Kind = "invalid_column_limit"
	KindInvalidStatus       Kind = "invalid_status"
	KindInvalidBoard        Kind = "invalid_board"
)

// Error is returned by every rejected board operation. The board is left
// unchanged whenever an Error is returned.
type Error struct {
	Op     string
	Kind   Kind
	ID     string // offending column or task ID, when there is one
	Detail string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("board: %s: %s", e.Op, e.Kind)
	if e.ID != "" {
		msg += fmt.Sprintf(" (id=%s)", e.ID)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *Error) Is(target error) bool {
	if target == ErrNotFound {
		return e.Kind == KindColumnNotFound || e.Kind == KindCardNotFound
	}
	return false
}

// IsKind reports whether err is a board Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// KindOf returns the Kind of a board Error, or "" for any other error.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}

func fail(op string, kind Kind, id string) error {
	return &Error{Op: op, Kind: kind, ID: id}
}

func failf(op string, kind Kind, id, format string, args ...any) error {
	return &Error{Op: op, Kind: kind, ID: id, Detail: fmt.Sprintf(format, args...)}
}
