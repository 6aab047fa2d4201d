package service

import (
	"errors"
	"fmt"

	"prism-board/internal/board"
)

// ErrRejected marks failures that redelivery cannot fix. The worker drops
// such messages.
var ErrRejected = errors.New("command rejected")

// Rejection reasons that do not come from the board aggregate.
const (
	ReasonForbidden      = "forbidden"
	ReasonBoardNotFound  = "board_not_found"
	ReasonInvalidCommand = "invalid_command"
)

// Rejection describes why a command was refused.
type Rejection struct {
	Reason string
	Err    error
}

func (r *Rejection) Error() string {
	if r.Err == nil {
		return "rejected: " + r.Reason
	}
	return fmt.Sprintf("rejected: %s: %v", r.Reason, r.Err)
}

func (r *Rejection) Unwrap() []error {
	if r.Err == nil {
		return []error{ErrRejected}
	}
	return []error{ErrRejected, r.Err}
}

func reject(reason string, err error) error {
	return &Rejection{Reason: reason, Err: err}
}

func rejectf(reason, format string, args ...any) error {
	return &Rejection{Reason: reason, Err: fmt.Errorf(format, args...)}
}

// ReasonOf returns the rejection reason of err, or "" when err is not a
// rejection.
func ReasonOf(err error) string {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Reason
	}
	return ""
}

// fromBoard turns aggregate rule violations into rejections and passes any
// other error through.
func fromBoard(err error) error {
	if kind := board.KindOf(err); kind != "" {
		return reject(string(kind), err)
	}
	return err
}
