package resolve

import (
	"errors"
	"fmt"

	"github.com/roach88/gameday/internal/model"
)

// ErrorCode categorizes resolution failures.
type ErrorCode string

const (
	// CodeNoCandidate indicates a finished stage has no team at the
	// requested place (or advancement index).
	CodeNoCandidate ErrorCode = "NO_CANDIDATE"

	// CodeAmbiguousCandidate indicates more than one team could fill the
	// role: a shared rank under strict ties, or a drawn advancement game.
	CodeAmbiguousCandidate ErrorCode = "AMBIGUOUS_CANDIDATE"
)

// Error is a hard resolution failure. The caller must roll back.
type Error struct {
	Code     ErrorCode
	Message  string
	SlotID   int64
	Role     model.Role
	Standing string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (slot=%d, role=%s, standing=%q)", e.Code, e.Message, e.SlotID, e.Role, e.Standing)
}

// IsResolveError reports whether err is an *Error with the given code.
// Uses errors.As to handle wrapped errors.
func IsResolveError(err error, code ErrorCode) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}
