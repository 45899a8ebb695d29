package toolargs

import (
	"errors"
	"fmt"

	"github.com/xiaot623/librarydesk/internal/domain"
)

// ErrUnparseable matches every normalization failure.
var ErrUnparseable = errors.New("unparseable argument")

// Error reports why a payload could not be normalized.
type Error struct {
	Tool   domain.ToolName
	Field  string
	Raw    string
	Reason string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("unparseable argument for %s", e.Tool)
	if e.Field != "" {
		msg += fmt.Sprintf(": field %q", e.Field)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Raw != "" {
		msg += fmt.Sprintf(" (raw: %s)", truncate(e.Raw, 200))
	}
	return msg
}

func (e *Error) Is(target error) bool {
	return target == ErrUnparseable
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
