package protocol

import (
	"errors"
	"fmt"
)

// ErrSessionState reports a protocol operation invoked out of order,
// such as building a randomization before the server's randomness has
// been verified. It marks a programming error, not an authenticity
// failure; authenticity failures are boolean results.
var ErrSessionState = errors.New("protocol session in wrong state")

// DecodeError reports malformed wire bytes.
type DecodeError struct {
	Message string
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("decode %s", e.Message)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeErrorf(format string, args ...any) *DecodeError {
	return &DecodeError{Message: fmt.Sprintf(format, args...)}
}
