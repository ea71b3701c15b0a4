package broker

import (
	"errors"
	"fmt"
)

// Error is a classified broker failure. Network timeouts and server faults
// are retryable on a later invocation; order rejections and insufficient
// funds are not.
type Error struct {
	Code      string
	Message   string
	Retryable bool
}

func (e *Error) Error() string {
	kind := "non-retryable"
	if e.Retryable {
		kind = "retryable"
	}
	return fmt.Sprintf("broker error %s (%s): %s", e.Code, kind, e.Message)
}

// IsRetryable reports whether err is a broker error worth re-attempting on a
// later invocation.
func IsRetryable(err error) bool {
	var be *Error
	return errors.As(err, &be) && be.Retryable
}

func retryableErr(code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Retryable: true}
}

func rejectedErr(code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Retryable: false}
}
