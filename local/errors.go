package local

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-authgate/passport-local/passport"
)

var (
	// ErrVerifyRequired is returned by New when no verify callback is given.
	ErrVerifyRequired = errors.New("local strategy requires a verify callback")

	// ErrVerifyMismatch is returned when the verify callback's form does not
	// match the PassReqToCallback setting.
	ErrVerifyMismatch = errors.New("local strategy verify callback does not match PassReqToCallback")
)

// PanicError wraps a non-error value recovered from a panicking verify callback.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("local: verify callback panicked: %v", e.Value)
}

func recovered(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &PanicError{Value: r}
}

// BadRequestError describes a request that did not carry usable credentials.
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string {
	if e.Message == "" {
		return DefaultBadRequestMessage
	}
	return e.Message
}

// StatusCode is always 400.
func (e *BadRequestError) StatusCode() int {
	return http.StatusBadRequest
}

// AsBadRequest reports whether out is the missing-credentials failure and,
// if so, returns it as a BadRequestError.
func AsBadRequest(out passport.Outcome) (*BadRequestError, bool) {
	if out.Kind != passport.KindFailure || out.Status != http.StatusBadRequest {
		return nil, false
	}
	return &BadRequestError{Message: out.Info.Message()}, true
}
