package types

import "fmt"

// Error is the structured error value surfaced by every library operation.
// Code is stable and machine-matchable; Message is for humans. Step is set
// only for execution-time failures so the caller can resume from the exact
// step that failed.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Step    string `json:"step,omitempty"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("%s: step %q: %s", e.Code, e.Step, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Common error codes.
const (
	ErrInvalidInput        = "INVALID_INPUT"
	ErrNotStarted          = "NOT_STARTED"
	ErrEnded               = "ENDED"
	ErrSoldOut             = "SOLD_OUT"
	ErrNotEligible         = "NOT_ELIGIBLE"
	ErrInsufficientFunds   = "INSUFFICIENT_FUNDS"
	ErrCurrencyMismatch    = "CURRENCY_MISMATCH"
	ErrUnsupportedNetwork  = "UNSUPPORTED_NETWORK"
	ErrStepExecutionFailed = "STEP_EXECUTION_FAILED"
	ErrAPIError            = "API_ERROR"
	ErrUnknown             = "UNKNOWN_ERROR"
)

// NewError builds an Error with a formatted message.
func NewError(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapStepError attaches a failing step's identity to an underlying error.
func WrapStepError(step string, err error) *Error {
	return &Error{
		Code:    ErrStepExecutionFailed,
		Message: err.Error(),
		Step:    step,
		Err:     err,
	}
}

// CodeOf extracts the error code from err, returning UNKNOWN_ERROR for
// anything that is not a library Error.
func CodeOf(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ErrUnknown
}
