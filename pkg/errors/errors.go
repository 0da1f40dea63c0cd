package errors

import "fmt"

// ErrorType classifies failures so callers can decide whether to retry.
type ErrorType string

const (
	// ErrorTypeNetwork covers timeouts, connection resets and DNS failures.
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeNotFound means the remote resource does not exist (HTTP 404).
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeParsing covers malformed JSON bodies and unexpected content types.
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeValidation covers local file constraints violated before any
	// network call (missing, empty, oversized, wrong extension).
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeRejected means the server answered but refused the request at
	// the application level (e.g. an upload response with success=false).
	ErrorTypeRejected ErrorType = "rejected"
	// ErrorTypeServerError covers 5xx responses.
	ErrorTypeServerError ErrorType = "server_error"
	// ErrorTypeUnknown is everything else, including recovered panics.
	ErrorTypeUnknown ErrorType = "unknown"
)

// Error carries a failure classification alongside the message and, for HTTP
// failures, the status code.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// New builds a typed error without an HTTP status code.
func New(t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message}
}

// Newf builds a typed error with a formatted message.
func Newf(t ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// NewHTTP builds a typed error carrying an HTTP status code.
func NewHTTP(t ErrorType, code int, message string) *Error {
	return &Error{Type: t, Message: message, Code: code}
}

// IsRetryable reports whether an error of the given type is worth retrying.
func IsRetryable(t ErrorType) bool {
	switch t {
	case ErrorTypeNetwork, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode reports whether an HTTP status code indicates a
// transient condition.
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // network error, no response
		return true
	case 429:
		return true
	case 404, 401, 403:
		return false
	default:
		return statusCode >= 500
	}
}
