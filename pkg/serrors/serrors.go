package serrors

import "fmt"

// Error is a coded error surfaced to API clients as a stable machine-readable
// code plus a human message. Meta carries additional context (e.g. the actual
// certificate status on a not-ready error).
type Error struct {
	Code    string
	Message string
	Meta    map[string]string
}

func NewError(code, message string, meta map[string]string) *Error {
	return &Error{Code: code, Message: message, Meta: meta}
}

func (e *Error) Error() string {
	if len(e.Meta) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s %v", e.Code, e.Message, e.Meta)
}

// WithMeta returns a copy of the error carrying the given meta entries.
func (e *Error) WithMeta(meta map[string]string) *Error {
	return &Error{Code: e.Code, Message: e.Message, Meta: meta}
}

// WithMessage returns a copy of the error with a more specific message.
func (e *Error) WithMessage(message string) *Error {
	return &Error{Code: e.Code, Message: message, Meta: e.Meta}
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}
