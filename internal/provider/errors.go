package provider

import "fmt"

// Error codes carried by *Error. These are machine-readable and surface
// verbatim in API error events.
const (
	CodeProviderError    = "provider_error"
	CodeNotSupported     = "not_supported"
	CodeNotConfigured    = "not_configured"
	CodeResponseTooLarge = "response_too_large"
)

// Error is a classified provider failure: a machine code, a human message,
// and optional structured details.
type Error struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a provider error with the generic provider_error code.
func NewError(message string, details map[string]any) *Error {
	return &Error{Code: CodeProviderError, Message: message, Details: details}
}

// ErrStreamingNotSupported reports that a provider lacks the streaming
// capability.
func ErrStreamingNotSupported(name string) *Error {
	return &Error{
		Code:    CodeNotSupported,
		Message: "streaming not supported by this provider",
		Details: map[string]any{"provider": name},
	}
}

// ErrNotConfigured reports a missing credential or unknown provider name.
func ErrNotConfigured(message string) *Error {
	return &Error{Code: CodeNotConfigured, Message: message}
}
