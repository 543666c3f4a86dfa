// Package llmerrors classifies provider failures so the retry middleware
// can decide, per category, whether and how to try again.
package llmerrors

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"time"
)

// ErrorType is the retry-relevant category of a provider failure.
type ErrorType int8

const (
	// ErrorTypeRateLimit covers 429s and quota exhaustion.
	ErrorTypeRateLimit ErrorType = iota
	// ErrorTypeTransient covers 5xx, EOF, connection resets and timeouts.
	ErrorTypeTransient
	// ErrorTypeEmptyResponse means the API returned 200 with no content.
	ErrorTypeEmptyResponse

	// ErrorTypeAuth means a bad or expired API key (401/403). Not retryable.
	ErrorTypeAuth
	// ErrorTypeBadPrompt means the request itself was rejected (too long,
	// malformed, policy violation). Not retryable.
	ErrorTypeBadPrompt
	// ErrorTypeUnknown is the fallback for anything unclassified.
	ErrorTypeUnknown

	// ErrorTypeServiceUnavailable marks a provider that stayed down through
	// an entire retry budget. Callers surface it to the user instead of
	// retrying further.
	ErrorTypeServiceUnavailable
)

var errorTypeNames = [...]string{
	ErrorTypeRateLimit:          "rate_limit",
	ErrorTypeTransient:          "transient",
	ErrorTypeEmptyResponse:      "empty_response",
	ErrorTypeAuth:               "auth",
	ErrorTypeBadPrompt:          "bad_prompt",
	ErrorTypeUnknown:            "unknown",
	ErrorTypeServiceUnavailable: "service_unavailable",
}

func (et ErrorType) String() string {
	if et < 0 || int(et) >= len(errorTypeNames) {
		return "invalid"
	}
	return errorTypeNames[et]
}

// Default retry attempt budgets per category.
const (
	DefaultEmptyResponseRetries = 4
	DefaultRateLimitRetries     = 5
	DefaultTransientRetries     = 3
	DefaultAuthRetries          = 0
	DefaultBadPromptRetries     = 0
	DefaultUnknownRetries       = 1
)

// RetryConfig is the exponential backoff schedule for one error category.
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	Jitter        bool // randomize delays so clients don't retry in lockstep
}

// DefaultRetryConfigs holds the stock schedule for every error category.
// Rate limits back off longest; auth and prompt errors are never retried.
//
//nolint:gochecknoglobals // Configuration map - acceptable for package defaults
var DefaultRetryConfigs = map[ErrorType]RetryConfig{
	ErrorTypeEmptyResponse: {DefaultEmptyResponseRetries, 2 * time.Second, 30 * time.Second, 2.0, true},
	ErrorTypeRateLimit:     {DefaultRateLimitRetries, 1 * time.Second, 60 * time.Second, 2.0, true},
	ErrorTypeTransient:     {DefaultTransientRetries, 500 * time.Millisecond, 10 * time.Second, 2.0, true},
	ErrorTypeUnknown:       {DefaultUnknownRetries, 1 * time.Second, 5 * time.Second, 2.0, true},

	ErrorTypeAuth:               {MaxRetries: DefaultAuthRetries},
	ErrorTypeBadPrompt:          {MaxRetries: DefaultBadPromptRetries},
	ErrorTypeServiceUnavailable: {MaxRetries: 0},
}

// Error is a provider failure tagged with its category and, where known,
// the HTTP status and a truncated response body.
type Error struct {
	Err        error
	Message    string
	BodyStub   string // leading bytes of the response body only, to keep PII out of logs
	Type       ErrorType
	StatusCode int
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("LLM error (%s): %s", e.Type, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("LLM error (%s): %v", e.Type, e.Err)
	}
	return fmt.Sprintf("LLM error (%s): status %d", e.Type, e.StatusCode)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether another attempt could plausibly succeed.
// Only auth, bad-prompt and exhausted-budget errors are terminal.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeAuth, ErrorTypeBadPrompt, ErrorTypeServiceUnavailable:
		return false
	}
	return true
}

// GetRetryConfig returns the backoff schedule for this error's category,
// falling back to the unknown-category schedule.
func (e *Error) GetRetryConfig() RetryConfig {
	cfg, ok := DefaultRetryConfigs[e.Type]
	if !ok {
		return DefaultRetryConfigs[ErrorTypeUnknown]
	}
	return cfg
}

// Is reports whether err wraps a classified error of category t.
func Is(err error, t ErrorType) bool {
	var classified *Error
	return errors.As(err, &classified) && classified.Type == t
}

// TypeOf extracts the category from err, or ErrorTypeUnknown when err was
// never classified.
func TypeOf(err error) ErrorType {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Type
	}
	return ErrorTypeUnknown
}

// NewError builds a classified error from a plain message.
func NewError(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// NewErrorWithStatus builds a classified error carrying the HTTP status.
func NewErrorWithStatus(errorType ErrorType, statusCode int, message string) *Error {
	return &Error{Type: errorType, StatusCode: statusCode, Message: message}
}

// NewErrorWithCause builds a classified error wrapping an underlying one.
func NewErrorWithCause(errorType ErrorType, cause error, message string) *Error {
	return &Error{Type: errorType, Err: cause, Message: message}
}

// NewServiceUnavailableError wraps the last transient failure once a retry
// budget has been spent.
func NewServiceUnavailableError(cause error, attempts int) *Error {
	return &Error{
		Type:    ErrorTypeServiceUnavailable,
		Err:     cause,
		Message: fmt.Sprintf("service unavailable after %d retry attempts", attempts),
	}
}

// IsServiceUnavailable reports whether err marks an exhausted retry budget.
func IsServiceUnavailable(err error) bool {
	return Is(err, ErrorTypeServiceUnavailable)
}

// SanitizePrompt shortens a prompt for logging. Oversized prompts keep their
// head and tail plus a hash of the whole text so log lines can still be
// correlated.
func SanitizePrompt(prompt string, maxChars int) string {
	if len(prompt) <= maxChars {
		return prompt
	}

	half := maxChars / 2
	if half < 100 {
		half = 100
	}

	sum := sha256.Sum256([]byte(prompt))
	return fmt.Sprintf("%s...[%d chars, hash:%x]...%s",
		prompt[:half], len(prompt), sum[:8], prompt[len(prompt)-half:])
}
