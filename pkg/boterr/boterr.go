// Package boterr defines the classified error taxonomy for user-facing
// failures. Every error that can reach a chat reply is wrapped here so the
// rendered message is safe to show: remote detail, credentials, and internal
// identifiers stay in logs.
package boterr

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind classifies a user-facing failure.
type Kind int8

const (
	// KindAdmissionDenied means the caller exceeded their rate allowance.
	KindAdmissionDenied Kind = iota
	// KindPermissionDenied means the caller's tier lacks a capability.
	KindPermissionDenied
	// KindResolution means a free-text entity reference did not resolve to
	// exactly one tracker entity.
	KindResolution
	// KindRemote means the tracker or model service failed; detail is for
	// logs only.
	KindRemote
	// KindMalformedInput means the caller's input did not match an expected
	// format.
	KindMalformedInput
	// KindIterationExhausted means the agent loop hit its round-trip bound
	// before producing a final reply.
	KindIterationExhausted
)

// String returns the snake_case name of the kind for logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindAdmissionDenied:
		return "admission_denied"
	case KindPermissionDenied:
		return "permission_denied"
	case KindResolution:
		return "resolution"
	case KindRemote:
		return "remote"
	case KindMalformedInput:
		return "malformed_input"
	case KindIterationExhausted:
		return "iteration_exhausted"
	default:
		return "invalid"
	}
}

// Error is a classified user-facing error with the structured fields the
// renderer needs. The zero values of unused fields are fine.
type Error struct {
	Err        error         // Wrapped underlying error, logged but never shown
	Message    string        // Internal detail for logs
	Kind       Kind          // Taxonomy classification
	RetryAfter time.Duration // AdmissionDenied: wait before the next attempt
	Capability string        // PermissionDenied: the missing capability
	Query      string        // Resolution: the free-text reference that failed
	Candidates []string      // Resolution: display names of ambiguous matches
	Format     string        // MalformedInput: the expected input format
}

// Error implements the error interface with the internal (loggable) detail.
func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("bot error (%s): %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("bot error (%s): %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("bot error (%s): %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("bot error (%s)", e.Kind)
	}
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage renders the user-visible string for this error. Remote detail
// never appears here.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindAdmissionDenied:
		secs := int(e.RetryAfter.Round(time.Second).Seconds())
		if secs < 1 {
			secs = 1
		}
		return fmt.Sprintf("You're sending requests a bit too quickly. Please try again in %d seconds.", secs)
	case KindPermissionDenied:
		if e.Capability != "" {
			return fmt.Sprintf("Sorry, your access level doesn't include %s.", describeCapability(e.Capability))
		}
		return "Sorry, your access level doesn't include that."
	case KindResolution:
		if len(e.Candidates) > 0 {
			return fmt.Sprintf("I couldn't narrow down %q; did you mean one of: %s?",
				e.Query, strings.Join(e.Candidates, ", "))
		}
		return fmt.Sprintf("I couldn't find anything matching %q.", e.Query)
	case KindMalformedInput:
		if e.Format != "" {
			return fmt.Sprintf("That doesn't look right; expected %s.", e.Format)
		}
		return "That input doesn't look right."
	case KindIterationExhausted:
		return "I ran out of steps before finishing; here's what I have so far."
	case KindRemote:
		return "Something went wrong on my end. Please try again in a moment."
	default:
		return "Something went wrong. Please try again in a moment."
	}
}

// describeCapability maps feature names to user-friendly phrasing.
func describeCapability(capability string) string {
	switch capability {
	case "tracker_read":
		return "reading tracker issues"
	case "tracker_write":
		return "creating or updating tracker issues"
	case "usage_report":
		return "usage reports"
	case "basic_chat":
		return "chatting with the bot"
	default:
		return capability
	}
}

// Is checks whether an error is a bot error of a specific kind.
func Is(err error, kind Kind) bool {
	var botErr *Error
	if errors.As(err, &botErr) {
		return botErr.Kind == kind
	}
	return false
}

// KindOf returns the kind of a classified error. The second return reports
// whether the error carried a classification at all.
func KindOf(err error) (Kind, bool) {
	var botErr *Error
	if errors.As(err, &botErr) {
		return botErr.Kind, true
	}
	return KindRemote, false
}

// AsError extracts the classified error, wrapping unclassified errors as
// KindRemote so callers always have something renderable.
func AsError(err error) *Error {
	var botErr *Error
	if errors.As(err, &botErr) {
		return botErr
	}
	return &Error{Kind: KindRemote, Err: err}
}

// NewAdmissionDenied creates an admission error carrying the retry hint.
func NewAdmissionDenied(retryAfter time.Duration) *Error {
	return &Error{
		Kind:       KindAdmissionDenied,
		RetryAfter: retryAfter,
		Message:    fmt.Sprintf("rate limit exceeded, retry after %s", retryAfter),
	}
}

// NewPermissionDenied creates a permission error naming the missing
// capability.
func NewPermissionDenied(capability string) *Error {
	return &Error{
		Kind:       KindPermissionDenied,
		Capability: capability,
		Message:    fmt.Sprintf("missing capability %s", capability),
	}
}

// NewNotFound creates a resolution error for a query with no matches.
func NewNotFound(query string) *Error {
	return &Error{
		Kind:    KindResolution,
		Query:   query,
		Message: fmt.Sprintf("no match for %q", query),
	}
}

// NewAmbiguous creates a resolution error listing the candidate display
// names.
func NewAmbiguous(query string, candidates []string) *Error {
	return &Error{
		Kind:       KindResolution,
		Query:      query,
		Candidates: candidates,
		Message:    fmt.Sprintf("%d candidates for %q", len(candidates), query),
	}
}

// NewMalformedInput creates a format error naming the expected shape.
func NewMalformedInput(format, detail string) *Error {
	return &Error{
		Kind:    KindMalformedInput,
		Format:  format,
		Message: detail,
	}
}

// NewRemote wraps a remote failure. The cause is preserved for logs and
// tool results but never rendered to the user.
func NewRemote(cause error, detail string) *Error {
	return &Error{
		Kind:    KindRemote,
		Err:     cause,
		Message: detail,
	}
}

// NewIterationExhausted marks a run that hit the loop bound.
func NewIterationExhausted(iterations int) *Error {
	return &Error{
		Kind:    KindIterationExhausted,
		Message: fmt.Sprintf("no final reply after %d iterations", iterations),
	}
}
