package boterr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestUserMessageAdmissionDenied(t *testing.T) {
	err := NewAdmissionDenied(42 * time.Second)
	msg := err.UserMessage()
	if !strings.Contains(msg, "42 seconds") {
		t.Errorf("UserMessage() = %q, want retry-after seconds included", msg)
	}
}

func TestUserMessageAdmissionDeniedNeverZero(t *testing.T) {
	err := NewAdmissionDenied(200 * time.Millisecond)
	if msg := err.UserMessage(); !strings.Contains(msg, "1 second") {
		t.Errorf("UserMessage() = %q, want rounded up to 1 second", msg)
	}
}

func TestUserMessagePermissionDenied(t *testing.T) {
	err := NewPermissionDenied("tracker_write")
	msg := err.UserMessage()
	if !strings.Contains(msg, "creating or updating tracker issues") {
		t.Errorf("UserMessage() = %q, want missing capability named", msg)
	}
}

func TestUserMessageResolution(t *testing.T) {
	ambiguous := NewAmbiguous("Jo", []string{"Jordan Lee", "Joanna Park"})
	msg := ambiguous.UserMessage()
	if !strings.Contains(msg, "Jordan Lee") || !strings.Contains(msg, "Joanna Park") {
		t.Errorf("UserMessage() = %q, want candidate names listed", msg)
	}
	if !strings.Contains(msg, `"Jo"`) {
		t.Errorf("UserMessage() = %q, want the query named", msg)
	}

	notFound := NewNotFound("Zebulon")
	if msg := notFound.UserMessage(); !strings.Contains(msg, `"Zebulon"`) {
		t.Errorf("UserMessage() = %q, want the query named", msg)
	}
}

func TestUserMessageMalformedInput(t *testing.T) {
	err := NewMalformedInput("an issue identifier like COD-379", `got "cod379"`)
	msg := err.UserMessage()
	if !strings.Contains(msg, "COD-379") {
		t.Errorf("UserMessage() = %q, want expected format named", msg)
	}
}

func TestRemoteDetailNeverUserVisible(t *testing.T) {
	cause := fmt.Errorf("POST https://tracker.internal/graphql: 502 Bad Gateway (api key sk-abc123)")
	err := NewRemote(cause, "issueCreate failed")

	msg := err.UserMessage()
	for _, leak := range []string{"502", "graphql", "sk-abc123", "issueCreate"} {
		if strings.Contains(strings.ToLower(msg), strings.ToLower(leak)) {
			t.Errorf("UserMessage() = %q leaks %q", msg, leak)
		}
	}

	// The loggable side keeps everything, detail and cause both.
	if !strings.Contains(err.Error(), "issueCreate") {
		t.Errorf("Error() = %q, want internal detail preserved", err.Error())
	}
	if !strings.Contains(err.Error(), "sk-abc123") {
		t.Errorf("Error() = %q, want wrapped cause preserved", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want cause preserved for unwrapping")
	}
}

func TestIsAndKindOf(t *testing.T) {
	err := fmt.Errorf("pipeline: %w", NewPermissionDenied("usage_report"))

	if !Is(err, KindPermissionDenied) {
		t.Error("Is(wrapped, KindPermissionDenied) = false, want true")
	}
	if Is(err, KindRemote) {
		t.Error("Is(wrapped, KindRemote) = true, want false")
	}

	kind, ok := KindOf(err)
	if !ok || kind != KindPermissionDenied {
		t.Errorf("KindOf() = (%v, %v), want (KindPermissionDenied, true)", kind, ok)
	}

	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("KindOf(plain) reported a classification, want false")
	}
}

func TestAsErrorWrapsUnclassified(t *testing.T) {
	plain := errors.New("dial tcp: connection refused")
	got := AsError(plain)
	if got.Kind != KindRemote {
		t.Errorf("AsError(plain).Kind = %v, want KindRemote", got.Kind)
	}
	if msg := got.UserMessage(); strings.Contains(msg, "dial tcp") {
		t.Errorf("UserMessage() = %q leaks transport detail", msg)
	}

	classified := NewNotFound("backend")
	if AsError(fmt.Errorf("wrap: %w", classified)).Kind != KindResolution {
		t.Error("AsError lost the classification of a wrapped bot error")
	}
}

func TestKindStrings(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindAdmissionDenied, "admission_denied"},
		{KindPermissionDenied, "permission_denied"},
		{KindResolution, "resolution"},
		{KindRemote, "remote"},
		{KindMalformedInput, "malformed_input"},
		{KindIterationExhausted, "iteration_exhausted"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
