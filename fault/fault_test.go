package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsKind_ThroughWrapping(t *testing.T) {
	base := New(KindScope, "PURSE-SCOPE-001", "instrument definition mismatch")
	wrapped := fmt.Errorf("push: %w", base)

	if !IsKind(wrapped, KindScope) {
		t.Fatalf("expected KindScope through fmt wrapping")
	}
	if IsKind(wrapped, KindParse) {
		t.Fatalf("unexpected KindParse match")
	}
	if got := RuleIDOf(wrapped); got != "PURSE-SCOPE-001" {
		t.Fatalf("RuleIDOf: got %q", got)
	}
	if got := KindOf(wrapped); got != KindScope {
		t.Fatalf("KindOf: got %q", got)
	}
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(KindStorage, "PURSE-STORE-002", "write purse", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find cause")
	}
	if err.Error() != "write purse: disk full" {
		t.Fatalf("unexpected message %q", err.Error())
	}

	var e *Error
	if !errors.As(Wrap(KindInternal, "X", "no cause", nil), &e) {
		t.Fatalf("expected *Error")
	}
	if e.Cause != nil {
		t.Fatalf("expected nil cause")
	}
}

func TestUnstructuredErrors(t *testing.T) {
	err := errors.New("plain")
	if IsKind(err, KindInternal) {
		t.Fatalf("plain error must not match a kind")
	}
	if RuleIDOf(err) != "" || KindOf(err) != "" {
		t.Fatalf("plain error must have no rule or kind")
	}
}
