// Package fault holds the structured error taxonomy shared by the purse engine.
package fault

import (
	"errors"
	"fmt"
)

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind/RuleID rather than matching error strings.
type Kind string

const (
	// KindDecode covers malformed armor, base64 or compressed payloads.
	KindDecode Kind = "Decode"
	// KindParse covers structural bookend and element violations.
	KindParse Kind = "Parse"
	// KindScope covers notary or instrument definition mismatches.
	KindScope Kind = "Scope"
	// KindOwnership covers seal and open failures.
	KindOwnership Kind = "Ownership"
	// KindPrecondition covers calls made in a state that forbids them.
	KindPrecondition Kind = "Precondition"
	// KindStorage covers blob store failures.
	KindStorage Kind = "Storage"
	// KindCrypto covers signing, verification and key material failures.
	KindCrypto Kind = "Crypto"
	// KindIdentifier covers content address mismatches.
	KindIdentifier Kind = "Identifier"
	KindInternal   Kind = "Internal"
)

// Error is the library's structured error type.
//
// RuleID is a stable identifier (e.g. PURSE-PARSE-010, PURSE-SCOPE-001) that
// names the violated rule. Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// New returns a structured error without a cause.
func New(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

// Newf is New with a formatted message.
func Newf(kind Kind, ruleID, format string, args ...any) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns a structured error carrying cause. A nil cause behaves like New.
func Wrap(kind Kind, ruleID, msg string, cause error) error {
	if cause == nil {
		return New(kind, ruleID, msg)
	}
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf returns the Kind of the outermost structured error, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}

// RuleIDOf returns the stable RuleID for a structured error, or "" if unknown.
func RuleIDOf(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}
