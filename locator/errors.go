package locator

import "errors"

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind/RuleID rather than matching error strings.
// Use errors.As to extract *Error for structured handling.
type Kind string

const (
	KindLimit  Kind = "Limit"
	KindEncode Kind = "Encode"
	KindDecode Kind = "Decode"
	KindCrypto Kind = "Crypto"
)

// Error is the package's structured error type.
//
// RuleID is a stable identifier (e.g. LOC-DEC-001) naming the violated
// constraint. Message is intended for humans; do not match on it.
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

const (
	ruleTooManyEndpoints = "LOC-LIMIT-001"
	ruleEncode           = "LOC-ENC-001"
	ruleDecodeCount      = "LOC-DEC-001"
	ruleDecodeField      = "LOC-DEC-002"
	ruleDecodeReserved   = "LOC-DEC-003"
	ruleDecodeTrailing   = "LOC-DEC-004"
	ruleSign             = "LOC-SIG-001"
)

func newError(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

func wrapError(kind Kind, ruleID, msg string, cause error) error {
	if cause == nil {
		return newError(kind, ruleID, msg)
	}
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) an *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}
