package model

import (
	"fmt"

	"xdao.co/locator/locator"
)

type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrInvalidLocator ErrorCode = "INVALID_LOCATOR"
	ErrLimit          ErrorCode = "LIMIT_EXCEEDED"
	ErrSignature      ErrorCode = "SIGNATURE"
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrInternal       ErrorCode = "INTERNAL"
)

// CodedError is a stable error with a machine-readable code and a human message.
type CodedError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	RuleID  string    `json:"ruleID,omitempty"`
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code ErrorCode, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}

// FromError maps a locator error onto a CodedError, carrying its rule ID.
// Errors outside the locator package map to ErrInternal.
func FromError(err error) *CodedError {
	if err == nil {
		return nil
	}
	code := ErrInternal
	switch {
	case locator.IsKind(err, locator.KindDecode):
		code = ErrInvalidLocator
	case locator.IsKind(err, locator.KindLimit), locator.IsKind(err, locator.KindEncode):
		code = ErrLimit
	case locator.IsKind(err, locator.KindCrypto):
		code = ErrSignature
	}
	return &CodedError{Code: code, Message: err.Error(), RuleID: locator.RuleID(err)}
}
