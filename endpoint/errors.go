package endpoint

import "errors"

var (
	ErrUnknownType   = errors.New("endpoint: unknown type")
	ErrInvalidFamily = errors.New("endpoint: invalid address family")
	ErrURLTooLong    = errors.New("endpoint: url too long")
	ErrSyntax        = errors.New("endpoint: invalid syntax")
)
