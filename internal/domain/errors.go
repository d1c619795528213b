package domain

import "errors"

var (
	ErrObjectNotFound    = errors.New("object not found")
	ErrUnknownClass      = errors.New("unknown class")
	ErrUnknownAttribute  = errors.New("unknown attribute")
	ErrInvalidObject     = errors.New("invalid object")
	ErrMalformedChangeOp = errors.New("malformed change op")
	ErrNotMergeable      = errors.New("entries cannot be merged")
)
