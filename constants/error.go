package constants

import "errors"

var (
	// ErrRecordNotFound record not found error
	ErrRecordNotFound = errors.New("record not found")
	// ErrEmptyRange a side of the requested range has no trade
	ErrEmptyRange = errors.New("empty trade range")
	// ErrRegistryFrozen strategy registered after the registry was built
	ErrRegistryFrozen = errors.New("strategy registry frozen")
	// ErrMalformedFrame unexpected stream payload
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrUnknownStore unsupported store type
	ErrUnknownStore = errors.New("unknown store type")
)
