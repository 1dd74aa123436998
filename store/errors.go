package store

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyNotFound indicates the requested key does not exist.
	ErrKeyNotFound = errors.New("store: key not found")

	// ErrDuplicateID indicates a message id already present in the store.
	ErrDuplicateID = errors.New("store: duplicate message id")

	// ErrMissingToolCallID indicates a tool message without a tool call reference.
	ErrMissingToolCallID = errors.New("store: tool message missing toolCallId")
)

// SerializationError wraps JSON marshaling/unmarshaling errors with context.
type SerializationError struct {
	Key string
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("store: serialization error for key %q: %v", e.Key, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// PatchError wraps a JSON Patch that could not be decoded or applied.
type PatchError struct {
	Err error
}

func (e *PatchError) Error() string {
	return fmt.Sprintf("store: json patch: %v", e.Err)
}

func (e *PatchError) Unwrap() error {
	return e.Err
}
