// Package mmdberrors defines the error types returned while reading an
// MMDB file.
package mmdberrors

import "fmt"

// InvalidDatabaseError is returned when the database contains invalid data
// and cannot be parsed. It covers both malformed-metadata and
// malformed-data cases; callers distinguish the two by when the error
// surfaced (Open/FromBytes vs. a lookup).
type InvalidDatabaseError struct {
	message string
}

// NewOffsetError reports a read past the end of the buffer.
func NewOffsetError() InvalidDatabaseError {
	return InvalidDatabaseError{"unexpected end of database"}
}

// NewInvalidDatabaseError builds an InvalidDatabaseError from a format string.
func NewInvalidDatabaseError(format string, args ...any) InvalidDatabaseError {
	return InvalidDatabaseError{fmt.Sprintf(format, args...)}
}

func (e InvalidDatabaseError) Error() string {
	return e.message
}
