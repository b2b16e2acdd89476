package mmdberrors

import (
	"fmt"
	"strconv"
	"strings"
)

// ContextualError wraps a decode error with the byte offset, and optionally
// the dotted path, active when the error occurred.
type ContextualError struct {
	Err    error
	Path   string
	Offset uint
}

func (e ContextualError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("at offset %d, path %s: %v", e.Offset, e.Path, e.Err)
	}
	return fmt.Sprintf("at offset %d: %v", e.Offset, e.Err)
}

func (e ContextualError) Unwrap() error {
	return e.Err
}

// WrapWithContext wraps err with the offset and, if tracker is non-nil, a
// path built from it. Returns nil if err is nil so callers can call this
// unconditionally on the happy path without allocating.
func WrapWithContext(err error, offset uint, tracker *PathBuilder) error {
	if err == nil {
		return nil
	}

	ctxErr := ContextualError{Offset: offset, Err: err}
	if tracker != nil {
		ctxErr.Path = tracker.Build()
	}
	return ctxErr
}

// PathBuilder accumulates path segments (map keys, slice indices) while
// unwinding from a decode error so the error can report where it happened.
type PathBuilder struct {
	segments []string
}

// NewPathBuilder creates an empty PathBuilder.
func NewPathBuilder() *PathBuilder {
	return &PathBuilder{segments: make([]string, 0, 8)}
}

// PrependMap adds a map key to the front of the path.
func (p *PathBuilder) PrependMap(key string) {
	p.segments = append([]string{key}, p.segments...)
}

// PrependSlice adds a slice index to the front of the path.
func (p *PathBuilder) PrependSlice(index int) {
	p.segments = append([]string{strconv.Itoa(index)}, p.segments...)
}

// Build renders the accumulated path as a JSON-pointer-like string.
func (p *PathBuilder) Build() string {
	if len(p.segments) == 0 {
		return ""
	}
	return "/" + strings.Join(p.segments, "/")
}
