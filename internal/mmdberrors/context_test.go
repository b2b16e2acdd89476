package mmdberrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapWithContextNilError(t *testing.T) {
	assert.NoError(t, WrapWithContext(nil, 5, NewPathBuilder()))
}

func TestWrapWithContextNilTracker(t *testing.T) {
	err := WrapWithContext(errors.New("boom"), 5, nil)
	require := assert.New(t)
	require.Error(err)
	require.Contains(err.Error(), "at offset 5")
	require.Contains(err.Error(), "boom")
}

func TestPathBuilderPrependOrder(t *testing.T) {
	p := NewPathBuilder()
	p.PrependSlice(2)
	p.PrependMap("city")
	assert.Equal(t, "/city/2", p.Build())
}

func TestWrapWithContextIncludesPath(t *testing.T) {
	p := NewPathBuilder()
	p.PrependMap("country")
	err := WrapWithContext(errors.New("bad data"), 10, p)

	var ctxErr ContextualError
	assert.True(t, errors.As(err, &ctxErr))
	assert.Equal(t, "/country", ctxErr.Path)
	assert.ErrorIs(t, err, ctxErr.Err)
}

func TestInvalidDatabaseErrorFormatting(t *testing.T) {
	err := NewInvalidDatabaseError("bad value: %d", 42)
	assert.Equal(t, "bad value: 42", err.Error())
}

func TestNewOffsetError(t *testing.T) {
	assert.EqualError(t, NewOffsetError(), "unexpected end of database")
}
