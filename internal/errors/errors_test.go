package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchivistError_Error(t *testing.T) {
	e := New(CategoryParse, SeverityWarning, "unterminated bold marker")
	assert.Equal(t, "parse (warning): unterminated bold marker", e.Error())

	wrapped := Wrap(fmt.Errorf("boom"), CategoryRemote, SeverityError, "batch update failed")
	assert.Equal(t, "remote (error): batch update failed: boom", wrapped.Error())
}

func TestArchivistError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying")
	e := Wrap(cause, CategoryStorage, SeverityError, "save version")
	require.ErrorIs(t, e, cause)
	assert.Same(t, cause, errors.Unwrap(e))
}

func TestArchivistError_WithContext(t *testing.T) {
	e := New(CategoryOffsets, SeverityWarning, "negative range").
		WithContext("doc_id", "abc123").
		WithContext("line", 4)

	assert.Equal(t, "abc123", e.Context["doc_id"])
	assert.Equal(t, 4, e.Context["line"])
}

func TestClassificationHelpers(t *testing.T) {
	e := RemoteError(fmt.Errorf("http 500"), "submit batch")
	assert.True(t, IsCategory(e, CategoryRemote))
	assert.False(t, IsCategory(e, CategoryParse))
	assert.True(t, IsRetryable(e))
	assert.Equal(t, CategoryRemote, GetCategory(e))

	plain := fmt.Errorf("plain error")
	assert.False(t, IsRetryable(plain))
	assert.Equal(t, CategoryInternal, GetCategory(plain))
}

func TestValidationError(t *testing.T) {
	e := ValidationError("empty markup")
	assert.Equal(t, CategoryValidation, e.Category)
	assert.Equal(t, SeverityWarning, e.Severity)
	assert.False(t, e.Retryable)
}
