package common

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOfWrapped(t *testing.T) {
	base := NewError(IntegrityMismatch, "verify", "/tmp/a", errors.New("boom"))
	wrapped := fmt.Errorf("install: %w", base)

	assert.Equal(t, IntegrityMismatch, KindOf(wrapped))
	assert.True(t, errors.Is(wrapped, ErrIntegrityMismatch))
	assert.False(t, errors.Is(wrapped, ErrNetwork))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestFromIO(t *testing.T) {
	_, err := os.Stat("/definitely/not/here")
	require.Error(t, err)

	e := FromIO("stat", "/definitely/not/here", err)
	assert.Equal(t, NotFound, KindOf(e))
	assert.True(t, errors.Is(e, os.ErrNotExist))

	assert.Equal(t, IoError, KindOf(FromIO("write", "x", errors.New("disk full"))))
	assert.Nil(t, FromIO("noop", "x", nil))

	// Already typed errors pass through untouched.
	typed := NewError(InvalidEntry, "extract", "../x", nil)
	assert.Same(t, typed, FromIO("extract", "x", typed))
}

func TestErrorMessage(t *testing.T) {
	e := NewError(NetworkError, "fetch", "http://example.com/a", errors.New("bad status: 500"))
	assert.Equal(t, "fetch: network error http://example.com/a: bad status: 500", e.Error())
}

func TestRetryable(t *testing.T) {
	assert.True(t, NetworkError.Retryable())
	assert.True(t, IntegrityMismatch.Retryable())
	assert.False(t, UnsupportedFormat.Retryable())
	assert.False(t, InvalidEntry.Retryable())
}
