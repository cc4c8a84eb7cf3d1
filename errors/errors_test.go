package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	original := New("original")
	wrapped := Wrap(original, "wrapped")

	assert.Contains(t, wrapped.Error(), "wrapped")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestWithHint(t *testing.T) {
	err := WithHintf(New("error"), "key %q", "k1")

	hints := GetAllHints(err)
	require.Len(t, hints, 1)
	assert.Equal(t, `key "k1"`, hints[0])
}

func TestStackTrace(t *testing.T) {
	err := New("with stack")

	detailed := fmt.Sprintf("%+v", err)
	assert.Contains(t, detailed, "errors_test.go")
}

func TestNilHandling(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, Wrapf(nil, "context %d", 1))
	assert.Nil(t, WithHint(nil, "hint"))
}

func TestSentinels(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		err := NewNotFoundError("collection %s", "users")
		assert.True(t, IsNotFoundError(err))
		assert.False(t, IsInvalidRequestError(err))
		assert.Contains(t, err.Error(), "collection users")
	})

	t.Run("invalid request", func(t *testing.T) {
		err := Wrap(NewInvalidRequestError("batch size %d", -1), "configure")
		assert.True(t, IsInvalidRequestError(err))
	})

	t.Run("conflict", func(t *testing.T) {
		assert.True(t, IsConflictError(Wrap(ErrConflict, "rev mismatch")))
		assert.False(t, IsConflictError(nil))
	})
}

func TestAssertionFailure(t *testing.T) {
	err := AssertionFailedf("cursor %d exhausted", 2)
	assert.True(t, IsAssertionFailure(err))
	assert.False(t, IsAssertionFailure(New("plain")))
}

func ExampleWrap() {
	baseErr := New("connection failed")
	err := Wrap(baseErr, "failed to open collection")
	fmt.Println(err)
	// Output: failed to open collection: connection failed
}
