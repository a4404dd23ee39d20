package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataFor(t *testing.T) {
	meta := MetadataFor(CodeValidation)
	assert.Equal(t, http.StatusBadRequest, meta.HTTPStatus)
	assert.True(t, meta.DetailsAllowed)

	meta = MetadataFor(CodeRateLimit)
	assert.Equal(t, http.StatusTooManyRequests, meta.HTTPStatus)

	meta = MetadataFor(Code("SOMETHING_UNKNOWN"))
	assert.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)
	assert.True(t, meta.Retryable)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("connection reset")
	err := Wrap(CodeDependency, cause, "payment gateway call failed")

	require.NotNil(t, err)
	assert.Equal(t, CodeDependency, err.Code())
	assert.Equal(t, "payment gateway call failed", err.Message())
	assert.ErrorIs(t, err, cause)
}

func TestWrapNilCause(t *testing.T) {
	err := Wrap(CodeNotFound, nil, "order not found")
	require.NotNil(t, err)
	assert.Equal(t, CodeNotFound, err.Code())
	assert.Nil(t, err.Unwrap())
}

func TestAs(t *testing.T) {
	inner := New(CodeStateConflict, "order already delivered")
	wrapped := fmt.Errorf("cancel order: %w", inner)

	typed := As(wrapped)
	require.NotNil(t, typed)
	assert.Equal(t, CodeStateConflict, typed.Code())

	assert.Nil(t, As(stdErrors.New("plain")))
	assert.Nil(t, As(nil))
}

func TestWithDetails(t *testing.T) {
	err := New(CodeValidation, "invalid payload").
		WithDetails(map[string]string{"quantity": "must be positive"})

	details, ok := err.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be positive", details["quantity"])
}

func TestErrorString(t *testing.T) {
	err := New(CodeConflict, "duplicate listing")
	assert.Equal(t, "CONFLICT: duplicate listing", err.Error())
}
