package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindMatching(t *testing.T) {
	err := NotFound("sellProduct", "product %s not found", "p1")

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "sellProduct", OpOf(err, "x"))
	assert.Equal(t, "product p1 not found", MessageOf(err))
	assert.Equal(t, "sellProduct: product p1 not found", err.Error())
}

func TestWrappedErrorsKeepKind(t *testing.T) {
	err := fmt.Errorf("outer: %w", InsufficientStock("transferStock", "only 3 available"))

	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.Equal(t, KindInsufficientStock, KindOf(err))
	assert.Equal(t, "transferStock", OpOf(err, "fallback"))
}

func TestPersistence(t *testing.T) {
	cause := errors.New("connection refused")
	err := Persistence("receiveStock", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "internal error", MessageOf(err))

	classified := Validation("receiveStock", "quantity must be positive")
	assert.Same(t, classified, Persistence("other", classified))
	assert.Nil(t, Persistence("noop", nil))
}

func TestUnclassified(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "fallback", OpOf(err, "fallback"))
	assert.Equal(t, "internal error", MessageOf(err))
}
