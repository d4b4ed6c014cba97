package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validation("bad %s", "input")))
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("order: %w", ErrNoDocument)))
	assert.Equal(t, KindConflict, KindOf(fmt.Errorf("reserve: %w", ErrInsufficientStock)))
	assert.Equal(t, KindInternal, KindOf(errors.New("connection reset")))

	wrapped := fmt.Errorf("checkout: %w", Forbidden("not yours"))
	assert.Equal(t, KindForbidden, KindOf(wrapped))
	assert.Equal(t, http.StatusForbidden, KindOf(wrapped).HTTPStatus())
}

func TestMessageHidesInternalDetail(t *testing.T) {
	assert.Equal(t, "internal error", Message(errors.New("mongo: server selection timeout")))
	assert.Equal(t, "cart is empty", Message(Validation("cart is empty")))

	e := Conflict("insufficient stock for %s", "Widget").Wrap(ErrInsufficientStock)
	assert.ErrorIs(t, e, ErrInsufficientStock)
	assert.Equal(t, "insufficient stock for Widget", Message(e))
}
