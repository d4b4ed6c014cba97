package middleware_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"storefront/memstore"
	"storefront/middleware"
	"storefront/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idempotentServer(t *testing.T, status int) (httprouter.Handle, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	store := memstore.NewIdempotencyStore()
	h := middleware.Idempotency(store, time.Hour)(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		n := calls.Add(1)
		body, _ := io.ReadAll(r.Body)
		utils.RespondWithData(w, status, map[string]any{"call": n, "echo": string(body)}, "")
	})
	return h, &calls
}

func send(h httprouter.Handle, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(body))
	if key != "" {
		req.Header.Set(middleware.IdempotencyHeader, key)
	}
	rec := httptest.NewRecorder()
	h(rec, req, nil)
	return rec
}

func TestIdempotencyReplaysCompletedResponse(t *testing.T) {
	h, calls := idempotentServer(t, http.StatusCreated)

	first := send(h, "k1", `{"a":1}`)
	require.Equal(t, http.StatusCreated, first.Code)

	second := send(h, "k1", `{"a":1}`)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.EqualValues(t, 1, calls.Load())
}

func TestIdempotencyRejectsDifferentPayload(t *testing.T) {
	h, calls := idempotentServer(t, http.StatusCreated)

	send(h, "k1", `{"a":1}`)
	rec := send(h, "k1", `{"a":2}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.EqualValues(t, 1, calls.Load())
}

func TestIdempotencyWithoutKeyPassesThrough(t *testing.T) {
	h, calls := idempotentServer(t, http.StatusCreated)

	send(h, "", `{}`)
	send(h, "", `{}`)
	assert.EqualValues(t, 2, calls.Load())
}

func TestIdempotencyForgetsServerErrors(t *testing.T) {
	h, calls := idempotentServer(t, http.StatusInternalServerError)

	send(h, "k1", `{}`)
	send(h, "k1", `{}`)
	assert.EqualValues(t, 2, calls.Load())
}
