package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestInstrumentCountsByStatus(t *testing.T) {
	m := New(prometheus.NewRegistry())
	h := m.Instrument("cart")(func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusConflict)
	})

	h(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/cart", nil), nil)
	h(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/cart", nil), nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `storefront_http_requests_total{handler="cart",status="409"} 2`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.CheckoutResult("ok")
	m.PaymentOutcome("completed")

	called := false
	h := m.Instrument("x")(func(http.ResponseWriter, *http.Request, httprouter.Params) { called = true })
	h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.True(t, called)
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.PaymentOutcome("completed")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `storefront_payment_outcomes_total{status="completed"} 1`)
}
