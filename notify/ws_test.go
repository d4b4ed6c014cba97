package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront/errs"
	"storefront/models"
	"storefront/mq"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup map[string]*models.PaymentView

func (f fakeLookup) Get(_ context.Context, _ models.Principal, id string) (*models.PaymentView, error) {
	v, ok := f[id]
	if !ok {
		return nil, errs.Forbidden("you do not have access to this payment")
	}
	return v, nil
}

func TestPaymentSocketStreamsStatus(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	id := uuid.NewString()
	lookup := fakeLookup{id: {Payment: models.Payment{ID: id, OrderID: "o1", Status: models.PaymentProcessing}}}

	router := httprouter.New()
	router.GET("/api/payments/:paymentId/ws", PaymentSocket(hub, lookup))
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/payments/" + id + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first mq.Event
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, models.PaymentProcessing, first.Status)

	require.Eventually(t, func() bool { return hub.Watchers(id) == 1 }, time.Second, 5*time.Millisecond)
	hub.Emit(context.Background(), mq.Event{Type: mq.EventPaymentStatus, PaymentID: id, Status: models.PaymentCompleted})

	var next mq.Event
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, models.PaymentCompleted, next.Status)
}

func TestPaymentSocketRejectsBeforeUpgrade(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	router := httprouter.New()
	router.GET("/api/payments/:paymentId/ws", PaymentSocket(hub, fakeLookup{}))
	srv := httptest.NewServer(router)
	defer srv.Close()

	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/payments/"

	_, resp, err := websocket.DefaultDialer.Dial(base+uuid.NewString()+"/ws", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base+"not-a-uuid/ws", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
