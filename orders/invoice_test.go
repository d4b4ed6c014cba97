package orders_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"storefront/models"
	"storefront/orders"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleView() *models.OrderView {
	return &models.OrderView{
		ID:              "0b6f3c1e-1d8e-4c55-9f57-4d1f2a7d6a10",
		UserID:          "alice",
		Total:           25,
		ShippingAddress: "1 Ring Road, Accra",
		Status:          models.OrderPending,
		CreatedAt:       time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		Items: []models.OrderLineView{
			{OrderItem: models.OrderItem{ProductID: "a", Name: "Widget", Quantity: 2, Price: 10}},
			{OrderItem: models.OrderItem{ProductID: "b", Name: "Gadget", Quantity: 1, Price: 5}},
		},
	}
}

func TestRenderProducesPDF(t *testing.T) {
	pdf, err := orders.NewInvoicer([]byte("k")).Render(sampleView())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestQRPayloadVerifies(t *testing.T) {
	inv := orders.NewInvoicer([]byte("k"))
	payload := inv.QRPayload(sampleView())
	assert.True(t, strings.HasPrefix(payload, "0b6f3c1e-1d8e-4c55-9f57-4d1f2a7d6a10|25.00|"))

	id, ok := inv.VerifyPayload(payload)
	assert.True(t, ok)
	assert.Equal(t, "0b6f3c1e-1d8e-4c55-9f57-4d1f2a7d6a10", id)

	_, ok = inv.VerifyPayload(strings.Replace(payload, "25.00", "2.50", 1))
	assert.False(t, ok, "tampered total")

	_, ok = orders.NewInvoicer([]byte("other")).VerifyPayload(payload)
	assert.False(t, ok, "foreign key")
}
