package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStatusEventPromotesReservedFields(t *testing.T) {
	event := NewStatusEvent("order-1", StatusFields{
		"payment_status": PaymentStatusPaid,
		"status":         OrderStatusConfirmed,
		"payment_ref":    "ref-42",
		"gateway":        "mpesa",
	})

	assert.Equal(t, "order-1", event.OrderID)
	assert.Equal(t, PaymentStatusPaid, event.PaymentStatus)
	assert.Equal(t, OrderStatusConfirmed, event.Status)
	assert.False(t, event.Timestamp.IsZero())

	// Reserved keys are promoted, not duplicated into extras.
	assert.NotContains(t, event.Extra, "payment_status")
	assert.NotContains(t, event.Extra, "status")
	assert.Equal(t, "ref-42", event.Extra["payment_ref"])
	assert.Equal(t, "mpesa", event.Extra["gateway"])
}

func TestNewStatusEventIgnoresCallerSuppliedIdentity(t *testing.T) {
	event := NewStatusEvent("order-1", StatusFields{
		"order_id":  "spoofed",
		"timestamp": "1970-01-01T00:00:00Z",
	})

	assert.Equal(t, "order-1", event.OrderID)
	assert.Nil(t, event.Extra)
	assert.WithinDuration(t, time.Now(), event.Timestamp, time.Minute)
}

func TestStatusEventRoundTrip(t *testing.T) {
	original := NewStatusEvent("order-1", StatusFields{
		"payment_status": PaymentStatusFailed,
		"status":         OrderStatusFailed,
		"failure_reason": "card declined",
		"attempts":       float64(3),
	})

	payload, err := original.Encode()
	require.NoError(t, err)

	decoded, err := DecodeStatusEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, original.OrderID, decoded.OrderID)
	assert.Equal(t, original.PaymentStatus, decoded.PaymentStatus)
	assert.Equal(t, original.Status, decoded.Status)
	assert.True(t, original.Timestamp.Equal(decoded.Timestamp))
	assert.Equal(t, "card declined", decoded.Extra["failure_reason"])
	assert.Equal(t, float64(3), decoded.Extra["attempts"])
}

func TestStatusEventWireFormatIsFlat(t *testing.T) {
	event := NewStatusEvent("order-1", StatusFields{
		"payment_status": PaymentStatusPaid,
		"payment_ref":    "ref-42",
	})

	payload, err := event.Encode()
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &doc))
	assert.Equal(t, "order-1", doc["order_id"])
	assert.Equal(t, PaymentStatusPaid, doc["payment_status"])
	assert.Equal(t, "ref-42", doc["payment_ref"], "extras encode beside reserved keys")
}

func TestDecodeStatusEventErrors(t *testing.T) {
	_, err := DecodeStatusEvent([]byte("not json at all"))
	require.Error(t, err)

	_, err = DecodeStatusEvent([]byte(`{"order_id":"x","timestamp":"not-a-time"}`))
	require.Error(t, err)
}

func TestStatusEventTerminal(t *testing.T) {
	assert.True(t, (&StatusEvent{Status: OrderStatusConfirmed}).Terminal())
	assert.True(t, (&StatusEvent{Status: OrderStatusFailed}).Terminal())
	assert.False(t, (&StatusEvent{Status: OrderStatusProcessing}).Terminal())
}
