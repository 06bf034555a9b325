package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ygyuri/MVPEVENT-i-sub006/service"
)

func TestCharge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/charges", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Service-Auth"))

		var req service.ChargeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(service.ChargeResult{
			PaymentRef:    "ref-1",
			OrderID:       req.OrderID,
			PaymentStatus: "paid",
			Amount:        req.Amount,
		})
	}))
	defer srv.Close()

	gateway := NewHTTPPaymentGateway(srv.URL, "test-key")
	result, err := gateway.Charge(service.ChargeRequest{
		OrderID:       "order-1",
		Amount:        42,
		PaymentMethod: "card",
		CustomerEmail: "user@example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, "ref-1", result.PaymentRef)
	assert.Equal(t, "order-1", result.OrderID)
	assert.Equal(t, float64(42), result.Amount)
}

func TestChargeGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	gateway := NewHTTPPaymentGateway(srv.URL, "test-key")
	_, err := gateway.Charge(service.ChargeRequest{OrderID: "order-1", Amount: 42})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestGetChargeNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	gateway := NewHTTPPaymentGateway(srv.URL, "test-key")
	_, err := gateway.GetCharge("missing-ref")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "charge not found")
}
