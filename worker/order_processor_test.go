package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ygyuri/MVPEVENT-i-sub006/model"
	"github.com/ygyuri/MVPEVENT-i-sub006/service"
)

// ---- stubs ----

type stubRepo struct {
	updates []model.UpdateOrderStatusRequest
}

func (r *stubRepo) CreateOrder(model.CreateOrderRequest) (*model.Order, error) {
	return nil, nil
}
func (r *stubRepo) GetOrderByID(string) (*model.Order, error) {
	return nil, fmt.Errorf("order not found")
}
func (r *stubRepo) GetOrderByPaymentRef(string) (*model.Order, error) {
	return nil, fmt.Errorf("order not found")
}
func (r *stubRepo) UpdateOrderStatus(req model.UpdateOrderStatusRequest) error {
	r.updates = append(r.updates, req)
	return nil
}
func (r *stubRepo) ListUserOrders(model.OrderFilter) ([]model.Order, int, error) {
	return nil, 0, nil
}
func (r *stubRepo) GetDB() *gorm.DB { return nil }

type stubPublisher struct {
	fields map[string]model.StatusFields
}

func (p *stubPublisher) Notify(_ context.Context, orderID string, fields model.StatusFields) bool {
	if p.fields == nil {
		p.fields = make(map[string]model.StatusFields)
	}
	p.fields[orderID] = fields
	return true
}
func (p *stubPublisher) Ready() bool  { return true }
func (p *stubPublisher) Close() error { return nil }

type stubGateway struct {
	result *service.ChargeResult
	err    error
}

func (g *stubGateway) Charge(req service.ChargeRequest) (*service.ChargeResult, error) {
	if g.err != nil {
		return nil, g.err
	}
	result := *g.result
	result.OrderID = req.OrderID
	return &result, nil
}

func (g *stubGateway) GetCharge(string) (*service.ChargeResult, error) {
	return g.result, g.err
}

type stubWriter struct {
	messages []kafka.Message
}

func (w *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.messages = append(w.messages, msgs...)
	return nil
}

func orderMessage(t *testing.T, orderID string) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(model.OrderProcessingRequest{
		OrderID:     orderID,
		UserID:      "user-1",
		UserEmail:   "user@example.com",
		UserName:    "Test User",
		EventName:   "Show",
		Venue:       "Hall",
		EventDate:   time.Now().Add(24 * time.Hour),
		Seats:       []string{"A1"},
		PaymentInfo: model.PaymentInfo{PaymentMethod: "card", Amount: 50},
		Timestamp:   time.Now(),
	})
	require.NoError(t, err)
	return kafka.Message{Key: []byte(orderID), Value: raw}
}

// ---- tests ----

func TestValidatePaymentInfo(t *testing.T) {
	assert.NoError(t, ValidatePaymentInfo(model.PaymentInfo{PaymentMethod: "card", Amount: 10}))
	assert.Error(t, ValidatePaymentInfo(model.PaymentInfo{PaymentMethod: "card", Amount: 0}))
	assert.Error(t, ValidatePaymentInfo(model.PaymentInfo{PaymentMethod: "card", Amount: -5}))
	assert.Error(t, ValidatePaymentInfo(model.PaymentInfo{Amount: 10}))
}

func TestProcessOrderConfirmed(t *testing.T) {
	repo := &stubRepo{}
	publisher := &stubPublisher{}
	writer := &stubWriter{}
	gateway := &stubGateway{result: &service.ChargeResult{
		PaymentRef:    "ref-1",
		PaymentStatus: model.PaymentStatusPaid,
	}}

	p := NewOrderProcessor(repo, publisher, gateway, writer, nil, 1)

	orderID := uuid.NewString()
	require.NoError(t, p.processOrder(orderMessage(t, orderID)))

	require.Len(t, repo.updates, 1)
	assert.Equal(t, model.OrderStatusConfirmed, repo.updates[0].Status)
	assert.Equal(t, model.PaymentStatusPaid, repo.updates[0].PaymentStatus)
	assert.Equal(t, "ref-1", repo.updates[0].PaymentRef)
	assert.NotNil(t, repo.updates[0].ConfirmedAt)

	fields := publisher.fields[orderID]
	require.NotNil(t, fields, "confirmation must be announced to waiters")
	assert.Equal(t, model.OrderStatusConfirmed, fields["status"])

	require.Len(t, writer.messages, 1)
	var notification model.NotificationRequest
	require.NoError(t, json.Unmarshal(writer.messages[0].Value, &notification))
	assert.Equal(t, "order_confirmed", notification.Type)
}

func TestProcessOrderGatewayFailure(t *testing.T) {
	repo := &stubRepo{}
	publisher := &stubPublisher{}
	writer := &stubWriter{}
	gateway := &stubGateway{err: errors.New("gateway unreachable")}

	p := NewOrderProcessor(repo, publisher, gateway, writer, nil, 1)

	orderID := uuid.NewString()
	require.Error(t, p.processOrder(orderMessage(t, orderID)))

	require.Len(t, repo.updates, 1)
	assert.Equal(t, model.OrderStatusFailed, repo.updates[0].Status)
	assert.NotNil(t, repo.updates[0].FailedAt)
	require.NotNil(t, repo.updates[0].ErrorMessage)

	fields := publisher.fields[orderID]
	require.NotNil(t, fields)
	assert.Equal(t, model.PaymentStatusFailed, fields["payment_status"])

	require.Len(t, writer.messages, 1)
	var notification model.NotificationRequest
	require.NoError(t, json.Unmarshal(writer.messages[0].Value, &notification))
	assert.Equal(t, "order_failed", notification.Type)
}

func TestProcessOrderDeclined(t *testing.T) {
	repo := &stubRepo{}
	publisher := &stubPublisher{}
	writer := &stubWriter{}
	gateway := &stubGateway{result: &service.ChargeResult{
		PaymentRef:    "ref-2",
		PaymentStatus: model.PaymentStatusFailed,
		FailureReason: "card declined",
	}}

	p := NewOrderProcessor(repo, publisher, gateway, writer, nil, 1)

	require.Error(t, p.processOrder(orderMessage(t, uuid.NewString())))
	require.Len(t, repo.updates, 1)
	assert.Equal(t, model.OrderStatusFailed, repo.updates[0].Status)
	require.NotNil(t, repo.updates[0].ErrorMessage)
	assert.Equal(t, "card declined", *repo.updates[0].ErrorMessage)
}

func TestProcessOrderPendingStopsEarly(t *testing.T) {
	repo := &stubRepo{}
	publisher := &stubPublisher{}
	writer := &stubWriter{}
	gateway := &stubGateway{result: &service.ChargeResult{
		PaymentRef:    "ref-3",
		PaymentStatus: model.PaymentStatusPending,
	}}

	p := NewOrderProcessor(repo, publisher, gateway, writer, nil, 1)

	require.NoError(t, p.processOrder(orderMessage(t, uuid.NewString())))
	require.Len(t, repo.updates, 1)
	assert.Equal(t, model.OrderStatusProcessing, repo.updates[0].Status)
	assert.Equal(t, "ref-3", repo.updates[0].PaymentRef)
	assert.Empty(t, writer.messages, "no notification until the gateway confirms")
}

func TestProcessOrderBadMessage(t *testing.T) {
	p := NewOrderProcessor(&stubRepo{}, &stubPublisher{}, &stubGateway{}, &stubWriter{}, nil, 1)
	err := p.processOrder(kafka.Message{Value: []byte("not json")})
	require.Error(t, err)
}

func TestProcessOrderInvalidPayment(t *testing.T) {
	repo := &stubRepo{}
	p := NewOrderProcessor(repo, &stubPublisher{}, &stubGateway{}, &stubWriter{}, nil, 1)

	raw, err := json.Marshal(model.OrderProcessingRequest{
		OrderID:     uuid.NewString(),
		PaymentInfo: model.PaymentInfo{PaymentMethod: "", Amount: 0},
	})
	require.NoError(t, err)

	require.Error(t, p.processOrder(kafka.Message{Value: raw}))
	require.Len(t, repo.updates, 1)
	assert.Equal(t, model.OrderStatusFailed, repo.updates[0].Status)
}
