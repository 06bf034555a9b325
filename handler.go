package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/ygyuri/MVPEVENT-i-sub006/broker"
	"github.com/ygyuri/MVPEVENT-i-sub006/model"
	"github.com/ygyuri/MVPEVENT-i-sub006/repository"
)

// MessageWriter is the slice of kafka.Writer the handler needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type OrderHandler struct {
	repo      repository.OrderRepository
	publisher broker.Publisher
	waiter    broker.Waiter

	// streamWaiter must not consult the latest-status cache: the stream loop
	// calls WaitFor repeatedly, and a cache hit would resolve every round
	// instantly with the same event for as long as the entry lives.
	streamWaiter broker.Waiter

	reader      broker.CacheReader
	kafkaWriter MessageWriter

	maxWait    time.Duration
	streamWait time.Duration
}

func NewOrderHandler(
	repo repository.OrderRepository,
	publisher broker.Publisher,
	waiter broker.Waiter,
	streamWaiter broker.Waiter,
	reader broker.CacheReader,
	kafkaWriter MessageWriter,
	maxWait, streamWait time.Duration,
) *OrderHandler {
	return &OrderHandler{
		repo:         repo,
		publisher:    publisher,
		waiter:       waiter,
		streamWaiter: streamWaiter,
		reader:       reader,
		kafkaWriter:  kafkaWriter,
		maxWait:      maxWait,
		streamWait:   streamWait,
	}
}

// SubmitOrder handles order submission and queues it for async processing
func (h *OrderHandler) SubmitOrder(c *gin.Context) {
	var req model.SubmitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_failed",
			Message: err.Error(),
		})
		return
	}

	userID, userEmail, userName, ok := userFromContext(c)
	if !ok {
		return
	}

	eventDate, err := time.Parse(time.RFC3339, req.EventDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_failed",
			Message: "event_date must be RFC3339",
		})
		return
	}

	// Create order record with processing status
	createReq := model.CreateOrderRequest{
		UserID:        userID,
		UserEmail:     userEmail,
		UserName:      userName,
		EventName:     req.EventName,
		Venue:         req.Venue,
		EventDate:     eventDate,
		Seats:         req.Seats,
		TotalAmount:   req.PaymentInfo.Amount,
		PaymentMethod: req.PaymentInfo.PaymentMethod,
	}

	order, err := h.repo.CreateOrder(createReq)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to create order",
		})
		return
	}

	// Send to Kafka for async processing
	kafkaMsg := model.OrderProcessingRequest{
		OrderID:     order.ID,
		UserID:      userID,
		UserEmail:   userEmail,
		UserName:    userName,
		EventName:   req.EventName,
		Venue:       req.Venue,
		EventDate:   eventDate,
		Seats:       req.Seats,
		PaymentInfo: req.PaymentInfo,
		Timestamp:   time.Now(),
	}

	msgBytes, _ := json.Marshal(kafkaMsg)
	if err := h.kafkaWriter.WriteMessages(c.Request.Context(),
		kafka.Message{
			Key:   []byte(order.ID),
			Value: msgBytes,
		}); err != nil {
		log.Printf("Failed to enqueue order %s for processing: %v", order.ID, err)
	}

	// Announce the initial status; misses here are tolerable since the
	// durable row already exists.
	h.publisher.Notify(c.Request.Context(), order.ID, model.StatusFields{
		"payment_status": model.PaymentStatusPending,
		"status":         model.OrderStatusProcessing,
		"message":        "Order submitted for processing",
	})

	response := model.SubmitOrderResponse{
		OrderID:       order.ID,
		Status:        model.OrderStatusProcessing,
		Message:       "Order is being processed",
		EstimatedTime: "2-3 minutes",
		StatusURL:     fmt.Sprintf("/api/orders/%s/status", order.ID),
		WaitURL:       fmt.Sprintf("/api/orders/%s/status/wait", order.ID),
		StreamURL:     fmt.Sprintf("/api/orders/%s/stream", order.ID),
	}

	c.JSON(http.StatusAccepted, response)
}

// GetOrderStatus returns the durable status of an order from the database
func (h *OrderHandler) GetOrderStatus(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	order, err := h.repo.GetOrderByID(orderID)
	if err != nil {
		if err.Error() == "order not found" {
			c.JSON(http.StatusNotFound, model.ErrorResponse{
				Error:   "not_found",
				Message: "Order not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to retrieve order",
		})
		return
	}

	c.JSON(http.StatusOK, order.ToOrderStatusResponse())
}

// WaitOrderStatus blocks until the next status change for the order is
// announced, or the timeout passes. A timeout is a distinct "still
// processing" response; a broker failure is a retryable server error.
func (h *OrderHandler) WaitOrderStatus(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	timeout := h.maxWait
	if raw := c.Query("timeout_ms"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms <= 0 {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{
				Error:   "validation_failed",
				Message: "timeout_ms must be a positive integer",
			})
			return
		}
		timeout = time.Duration(ms) * time.Millisecond
		if timeout > h.maxWait {
			timeout = h.maxWait
		}
	}

	event, err := h.waiter.WaitFor(c.Request.Context(), orderID, timeout)
	if err != nil {
		c.JSON(http.StatusBadGateway, model.ErrorResponse{
			Error:   "broker_unavailable",
			Message: "Failed to observe order status, retry shortly",
		})
		return
	}

	if event == nil {
		c.JSON(http.StatusAccepted, model.PendingResponse{
			OrderID: orderID,
			Status:  model.OrderStatusProcessing,
			Message: "No status update observed in time",
		})
		return
	}

	c.JSON(http.StatusOK, event)
}

// LatestOrderStatus returns the last cached status event for the order, if
// one was published within the cache TTL
func (h *OrderHandler) LatestOrderStatus(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	event, err := h.reader.GetLatest(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to read cached status",
		})
		return
	}

	if event == nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Error:   "not_found",
			Message: "No recent status for this order",
		})
		return
	}

	c.JSON(http.StatusOK, event)
}

// StreamOrderStatus provides Server-Sent Events for real-time order updates
func (h *OrderHandler) StreamOrderStatus(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	order, err := h.repo.GetOrderByID(orderID)
	if err != nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Error:   "not_found",
			Message: "Order not found",
		})
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")

	// Send the durable snapshot first
	snapshot, _ := json.Marshal(order.ToOrderStatusResponse())
	c.SSEvent("status", string(snapshot))
	c.Writer.Flush()

	if order.Status == model.OrderStatusConfirmed || order.Status == model.OrderStatusFailed {
		h.sendStreamComplete(c, orderID, order.Status)
		return
	}

	ctx := c.Request.Context()
	for {
		event, err := h.streamWaiter.WaitFor(ctx, orderID, h.streamWait)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.SSEvent("error", `{"error":"broker_unavailable"}`)
			c.Writer.Flush()
			return
		}

		if event == nil {
			// Quiet round; keep the connection warm.
			c.SSEvent("heartbeat", "{}")
			c.Writer.Flush()
			continue
		}

		eventData, _ := json.Marshal(event)
		c.SSEvent("status", string(eventData))
		c.Writer.Flush()

		if event.Terminal() {
			h.sendStreamComplete(c, orderID, event.Status)
			return
		}
	}
}

func (h *OrderHandler) sendStreamComplete(c *gin.Context, orderID, status string) {
	finalData, _ := json.Marshal(map[string]interface{}{
		"order_id":     orderID,
		"final_status": status,
	})
	c.SSEvent("complete", string(finalData))
	c.Writer.Flush()
}

// PaymentCallback handles the payment gateway webhook: it persists the
// transition, then announces it on the order's channel for any waiters.
func (h *OrderHandler) PaymentCallback(c *gin.Context) {
	var req model.PaymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_failed",
			Message: err.Error(),
		})
		return
	}

	order, err := h.repo.GetOrderByID(req.OrderID)
	if err != nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Error:   "not_found",
			Message: "Order not found",
		})
		return
	}

	status := req.Status
	if status == "" {
		switch req.PaymentStatus {
		case model.PaymentStatusPaid:
			status = model.OrderStatusConfirmed
		case model.PaymentStatusFailed:
			status = model.OrderStatusFailed
		default:
			status = model.OrderStatusProcessing
		}
	}

	updateReq := model.UpdateOrderStatusRequest{
		OrderID:       order.ID,
		Status:        status,
		PaymentStatus: req.PaymentStatus,
		PaymentRef:    req.PaymentRef,
	}

	now := time.Now()
	switch status {
	case model.OrderStatusConfirmed:
		updateReq.ConfirmedAt = &now
	case model.OrderStatusFailed:
		updateReq.FailedAt = &now
		if req.FailureReason != "" {
			updateReq.ErrorMessage = &req.FailureReason
		}
	}

	if err := h.repo.UpdateOrderStatus(updateReq); err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to update order",
		})
		return
	}

	fields := model.StatusFields{
		"payment_status": req.PaymentStatus,
		"status":         status,
	}
	if req.PaymentRef != "" {
		fields["payment_ref"] = req.PaymentRef
	}
	if req.FailureReason != "" {
		fields["failure_reason"] = req.FailureReason
	}
	for key, value := range req.Metadata {
		fields[key] = value
	}

	if !h.publisher.Notify(c.Request.Context(), order.ID, fields) {
		// Best effort: waiters fall back to polling the durable row.
		log.Printf("Status broadcast skipped for order %s: publisher not ready", order.ID)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// ListUserOrders returns all orders for the authenticated user
func (h *OrderHandler) ListUserOrders(c *gin.Context) {
	userID, _, _, ok := userFromContext(c)
	if !ok {
		return
	}

	filter := model.OrderFilter{
		UserID: userID,
		Status: c.Query("status"),
		Limit:  50,
		Offset: 0,
	}

	orders, total, err := h.repo.ListUserOrders(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to retrieve orders",
		})
		return
	}

	var summaries []model.UserOrderSummary
	for _, order := range orders {
		summaries = append(summaries, order.ToUserOrderSummary())
	}

	c.JSON(http.StatusOK, model.UserOrdersResponse{
		Orders: summaries,
		Total:  total,
	})
}

// HealthCheck handles health check endpoint
func (h *OrderHandler) HealthCheck(c *gin.Context) {
	sqlDB, err := h.repo.GetDB().DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{
			Error:   "service_unavailable",
			Message: "Database connection failed",
		})
		return
	}

	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{
			Error:   "service_unavailable",
			Message: "Database ping failed",
		})
		return
	}

	if !h.publisher.Ready() {
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{
			Error:   "service_unavailable",
			Message: "Status broker not ready",
		})
		return
	}

	c.JSON(http.StatusOK, model.HealthResponse{
		Status:    "healthy",
		Service:   "order-service",
		Timestamp: time.Now(),
	})
}

// userFromContext pulls the authenticated user out of the gin context
func userFromContext(c *gin.Context) (id, email, name string, ok bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{
			Error:   "unauthorized",
			Message: "User ID not found in token",
		})
		return "", "", "", false
	}

	id, _ = userID.(string)
	if id == "" {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "internal_error",
			Message: "Invalid user ID format",
		})
		return "", "", "", false
	}

	userEmail, _ := c.Get("user_email")
	email, _ = userEmail.(string)
	userName, _ := c.Get("user_name")
	name, _ = userName.(string)

	return id, email, name, true
}

// orderIDParam validates the orderId path parameter
func orderIDParam(c *gin.Context) (string, bool) {
	orderID := c.Param("orderId")
	if _, err := uuid.Parse(orderID); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid order ID format",
		})
		return "", false
	}
	return orderID, true
}
