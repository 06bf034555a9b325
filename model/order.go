package model

import (
	"time"

	"github.com/lib/pq"
)

// ============================================================================
// DATABASE ENTITIES (Internal - GORM only, no JSON tags)
// ============================================================================

// Order represents the database model for ticket orders
type Order struct {
	ID            string         `gorm:"primary_key"`
	UserID        string         `gorm:"not null;index"`
	UserEmail     string         `gorm:"type:varchar(255);not null"`
	UserName      string         `gorm:"type:varchar(255);not null"`
	EventName     string         `gorm:"type:varchar(255);not null"`
	Venue         string         `gorm:"type:varchar(255);not null"`
	EventDate     time.Time      `gorm:"not null"`
	Seats         pq.StringArray `gorm:"type:text[];not null"`
	TotalAmount   float64        `gorm:"type:decimal(10,2);not null"`
	Status        string         `gorm:"type:varchar(20);not null;default:'processing'"`
	PaymentStatus string         `gorm:"type:varchar(20);not null;default:'pending'"`
	PaymentRef    string         `gorm:"type:varchar(64);index"`
	ErrorMessage  *string        `gorm:"type:text"`
	CreatedAt     time.Time      `gorm:"default:CURRENT_TIMESTAMP"`
	ConfirmedAt   *time.Time
	FailedAt      *time.Time
}

// TableName sets the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// ============================================================================
// REPOSITORY DATA TRANSFER OBJECTS (Internal - no JSON tags)
// ============================================================================

// CreateOrderRequest represents the data needed to create an order
type CreateOrderRequest struct {
	UserID        string
	UserEmail     string
	UserName      string
	EventName     string
	Venue         string
	EventDate     time.Time
	Seats         []string
	TotalAmount   float64
	PaymentMethod string
}

// UpdateOrderStatusRequest represents an order status update
type UpdateOrderStatusRequest struct {
	OrderID       string
	Status        string
	PaymentStatus string
	PaymentRef    string
	ErrorMessage  *string
	ConfirmedAt   *time.Time
	FailedAt      *time.Time
}

// OrderFilter represents filtering options for order queries
type OrderFilter struct {
	UserID string
	Status string
	Limit  int
	Offset int
}

// ============================================================================
// API DATA TRANSFER OBJECTS (External - JSON tags for HTTP)
// ============================================================================

// SubmitOrderRequest represents the API request to submit an order
type SubmitOrderRequest struct {
	EventName   string      `json:"event_name" binding:"required"`
	Venue       string      `json:"venue" binding:"required"`
	EventDate   string      `json:"event_date" binding:"required"`
	Seats       []string    `json:"seats" binding:"required,min=1"`
	PaymentInfo PaymentInfo `json:"payment_info" binding:"required"`
}

// PaymentInfo represents payment information in an order request
type PaymentInfo struct {
	PaymentMethod string  `json:"payment_method" binding:"required"`
	Amount        float64 `json:"amount" binding:"required,gt=0"`
}

// SubmitOrderResponse represents the API response after order submission
type SubmitOrderResponse struct {
	OrderID       string `json:"order_id"`
	Status        string `json:"status"`
	Message       string `json:"message"`
	EstimatedTime string `json:"estimated_time"`
	StatusURL     string `json:"status_url"`
	WaitURL       string `json:"wait_url"`
	StreamURL     string `json:"stream_url"`
}

// OrderStatusResponse represents the detailed order status response
type OrderStatusResponse struct {
	OrderID       string     `json:"order_id"`
	Status        string     `json:"status"`
	EventName     string     `json:"event_name,omitempty"`
	Venue         string     `json:"venue,omitempty"`
	EventDate     *time.Time `json:"event_date,omitempty"`
	Seats         []string   `json:"seats,omitempty"`
	TotalAmount   float64    `json:"total_amount,omitempty"`
	PaymentStatus string     `json:"payment_status,omitempty"`
	ErrorMessage  *string    `json:"error_message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
	FailedAt      *time.Time `json:"failed_at,omitempty"`
}

// PendingResponse tells a waiting client that no update arrived in time,
// as distinct from a failure observing.
type PendingResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// PaymentCallbackRequest represents the payment gateway webhook payload
type PaymentCallbackRequest struct {
	OrderID       string                 `json:"order_id" binding:"required"`
	PaymentStatus string                 `json:"payment_status" binding:"required"`
	Status        string                 `json:"status"`
	PaymentRef    string                 `json:"payment_ref"`
	FailureReason string                 `json:"failure_reason"`
	Metadata      map[string]interface{} `json:"metadata"`
}

// UserOrdersResponse represents the list of user orders
type UserOrdersResponse struct {
	Orders []UserOrderSummary `json:"orders"`
	Total  int                `json:"total"`
}

// UserOrderSummary represents a summary of a user order for listing
type UserOrderSummary struct {
	OrderID     string    `json:"order_id"`
	Status      string    `json:"status"`
	EventName   string    `json:"event_name"`
	Venue       string    `json:"venue"`
	EventDate   time.Time `json:"event_date"`
	Seats       []string  `json:"seats"`
	TotalAmount float64   `json:"total_amount"`
	CreatedAt   time.Time `json:"created_at"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ============================================================================
// KAFKA MESSAGE STRUCTURES
// ============================================================================

// OrderProcessingRequest represents the message sent to the order topic
type OrderProcessingRequest struct {
	OrderID     string      `json:"order_id"`
	UserID      string      `json:"user_id"`
	UserEmail   string      `json:"user_email"`
	UserName    string      `json:"user_name"`
	EventName   string      `json:"event_name"`
	Venue       string      `json:"venue"`
	EventDate   time.Time   `json:"event_date"`
	Seats       []string    `json:"seats"`
	PaymentInfo PaymentInfo `json:"payment_info"`
	Timestamp   time.Time   `json:"timestamp"`
}

// NotificationRequest represents the message sent to the notification topic
type NotificationRequest struct {
	Type           string                `json:"type"`
	RecipientEmail string                `json:"recipient_email"`
	OrderData      NotificationOrderData `json:"order_data"`
	Timestamp      time.Time             `json:"timestamp"`
}

// NotificationOrderData represents order data for notifications
type NotificationOrderData struct {
	OrderID     string    `json:"order_id"`
	EventName   string    `json:"event_name"`
	Venue       string    `json:"venue"`
	EventDate   time.Time `json:"event_date"`
	Seats       []string  `json:"seats"`
	TotalAmount float64   `json:"total_amount"`
	UserName    string    `json:"user_name"`
}

// ============================================================================
// CONVERSION METHODS
// ============================================================================

// ToOrderStatusResponse converts an Order entity to a status response
func (o *Order) ToOrderStatusResponse() *OrderStatusResponse {
	response := &OrderStatusResponse{
		OrderID:       o.ID,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		CreatedAt:     o.CreatedAt,
		ConfirmedAt:   o.ConfirmedAt,
		FailedAt:      o.FailedAt,
		ErrorMessage:  o.ErrorMessage,
	}

	if o.Status == OrderStatusConfirmed || o.Status == OrderStatusProcessing {
		response.EventName = o.EventName
		response.Venue = o.Venue
		eventDate := o.EventDate
		response.EventDate = &eventDate
		response.Seats = o.Seats
		response.TotalAmount = o.TotalAmount
	}

	return response
}

// ToUserOrderSummary converts an Order entity to a user order summary
func (o *Order) ToUserOrderSummary() UserOrderSummary {
	return UserOrderSummary{
		OrderID:     o.ID,
		Status:      o.Status,
		EventName:   o.EventName,
		Venue:       o.Venue,
		EventDate:   o.EventDate,
		Seats:       o.Seats,
		TotalAmount: o.TotalAmount,
		CreatedAt:   o.CreatedAt,
	}
}
