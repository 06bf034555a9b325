package service

// PaymentGateway defines the interface for communicating with the external
// payment provider
type PaymentGateway interface {
	// Charge initiates a payment for an order and returns the gateway's
	// reference for it
	Charge(req ChargeRequest) (*ChargeResult, error)

	// GetCharge retrieves the current state of a previously initiated charge
	GetCharge(paymentRef string) (*ChargeResult, error)
}

// ChargeRequest represents a payment initiation sent to the gateway
type ChargeRequest struct {
	OrderID       string  `json:"order_id"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
	CustomerEmail string  `json:"customer_email"`
}

// ChargeResult represents the gateway's view of a charge
type ChargeResult struct {
	PaymentRef    string  `json:"payment_ref"`
	OrderID       string  `json:"order_id"`
	PaymentStatus string  `json:"payment_status"`
	Amount        float64 `json:"amount"`
	FailureReason string  `json:"failure_reason,omitempty"`
}
