package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Payment lifecycle stages carried in status events.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// Overall order statuses.
const (
	OrderStatusProcessing = "processing"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusFailed     = "failed"
)

// Reserved wire keys. Extra fields supplied by callers encode beside them
// in the same flat JSON object; reserved keys always win a collision.
const (
	fieldOrderID       = "order_id"
	fieldPaymentStatus = "payment_status"
	fieldStatus        = "status"
	fieldTimestamp     = "timestamp"
)

// StatusFields is the caller-supplied payload for a status notification.
// "payment_status" and "status" are promoted into the event's own fields;
// everything else is forwarded verbatim.
type StatusFields map[string]interface{}

// StatusEvent describes one order's status at one point in time. It is
// immutable once constructed and travels as a single flat JSON object so
// every reader decodes it identically.
type StatusEvent struct {
	OrderID       string
	PaymentStatus string
	Status        string
	Timestamp     time.Time
	Extra         StatusFields
}

// NewStatusEvent builds an event stamped with the current time, promoting
// the reserved keys out of fields and keeping the rest as pass-through.
func NewStatusEvent(orderID string, fields StatusFields) *StatusEvent {
	event := &StatusEvent{
		OrderID:   orderID,
		Timestamp: time.Now().UTC(),
	}

	for key, value := range fields {
		switch key {
		case fieldPaymentStatus:
			if s, ok := value.(string); ok {
				event.PaymentStatus = s
			}
		case fieldStatus:
			if s, ok := value.(string); ok {
				event.Status = s
			}
		case fieldOrderID, fieldTimestamp:
			// Not caller-settable.
		default:
			if event.Extra == nil {
				event.Extra = StatusFields{}
			}
			event.Extra[key] = value
		}
	}

	return event
}

// MarshalJSON flattens extras into the top-level object alongside the
// reserved keys.
func (e *StatusEvent) MarshalJSON() ([]byte, error) {
	doc := make(map[string]interface{}, len(e.Extra)+4)
	for key, value := range e.Extra {
		doc[key] = value
	}
	doc[fieldOrderID] = e.OrderID
	doc[fieldPaymentStatus] = e.PaymentStatus
	doc[fieldStatus] = e.Status
	doc[fieldTimestamp] = e.Timestamp.Format(time.RFC3339Nano)

	return json.Marshal(doc)
}

// UnmarshalJSON is the symmetric inverse of MarshalJSON.
func (e *StatusEvent) UnmarshalJSON(data []byte) error {
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	if v, ok := doc[fieldOrderID].(string); ok {
		e.OrderID = v
	}
	if v, ok := doc[fieldPaymentStatus].(string); ok {
		e.PaymentStatus = v
	}
	if v, ok := doc[fieldStatus].(string); ok {
		e.Status = v
	}
	if v, ok := doc[fieldTimestamp].(string); ok {
		ts, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return fmt.Errorf("invalid status event timestamp %q: %w", v, err)
		}
		e.Timestamp = ts
	}

	delete(doc, fieldOrderID)
	delete(doc, fieldPaymentStatus)
	delete(doc, fieldStatus)
	delete(doc, fieldTimestamp)
	if len(doc) > 0 {
		e.Extra = doc
	}

	return nil
}

// Encode serializes the event for transmission and caching.
func (e *StatusEvent) Encode() ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode status event: %w", err)
	}
	return payload, nil
}

// DecodeStatusEvent parses a serialized event. A payload that does not
// decode is an error, never a silent skip.
func DecodeStatusEvent(payload []byte) (*StatusEvent, error) {
	var event StatusEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to decode status event: %w", err)
	}
	return &event, nil
}

// Terminal reports whether the event describes a final order state, after
// which no further updates are expected.
func (e *StatusEvent) Terminal() bool {
	return e.Status == OrderStatusConfirmed || e.Status == OrderStatusFailed
}
