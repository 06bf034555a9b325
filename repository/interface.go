package repository

import (
	"github.com/ygyuri/MVPEVENT-i-sub006/model"
	"gorm.io/gorm"
)

// OrderRepository defines the interface for order data operations
type OrderRepository interface {
	// Order operations
	CreateOrder(req model.CreateOrderRequest) (*model.Order, error)
	GetOrderByID(orderID string) (*model.Order, error)
	GetOrderByPaymentRef(paymentRef string) (*model.Order, error)
	UpdateOrderStatus(req model.UpdateOrderStatusRequest) error
	ListUserOrders(filter model.OrderFilter) ([]model.Order, int, error)

	// Health check
	GetDB() *gorm.DB
}
