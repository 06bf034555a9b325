package postgres

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ygyuri/MVPEVENT-i-sub006/config"
	"github.com/ygyuri/MVPEVENT-i-sub006/model"
)

type PostgresOrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(cfg *config.Database) (*PostgresOrderRepository, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDatabaseURL()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access database pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)

	// Auto-migrate the orders table
	if err := db.AutoMigrate(&model.Order{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &PostgresOrderRepository{db: db}, nil
}

// CreateOrder creates a new order record
func (r *PostgresOrderRepository) CreateOrder(req model.CreateOrderRequest) (*model.Order, error) {
	order := &model.Order{
		ID:            uuid.NewString(),
		UserID:        req.UserID,
		UserEmail:     req.UserEmail,
		UserName:      req.UserName,
		EventName:     req.EventName,
		Venue:         req.Venue,
		EventDate:     req.EventDate,
		Seats:         req.Seats,
		TotalAmount:   req.TotalAmount,
		Status:        model.OrderStatusProcessing,
		PaymentStatus: model.PaymentStatusPending,
	}

	if err := r.db.Create(order).Error; err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	return order, nil
}

// GetOrderByID retrieves an order by its ID
func (r *PostgresOrderRepository) GetOrderByID(orderID string) (*model.Order, error) {
	var order model.Order
	err := r.db.Where("id = ?", orderID).First(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("order not found")
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return &order, nil
}

// GetOrderByPaymentRef retrieves an order by the gateway's payment reference
func (r *PostgresOrderRepository) GetOrderByPaymentRef(paymentRef string) (*model.Order, error) {
	var order model.Order
	err := r.db.Where("payment_ref = ?", paymentRef).First(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("order not found")
		}
		return nil, fmt.Errorf("failed to get order by payment ref: %w", err)
	}

	return &order, nil
}

// UpdateOrderStatus updates the status of an order
func (r *PostgresOrderRepository) UpdateOrderStatus(req model.UpdateOrderStatusRequest) error {
	updates := map[string]interface{}{
		"status":         req.Status,
		"payment_status": req.PaymentStatus,
	}

	if req.PaymentRef != "" {
		updates["payment_ref"] = req.PaymentRef
	}

	if req.ErrorMessage != nil {
		updates["error_message"] = *req.ErrorMessage
	}

	if req.ConfirmedAt != nil {
		updates["confirmed_at"] = *req.ConfirmedAt
	}

	if req.FailedAt != nil {
		updates["failed_at"] = *req.FailedAt
	}

	err := r.db.Model(&model.Order{}).Where("id = ?", req.OrderID).Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	return nil
}

// ListUserOrders retrieves orders for a specific user with filtering
func (r *PostgresOrderRepository) ListUserOrders(filter model.OrderFilter) ([]model.Order, int, error) {
	var orders []model.Order
	var total int64

	query := r.db.Model(&model.Order{}).Where("user_id = ?", filter.UserID)

	// Apply status filter if specified
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	// Get total count
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	// Apply pagination and ordering
	err := query.Order("created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&orders).Error

	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	return orders, int(total), nil
}

// GetDB returns the database instance for health checks
func (r *PostgresOrderRepository) GetDB() *gorm.DB {
	return r.db
}
