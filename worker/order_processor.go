package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ygyuri/MVPEVENT-i-sub006/broker"
	"github.com/ygyuri/MVPEVENT-i-sub006/model"
	"github.com/ygyuri/MVPEVENT-i-sub006/repository"
	"github.com/ygyuri/MVPEVENT-i-sub006/service"
)

// NotificationWriter is the slice of kafka.Writer the processor needs.
type NotificationWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type OrderProcessor struct {
	repo      repository.OrderRepository
	publisher broker.Publisher
	gateway   service.PaymentGateway

	notificationWriter NotificationWriter
	consumer           *kafka.Reader

	// Worker pool for managing goroutines
	workerPool chan chan kafka.Message
	workers    []*orderWorker

	// Metrics
	processedCount int64
	activeWorkers  int64
}

type orderWorker struct {
	id         int
	processor  *OrderProcessor
	jobChannel chan kafka.Message
	workerPool chan chan kafka.Message
	quit       chan bool
}

func NewOrderProcessor(
	repo repository.OrderRepository,
	publisher broker.Publisher,
	gateway service.PaymentGateway,
	notificationWriter NotificationWriter,
	consumer *kafka.Reader,
	maxWorkers int,
) *OrderProcessor {
	if maxWorkers <= 0 {
		maxWorkers = 20
	}

	processor := &OrderProcessor{
		repo:               repo,
		publisher:          publisher,
		gateway:            gateway,
		notificationWriter: notificationWriter,
		consumer:           consumer,
		workerPool:         make(chan chan kafka.Message, maxWorkers),
		workers:            make([]*orderWorker, maxWorkers),
	}

	for i := 0; i < maxWorkers; i++ {
		processor.workers[i] = &orderWorker{
			id:         i,
			processor:  processor,
			jobChannel: make(chan kafka.Message),
			workerPool: processor.workerPool,
			quit:       make(chan bool),
		}
	}

	return processor
}

// Start begins processing order requests from Kafka
func (p *OrderProcessor) Start(ctx context.Context) error {
	log.Printf("Starting order processor with %d workers...", len(p.workers))

	for _, worker := range p.workers {
		worker.start()
	}

	go p.reportMetrics(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("Order processor shutting down...")
			p.shutdown()
			return ctx.Err()
		default:
			msg, err := p.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				log.Printf("Error reading message: %v", err)
				continue
			}

			// Dispatch to worker pool (blocks if all workers busy)
			select {
			case jobChannel := <-p.workerPool:
				select {
				case jobChannel <- msg:
					// Successfully dispatched
				case <-ctx.Done():
					return ctx.Err()
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (w *orderWorker) start() {
	go func() {
		for {
			// Register this worker in the pool
			w.workerPool <- w.jobChannel

			select {
			case job := <-w.jobChannel:
				atomic.AddInt64(&w.processor.activeWorkers, 1)

				if err := w.processor.processOrder(job); err != nil {
					log.Printf("Worker %d error processing order: %v", w.id, err)
				}

				atomic.AddInt64(&w.processor.processedCount, 1)
				atomic.AddInt64(&w.processor.activeWorkers, -1)

			case <-w.quit:
				log.Printf("Worker %d shutting down", w.id)
				return
			}
		}
	}()
}

func (w *orderWorker) stop() {
	w.quit <- true
}

// shutdown gracefully stops all workers
func (p *OrderProcessor) shutdown() {
	log.Println("Shutting down order processor workers...")

	for _, worker := range p.workers {
		worker.stop()
	}

	// Wait for active workers to finish (with timeout)
	timeout := time.After(30 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			log.Println("Shutdown timeout reached, forcing exit")
			return
		case <-ticker.C:
			if atomic.LoadInt64(&p.activeWorkers) == 0 {
				log.Println("All workers finished gracefully")
				return
			}
		}
	}
}

// reportMetrics logs performance metrics
func (p *OrderProcessor) reportMetrics(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			processed := atomic.LoadInt64(&p.processedCount)
			active := atomic.LoadInt64(&p.activeWorkers)
			log.Printf("Order Processor Metrics - Processed: %d, Active Workers: %d",
				processed, active)
		}
	}
}

// processOrder handles a single order request end to end
func (p *OrderProcessor) processOrder(msg kafka.Message) error {
	var orderReq model.OrderProcessingRequest
	if err := json.Unmarshal(msg.Value, &orderReq); err != nil {
		return fmt.Errorf("failed to unmarshal order request: %w", err)
	}

	if err := ValidatePaymentInfo(orderReq.PaymentInfo); err != nil {
		failTime := time.Now()
		errMsg := err.Error()
		p.updateOrderStatus(orderReq.OrderID, model.OrderStatusFailed,
			model.PaymentStatusFailed, "", errMsg, nil, &failTime)
		p.sendNotification(orderReq, "order_failed")
		return err
	}

	log.Printf("Processing order: %s for user: %s", orderReq.OrderID, orderReq.UserID)

	// Step 1: Charge the payment through the gateway
	result, err := p.gateway.Charge(service.ChargeRequest{
		OrderID:       orderReq.OrderID,
		Amount:        orderReq.PaymentInfo.Amount,
		PaymentMethod: orderReq.PaymentInfo.PaymentMethod,
		CustomerEmail: orderReq.UserEmail,
	})
	if err != nil {
		failTime := time.Now()
		errMsg := fmt.Sprintf("Payment failed: %s", err.Error())
		p.updateOrderStatus(orderReq.OrderID, model.OrderStatusFailed,
			model.PaymentStatusFailed, "", errMsg, nil, &failTime)
		p.sendNotification(orderReq, "order_failed")
		return err
	}

	// Step 2: Record the outcome
	if result.PaymentStatus == model.PaymentStatusFailed {
		failTime := time.Now()
		errMsg := result.FailureReason
		if errMsg == "" {
			errMsg = "Payment declined"
		}
		p.updateOrderStatus(orderReq.OrderID, model.OrderStatusFailed,
			model.PaymentStatusFailed, result.PaymentRef, errMsg, nil, &failTime)
		p.sendNotification(orderReq, "order_failed")
		return fmt.Errorf("payment declined for order %s", orderReq.OrderID)
	}

	if result.PaymentStatus == model.PaymentStatusPending {
		// The gateway will confirm asynchronously through the payment
		// callback endpoint; record the reference and stop here.
		p.updateOrderStatus(orderReq.OrderID, model.OrderStatusProcessing,
			model.PaymentStatusPending, result.PaymentRef, "Awaiting payment confirmation", nil, nil)
		return nil
	}

	// Step 3: Mark order as confirmed
	confirmTime := time.Now()
	p.updateOrderStatus(orderReq.OrderID, model.OrderStatusConfirmed,
		model.PaymentStatusPaid, result.PaymentRef, "Order confirmed successfully", &confirmTime, nil)

	// Step 4: Send confirmation notification
	p.sendNotification(orderReq, "order_confirmed")

	log.Printf("Successfully processed order: %s", orderReq.OrderID)
	return nil
}

// ValidatePaymentInfo rejects obviously unusable payment details before
// they reach the gateway
func ValidatePaymentInfo(info model.PaymentInfo) error {
	if info.Amount <= 0 {
		return fmt.Errorf("invalid payment amount: %f", info.Amount)
	}
	if info.PaymentMethod == "" {
		return fmt.Errorf("payment method is required")
	}
	return nil
}

// updateOrderStatus persists the transition, then announces it so any
// handler blocked on this order wakes up
func (p *OrderProcessor) updateOrderStatus(orderID, status, paymentStatus, paymentRef, message string, confirmedAt, failedAt *time.Time) {
	updateReq := model.UpdateOrderStatusRequest{
		OrderID:       orderID,
		Status:        status,
		PaymentStatus: paymentStatus,
		PaymentRef:    paymentRef,
		ConfirmedAt:   confirmedAt,
		FailedAt:      failedAt,
	}

	if status == model.OrderStatusFailed {
		updateReq.ErrorMessage = &message
	}

	if err := p.repo.UpdateOrderStatus(updateReq); err != nil {
		log.Printf("Failed to update order status in database: %v", err)
	}

	fields := model.StatusFields{
		"payment_status": paymentStatus,
		"status":         status,
		"message":        message,
	}
	if paymentRef != "" {
		fields["payment_ref"] = paymentRef
	}

	if !p.publisher.Notify(context.Background(), orderID, fields) {
		log.Printf("Status broadcast skipped for order %s: publisher not ready", orderID)
	}
}

// sendNotification emits an email/push request on the notification topic
func (p *OrderProcessor) sendNotification(orderReq model.OrderProcessingRequest, notificationType string) {
	notification := model.NotificationRequest{
		Type:           notificationType,
		RecipientEmail: orderReq.UserEmail,
		OrderData: model.NotificationOrderData{
			OrderID:     orderReq.OrderID,
			EventName:   orderReq.EventName,
			Venue:       orderReq.Venue,
			EventDate:   orderReq.EventDate,
			Seats:       orderReq.Seats,
			TotalAmount: orderReq.PaymentInfo.Amount,
			UserName:    orderReq.UserName,
		},
		Timestamp: time.Now(),
	}

	msgBytes, err := json.Marshal(notification)
	if err != nil {
		log.Printf("Failed to encode notification: %v", err)
		return
	}

	if err := p.notificationWriter.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(orderReq.OrderID),
			Value: msgBytes,
		}); err != nil {
		log.Printf("Failed to send notification for order %s: %v", orderReq.OrderID, err)
	}
}
