package models

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderFailed    OrderStatus = "failed"
	OrderCancelled OrderStatus = "cancelled"
)

// Order represents an invitation-package order. Completed, failed and
// cancelled are terminal; a terminal order is never mutated again.
type Order struct {
	ID           int         `json:"id" db:"id"`
	UserID       int         `json:"user_id" db:"user_id"`
	OrderNumber  string      `json:"order_number" db:"order_number"`
	TotalAmount  int         `json:"total_amount" db:"total_amount"`
	Status       OrderStatus `json:"status" db:"status"`
	PaymentRef   string      `json:"payment_ref" db:"payment_ref"`
	BillingEmail string      `json:"billing_email" db:"billing_email"`
	BillingName  string      `json:"billing_name" db:"billing_name"`
	StatusReason string      `json:"status_reason,omitempty" db:"status_reason"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty" db:"completed_at"`

	// Related data
	Items []*OrderItem `json:"items,omitempty"`
}

// OrderItem is a snapshot of one configured package from the cart. Events are
// materialized from these rows when the order completes.
type OrderItem struct {
	ID         int              `json:"id" db:"id"`
	OrderID    int              `json:"order_id" db:"order_id"`
	EventTitle string           `json:"event_title" db:"event_title"`
	EventCity  string           `json:"event_city" db:"event_city"`
	EventDate  time.Time        `json:"event_date" db:"event_date"`
	Selection  PricingSelection `json:"selection"`
	LineTotal  int              `json:"line_total" db:"line_total"`
}

// OrderCreateRequest represents the data needed to create a new order
type OrderCreateRequest struct {
	UserID       int          `json:"user_id"`
	TotalAmount  int          `json:"total_amount"`
	BillingEmail string       `json:"billing_email"`
	BillingName  string       `json:"billing_name"`
	Items        []*OrderItem `json:"items"`
}

var (
	// Order number format: INV-YYYYMMDD-XXXXXX (e.g., INV-20250901-123456)
	orderNumberRegex = regexp.MustCompile(`^INV-\d{8}-\d{6}$`)
	orderEmailRegex  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// Validate validates the order data
func (o *Order) Validate() error {
	if err := o.validateOrderNumber(); err != nil {
		return err
	}
	if err := validateOrderTotalAmount(o.TotalAmount); err != nil {
		return err
	}
	if err := validateOrderStatus(o.Status); err != nil {
		return err
	}
	return validateOrderBillingInfo(o.BillingEmail, o.BillingName)
}

// Validate validates order creation data
func (req *OrderCreateRequest) Validate() error {
	if err := validateOrderTotalAmount(req.TotalAmount); err != nil {
		return err
	}
	if err := validateOrderBillingInfo(req.BillingEmail, req.BillingName); err != nil {
		return err
	}
	if len(req.Items) == 0 {
		return &ValidationError{Field: "items", Message: "order must contain at least one item"}
	}
	for _, item := range req.Items {
		if err := item.Selection.Validate(); err != nil {
			return err
		}
		if strings.TrimSpace(item.EventTitle) == "" {
			return &ValidationError{Field: "event_title", Message: "event title is required"}
		}
	}
	return nil
}

func (o *Order) validateOrderNumber() error {
	if o.OrderNumber == "" {
		return &ValidationError{Field: "order_number", Message: "order number is required"}
	}
	if !orderNumberRegex.MatchString(o.OrderNumber) {
		return &ValidationError{Field: "order_number", Message: "order number format is invalid"}
	}
	return nil
}

func validateOrderTotalAmount(totalAmount int) error {
	if totalAmount < 0 {
		return &ValidationError{Field: "total_amount", Message: "total amount cannot be negative"}
	}
	// Maximum order amount of 1,000,000 currency units
	if totalAmount > 1000000 {
		return &ValidationError{Field: "total_amount", Message: "total amount exceeds the maximum order value"}
	}
	return nil
}

func validateOrderStatus(status OrderStatus) error {
	switch status {
	case OrderPending, OrderCompleted, OrderFailed, OrderCancelled:
		return nil
	default:
		return &ValidationError{Field: "status", Message: "invalid order status"}
	}
}

func validateOrderBillingInfo(billingEmail, billingName string) error {
	if billingEmail == "" {
		return &ValidationError{Field: "billing_email", Message: "billing email is required"}
	}
	if strings.TrimSpace(billingName) == "" {
		return &ValidationError{Field: "billing_name", Message: "billing name is required"}
	}
	if len(billingEmail) > 255 {
		return &ValidationError{Field: "billing_email", Message: "billing email must be less than 255 characters"}
	}
	if len(billingName) > 255 {
		return &ValidationError{Field: "billing_name", Message: "billing name must be less than 255 characters"}
	}
	if !orderEmailRegex.MatchString(billingEmail) {
		return &ValidationError{Field: "billing_email", Message: "billing email format is invalid"}
	}
	return nil
}

// GenerateOrderNumber generates a unique order number
func GenerateOrderNumber() string {
	now := time.Now()
	dateStr := now.Format("20060102")

	max := big.NewInt(1000000)
	randomNum, err := rand.Int(rand.Reader, max)
	if err != nil {
		// Fallback to timestamp-based generation if crypto/rand fails
		return fmt.Sprintf("INV-%s-%06d", dateStr, now.UnixNano()%1000000)
	}

	return fmt.Sprintf("INV-%s-%06d", dateStr, randomNum.Int64())
}

// IsPending returns true if the order is pending
func (o *Order) IsPending() bool {
	return o.Status == OrderPending
}

// IsCompleted returns true if the order is completed
func (o *Order) IsCompleted() bool {
	return o.Status == OrderCompleted
}

// IsTerminal returns true if the order has reached a terminal status
func (o *Order) IsTerminal() bool {
	return o.Status == OrderCompleted || o.Status == OrderFailed || o.Status == OrderCancelled
}

// CanBeCompleted returns true if the order can be marked as completed
func (o *Order) CanBeCompleted() bool {
	return o.Status == OrderPending
}

// CanBeFailed returns true if the order can be marked as failed
func (o *Order) CanBeFailed() bool {
	return o.Status == OrderPending
}

// CanBeCancelled returns true if the order can be cancelled
func (o *Order) CanBeCancelled() bool {
	return o.Status == OrderPending
}

// IsExpired returns true if a pending order has outlived the given duration
func (o *Order) IsExpired(expirationDuration time.Duration) bool {
	if o.Status != OrderPending {
		return false
	}
	return time.Since(o.CreatedAt) > expirationDuration
}

// GetStatusDisplayName returns a human-readable status name
func (o *Order) GetStatusDisplayName() string {
	switch o.Status {
	case OrderPending:
		return "Pending Payment"
	case OrderCompleted:
		return "Completed"
	case OrderFailed:
		return "Payment Failed"
	case OrderCancelled:
		return "Cancelled"
	default:
		return string(o.Status)
	}
}
