package services

import (
	"fmt"

	"invitation-platform/internal/models"
	"invitation-platform/internal/pricing"
	"invitation-platform/internal/repositories"

	"github.com/rs/zerolog"
)

// OrderService owns the order lifecycle: pending orders move to exactly one of
// completed, failed or cancelled, and completion materializes one event per
// order item. Re-delivery of a completion (a retried payment webhook) is an
// idempotent success, never a second materialization.
type OrderService struct {
	orderRepo OrderRepository
	eventRepo EventRepository
	userRepo  UserRepository
	notifier  NotificationService
	log       zerolog.Logger
}

// OrderRepository interface for order data operations
type OrderRepository interface {
	Create(req *models.OrderCreateRequest) (*models.Order, error)
	GetByID(id int) (*models.Order, error)
	GetByOrderNumber(orderNumber string) (*models.Order, error)
	ProcessOrderCompletion(orderID int, paymentRef string) (bool, error)
	MarkTerminal(orderID int, status models.OrderStatus, reason string) (bool, error)
	Search(filters repositories.OrderSearchFilters) ([]*models.Order, int, error)
	GetOrderStatistics(userID *int) (map[string]interface{}, error)
}

// UserRepository interface for user data operations
type UserRepository interface {
	GetByID(id int) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
}

// NewOrderService creates a new order service
func NewOrderService(
	orderRepo OrderRepository,
	eventRepo EventRepository,
	userRepo UserRepository,
	notifier NotificationService,
	log zerolog.Logger,
) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		eventRepo: eventRepo,
		userRepo:  userRepo,
		notifier:  notifier,
		log:       log.With().Str("component", "orders").Logger(),
	}
}

// Checkout turns the session cart into a pending order. Every item is
// re-priced server-side; a subtotal that does not match the recomputed quote
// rejects the checkout, so a stale or tampered cart can never buy at the
// wrong price.
func (s *OrderService) Checkout(userID int, cart *models.Cart, req *models.CheckoutRequest) (*models.Order, error) {
	if cart == nil || cart.IsEmpty() {
		return nil, &models.ValidationError{Field: "cart", Message: "cart is empty"}
	}
	if cart.IsExpired() {
		return nil, &models.ValidationError{Field: "cart", Message: "cart has expired, please rebuild it"}
	}

	createReq := &models.OrderCreateRequest{
		UserID:       userID,
		BillingEmail: req.BillingEmail,
		BillingName:  req.BillingName,
	}

	total := 0
	for i, item := range cart.Items {
		quote, err := pricing.ComputeTotal(item.Selection)
		if err != nil {
			return nil, fmt.Errorf("cart item %d: %w", i+1, err)
		}
		if quote.Total != item.Subtotal {
			return nil, &models.ValidationError{
				Field:   "cart",
				Message: fmt.Sprintf("item %d subtotal %d does not match the current price %d", i+1, item.Subtotal, quote.Total),
			}
		}

		total += quote.Total
		createReq.Items = append(createReq.Items, &models.OrderItem{
			EventTitle: item.EventTitle,
			EventCity:  item.EventCity,
			EventDate:  item.EventDate,
			Selection:  item.Selection,
			LineTotal:  quote.Total,
		})
	}
	createReq.TotalAmount = total

	order, err := s.orderRepo.Create(createReq)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.log.Info().Str("order_number", order.OrderNumber).Int("total", order.TotalAmount).
		Int("items", len(order.Items)).Msg("order created")

	return order, nil
}

// Complete transitions a pending order to completed and returns the
// materialized events. Calling it again on a completed order is a no-op that
// returns the existing events; completing a failed or cancelled order is an
// InvalidTransitionError.
func (s *OrderService) Complete(orderID int, paymentRef string) (*models.Order, []*models.Event, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, nil, err
	}

	if order.IsCompleted() {
		events, err := s.eventRepo.GetByOrder(orderID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get order events: %w", err)
		}
		s.log.Info().Str("order_number", order.OrderNumber).Msg("completion replayed on completed order, no-op")
		return order, events, nil
	}

	if order.IsTerminal() {
		return nil, nil, &models.InvalidTransitionError{
			Entity: "order",
			From:   string(order.Status),
			To:     string(models.OrderCompleted),
		}
	}

	if err := s.verifyOrderPricing(order); err != nil {
		return nil, nil, err
	}

	applied, err := s.orderRepo.ProcessOrderCompletion(orderID, paymentRef)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to complete order: %w", err)
	}

	order, err = s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get completed order: %w", err)
	}

	if !applied {
		// Lost the conditional update: a concurrent delivery already moved
		// the order. Completed means that delivery did our work.
		if order.IsCompleted() {
			events, err := s.eventRepo.GetByOrder(orderID)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to get order events: %w", err)
			}
			return order, events, nil
		}
		return nil, nil, &models.InvalidTransitionError{
			Entity: "order",
			From:   string(order.Status),
			To:     string(models.OrderCompleted),
		}
	}

	events, err := s.eventRepo.GetByOrder(orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get materialized events: %w", err)
	}

	s.log.Info().Str("order_number", order.OrderNumber).Int("events", len(events)).Msg("order completed")

	s.notifyCompletion(order)

	return order, events, nil
}

// Fail transitions a pending order to failed with an optional reason
func (s *OrderService) Fail(orderID int, reason string) error {
	return s.markTerminal(orderID, models.OrderFailed, reason)
}

// Cancel transitions a pending order to cancelled with an optional reason
func (s *OrderService) Cancel(orderID int, reason string) error {
	return s.markTerminal(orderID, models.OrderCancelled, reason)
}

func (s *OrderService) markTerminal(orderID int, status models.OrderStatus, reason string) error {
	applied, err := s.orderRepo.MarkTerminal(orderID, status, reason)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if !applied {
		order, err := s.orderRepo.GetByID(orderID)
		if err != nil {
			return err
		}
		return &models.InvalidTransitionError{
			Entity: "order",
			From:   string(order.Status),
			To:     string(status),
		}
	}

	s.log.Info().Int("order_id", orderID).Str("status", string(status)).Str("reason", reason).
		Msg("order closed")
	return nil
}

// GetByOrderNumber retrieves an order by its public order number. Used by the
// payment webhook, which authenticates by signature rather than actor.
func (s *OrderService) GetByOrderNumber(orderNumber string) (*models.Order, error) {
	return s.orderRepo.GetByOrderNumber(orderNumber)
}

// GetOrderByID retrieves an order, restricted to its owner or an admin
func (s *OrderService) GetOrderByID(orderID int, actor models.Actor) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}

	if !s.canViewOrder(order, actor) {
		return nil, &models.PermissionDeniedError{Permission: "view order"}
	}

	return order, nil
}

// GetUserOrders retrieves orders for a user with pagination
func (s *OrderService) GetUserOrders(userID int, limit, offset int) ([]*models.Order, int, error) {
	filters := repositories.OrderSearchFilters{
		UserID:   userID,
		Limit:    limit,
		Offset:   offset,
		SortBy:   "created_at",
		SortDesc: true,
	}
	return s.orderRepo.Search(filters)
}

// GetOrderStatistics retrieves order statistics. User-scoped statistics are
// restricted to the same user or an admin.
func (s *OrderService) GetOrderStatistics(userID *int, actor models.Actor) (map[string]interface{}, error) {
	if userID != nil && !actor.IsAdmin() && (actor.User == nil || actor.User.ID != *userID) {
		return nil, &models.PermissionDeniedError{Permission: "view user statistics"}
	}
	if userID == nil && !actor.IsAdmin() {
		return nil, &models.PermissionDeniedError{Permission: "view platform statistics"}
	}
	return s.orderRepo.GetOrderStatistics(userID)
}

// verifyOrderPricing re-derives every item's price from its stored package
// selection before completion materializes events. A stored total that no
// longer derives from its selection means the order row was altered after
// checkout, and completing it would mint events nobody paid for.
func (s *OrderService) verifyOrderPricing(order *models.Order) error {
	total := 0
	for i, item := range order.Items {
		ok, err := pricing.VerifyTotal(item.Selection, item.LineTotal)
		if err != nil {
			return fmt.Errorf("order item %d: %w", i+1, err)
		}
		if !ok {
			return fmt.Errorf("order item %d total %d does not derive from its package selection", i+1, item.LineTotal)
		}
		total += item.LineTotal
	}
	if total != order.TotalAmount {
		return fmt.Errorf("order total %d does not match the sum of its items", order.TotalAmount)
	}
	return nil
}

func (s *OrderService) canViewOrder(order *models.Order, actor models.Actor) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.User != nil && actor.User.ID == order.UserID
}

// notifyCompletion sends the owner a completion message. Delivery is
// fire-and-forget: a send failure never rolls back the completed order.
func (s *OrderService) notifyCompletion(order *models.Order) {
	if s.notifier == nil {
		return
	}

	user, err := s.userRepo.GetByID(order.UserID)
	if err != nil {
		s.log.Warn().Err(err).Str("order_number", order.OrderNumber).Msg("completion notification skipped, owner lookup failed")
		return
	}

	if err := s.notifier.SendOrderCompleted(user.Phone, order); err != nil {
		s.log.Warn().Err(err).Str("order_number", order.OrderNumber).Msg("completion notification failed")
	}
}
