package handlers

import (
	"net/http"

	"invitation-platform/internal/middleware"
	"invitation-platform/internal/models"
	"invitation-platform/internal/services"

	"github.com/gorilla/sessions"
)

// OrderHandler handles checkout and order retrieval
type OrderHandler struct {
	orderService *services.OrderService
	paystack     *services.PaystackService
	store        sessions.Store
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *services.OrderService, paystack *services.PaystackService, store sessions.Store) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		paystack:     paystack,
		store:        store,
	}
}

type checkoutResponse struct {
	Order      *models.Order `json:"order"`
	PaymentURL string        `json:"payment_url"`
	Reference  string        `json:"reference"`
}

// Checkout converts the session cart into a pending order and starts a hosted
// payment. The cart is cleared only after the order is accepted.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())

	var req models.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	cart := h.loadCart(r)
	order, err := h.orderService.Checkout(actor.User.ID, cart, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	transaction, err := h.paystack.InitializeTransaction(&services.TransactionRequest{
		Email:    req.BillingEmail,
		Amount:   order.TotalAmount * 100, // smallest currency unit
		Currency: h.paystack.Currency(),
		Metadata: map[string]string{"order_number": order.OrderNumber},
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.clearCart(w, r)

	writeJSON(w, http.StatusCreated, checkoutResponse{
		Order:      order,
		PaymentURL: transaction.Data.AuthorizationURL,
		Reference:  transaction.Data.Reference,
	})
}

// GetOrder returns one order for its owner or an admin
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := urlParamInt(r, "orderID")
	if err != nil {
		writeError(w, err)
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	order, err := h.orderService.GetOrderByID(orderID, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// ListOrders returns the signed-in user's orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	limit, offset := paginationParams(r)

	orders, total, err := h.orderService.GetUserOrders(actor.User.ID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"orders": orders,
		"total":  total,
	})
}

// CancelOrder cancels a pending order at the owner's request
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := urlParamInt(r, "orderID")
	if err != nil {
		writeError(w, err)
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	if _, err := h.orderService.GetOrderByID(orderID, actor); err != nil {
		writeError(w, err)
		return
	}

	if err := h.orderService.Cancel(orderID, "cancelled by customer"); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// FailOrder marks a pending order as failed. Admin-only; used when a payment
// is known to be dead but no gateway delivery ever arrived.
func (h *OrderHandler) FailOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := urlParamInt(r, "orderID")
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Reason string `json:"reason" validate:"required"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.orderService.Fail(orderID, req.Reason); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "failed"})
}

// GetStatistics returns order statistics, platform-wide for admins or scoped
// to the signed-in user.
func (h *OrderHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())

	var userID *int
	if !actor.IsAdmin() {
		id := actor.User.ID
		userID = &id
	}

	stats, err := h.orderService.GetOrderStatistics(userID, actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *OrderHandler) loadCart(r *http.Request) *models.Cart {
	session, err := h.store.Get(r, "session")
	if err != nil {
		return &models.Cart{}
	}
	if cart, ok := session.Values[cartSessionKey].(*models.Cart); ok {
		return cart
	}
	return &models.Cart{}
}

func (h *OrderHandler) clearCart(w http.ResponseWriter, r *http.Request) {
	session, err := h.store.Get(r, "session")
	if err != nil {
		return
	}
	session.Values[cartSessionKey] = &models.Cart{}
	session.Save(r, w)
}
