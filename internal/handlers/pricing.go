package handlers

import (
	"net/http"
	"strconv"
	"time"

	"invitation-platform/internal/models"
	"invitation-platform/internal/pricing"

	"github.com/gorilla/sessions"
)

const (
	cartSessionKey = "cart"
	cartTTL        = 2 * time.Hour
)

// PricingHandler serves quotes and the session cart
type PricingHandler struct {
	store sessions.Store
}

// NewPricingHandler creates a new pricing handler
func NewPricingHandler(store sessions.Store) *PricingHandler {
	return &PricingHandler{store: store}
}

// Quote computes an itemized price for a package selection
func (h *PricingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req models.QuoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	quote, err := pricing.ComputeTotal(req.Selection())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, quote)
}

// GetCart returns the current session cart
func (h *PricingHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart := h.loadCart(r)
	writeJSON(w, http.StatusOK, cart)
}

// AddToCart prices a configured package and appends it to the session cart
func (h *PricingHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req models.CartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	quote, err := pricing.ComputeTotal(req.Selection())
	if err != nil {
		writeError(w, err)
		return
	}

	cart := h.loadCart(r)
	if cart.IsExpired() {
		cart = &models.Cart{}
	}
	cart.Items = append(cart.Items, models.CartItem{
		EventTitle: req.EventTitle,
		EventCity:  req.EventCity,
		EventDate:  req.EventDate,
		Selection:  req.Selection(),
		Subtotal:   quote.Total,
	})
	cart.ExpiresAt = time.Now().Add(cartTTL).Unix()
	cart.Recalculate()

	if err := h.saveCart(w, r, cart); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// RemoveFromCart removes one item from the session cart by index
func (h *PricingHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil {
		writeError(w, &models.ValidationError{Field: "index", Message: "must be an integer"})
		return
	}

	cart := h.loadCart(r)
	if index < 0 || index >= len(cart.Items) {
		writeError(w, &models.ValidationError{Field: "index", Message: "no cart item at this index"})
		return
	}
	cart.Items = append(cart.Items[:index], cart.Items[index+1:]...)
	cart.Recalculate()

	if err := h.saveCart(w, r, cart); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// ClearCart empties the session cart
func (h *PricingHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.saveCart(w, r, &models.Cart{}); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &models.Cart{})
}

func (h *PricingHandler) loadCart(r *http.Request) *models.Cart {
	session, err := h.store.Get(r, "session")
	if err != nil {
		return &models.Cart{}
	}
	if cart, ok := session.Values[cartSessionKey].(*models.Cart); ok {
		return cart
	}
	return &models.Cart{}
}

func (h *PricingHandler) saveCart(w http.ResponseWriter, r *http.Request, cart *models.Cart) error {
	session, err := h.store.Get(r, "session")
	if err != nil {
		return err
	}
	session.Values[cartSessionKey] = cart
	return session.Save(r, w)
}
