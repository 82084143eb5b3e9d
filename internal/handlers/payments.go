package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"invitation-platform/internal/models"
	"invitation-platform/internal/services"

	"github.com/rs/zerolog"
)

// PaymentHandler handles payment gateway callbacks
type PaymentHandler struct {
	orderService *services.OrderService
	paystack     *services.PaystackService
	log          zerolog.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(orderService *services.OrderService, paystack *services.PaystackService, log zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		orderService: orderService,
		paystack:     paystack,
		log:          log.With().Str("component", "payments").Logger(),
	}
}

type paystackWebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string            `json:"reference"`
		Amount    int               `json:"amount"`
		Status    string            `json:"status"`
		Metadata  map[string]string `json:"metadata"`
	} `json:"data"`
}

// Webhook processes Paystack event deliveries. The signature is checked
// against the raw body, the transaction is re-verified with the API, and the
// paid amount is checked against the order total before the order completes.
// Paystack retries deliveries, so everything downstream must tolerate
// duplicates.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("x-paystack-signature")
	if !h.paystack.VerifyWebhookSignature(body, signature) {
		h.log.Warn().Msg("webhook rejected, bad signature")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var event paystackWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	switch event.Event {
	case "charge.success":
		h.handleChargeSuccess(w, event)
	case "charge.failed":
		h.handleChargeFailed(w, event)
	default:
		// Acknowledge events we do not act on so Paystack stops retrying.
		w.WriteHeader(http.StatusOK)
	}
}

func (h *PaymentHandler) handleChargeSuccess(w http.ResponseWriter, event paystackWebhookEvent) {
	reference := event.Data.Reference

	// Never trust the webhook body: confirm with the API.
	verification, err := h.paystack.VerifyTransaction(reference)
	if err != nil {
		h.log.Error().Err(err).Str("reference", reference).Msg("webhook verification failed")
		http.Error(w, "verification failed", http.StatusBadGateway)
		return
	}
	if verification.Data.Status != "success" {
		h.log.Warn().Str("reference", reference).Str("status", verification.Data.Status).
			Msg("webhook claimed success but verification disagrees")
		w.WriteHeader(http.StatusOK)
		return
	}

	orderNumber := verification.Data.Metadata["order_number"]
	if orderNumber == "" {
		orderNumber = event.Data.Metadata["order_number"]
	}
	order, err := h.orderService.GetByOrderNumber(orderNumber)
	if err != nil {
		h.log.Error().Err(err).Str("order_number", orderNumber).Msg("webhook order lookup failed")
		// Acknowledge: redelivery cannot fix an unknown order number.
		w.WriteHeader(http.StatusOK)
		return
	}

	if verification.Data.Amount != order.TotalAmount*100 {
		h.log.Error().Str("order_number", orderNumber).
			Int("paid", verification.Data.Amount).Int("expected", order.TotalAmount*100).
			Msg("paid amount does not match order total")
		if err := h.orderService.Fail(order.ID, "paid amount mismatch"); err != nil {
			h.log.Error().Err(err).Str("order_number", orderNumber).Msg("failed to close mismatched order")
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	if _, _, err := h.orderService.Complete(order.ID, reference); err != nil {
		h.log.Error().Err(err).Str("order_number", orderNumber).Msg("order completion failed")
		// Non-2xx makes Paystack redeliver; completion is idempotent so a
		// retry is safe.
		http.Error(w, "completion failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Callback handles the customer's browser return from the Paystack checkout
// page. Settlement mirrors the webhook path; whichever delivery arrives first
// completes the order and the other becomes a no-op.
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	reference := r.URL.Query().Get("reference")
	if reference == "" {
		reference = r.URL.Query().Get("trxref")
	}
	if reference == "" {
		writeError(w, &models.ValidationError{Field: "reference", Message: "payment reference is required"})
		return
	}

	verification, err := h.paystack.VerifyTransaction(reference)
	if err != nil {
		h.log.Error().Err(err).Str("reference", reference).Msg("callback verification failed")
		writeError(w, err)
		return
	}

	order, err := h.orderService.GetByOrderNumber(verification.Data.Metadata["order_number"])
	if err != nil {
		writeError(w, err)
		return
	}

	if verification.Data.Status != "success" {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"order":          order,
			"payment_status": verification.Data.Status,
		})
		return
	}

	if verification.Data.Amount != order.TotalAmount*100 {
		h.log.Error().Str("order_number", order.OrderNumber).
			Int("paid", verification.Data.Amount).Int("expected", order.TotalAmount*100).
			Msg("paid amount does not match order total")
		if err := h.orderService.Fail(order.ID, "paid amount mismatch"); err != nil {
			h.log.Error().Err(err).Str("order_number", order.OrderNumber).Msg("failed to close mismatched order")
		}
		writeJSON(w, http.StatusConflict, errorResponse{Error: "paid amount does not match the order total"})
		return
	}

	updated, _, err := h.orderService.Complete(order.ID, reference)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"order":          updated,
		"payment_status": "success",
	})
}

func (h *PaymentHandler) handleChargeFailed(w http.ResponseWriter, event paystackWebhookEvent) {
	orderNumber := event.Data.Metadata["order_number"]
	if orderNumber == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	order, err := h.orderService.GetByOrderNumber(orderNumber)
	if err != nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.orderService.Fail(order.ID, "payment failed"); err != nil {
		// Already terminal is fine; duplicate failure deliveries happen.
		h.log.Debug().Err(err).Str("order_number", orderNumber).Msg("failure delivery ignored")
	}
	w.WriteHeader(http.StatusOK)
}
