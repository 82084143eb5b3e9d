package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"invitation-platform/internal/services"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

const webhookSecret = "sk_test_webhook_secret"

func newWebhookHandler() *PaymentHandler {
	paystack := services.NewPaystackService(services.PaystackConfig{
		SecretKey:   webhookSecret,
		Environment: "test",
	}, zerolog.Nop())
	return NewPaymentHandler(nil, paystack, zerolog.Nop())
}

func signWebhookBody(body []byte) string {
	mac := hmac.New(sha512.New, []byte(webhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestWebhook_RejectsMissingSignature(t *testing.T) {
	h := newWebhookHandler()
	body := []byte(`{"event":"charge.success","data":{"reference":"inv_123"}}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Webhook(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhook_RejectsForgedSignature(t *testing.T) {
	h := newWebhookHandler()
	body := []byte(`{"event":"charge.success","data":{"reference":"inv_123"}}`)

	mac := hmac.New(sha512.New, []byte("wrong-secret"))
	mac.Write(body)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewReader(body))
	req.Header.Set("x-paystack-signature", hex.EncodeToString(mac.Sum(nil)))
	rec := httptest.NewRecorder()
	h.Webhook(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhook_RejectsTamperedBody(t *testing.T) {
	h := newWebhookHandler()
	body := []byte(`{"event":"charge.success","data":{"reference":"inv_123","amount":199900}}`)
	signature := signWebhookBody(body)

	tampered := []byte(`{"event":"charge.success","data":{"reference":"inv_123","amount":1}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewReader(tampered))
	req.Header.Set("x-paystack-signature", signature)
	rec := httptest.NewRecorder()
	h.Webhook(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhook_RejectsInvalidJSON(t *testing.T) {
	h := newWebhookHandler()
	body := []byte(`not json`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewReader(body))
	req.Header.Set("x-paystack-signature", signWebhookBody(body))
	rec := httptest.NewRecorder()
	h.Webhook(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook_AcknowledgesUnhandledEvents(t *testing.T) {
	h := newWebhookHandler()
	body := []byte(`{"event":"subscription.create","data":{}}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewReader(body))
	req.Header.Set("x-paystack-signature", signWebhookBody(body))
	rec := httptest.NewRecorder()
	h.Webhook(rec, req)

	// Unhandled events must be acknowledged or Paystack keeps redelivering.
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCallback_RequiresReference(t *testing.T) {
	h := newWebhookHandler()

	req := httptest.NewRequest(http.MethodGet, "/payment/callback", nil)
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook_AcknowledgesFailureWithoutOrderNumber(t *testing.T) {
	h := newWebhookHandler()
	body := []byte(`{"event":"charge.failed","data":{"reference":"inv_123","metadata":{}}}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewReader(body))
	req.Header.Set("x-paystack-signature", signWebhookBody(body))
	rec := httptest.NewRecorder()
	h.Webhook(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
