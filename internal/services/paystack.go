package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PaystackConfig represents Paystack payment service configuration
type PaystackConfig struct {
	SecretKey   string
	PublicKey   string
	Environment string // "test" or "live"
	CallbackURL string
	Currency    string
}

// PaystackService handles payments via the Paystack API
type PaystackService struct {
	config  PaystackConfig
	client  *http.Client
	baseURL string
	log     zerolog.Logger
}

// NewPaystackService creates a new Paystack payment service
func NewPaystackService(config PaystackConfig, log zerolog.Logger) *PaystackService {
	if config.Currency == "" {
		config.Currency = "ZAR"
	}
	return &PaystackService{
		config:  config,
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: "https://api.paystack.co",
		log:     log.With().Str("component", "paystack").Logger(),
	}
}

// TransactionRequest represents a payment initialization request
type TransactionRequest struct {
	Email       string            `json:"email"`
	Amount      int               `json:"amount"` // smallest currency unit
	Currency    string            `json:"currency"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url"`
	Metadata    map[string]string `json:"metadata"`
}

// TransactionResponse represents the response from transaction initialization
type TransactionResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    TransactionData `json:"data"`
}

// TransactionData contains the transaction initialization data
type TransactionData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// TransactionVerification represents transaction verification response
type TransactionVerification struct {
	Status  bool               `json:"status"`
	Message string             `json:"message"`
	Data    TransactionDetails `json:"data"`
}

// TransactionDetails contains detailed transaction information
type TransactionDetails struct {
	ID        int               `json:"id"`
	Status    string            `json:"status"`
	Reference string            `json:"reference"`
	Amount    int               `json:"amount"`
	Currency  string            `json:"currency"`
	PaidAt    string            `json:"paid_at"`
	Channel   string            `json:"channel"`
	Metadata  map[string]string `json:"metadata"`
}

// PaystackError represents an error response from Paystack
type PaystackError struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (e *PaystackError) Error() string {
	return fmt.Sprintf("paystack error: %s", e.Message)
}

// InitializeTransaction starts a hosted checkout for an order. The order
// number goes into the metadata so the webhook can find the order again.
func (s *PaystackService) InitializeTransaction(req *TransactionRequest) (*TransactionResponse, error) {
	if req.Reference == "" {
		req.Reference = s.generateReference()
	}
	if req.Currency == "" {
		req.Currency = s.config.Currency
	}
	if req.CallbackURL == "" {
		req.CallbackURL = s.config.CallbackURL
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transaction request: %w", err)
	}

	httpReq, err := http.NewRequest("POST", s.baseURL+"/transaction/initialize", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.config.SecretKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send transaction request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, s.handleAPIError(resp.StatusCode, bodyBytes)
	}

	var transactionResp TransactionResponse
	if err := json.Unmarshal(bodyBytes, &transactionResp); err != nil {
		return nil, fmt.Errorf("failed to decode transaction response: %w", err)
	}
	if !transactionResp.Status {
		return nil, fmt.Errorf("transaction initialization failed: %s", transactionResp.Message)
	}

	s.log.Info().Str("reference", req.Reference).Int("amount", req.Amount).
		Msg("transaction initialized")

	return &transactionResp, nil
}

// VerifyTransaction verifies a transaction reference against Paystack. Used on
// every webhook delivery; the webhook body alone is never trusted.
func (s *PaystackService) VerifyTransaction(reference string) (*TransactionVerification, error) {
	verifyURL := fmt.Sprintf("%s/transaction/verify/%s", s.baseURL, reference)
	httpReq, err := http.NewRequest("GET", verifyURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create verification request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.config.SecretKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send verification request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read verification response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, s.handleAPIError(resp.StatusCode, bodyBytes)
	}

	var verification TransactionVerification
	if err := json.Unmarshal(bodyBytes, &verification); err != nil {
		return nil, fmt.Errorf("failed to decode verification response: %w", err)
	}
	if !verification.Status {
		return nil, fmt.Errorf("transaction verification failed: %s", verification.Message)
	}

	s.log.Debug().Str("reference", reference).Str("status", verification.Data.Status).
		Int("amount", verification.Data.Amount).Msg("transaction verified")

	return &verification, nil
}

// VerifyWebhookSignature validates the x-paystack-signature header, an
// HMAC-SHA512 of the raw body keyed with the secret key.
func (s *PaystackService) VerifyWebhookSignature(payload []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(s.config.SecretKey))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Currency returns the configured settlement currency
func (s *PaystackService) Currency() string {
	return s.config.Currency
}

func (s *PaystackService) generateReference() string {
	return fmt.Sprintf("inv_%d_%s", time.Now().Unix(), uuid.NewString()[:8])
}

func (s *PaystackService) handleAPIError(statusCode int, body []byte) error {
	var apiErr PaystackError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return &apiErr
	}
	return fmt.Errorf("paystack API returned status %d: %s", statusCode, string(body))
}
