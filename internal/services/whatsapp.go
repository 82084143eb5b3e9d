package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"invitation-platform/internal/models"

	"github.com/rs/zerolog"
)

// NotificationService interface for outbound owner and guest messaging.
// Implementations must be safe for fire-and-forget use: callers never roll
// anything back when a send fails.
type NotificationService interface {
	SendGuestInvite(guest *models.Guest, event *models.Event) error
	SendOrderCompleted(phone string, order *models.Order) error
	SendEventDecision(phone string, event *models.Event) error
}

// WhatsAppConfig represents WhatsApp Business Cloud API configuration
type WhatsAppConfig struct {
	APIBaseURL  string
	AccessToken string
	SenderID    string
}

// WhatsAppService sends messages through the WhatsApp Business Cloud API
type WhatsAppService struct {
	config WhatsAppConfig
	client *http.Client
	log    zerolog.Logger
}

// NewWhatsAppService creates a new WhatsApp messaging service
func NewWhatsAppService(config WhatsAppConfig, log zerolog.Logger) *WhatsAppService {
	if config.APIBaseURL == "" {
		config.APIBaseURL = "https://graph.facebook.com/v19.0"
	}
	return &WhatsAppService{
		config: config,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log.With().Str("component", "whatsapp").Logger(),
	}
}

type whatsappTextMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             whatsappText `json:"text"`
}

type whatsappText struct {
	Body string `json:"body"`
}

type whatsappSendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

// SendGuestInvite sends the invitation card message to a guest
func (s *WhatsAppService) SendGuestInvite(guest *models.Guest, event *models.Event) error {
	message := fmt.Sprintf(
		"*%s*\n\nDear %s,\n\nYou are invited to %s in %s on %s.\nThis invitation covers %d guests.\n\nYour invitation card: %s\n\nPlease reply YES to accept or NO to decline.",
		event.Title, guest.Name, event.Title, event.City,
		event.Date.Format("2 January 2006"), guest.NumberOfAccompanying, event.CardImageURL,
	)
	return s.sendText(guest.Phone, message)
}

// SendOrderCompleted notifies the owner that payment went through and their
// events were created.
func (s *WhatsAppService) SendOrderCompleted(phone string, order *models.Order) error {
	message := fmt.Sprintf(
		"Your payment was received. Order %s is confirmed and your %d invitation(s) are now with our design team for review.",
		order.OrderNumber, len(order.Items),
	)
	return s.sendText(phone, message)
}

// SendEventDecision notifies the owner of the admin review outcome
func (s *WhatsAppService) SendEventDecision(phone string, event *models.Event) error {
	var message string
	if event.IsApproved() {
		message = fmt.Sprintf(
			"Good news! The invitation card for %q was approved and is ready to send to your guests.",
			event.Title,
		)
	} else {
		message = fmt.Sprintf(
			"The invitation card for %q needs changes before approval: %s. Please contact support to resubmit.",
			event.Title, event.RejectionReason,
		)
	}
	return s.sendText(phone, message)
}

func (s *WhatsAppService) sendText(phone, body string) error {
	payload := whatsappTextMessage{
		MessagingProduct: "whatsapp",
		To:               NormalizePhoneNumber(phone),
		Type:             "text",
		Text:             whatsappText{Body: body},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", s.config.APIBaseURL, s.config.SenderID)
	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create message request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read send response: %w", err)
	}

	var sendResp whatsappSendResponse
	if err := json.Unmarshal(bodyBytes, &sendResp); err != nil {
		return fmt.Errorf("failed to decode send response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || sendResp.Error != nil {
		if sendResp.Error != nil {
			return fmt.Errorf("whatsapp API error %d: %s", sendResp.Error.Code, sendResp.Error.Message)
		}
		return fmt.Errorf("whatsapp API returned status %d", resp.StatusCode)
	}

	if len(sendResp.Messages) > 0 {
		s.log.Debug().Str("message_id", sendResp.Messages[0].ID).Msg("message sent")
	}
	return nil
}

// NormalizePhoneNumber strips formatting characters and the leading plus so
// the number matches the wa_id format the Cloud API expects.
func NormalizePhoneNumber(phone string) string {
	replacer := strings.NewReplacer("+", "", " ", "", "-", "", "(", "", ")", "")
	return replacer.Replace(phone)
}
