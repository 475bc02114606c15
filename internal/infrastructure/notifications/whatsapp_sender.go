package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vitalscan/breathmon/backend/internal/domain/providers"
	"github.com/vitalscan/breathmon/backend/pkg/config"
	"github.com/vitalscan/breathmon/backend/pkg/retry"
)

// WhatsAppCloudSender delivers report-ready notifications to doctors via
// the WhatsApp Cloud API.
type WhatsAppCloudSender struct {
	accessToken   string
	phoneNumberID string
	templateName  string
	httpClient    *http.Client
	baseURL       string
}

// NewWhatsAppCloudSender creates a new WhatsApp sender
func NewWhatsAppCloudSender(cfg *config.NotificationConfig) (*WhatsAppCloudSender, error) {
	if cfg.AccessToken == "" || cfg.PhoneNumberID == "" {
		return nil, fmt.Errorf("whatsapp access token and phone number id must be set")
	}

	templateName := cfg.TemplateName
	if templateName == "" {
		templateName = "report_ready"
	}

	return &WhatsAppCloudSender{
		accessToken:   cfg.AccessToken,
		phoneNumberID: cfg.PhoneNumberID,
		templateName:  templateName,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: "https://graph.facebook.com/v18.0",
	}, nil
}

// WhatsAppTemplateMessage represents a template message
type WhatsAppTemplateMessage struct {
	MessagingProduct string                      `json:"messaging_product"`
	RecipientType    string                      `json:"recipient_type"`
	To               string                      `json:"to"`
	Type             string                      `json:"type"`
	Template         WhatsAppTemplateMessageBody `json:"template"`
}

// WhatsAppTemplateMessageBody represents the template body
type WhatsAppTemplateMessageBody struct {
	Name       string                             `json:"name"`
	Language   WhatsAppLanguage                   `json:"language"`
	Components []WhatsAppTemplateMessageComponent `json:"components,omitempty"`
}

// WhatsAppLanguage represents the language code
type WhatsAppLanguage struct {
	Code string `json:"code"`
}

// WhatsAppTemplateMessageComponent represents a template component
type WhatsAppTemplateMessageComponent struct {
	Type       string                      `json:"type"`
	Parameters []WhatsAppTemplateParameter `json:"parameters"`
}

// WhatsAppTemplateParameter represents a template parameter
type WhatsAppTemplateParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SendReportReady sends the report-ready template to the doctor's phone.
// Delivery is retried with backoff; a notification is best-effort and
// failure never affects the report itself.
func (s *WhatsAppCloudSender) SendReportReady(ctx context.Context, notification *providers.ReportNotification) error {
	message := WhatsAppTemplateMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               notification.ToPhone,
		Type:             "template",
		Template: WhatsAppTemplateMessageBody{
			Name:     s.templateName,
			Language: WhatsAppLanguage{Code: "en"},
			Components: []WhatsAppTemplateMessageComponent{
				{
					Type: "body",
					Parameters: []WhatsAppTemplateParameter{
						{Type: "text", Text: notification.PatientName},
						{Type: "text", Text: notification.JobID},
					},
				},
			},
		},
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal whatsapp message: %w", err)
	}

	cfg := retry.Config{
		MaxAttempts:     3,
		InitialDelay:    500 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		BackoffFactor:   2.0,
		MaxTotalTimeout: 30 * time.Second,
	}

	return retry.Do(ctx, cfg, func() error {
		return s.send(ctx, body)
	})
}

func (s *WhatsAppCloudSender) send(ctx context.Context, body []byte) error {
	url := fmt.Sprintf("%s/%s/messages", s.baseURL, s.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build whatsapp request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("whatsapp request failed with status %d: %s", resp.StatusCode, string(payload))
	}

	return nil
}
