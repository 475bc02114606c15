package xai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/vitalscan/breathmon/backend/pkg/config"
	apperrors "github.com/vitalscan/breathmon/backend/pkg/errors"
)

const defaultBaseURL = "https://api.x.ai/v1"

// Client talks to the xAI chat completions API for the imaging slot,
// attaching image references alongside the text prompt. Like the text
// client it performs exactly one call and never retries.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new xAI client.
func NewClient(cfg *config.XAIConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("xai api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "grok-2-vision-1212"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateWithAttachments sends the prompt plus every attachment
// reference as an image part. Attachment order is sorted by category so
// the request body is deterministic for a given input.
func (c *Client) GenerateWithAttachments(ctx context.Context, userPrompt string, attachments map[string]string) (string, error) {
	if strings.TrimSpace(userPrompt) == "" {
		return "", apperrors.NewValidationError("user prompt must be a non-empty string")
	}

	parts := []contentPart{{Type: "text", Text: userPrompt}}

	categories := make([]string, 0, len(attachments))
	for category := range attachments {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		ref := attachments[category]
		if strings.TrimSpace(ref) == "" {
			return "", apperrors.NewValidationError(fmt.Sprintf("empty attachment reference for category %s", category))
		}
		if _, err := url.ParseRequestURI(ref); err != nil {
			return "", apperrors.NewValidationError(fmt.Sprintf("malformed attachment reference for category %s", category))
		}
		parts = append(parts, contentPart{
			Type:     "image_url",
			ImageURL: &imageURL{URL: ref, Detail: "auto"},
		})
	}

	payload := chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: parts}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", apperrors.NewInternalError("failed to encode completion request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", apperrors.NewInternalError("failed to build completion request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewUpstreamError("imaging backend unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperrors.NewUpstreamError(
			fmt.Sprintf("imaging backend returned status %d", resp.StatusCode),
			fmt.Errorf("status %d", resp.StatusCode),
		)
	}

	var envelope chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", apperrors.NewUpstreamError("malformed response from imaging backend", err)
	}

	if len(envelope.Choices) == 0 || strings.TrimSpace(envelope.Choices[0].Message.Content) == "" {
		return "", apperrors.NewUpstreamError("imaging backend returned an empty completion", errors.New("empty completion"))
	}

	return strings.TrimSpace(envelope.Choices[0].Message.Content), nil
}
