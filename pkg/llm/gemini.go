package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"call-analyzer/pkg/errors"
	"call-analyzer/pkg/version"
)

// Client produces a JSON document for a prompt
type Client interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// Defaults for the Gemini REST API
const (
	DefaultModel       = "gemini-2.0-flash"
	DefaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	DefaultTemperature = 0.1
	DefaultTimeout     = 60 * time.Second
)

// GeminiConfig configures GeminiClient
type GeminiConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	Timeout     time.Duration
}

// GeminiClient calls the generateContent endpoint of the Gemini API
type GeminiClient struct {
	logger     *logrus.Logger
	config     GeminiConfig
	httpClient *http.Client
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType"`
	Temperature      float64 `json:"temperature"`
}

type generateRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewGeminiClient creates a client, filling unset fields with defaults.
// An empty API key is accepted here and reported on each request.
func NewGeminiClient(logger *logrus.Logger, config GeminiConfig) *GeminiClient {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Temperature <= 0 {
		config.Temperature = DefaultTemperature
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	return &GeminiClient{
		logger: logger,
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Model returns the configured model name
func (c *GeminiClient) Model() string {
	return c.config.Model
}

// HasCredential reports whether an API key is configured
func (c *GeminiClient) HasCredential() bool {
	return c.config.APIKey != ""
}

// GenerateJSON sends one request in JSON response mode and returns the text
// of the first candidate. There is no retry.
func (c *GeminiClient) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	if !c.HasCredential() {
		return "", errors.NewConfiguration("Gemini API key is not set.")
	}

	body, err := json.Marshal(generateRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			Temperature:      c.config.Temperature,
		},
	})
	if err != nil {
		return "", errors.NewExternalService(err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.config.BaseURL, "/"), c.config.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", errors.NewExternalService(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.config.APIKey)
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.NewExternalService(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.NewExternalService(err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		msg := strings.TrimSpace(string(payload))
		if json.Unmarshal(payload, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		c.logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"model":       c.config.Model,
		}).Warn("Gemini API returned an error")
		return "", errors.NewExternalService(fmt.Errorf("status %d: %s", resp.StatusCode, msg)).
			WithField("status_code", resp.StatusCode)
	}

	var result generateResponse
	if err := json.Unmarshal(payload, &result); err != nil {
		return "", errors.NewExternalService(fmt.Errorf("invalid response envelope: %w", err))
	}

	if result.PromptFeedback.BlockReason != "" {
		return "", errors.NewExternalService(fmt.Errorf("prompt blocked: %s", result.PromptFeedback.BlockReason))
	}
	if len(result.Candidates) == 0 {
		return "", errors.NewExternalService(fmt.Errorf("response contained no candidates"))
	}

	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	c.logger.WithFields(logrus.Fields{
		"model":         c.config.Model,
		"finish_reason": result.Candidates[0].FinishReason,
		"response_len":  text.Len(),
	}).Debug("Gemini response received")

	return text.String(), nil
}
