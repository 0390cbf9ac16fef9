// internal/backend/openai.go
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/scourlabs/scour/internal/logging"
)

// OpenAI talks to any OpenAI-compatible chat completions endpoint
// (llama.cpp server, vLLM, the OpenAI API itself).
type OpenAI struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// NewOpenAI constructs an OpenAI-compatible backend. baseURL defaults to the
// public OpenAI endpoint when empty.
func NewOpenAI(model, apiKey, baseURL string, timeout time.Duration) *OpenAI {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAI{
		client: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{ForceAttemptHTTP2: false},
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
	}
}

// Name identifies the backend for logging.
func (o *OpenAI) Name() string { return "openai" }

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends prompt as a single user message and returns the first
// choice's content.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	payload := chatRequest{
		Model:    o.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	endpoint := o.baseURL + "/chat/completions"
	logging.LogRequest("SCOUR->LLM", endpoint, o.model, len(body))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("openai: could not read response: %w", err)
	}
	logging.LogRequest("LLM->SCOUR", endpoint, o.model, len(respBody))

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("openai: %s returned %s: %s", endpoint, resp.Status, strings.TrimSpace(string(respBody)))
	}

	var decoded chatResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", fmt.Errorf("openai: could not decode response: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("openai: API error: %s", decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("openai: response contained no choices")
	}
	return decoded.Choices[0].Message.Content, nil
}
