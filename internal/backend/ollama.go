// internal/backend/ollama.go
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

// Ollama talks to a local Ollama server's non-streaming generate endpoint.
type Ollama struct {
	client  *http.Client
	baseURL string
	model   string
}

// NewOllama constructs an Ollama backend. baseURL defaults to the standard
// local daemon address when empty.
func NewOllama(model, baseURL string, timeout time.Duration) *Ollama {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "http://localhost:11434"
	}
	return &Ollama{
		client: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{ForceAttemptHTTP2: false},
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
	}
}

// Name identifies the backend for logging.
func (o *Ollama) Name() string { return "ollama" }

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Generate sends prompt to /api/generate and returns the full response text.
func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(ollamaRequest{Model: o.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", err
	}

	endpoint := o.baseURL + "/api/generate"
	logging.LogRequest("SCOUR->LLM", endpoint, o.model, len(body))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama: request failed: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ollama: could not read response: %w", err)
	}
	logging.LogRequest("LLM->SCOUR", endpoint, o.model, len(respBody))

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("ollama: %s returned %s: %s", endpoint, resp.Status, strings.TrimSpace(string(respBody)))
	}

	var decoded ollamaResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", fmt.Errorf("ollama: could not decode response: %w", err)
	}
	if decoded.Error != "" {
		return "", fmt.Errorf("ollama: API error: %s", decoded.Error)
	}
	return decoded.Response, nil
}
