package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama3.2"
)

// Ollama calls /api/generate on an Ollama server.
type Ollama struct {
	BaseURL string
	Model   string
	HTTP    *http.Client
}

func NewOllama(baseURL, model string) *Ollama {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if model == "" {
		model = defaultOllamaModel
	}
	return &Ollama{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		HTTP:    &http.Client{Timeout: 5 * time.Minute},
	}
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

func (c *Ollama) Infer(ctx context.Context, question, qaContext string) (Answer, error) {
	body, err := json.Marshal(ollamaRequest{Model: c.Model, Prompt: qaPrompt(question, qaContext)})
	if err != nil {
		return Answer{}, AsInferenceError(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return Answer{}, AsInferenceError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Answer{}, Errorf("ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return Answer{}, &InferenceError{Cause: fmt.Sprintf("ollama error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(msg)))}
	}
	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Answer{}, Errorf("ollama: decode response: %w", err)
	}
	if out.Error != "" {
		return Answer{}, &InferenceError{Cause: "ollama: " + out.Error}
	}
	return Answer{Text: strings.TrimSpace(out.Response)}, nil
}
