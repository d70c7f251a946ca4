// Package ai talks to the OpenAI-compatible inference router that generates
// paper drafts and question embeddings.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/SAP-F-2025/qpaper-service/internal/errors"
)

type Config struct {
	BaseURL    string
	APIKey     string
	ChatModel  string
	EmbedModel string
	Timeout    time.Duration
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Generator produces chat completions and embeddings. Services depend on
// this interface so tests can stub the collaborator.
type Generator interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
	Embed(ctx context.Context, text string) ([]float64, error)
}

type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: &http.Client{Timeout: timeout}}
}

type chatBody struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Complete returns the content of the first choice.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (string, error) {
	var resp chatResponse
	err := c.post(ctx, "/chat/completions", chatBody{
		Model:       c.cfg.ChatModel,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: chat completion returned no choices", apperrors.ErrNetworkFailed)
	}
	return resp.Choices[0].Message.Content, nil
}

type embedBody struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding json.RawMessage `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding of text. Some models answer with one vector
// per token; those are flattened in order.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	var resp embedResponse
	if err := c.post(ctx, "/embeddings", embedBody{Model: c.cfg.EmbedModel, Input: text}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: embeddings returned no data", apperrors.ErrNetworkFailed)
	}
	vec, err := FlattenEmbedding(resp.Data[0].Embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrNetworkFailed, err)
	}
	return vec, nil
}

// FlattenEmbedding accepts a flat or arbitrarily nested array of numbers.
func FlattenEmbedding(raw json.RawMessage) ([]float64, error) {
	var flat []float64
	if err := json.Unmarshal(raw, &flat); err == nil {
		return flat, nil
	}
	var nested []json.RawMessage
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	var out []float64
	for _, part := range nested {
		vec, err := FlattenEmbedding(part)
		if err != nil {
			return nil, err
		}
		out = append(out, vec...)
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrNetworkFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrNetworkFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", apperrors.ErrNetworkFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s answered %d: %s", apperrors.ErrNetworkFailed, path, resp.StatusCode, errorMessage(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", apperrors.ErrNetworkFailed, err)
	}
	return nil
}

func errorMessage(raw []byte) string {
	var body struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && len(body.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
		var s string
		if json.Unmarshal(body.Error, &s) == nil && s != "" {
			return s
		}
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
