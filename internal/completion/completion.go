// Package completion talks to an OpenAI-compatible chat-completion API.
package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/edugen-platform/edugen/internal/config"
)

var (
	// ErrNotConfigured is returned when no API key was supplied.
	ErrNotConfigured = errors.New("completion API key is not configured")
	// ErrEmptyResponse is returned when the API answered without choices.
	ErrEmptyResponse = errors.New("completion returned no choices")
)

// Request is one system + user exchange. JSONObject asks the provider to
// constrain the reply to a JSON object where it supports that mode.
type Request struct {
	System     string
	Prompt     string
	JSONObject bool
}

// Completer returns the text of the first choice for req.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Client is a Completer backed by go-openai. Calls are never retried.
type Client struct {
	client     *openai.Client
	model      string
	structured bool
}

var _ Completer = (*Client)(nil)

func NewClient(cfg config.AIConfig) *Client {
	if cfg.APIKey == "" {
		return &Client{}
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	oc.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		client:     openai.NewClientWithConfig(oc),
		model:      cfg.Model,
		structured: cfg.Structured,
	}
}

func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if c.client == nil {
		return "", ErrNotConfigured
	}

	chatReq := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}
	if c.structured && req.JSONObject {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("chat completion: upstream status %d: %w", apiErr.HTTPStatusCode, err)
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
