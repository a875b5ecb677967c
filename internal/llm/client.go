// Package llm is a small client for OpenAI-compatible chat completion APIs.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/oggyb/ember/internal/config"
)

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("llm disabled")

// ErrMalformed is returned when the reply is not the JSON shape asked for.
var ErrMalformed = errors.New("llm reply malformed")

type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

func New(cfg *config.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.LLM.BaseURL, "/"),
		apiKey:  cfg.LLM.APIKey,
		model:   cfg.LLM.Model,
		http:    &http.Client{Timeout: cfg.LLM.Timeout},
	}
}

func (c *Client) Enabled() bool { return c.apiKey != "" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

// Complete sends one system + user turn and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm status %d: %s", resp.StatusCode, gjson.GetBytes(raw, "error.message").String())
	}

	content := gjson.GetBytes(raw, "choices.0.message.content")
	if !content.Exists() {
		return "", ErrMalformed
	}
	return content.String(), nil
}

// jsonArray extracts the JSON array from a reply, tolerating ``` fences and prose around it.
func jsonArray(content string) (gjson.Result, error) {
	start, end := strings.Index(content, "["), strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return gjson.Result{}, ErrMalformed
	}
	s := content[start : end+1]
	if !gjson.Valid(s) {
		return gjson.Result{}, ErrMalformed
	}
	return gjson.Parse(s), nil
}

// Indices parses a reply like "[3, 0, 7]". Out of range or duplicate entries are dropped.
func Indices(content string, n int) ([]int, error) {
	arr, err := jsonArray(content)
	if err != nil {
		return nil, err
	}
	seen := make(map[int]bool)
	var out []int
	for _, v := range arr.Array() {
		if v.Type != gjson.Number {
			continue
		}
		i := int(v.Int())
		if i < 0 || i >= n || seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, i)
	}
	return out, nil
}

// Strings parses a reply like ["a", "b"]. Empty entries are dropped.
func Strings(content string) ([]string, error) {
	arr, err := jsonArray(content)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, v := range arr.Array() {
		if s := strings.TrimSpace(v.String()); s != "" && v.Type == gjson.String {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, ErrMalformed
	}
	return out, nil
}
