// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package ai answers natural-language questions through an
// OpenAI-compatible chat completions endpoint, streaming the reply.
package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/marcelocantos/fool/internal/config"
	"github.com/marcelocantos/fool/internal/history"
)

// ErrNotConfigured is returned when no API key is available.
var ErrNotConfigured = errors.New("AI is not configured: set ai.api_key or FOOL_AI_KEY")

// Source provides recent shell activity as conversation context.
type Source interface {
	FormatForAI(n int) []history.Message
}

// Client streams chat completions.
type Client struct {
	Config     config.AIConfig
	HTTPClient *http.Client
}

// New creates a client for cfg.
func New(cfg config.AIConfig) *Client {
	return &Client{Config: cfg}
}

// IsConfigured reports whether an API key is available.
func (c *Client) IsConfigured() bool {
	return c.Config.APIKeyValue() != ""
}

type chatRequest struct {
	Model       string            `json:"model"`
	Messages    []history.Message `json:"messages"`
	Temperature float64           `json:"temperature"`
	Stream      bool              `json:"stream"`
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Messages builds the conversation sent for query.
func (c *Client) Messages(query string, src Source) []history.Message {
	msgs := []history.Message{{Role: "system", Content: c.Config.SystemPrompt}}
	if src != nil && c.Config.ContextLines > 0 {
		msgs = append(msgs, src.FormatForAI(c.Config.ContextLines)...)
	}
	return append(msgs, history.Message{Role: "user", Content: query})
}

// Query sends query with context from src and writes the reply to w as it
// arrives. It returns the whole reply.
func (c *Client) Query(ctx context.Context, query string, src Source, w io.Writer) (string, error) {
	key := c.Config.APIKeyValue()
	if key == "" {
		return "", ErrNotConfigured
	}

	timeout := c.Config.TimeoutDuration()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model:       c.Config.Model,
		Messages:    c.Messages(query, src),
		Temperature: c.Config.Temperature,
		Stream:      true,
	})
	if err != nil {
		return "", fmt.Errorf("encode AI request: %w", err)
	}

	url := strings.TrimRight(c.Config.APIBase, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build AI request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+key)

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("AI request timed out after %v", timeout)
		}
		return "", fmt.Errorf("AI request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("AI request failed: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	answer, err := readStream(resp.Body, w)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return answer, fmt.Errorf("AI response timed out after %v", timeout)
		}
		return answer, err
	}
	return answer, nil
}

// readStream decodes server-sent events until [DONE] or EOF, copying each
// content delta to w.
func readStream(r io.Reader, w io.Writer) (string, error) {
	var answer strings.Builder
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			break
		}
		var chunk chatChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		for _, ch := range chunk.Choices {
			if ch.Delta.Content == "" {
				continue
			}
			answer.WriteString(ch.Delta.Content)
			if _, err := io.WriteString(w, ch.Delta.Content); err != nil {
				return answer.String(), fmt.Errorf("write AI response: %w", err)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return answer.String(), fmt.Errorf("read AI response: %w", err)
	}
	return answer.String(), nil
}

// DefaultHTTPClient returns a client with a connect timeout suitable for
// interactive use; the overall deadline comes from the request context.
func DefaultHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 60 * time.Second,
		},
	}
}
