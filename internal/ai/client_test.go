// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelocantos/fool/internal/config"
	"github.com/marcelocantos/fool/internal/history"
)

type fakeSource []history.Message

func (f fakeSource) FormatForAI(n int) []history.Message {
	if n < len(f) {
		return f[len(f)-n:]
	}
	return f
}

func testConfig(base string) config.AIConfig {
	return config.AIConfig{
		APIBase:      base,
		APIKey:       "sk-test",
		Model:        "test-model",
		Temperature:  0.2,
		ContextLines: 10,
		SystemPrompt: "be brief",
		Timeout:      "5s",
	}
}

func TestQueryStreams(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Use ", "`tar xzf`", "."} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "data: not json\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"ignored\"}}]}\n\n")
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL + "/v1/"))
	src := fakeSource{
		{Role: "user", Content: "ls"},
		{Role: "assistant", Content: "(Exit Code: 0)"},
	}
	var out bytes.Buffer
	answer, err := c.Query(context.Background(), "how to unzip", src, &out)
	require.NoError(t, err)
	assert.Equal(t, "Use `tar xzf`.", answer)
	assert.Equal(t, answer, out.String())

	assert.Equal(t, "test-model", got.Model)
	assert.True(t, got.Stream)
	assert.InDelta(t, 0.2, got.Temperature, 1e-9)
	assert.Equal(t, []history.Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "ls"},
		{Role: "assistant", Content: "(Exit Code: 0)"},
		{Role: "user", Content: "how to unzip"},
	}, got.Messages)
}

func TestQueryHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := New(testConfig(srv.URL)).Query(context.Background(), "q", nil, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "bad key")
}

func TestQueryTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := testConfig(srv.URL)
	cfg.Timeout = "50ms"
	start := time.Now()
	_, err := New(cfg).Query(context.Background(), "q", nil, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNotConfigured(t *testing.T) {
	t.Setenv("FOOL_AI_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	cfg := testConfig("http://127.0.0.1:0")
	cfg.APIKey = ""
	c := New(cfg)
	assert.False(t, c.IsConfigured())
	_, err := c.Query(context.Background(), "q", nil, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	t.Setenv("FOOL_AI_KEY", "from-env")
	assert.True(t, c.IsConfigured())
}

func TestMessagesRespectsContextLines(t *testing.T) {
	cfg := testConfig("")
	cfg.ContextLines = 0
	msgs := New(cfg).Messages("q", fakeSource{{Role: "user", Content: "ls"}})
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "q", msgs[1].Content)
}

func TestReadStreamHandlesDataWithoutSpace(t *testing.T) {
	in := strings.NewReader("data:{\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\ndata:{\"choices\":[{\"delta\":{}}]}\n")
	var out bytes.Buffer
	answer, err := readStream(in, &out)
	require.NoError(t, err)
	assert.Equal(t, "a", answer)
}
