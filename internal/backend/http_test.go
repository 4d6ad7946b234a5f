// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatdesk/internal/backend"
	"github.com/jeranaias/chatdesk/internal/backend/backendtest"
	"github.com/jeranaias/chatdesk/internal/events"
	"github.com/jeranaias/chatdesk/internal/ollama"
)

// =============================================================================
// OLLAMA
// =============================================================================

func newOllamaServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Ollama is running")
	})
	mux.HandleFunc("/api/version", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"version":"0.5.7"}`)
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req ollama.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
			return
		}
		last := req.Messages[len(req.Messages)-1].Content

		if !req.Stream {
			fmt.Fprintf(w, `{"model":%q,"message":{"role":"assistant","content":"re: %s"},"done":true}`, req.Model, last)
			return
		}
		fmt.Fprintln(w, `{"message":{"content":"Hi"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"content":" there"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"content":""},"done":true}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newOllamaBackend(url string, pub events.Publisher) *backend.Ollama {
	client := ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: url, DefaultModel: "llama3.2"})
	return backend.NewOllama(client, "be brief", pub, zerolog.Nop())
}

func TestOllama_AvailabilityAndInfo(t *testing.T) {
	srv := newOllamaServer(t)
	b := newOllamaBackend(srv.URL, backendtest.NewRecorder())

	ok, err := b.CheckAvailable(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	info, err := b.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ollama 0.5.7 · llama3.2", info)
}

func TestOllama_NotRunning(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	rec := backendtest.NewRecorder()
	b := newOllamaBackend(url, rec)

	ok, err := b.CheckAvailable(context.Background())
	assert.NoError(t, err)
	assert.False(t, ok)

	_, err = b.Send(context.Background(), "hi")
	assert.ErrorIs(t, err, backend.ErrUnavailable)

	require.NoError(t, b.StartStream(context.Background(), backend.StreamRequest{ID: "s1", Text: "hi"}))
	evs := waitTerminal(t, rec)
	require.Len(t, evs, 1)
	assert.Equal(t, events.KindError, evs[0].Kind)
	assert.Contains(t, evs[0].Message, "not running")
}

func TestOllama_Send(t *testing.T) {
	srv := newOllamaServer(t)
	b := newOllamaBackend(srv.URL, backendtest.NewRecorder())

	reply, err := b.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, backend.Reply{Success: true, Message: "re: hello"}, *reply)
}

func TestOllama_StartStream(t *testing.T) {
	srv := newOllamaServer(t)
	rec := backendtest.NewRecorder()
	b := newOllamaBackend(srv.URL, rec)

	require.NoError(t, b.StartStream(context.Background(), backend.StreamRequest{ID: "s1", Text: "hello"}))
	evs := waitTerminal(t, rec)

	require.Len(t, evs, 3)
	assert.Equal(t, "Hi there", joinChunks(evs))
	assert.Equal(t, events.KindComplete, evs[2].Kind)
	assert.Equal(t, "s1", evs[2].StreamID)
}

// =============================================================================
// OPENAI
// =============================================================================

func newOpenAIServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","data":[{"id":"gpt-oss-20b","object":"model"}]}`)
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Stream   bool   `json:"stream"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		last := req.Messages[len(req.Messages)-1].Content

		if last == "reject" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":{"message":"invalid api key","type":"invalid_request_error"}}`)
			return
		}

		if !req.Stream {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"id":"c1","object":"chat.completion","model":%q,"choices":[{"index":0,"message":{"role":"assistant","content":"re: %s"},"finish_reason":"stop"}]}`, req.Model, last)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Hi", " there"} {
			fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newOpenAIBackend(url string, pub events.Publisher) *backend.OpenAI {
	return backend.NewOpenAI(backend.OpenAIConfig{
		BaseURL:      url + "/v1/",
		Model:        "gpt-oss-20b",
		SystemPrompt: "be brief",
	}, pub, zerolog.Nop())
}

func TestOpenAI_AvailabilityAndInfo(t *testing.T) {
	srv := newOpenAIServer(t)
	b := newOpenAIBackend(srv.URL, backendtest.NewRecorder())

	ok, err := b.CheckAvailable(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	info, err := b.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "gpt-oss-20b @ "+srv.URL+"/v1", info)
}

func TestOpenAI_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	b := newOpenAIBackend(url, backendtest.NewRecorder())
	ok, err := b.CheckAvailable(context.Background())
	assert.False(t, ok)
	assert.Equal(t, backend.KindTransport, backend.KindOf(err))

	err = b.StartStream(context.Background(), backend.StreamRequest{ID: "s1", Text: "hi"})
	assert.Equal(t, backend.KindTransport, backend.KindOf(err))
}

func TestOpenAI_Send(t *testing.T) {
	srv := newOpenAIServer(t)
	b := newOpenAIBackend(srv.URL, backendtest.NewRecorder())

	reply, err := b.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, backend.Reply{Success: true, Message: "re: hello"}, *reply)

	_, err = b.Send(context.Background(), "reject")
	require.Error(t, err)
	assert.Equal(t, backend.KindAPI, backend.KindOf(err))
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestOpenAI_StartStream(t *testing.T) {
	srv := newOpenAIServer(t)
	rec := backendtest.NewRecorder()
	b := newOpenAIBackend(srv.URL, rec)

	require.NoError(t, b.StartStream(context.Background(), backend.StreamRequest{ID: "s9", Text: "hello"}))
	evs := waitTerminal(t, rec)

	require.Len(t, evs, 3)
	assert.Equal(t, "Hi there", joinChunks(evs))
	assert.Equal(t, events.KindComplete, evs[2].Kind)
	assert.Equal(t, "s9", evs[0].StreamID)
}
