package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/calls/generator"
)

func mockChatServer(t *testing.T, message map[string]any, seen *map[string]any) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}

		response := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "gpt-4o",
			"choices": []map[string]any{{"index": 0, "message": message, "finish_reason": "stop"}},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
}

func TestGenerate_Text(t *testing.T) {
	var body map[string]any
	srv := mockChatServer(t, map[string]any{"role": "assistant", "content": `{"overall":"neutral"}`}, &body)
	defer srv.Close()

	g := NewGenerator(
		generator.WithApiKey("sk-test"),
		generator.WithModel("gpt-4o"),
		generator.WithBaseURL(srv.URL),
		generator.WithHTTPClient(srv.Client()),
	)

	reply, err := g.Generate(context.Background(), generator.Request{
		System: "respond with JSON",
		Prompt: "analyze",
		JSON:   true,
	})
	require.NoError(t, err)

	text, ok := reply.Text()
	require.True(t, ok)
	assert.Equal(t, `{"overall":"neutral"}`, text)

	assert.Equal(t, "gpt-4o", body["model"])
	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "respond with JSON", messages[0].(map[string]any)["content"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])
	assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])
}

func TestGenerate_ToolCallOnly(t *testing.T) {
	srv := mockChatServer(t, map[string]any{
		"role":    "assistant",
		"content": "",
		"tool_calls": []map[string]any{
			{"id": "call_1", "type": "function", "function": map[string]any{"name": "lookup", "arguments": "{}"}},
		},
	}, nil)
	defer srv.Close()

	g := NewGenerator(
		generator.WithApiKey("sk-test"),
		generator.WithBaseURL(srv.URL),
		generator.WithHTTPClient(srv.Client()),
	)

	reply, err := g.Generate(context.Background(), generator.Request{Prompt: "analyze"})
	require.NoError(t, err)

	_, ok := reply.Text()
	assert.False(t, ok)
	require.Len(t, reply.Parts, 1)
	assert.Equal(t, generator.PartToolCall, reply.Parts[0].Type)
}

func TestGenerate_EmptyContent(t *testing.T) {
	srv := mockChatServer(t, map[string]any{"role": "assistant", "content": ""}, nil)
	defer srv.Close()

	g := NewGenerator(
		generator.WithApiKey("sk-test"),
		generator.WithBaseURL(srv.URL),
		generator.WithHTTPClient(srv.Client()),
	)

	reply, err := g.Generate(context.Background(), generator.Request{Prompt: "analyze", JSON: true})
	require.NoError(t, err)

	text, ok := reply.Text()
	require.True(t, ok)
	assert.Empty(t, text)
	require.Len(t, reply.Parts, 1)
	assert.Equal(t, generator.PartText, reply.Parts[0].Type)
}

func TestGenerate_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	g := NewGenerator(
		generator.WithApiKey("sk-test"),
		generator.WithBaseURL(srv.URL),
		generator.WithHTTPClient(srv.Client()),
	)

	_, err := g.Generate(context.Background(), generator.Request{Prompt: "analyze"})
	require.Error(t, err)
}
