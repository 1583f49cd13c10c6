package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/aula/internal/llm"
)

func TestCreateChatCompletion(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			var req llm.ChatCompletionRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "gpt-4o", req.Model)
			require.Len(t, req.Messages, 2)
			assert.Equal(t, "system", req.Messages[0].Role)

			resp := llm.ChatCompletionResponse{
				ID: "cmpl-1",
				Choices: []llm.Choice{{
					Message: &llm.ChatMessage{
						Role:    "assistant",
						Content: "Done.",
						ToolCalls: []llm.ToolCall{{
							ID:   "call-1",
							Type: "function",
							Function: llm.ToolCallFunction{
								Name:      "dataChange",
								Arguments: `{"entity":"student"}`,
							},
						}},
					},
					FinishReason: "tool_calls",
				}},
			}
			require.NoError(t, json.NewEncoder(w).Encode(resp))
		}))
		defer srv.Close()

		client := llm.New(srv.URL, "test-key", 5*time.Second)
		resp, err := client.CreateChatCompletion(context.Background(), &llm.ChatCompletionRequest{
			Model: "gpt-4o",
			Messages: []llm.ChatMessage{
				{Role: "system", Content: "policy"},
				{Role: "user", Content: "hello"},
			},
		})

		require.NoError(t, err)
		require.Len(t, resp.Choices, 1)
		require.Len(t, resp.Choices[0].Message.ToolCalls, 1)
		assert.Equal(t, "dataChange", resp.Choices[0].Message.ToolCalls[0].Function.Name)
	})

	t.Run("base_url_with_v1_suffix", func(t *testing.T) {
		t.Parallel()

		var gotPath string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			require.NoError(t, json.NewEncoder(w).Encode(llm.ChatCompletionResponse{ID: "cmpl-2"}))
		}))
		defer srv.Close()

		// Operators commonly configure the OpenAI-style base URL with the
		// /v1 prefix already attached; the path must not double it.
		client := llm.New(srv.URL+"/v1", "", 5*time.Second)
		_, err := client.CreateChatCompletion(context.Background(), &llm.ChatCompletionRequest{Model: "gpt-4o"})

		require.NoError(t, err)
		assert.Equal(t, "/v1/chat/completions", gotPath)
	})

	t.Run("server_error_is_unavailable", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream timeout","type":"server_error"}}`))
		}))
		defer srv.Close()

		client := llm.New(srv.URL, "", 5*time.Second)
		_, err := client.CreateChatCompletion(context.Background(), &llm.ChatCompletionRequest{Model: "gpt-4o"})

		require.Error(t, err)
		assert.ErrorIs(t, err, llm.ErrUnavailable)
	})

	t.Run("unreachable_is_unavailable", func(t *testing.T) {
		t.Parallel()

		client := llm.New("http://127.0.0.1:1", "", 500*time.Millisecond)
		_, err := client.CreateChatCompletion(context.Background(), &llm.ChatCompletionRequest{Model: "gpt-4o"})

		require.Error(t, err)
		assert.ErrorIs(t, err, llm.ErrUnavailable)
	})
}
