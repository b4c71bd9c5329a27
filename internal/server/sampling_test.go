package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcp-nutrition-log/internal/config"
)

type gatewayCall struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  struct {
		Name      string `json:"name"`
		Arguments struct {
			Model        string  `json:"model"`
			SystemPrompt string  `json:"system_prompt"`
			MaxTokens    int     `json:"max_tokens"`
			Temperature  float64 `json:"temperature"`
			Messages     []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		} `json:"arguments"`
	} `json:"params"`
}

// newGateway stands in for the MCP proxy's OpenRouter gateway.
func newGateway(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	gw := httptest.NewServer(handler)
	t.Cleanup(gw.Close)
	return gw
}

func withGateway(url string) func(*config.Config) {
	return func(cfg *config.Config) {
		cfg.Chat.ProxyURL = url
		cfg.Chat.APIKey = "test-key"
		cfg.Chat.Model = "test/model"
	}
}

func writeCompletion(t *testing.T, w http.ResponseWriter, text string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	assert.NoError(t, json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"result": map[string]interface{}{
			"content": []map[string]interface{}{{"type": "text", "text": text}},
		},
	}))
}

func TestChat_AsksGateway(t *testing.T) {
	var got gatewayCall
	gw := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/openrouter-gateway", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		writeCompletion(t, w, `{"content":"  Stay hydrated and rest.  "}`)
	})
	_, ts := newTestServer(t, withGateway(gw.URL+"/"))

	status, text := callTool(t, ts, "chat", map[string]interface{}{"question": " What helps a headache? "})
	require.Equal(t, http.StatusOK, status, text)

	answer := decode[chatAnswer](t, text)
	assert.Equal(t, chatAnswer{Question: "What helps a headache?", Answer: "Stay hydrated and rest.", Model: "test/model"}, answer)

	assert.Equal(t, "2.0", got.JSONRPC)
	assert.Equal(t, "tools/call", got.Method)
	assert.Equal(t, "create_completion", got.Params.Name)
	assert.Equal(t, "test/model", got.Params.Arguments.Model)
	assert.NotEmpty(t, got.Params.Arguments.SystemPrompt)
	assert.Equal(t, 500, got.Params.Arguments.MaxTokens)
	require.Len(t, got.Params.Arguments.Messages, 1)
	assert.Equal(t, "user", got.Params.Arguments.Messages[0].Role)
	assert.Equal(t, "What helps a headache?", got.Params.Arguments.Messages[0].Content)
}

func TestChat_PlainTextCompletion(t *testing.T) {
	gw := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(t, w, "Oats are a good source of fibre.")
	})
	_, ts := newTestServer(t, withGateway(gw.URL))

	status, text := callTool(t, ts, "chat", map[string]interface{}{"question": "Are oats healthy?"})
	require.Equal(t, http.StatusOK, status, text)
	assert.Equal(t, "Oats are a good source of fibre.", decode[chatAnswer](t, text).Answer)
}

func TestChat_GatewayErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "upstream status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model overloaded", http.StatusServiceUnavailable)
			},
			want: "model overloaded",
		},
		{
			name: "rpc error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"unknown tool"}}`))
			},
			want: "unknown tool",
		},
		{
			name: "no content",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"content":[]}}`))
			},
			want: "unexpected response format",
		},
		{
			name: "empty answer",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeCompletion(t, w, `{"content":""}`)
			},
			want: "empty completion",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newGateway(t, tt.handler)
			_, ts := newTestServer(t, withGateway(gw.URL))

			status, body := callTool(t, ts, "chat", map[string]interface{}{"question": "hello"})
			assert.Equal(t, http.StatusBadGateway, status)
			assert.Contains(t, body, tt.want)
		})
	}
}

func TestChat_Unreachable(t *testing.T) {
	gw := httptest.NewServer(http.NotFoundHandler())
	url := gw.URL
	gw.Close()

	_, ts := newTestServer(t, withGateway(url))
	status, _ := callTool(t, ts, "chat", map[string]interface{}{"question": "hello"})
	assert.Equal(t, http.StatusBadGateway, status)
}

func TestChat_Disabled(t *testing.T) {
	_, ts := newTestServer(t, func(cfg *config.Config) { cfg.Chat.ProxyURL = "" })

	status, _ := callTool(t, ts, "chat", map[string]interface{}{"question": "hello"})
	assert.Equal(t, http.StatusServiceUnavailable, status)

	status, text := callTool(t, ts, "chatbot_status", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, ChatStatus{}, decode[ChatStatus](t, text))
}

func TestChat_QuestionRequired(t *testing.T) {
	calls := 0
	gw := newGateway(t, func(w http.ResponseWriter, r *http.Request) { calls++ })
	_, ts := newTestServer(t, withGateway(gw.URL))

	status, _ := callTool(t, ts, "chat", map[string]interface{}{"question": "   "})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Zero(t, calls)
}

func TestChatbotStatus(t *testing.T) {
	_, ts := newTestServer(t, withGateway("http://proxy.local:9876/"))

	status, text := callTool(t, ts, "chatbot_status", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, ChatStatus{
		Enabled:          true,
		Gateway:          "http://proxy.local:9876/openrouter-gateway",
		Model:            "test/model",
		APIKeyConfigured: true,
	}, decode[ChatStatus](t, text))
}

func TestParseCompletion(t *testing.T) {
	cases := map[string]string{
		`{"content":"Eat more greens."}`: "Eat more greens.",
		"Plain answer\n":                 "Plain answer",
		`{"other":"field"}`:              `{"other":"field"}`,
		`["not","an","object"]`:          `["not","an","object"]`,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseCompletion(in), "completion %q", in)
	}
}
