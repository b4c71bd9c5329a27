// internal/server/sampling.go
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mcp-nutrition-log/internal/config"
)

var (
	errChatDisabled = errors.New("chat assistant is not configured")
	errGateway      = errors.New("chat gateway error")
)

const chatSystemPrompt = `You are a medical and nutrition assistant for a personal diet tracker.
Answer questions about health conditions, symptoms, foods and general medical information.
If you don't know the answer, say that you don't know. Keep the answer concise and medically accurate,
and suggest seeing a professional for anything that needs a diagnosis.`

// SamplingClient asks an LLM for completions through the OpenRouter gateway
// tool of an MCP proxy.
type SamplingClient struct {
	httpClient *http.Client
	proxyURL   string
	apiKey     string
	model      string
}

func NewSamplingClient(cfg config.ChatConfig) *SamplingClient {
	return &SamplingClient{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		proxyURL: strings.TrimRight(cfg.ProxyURL, "/"),
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
	}
}

func (s *SamplingClient) Enabled() bool {
	return s != nil && s.proxyURL != ""
}

// ChatStatus reports how the assistant is wired, without calling the gateway.
type ChatStatus struct {
	Enabled          bool   `json:"enabled"`
	Gateway          string `json:"gateway,omitempty"`
	Model            string `json:"model,omitempty"`
	APIKeyConfigured bool   `json:"api_key_configured"`
}

func (s *SamplingClient) Status() ChatStatus {
	if !s.Enabled() {
		return ChatStatus{}
	}
	return ChatStatus{
		Enabled:          true,
		Gateway:          s.proxyURL + "/openrouter-gateway",
		Model:            s.model,
		APIKeyConfigured: s.apiKey != "",
	}
}

// Ask sends one question to the model and returns its answer text.
func (s *SamplingClient) Ask(ctx context.Context, question string) (string, error) {
	if !s.Enabled() {
		return "", errChatDisabled
	}

	completionRequest := map[string]interface{}{
		"model":         s.model,
		"system_prompt": chatSystemPrompt,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": question,
			},
		},
		"max_tokens":  500,
		"temperature": 0.4,
	}

	gatewayResponse, err := s.callGateway(ctx, "create_completion", completionRequest)
	if err != nil {
		return "", fmt.Errorf("failed to get AI completion: %w", err)
	}

	answer := parseCompletion(gatewayResponse)
	if answer == "" {
		return "", fmt.Errorf("%w: empty completion", errGateway)
	}
	return answer, nil
}

func (s *SamplingClient) callGateway(ctx context.Context, toolName string, args interface{}) (string, error) {
	url := fmt.Sprintf("%s/openrouter-gateway", s.proxyURL)

	requestData := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      toolName,
			"arguments": args,
		},
	}

	jsonData, err := json.Marshal(requestData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: request failed: %v", errGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil {
			return "", fmt.Errorf("%w: status %d and couldn't read body: %v", errGateway, resp.StatusCode, err)
		}
		return "", fmt.Errorf("%w: status %d: %s", errGateway, resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	var mcpResponse struct {
		Result struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&mcpResponse); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", errGateway, err)
	}
	if mcpResponse.Error != nil {
		return "", fmt.Errorf("%w: %s", errGateway, mcpResponse.Error.Message)
	}
	if len(mcpResponse.Result.Content) == 0 {
		return "", fmt.Errorf("%w: unexpected response format", errGateway)
	}

	return mcpResponse.Result.Content[0].Text, nil
}

// parseCompletion pulls the assistant text out of a create_completion result.
// The gateway normally wraps it as {"content": "..."}; anything else is taken
// as the answer itself.
func parseCompletion(aiOutput string) string {
	var completion struct {
		Content *string `json:"content"`
	}
	if err := json.Unmarshal([]byte(aiOutput), &completion); err == nil && completion.Content != nil {
		return strings.TrimSpace(*completion.Content)
	}
	return strings.TrimSpace(aiOutput)
}
