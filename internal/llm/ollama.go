package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaClient is a client for the Ollama chat API.
type OllamaClient struct {
	baseURL    string
	options    *Options
	httpClient *http.Client
}

// Options are model parameters passed with each request.
type Options struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumCtx      int     `json:"num_ctx,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// NewOllamaClient creates an Ollama client. A zero timeout gets a
// generous default since large models take their time.
func NewOllamaClient(baseURL string, timeout time.Duration, opts *Options) *OllamaClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		options: opts,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// chatRequest is the request format for the Ollama chat API.
type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  *Options  `json:"options,omitempty"`
}

// chatResponse is the (possibly chunked) response from the chat API.
type chatResponse struct {
	Model     string  `json:"model"`
	CreatedAt string  `json:"created_at"`
	Message   Message `json:"message"`
	Done      bool    `json:"done"`

	// Usage stats (when done=true)
	TotalDuration   int64 `json:"total_duration,omitempty"`
	PromptEvalCount int   `json:"prompt_eval_count,omitempty"`
	EvalCount       int   `json:"eval_count,omitempty"`
}

// Chat sends a chat completion request and returns the assistant text.
func (c *OllamaClient) Chat(ctx context.Context, model string, messages []Message) (string, error) {
	return c.ChatStream(ctx, model, messages, nil)
}

// ChatStream sends a chat request. With a non-nil callback the request
// is streamed and tokens are delivered as they arrive; the assembled
// reply is returned either way.
func (c *OllamaClient) ChatStream(ctx context.Context, model string, messages []Message, callback StreamCallback) (string, error) {
	stream := callback != nil

	req := chatRequest{
		Model:    model,
		Messages: messages,
		Stream:   stream,
		Options:  c.options,
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	if !stream {
		var chatResp chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		return chatResp.Message.Content, nil
	}

	// Streaming responses arrive as newline-delimited JSON chunks.
	var content strings.Builder
	decoder := json.NewDecoder(resp.Body)

	for {
		var chunk chatResponse
		if err := decoder.Decode(&chunk); err != nil {
			if err == io.EOF {
				break
			}
			return "", fmt.Errorf("decode stream chunk: %w", err)
		}

		if chunk.Message.Content != "" {
			content.WriteString(chunk.Message.Content)
			callback(chunk.Message.Content)
		}

		if chunk.Done {
			break
		}
	}

	return content.String(), nil
}

// Ping checks if the backend is reachable.
func (c *OllamaClient) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error %d", resp.StatusCode)
	}

	return nil
}

// ListModels returns the model names the backend currently serves.
func (c *OllamaClient) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	names := make([]string, len(result.Models))
	for i, m := range result.Models {
		names[i] = m.Name
	}
	return names, nil
}
