package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/claimworks/estimate-api/src/shared/httpx"
)

type claudeClient struct {
	apiKey     string
	httpClient *http.Client
	defaults   Options
}

func newClaudeClient(cfg FactoryConfig) *claudeClient {
	return &claudeClient{
		apiKey:     cfg.ClaudeKey,
		httpClient: httpx.NewDefault(300 * time.Second),
		defaults: Options{
			Model:           valueOrDefault(cfg.Model, "claude-sonnet-4-20250514"),
			Temperature:     orFloat(cfg.Temperature, 0.2),
			MaxOutputTokens: orInt(cfg.MaxOutputTokens, 4000),
			SystemPrompt:    cfg.SystemPrompt,
		},
	}
}

func (c *claudeClient) Research(ctx context.Context, instruction string, opts Options) (string, error) {
	merged := c.merge(opts)
	reqBody := map[string]interface{}{
		"model": merged.Model,
		"messages": []map[string]string{
			{"role": "user", "content": instruction},
		},
		"system":      merged.SystemPrompt,
		"max_tokens":  merged.MaxOutputTokens,
		"temperature": merged.Temperature,
	}
	if merged.EnableWebSearch {
		reqBody["tools"] = []map[string]interface{}{claudeWebSearchTool(merged)}
	}

	b, _ := json.Marshal(reqBody)
	status, body, err := httpx.DoWithRetry(ctx, 2, 2*time.Second, func() (int, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, "POST", "https://api.anthropic.com/v1/messages", bytes.NewBuffer(b))
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", "2023-06-01")
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return 0, nil, err
		}
		defer resp.Body.Close()
		respBody, err := io.ReadAll(resp.Body)
		return resp.StatusCode, respBody, err
	})
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("claude API error: status %d: %s", status, string(body))
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}
	// Skip tool-use blocks and return the final text block.
	for i := len(result.Content) - 1; i >= 0; i-- {
		if result.Content[i].Type == "text" && result.Content[i].Text != "" {
			return result.Content[i].Text, nil
		}
	}
	return "", fmt.Errorf("no response from Claude")
}

func claudeWebSearchTool(opts Options) map[string]interface{} {
	tool := map[string]interface{}{
		"type":     "web_search_20250305",
		"name":     "web_search",
		"max_uses": 5,
	}
	if opts.SearchCity != "" || opts.SearchRegion != "" {
		tool["user_location"] = map[string]string{
			"type":   "approximate",
			"city":   opts.SearchCity,
			"region": opts.SearchRegion,
		}
	}
	return tool
}

func (c *claudeClient) merge(opts Options) Options {
	out := c.defaults
	if opts.Model != "" {
		out.Model = opts.Model
	}
	if opts.Temperature != 0 {
		out.Temperature = opts.Temperature
	}
	if opts.MaxOutputTokens != 0 {
		out.MaxOutputTokens = opts.MaxOutputTokens
	}
	if opts.SystemPrompt != "" {
		out.SystemPrompt = opts.SystemPrompt
	}
	out.EnableWebSearch = opts.EnableWebSearch
	out.SearchCity = opts.SearchCity
	out.SearchRegion = opts.SearchRegion
	return out
}
