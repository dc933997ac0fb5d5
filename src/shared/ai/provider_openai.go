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

type openAIClient struct {
	apiKey     string
	httpClient *http.Client
	defaults   Options
}

func newOpenAIClient(cfg FactoryConfig) *openAIClient {
	return &openAIClient{
		apiKey:     cfg.OpenAIKey,
		httpClient: httpx.NewDefault(300 * time.Second),
		defaults: Options{
			Model:           valueOrDefault(cfg.Model, "gpt-5-mini"),
			Temperature:     orFloat(cfg.Temperature, 1),
			MaxOutputTokens: orInt(cfg.MaxOutputTokens, 8000),
			SystemPrompt:    cfg.SystemPrompt,
		},
	}
}

func (c *openAIClient) Research(ctx context.Context, instruction string, opts Options) (string, error) {
	// Responses API with the built-in web_search tool.
	merged := c.merge(opts)
	input := instruction
	if merged.SystemPrompt != "" {
		input = fmt.Sprintf("%s\n\n%s", merged.SystemPrompt, instruction)
	}
	payload := map[string]interface{}{
		"model":             merged.Model,
		"input":             input,
		"temperature":       merged.Temperature,
		"max_output_tokens": merged.MaxOutputTokens,
	}
	if merged.EnableWebSearch {
		tool := map[string]interface{}{"type": "web_search"}
		if merged.SearchCity != "" || merged.SearchRegion != "" {
			tool["user_location"] = map[string]string{
				"type":   "approximate",
				"city":   merged.SearchCity,
				"region": merged.SearchRegion,
			}
		}
		payload["tools"] = []map[string]interface{}{tool}
		payload["tool_choice"] = "auto"
	}

	b, _ := json.Marshal(payload)
	status, body, err := httpx.DoWithRetry(ctx, 2, 2*time.Second, func() (int, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, "POST", "https://api.openai.com/v1/responses", bytes.NewBuffer(b))
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
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
		return "", fmt.Errorf("openAI API error: status %d: %s", status, string(body))
	}

	// Tolerate multiple response shapes by extracting text fields.
	var result struct {
		Output []struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.Unmarshal(body, &result); err == nil {
		for _, o := range result.Output {
			for _, part := range o.Content {
				if part.Text != "" {
					return part.Text, nil
				}
			}
		}
	}
	var alt struct {
		OutputText string `json:"output_text"`
	}
	if err := json.Unmarshal(body, &alt); err == nil && alt.OutputText != "" {
		return alt.OutputText, nil
	}
	return "", fmt.Errorf("failed to parse OpenAI response")
}

func (c *openAIClient) merge(opts Options) Options {
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
