package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type HTTPProvider struct {
	apiKey  string
	baseURL string
}

type completeRequest struct {
	Query string `json:"query"`
}

type completeResponse struct {
	Content    string   `json:"content"`
	Sources    []Source `json:"sources"`
	Confidence float64  `json:"confidence"`
	Error      *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewHTTPProvider(baseURL, apiKey string) *HTTPProvider {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	return &HTTPProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
	}
}

func (p *HTTPProvider) Complete(ctx context.Context, query string) (*Result, error) {
	jsonData, err := json.Marshal(completeRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/research/complete", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("research api error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	var completeResp completeResponse
	if err := json.Unmarshal(bodyBytes, &completeResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if completeResp.Error != nil {
		return nil, fmt.Errorf("research api returned error: %s", completeResp.Error.Message)
	}

	return &Result{
		Content:    completeResp.Content,
		Sources:    completeResp.Sources,
		Confidence: completeResp.Confidence,
	}, nil
}
