package adjudicator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPProvider is a Provider backed by a generic JSON completion
// endpoint, modeled on the teacher's provider adapters
// (internal/providers/adapters/*.go): a thin http.Client wrapper, no
// vendor SDK, since none of the reference repos pull one in for an
// LLM call.
type HTTPProvider struct {
	name         string
	modelVersion string
	endpoint     string
	apiKey       string
	httpClient   *http.Client
	costPerCall  float64
}

// HTTPProviderConfig configures one HTTPProvider.
type HTTPProviderConfig struct {
	Name         string
	ModelVersion string
	Endpoint     string
	APIKey       string
	Timeout      time.Duration
	CostPerCall  float64
}

func NewHTTPProvider(cfg HTTPProviderConfig) *HTTPProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPProvider{
		name:         cfg.Name,
		modelVersion: cfg.ModelVersion,
		endpoint:     cfg.Endpoint,
		apiKey:       cfg.APIKey,
		costPerCall:  cfg.CostPerCall,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProvider) Name() string         { return p.name }
func (p *HTTPProvider) ModelVersion() string { return p.modelVersion }

type completionRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type completionResponse struct {
	Text string `json:"text"`
}

// Evaluate POSTs prompt to the configured completion endpoint and
// returns the raw response text. Callers (the adjudicator) own
// retry/backoff and circuit breaking; this method makes exactly one
// call.
func (p *HTTPProvider) Evaluate(ctx context.Context, prompt string) (string, float64, error) {
	body, err := json.Marshal(completionRequest{Model: p.modelVersion, Prompt: prompt})
	if err != nil {
		return "", 0, fmt.Errorf("httpprovider: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("httpprovider: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", p.costPerCall, fmt.Errorf("httpprovider: request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", p.costPerCall, fmt.Errorf("httpprovider: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", p.costPerCall, fmt.Errorf("httpprovider: status %d: %s", resp.StatusCode, truncate(string(data), 300))
	}

	var out completionResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", p.costPerCall, fmt.Errorf("httpprovider: unmarshal response: %w", err)
	}
	return out.Text, p.costPerCall, nil
}
