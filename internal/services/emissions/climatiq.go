package emissions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	// DefaultClimatiqBaseURL is the production API host
	DefaultClimatiqBaseURL = "https://api.climatiq.io"
	// DefaultRemoteTimeout bounds a single remote estimate
	DefaultRemoteTimeout = 5 * time.Second

	maxErrorBodyBytes = 512
	maxResponseBytes  = 1 << 20
)

// ClimatiqConfig configures the remote estimation client
type ClimatiqConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Factors *FactorSet
	// HTTPClient is used as the transport base; the credential is layered on top of it
	HTTPClient *http.Client
}

// ClimatiqClient calls the Climatiq estimate endpoint. It never retries.
type ClimatiqClient struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	factors    *FactorSet
	configured bool
}

var _ RemoteEstimator = (*ClimatiqClient)(nil)

// NewClimatiqClient creates a client for the contract selected by cfg.Factors.
// Without an API key every call fails fast with ErrRemoteNotConfigured.
func NewClimatiqClient(cfg ClimatiqConfig) (*ClimatiqClient, error) {
	factors := cfg.Factors
	if factors == nil {
		var err error
		if factors, err = DefaultFactorSet(ContractDataV1); err != nil {
			return nil, err
		}
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultClimatiqBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}

	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{}
	}

	client := &ClimatiqClient{
		baseURL:    baseURL,
		timeout:    timeout,
		factors:    factors,
		configured: cfg.APIKey != "",
	}

	if client.configured {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.APIKey,
			TokenType:   "Bearer",
		}))
		httpClient.Timeout = timeout
		client.httpClient = httpClient
	}

	return client, nil
}

type estimateResponse struct {
	CO2e     *float64 `json:"co2e"`
	CO2eUnit string   `json:"co2e_unit"`
}

// Estimate implements RemoteEstimator. The call runs to completion or timeout
// even when the caller's context is cancelled.
func (c *ClimatiqClient) Estimate(ctx context.Context, req RemoteRequest) (float64, error) {
	if !c.configured {
		return 0, ErrRemoteNotConfigured
	}

	path, payload := c.buildRequest(req)
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal estimate request: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build estimate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("estimate request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return 0, &RemoteStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	var out estimateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if out.CO2e == nil {
		return 0, fmt.Errorf("%w: co2e missing", ErrMalformedResponse)
	}
	if *out.CO2e < 0 || math.IsNaN(*out.CO2e) || math.IsInf(*out.CO2e, 0) {
		return 0, fmt.Errorf("%w: co2e %v out of range", ErrMalformedResponse, *out.CO2e)
	}
	if out.CO2eUnit != "" && !strings.EqualFold(out.CO2eUnit, "kg") {
		return 0, fmt.Errorf("%w: unexpected co2e unit %q", ErrMalformedResponse, out.CO2eUnit)
	}

	return *out.CO2e, nil
}

// buildRequest returns the endpoint path and body for the configured contract
func (c *ClimatiqClient) buildRequest(req RemoteRequest) (string, map[string]any) {
	parameters := map[string]any{
		req.Kind:           req.Quantity,
		req.Kind + "_unit": req.Unit,
	}

	if c.factors.Contract == ContractLegacy {
		return "/estimate", map[string]any{
			"emission_factor": map[string]any{
				"id": req.FactorID,
			},
			"parameters": parameters,
		}
	}

	factor := map[string]any{
		"activity_id": req.FactorID,
	}
	if c.factors.DataVersion != "" {
		factor["data_version"] = c.factors.DataVersion
	}
	if c.factors.Region != "" {
		factor["region"] = c.factors.Region
	}
	return "/data/v1/estimate", map[string]any{
		"emission_factor": factor,
		"parameters":      parameters,
	}
}
