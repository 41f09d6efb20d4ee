// Package risk talks to the external bot-verification provider. The provider
// resolves an opaque client token into a score in [0,1]; lower means more
// bot-like. Callers are expected to degrade gracefully when this provider is
// unavailable rather than fail closed.
package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds a verification round-trip; an unbounded hang here
// must never block identity issuance.
const DefaultTimeout = 5 * time.Second

// Client verifies risk tokens against the provider's siteverify endpoint.
type Client struct {
	verifyURL  string
	secret     string
	httpClient *http.Client
}

// NewClient creates a new risk verification client.
func NewClient(verifyURL, secret string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		verifyURL: verifyURL,
		secret:    secret,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// verifyResponse is the provider's siteverify payload.
type verifyResponse struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score"`
	Action     string   `json:"action"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify submits the client-supplied token and returns the provider's score.
// A failed verification (success=false) reports score 0 without an error; a
// transport or provider failure returns an error so the caller can apply its
// degraded-score policy.
func (c *Client) Verify(ctx context.Context, riskToken, remoteIP string) (float64, error) {
	if c.verifyURL == "" {
		return 0, fmt.Errorf("risk provider not configured")
	}

	form := url.Values{}
	form.Set("secret", c.secret)
	form.Set("response", riskToken)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, fmt.Errorf("failed to create verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("verify request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read verify response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("risk provider returned status %d", resp.StatusCode)
	}

	var vr verifyResponse
	if err := json.Unmarshal(body, &vr); err != nil {
		return 0, fmt.Errorf("failed to parse verify response: %w", err)
	}

	if !vr.Success {
		return 0, nil
	}
	return vr.Score, nil
}
