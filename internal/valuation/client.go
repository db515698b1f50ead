// Package valuation talks to the remote what-if model and turns its
// answers into display rows.
package valuation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/yourorg/homely-api/internal/scenario"
)

// ErrServiceFailure covers every way a prediction can fail: transport,
// non-2xx status or an unreadable body.
var ErrServiceFailure = errors.New("valuation service failure")

type Attribution struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"shap_value"`
}

type Response struct {
	WhatIfValue float64       `json:"what_if_value"`
	Summary     []Attribution `json:"shap_summary"`
}

type Config struct {
	BaseURL  string
	Timeout  time.Duration
	RetryMax int
	// RequestsPerSecond caps outbound calls; zero means unlimited.
	RequestsPerSecond float64
}

type Client struct {
	baseURL string
	http    *retryablehttp.Client
	limiter *rate.Limiter
}

func NewClient(cfg Config) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 900 * time.Millisecond
	rc.RetryMax = cfg.RetryMax
	if rc.RetryMax < 0 {
		rc.RetryMax = 0
	}
	rc.HTTPClient.Timeout = cfg.Timeout
	if rc.HTTPClient.Timeout <= 0 {
		rc.HTTPClient.Timeout = 15 * time.Second
	}
	rc.Logger = nil
	// keep the status code for our own error instead of retryablehttp's
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    rc,
		limiter: limiter,
	}
}

// Predict posts the scenario to /predict. One call per submission; retries
// happen only when RetryMax is configured above zero.
func (c *Client) Predict(ctx context.Context, req scenario.Request) (Response, error) {
	var out Response
	body, err := json.Marshal(req)
	if err != nil {
		return out, fmt.Errorf("%w: encode request: %v", ErrServiceFailure, err)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return out, fmt.Errorf("%w: %v", ErrServiceFailure, err)
	}

	hreq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrServiceFailure, err)
	}
	hreq.Header.Set("content-type", "application/json")
	hreq.Header.Set("accept", "application/json")

	resp, err := c.http.Do(hreq)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrServiceFailure, err)
	}
	defer resp.Body.Close()

	raw, err := ioReadAllLimit(resp.Body, 4<<20) // 4MB guard
	if err != nil {
		return out, fmt.Errorf("%w: read body: %v", ErrServiceFailure, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		return out, fmt.Errorf("%w: status %d: %s", ErrServiceFailure, resp.StatusCode, e.Error)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return Response{}, fmt.Errorf("%w: decode response: %v", ErrServiceFailure, err)
	}
	return out, nil
}

func ioReadAllLimit(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, errors.New("payload too large")
	}
	return b, nil
}
