// Package gateways talks to the payment scheme gateway and the customer
// profile service over JSON/HTTP.
package gateways

import (
	// Go Internal Packages
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	// Local Packages
	errors "pix-stream/errors"
)

// Client is a JSON/HTTP client with a per-call timeout. Counterparty refusals
// (4xx with a failure body) are returned as rejected gateway errors; every
// other failure is transient.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, timeout: timeout, http: &http.Client{}}
}

type failureBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.E(errors.Internal, "cannot encode gateway request", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.E(errors.Internal, "cannot build gateway request", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return errors.GatewayErr("TIMEOUT", fmt.Sprintf("%s %s timed out", method, path), err)
		}
		return errors.GatewayErr("UNAVAILABLE", fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.GatewayErr("UNAVAILABLE", "cannot read gateway response", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.E(errors.NotFound, fmt.Sprintf("%s %s not found", method, path), nil)
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests:
		return errors.GatewayErr(fmt.Sprintf("HTTP_%d", resp.StatusCode), "gateway asked to retry", nil)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		var f failureBody
		if err := json.Unmarshal(raw, &f); err != nil || f.Code == "" {
			f.Code = fmt.Sprintf("HTTP_%d", resp.StatusCode)
			f.Message = string(raw)
		}
		return errors.GatewayRejectedErr(f.Code, f.Message)
	case resp.StatusCode >= 500:
		return errors.GatewayErr(fmt.Sprintf("HTTP_%d", resp.StatusCode), "gateway unavailable", nil)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.GatewayErr("BAD_RESPONSE", "cannot decode gateway response", err)
	}
	return nil
}
