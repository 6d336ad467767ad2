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

	"mixsafe-gateway/internal/chem"

	"go.uber.org/zap"
)

const (
	maxRequestSize  = 2 * 1024 * 1024 // 2MB total JSON payload
	maxResponseSize = 4 * 1024 * 1024
)

// Call describes one request to an upstream endpoint.
type Call struct {
	Op      string // reported in errors, e.g. "summary.summarize"
	Method  string
	URL     string
	Payload any // JSON-encoded when non-nil
	Headers map[string]string
	Timeout time.Duration
}

// Do executes call and returns the response body of a 2xx reply.
// Every error is a *chem.Error: transport failures are KindUpstreamTimeout
// or KindUpstreamUnavailable, non-2xx replies are KindUpstreamServer.
func (c *Client) Do(parentCtx context.Context, call Call) ([]byte, error) {
	start := time.Now()

	if call.Method == "" {
		call.Method = http.MethodPost
	}
	timeout := call.Timeout
	if timeout <= 0 {
		timeout = c.cfg.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(parentCtx, timeout)
	defer cancel()

	var body io.Reader
	if call.Payload != nil {
		bodyBytes, err := json.Marshal(call.Payload)
		if err != nil {
			return nil, chem.E(call.Op, chem.KindInternal, "marshal request", err)
		}
		if len(bodyBytes) > maxRequestSize {
			return nil, chem.E(call.Op, chem.KindInternal,
				fmt.Sprintf("request too large (%d bytes, max %d)", len(bodyBytes), maxRequestSize), nil)
		}
		body = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, call.Method, call.URL, body)
	if err != nil {
		return nil, chem.E(call.Op, chem.KindUpstreamUnavailable, "build HTTP request", err)
	}
	httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range call.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		kind := classifyTransportError(ctx, err)
		c.logger.Warn("upstream request failed",
			zap.String("op", call.Op),
			zap.String("kind", kind.String()),
			zap.Duration("timeout", timeout),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		detail := "cannot connect to service (check if it is running)"
		if kind == chem.KindUpstreamTimeout {
			detail = fmt.Sprintf("no response within %s (model might be loading)", timeout)
		}
		return nil, chem.E(call.Op, kind, detail, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, chem.E(call.Op, classifyTransportError(ctx, err), "read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		ce := chem.E(call.Op, chem.KindUpstreamServer, describeErrorBody(respBody), nil)
		ce.Status = resp.StatusCode
		c.logger.Warn("upstream error response",
			zap.String("op", call.Op),
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(respBody), 200)),
		)
		return nil, ce
	}

	c.logger.Debug("upstream request completed",
		zap.String("op", call.Op),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(respBody)),
		zap.Duration("duration", time.Since(start)),
	)
	return respBody, nil
}

// Probe issues a GET and returns the status code. Transport failures are
// returned as *chem.Error like Do.
func (c *Client) Probe(parentCtx context.Context, op, url string, timeout time.Duration) (int, error) {
	if timeout <= 0 {
		timeout = c.cfg.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(parentCtx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, chem.E(op, chem.KindUpstreamUnavailable, "build HTTP request", err)
	}
	httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, chem.E(op, classifyTransportError(ctx, err), "probe failed", err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	resp.Body.Close()
	return resp.StatusCode, nil
}

// describeErrorBody tries the structured error shapes first and falls back
// to the raw body text.
func describeErrorBody(body []byte) string {
	var env providerErrorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		kind := env.Error.Type
		if kind == "" {
			kind = env.Error.Status
		}
		if kind != "" {
			return fmt.Sprintf("%s (%s)", env.Error.Message, kind)
		}
		return env.Error.Message
	}

	var svc serviceErrorBody
	if err := json.Unmarshal(body, &svc); err == nil && (svc.Error != "" || svc.Detail != "") {
		var b strings.Builder
		msg := svc.Error
		if msg == "" {
			msg = svc.Detail
		}
		b.WriteString("Error: " + msg)
		if svc.ErrorType != "" {
			b.WriteString("\nType: " + svc.ErrorType)
		}
		if svc.Traceback != "" {
			b.WriteString("\nTraceback:\n" + truncate(svc.Traceback, 1000))
		}
		return b.String()
	}

	raw := strings.TrimSpace(string(body))
	if raw == "" {
		return "empty error body"
	}
	return truncate(raw, 500)
}

// truncate limits string length for logging
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
