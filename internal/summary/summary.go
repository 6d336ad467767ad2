// Package summary talks to the remote inference service that writes the
// English safety narrative.
package summary

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"mixsafe-gateway/internal/chem"
	"mixsafe-gateway/internal/llm"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Health is the result of a probe against {url}/health.
type Health string

const (
	Healthy     Health = "healthy"
	Unhealthy   Health = "unhealthy"
	Unreachable Health = "unreachable"
)

type Config struct {
	HealthTimeout  time.Duration
	SummaryTimeout time.Duration
}

// ErrUnhealthy is wrapped by AnalyzeRecords when the health probe fails.
var ErrUnhealthy = errors.New("AI server not healthy")

// Service calls the summarization endpoint. The endpoint URL is passed per
// call so a request works against one snapshot of it.
type Service struct {
	client *llm.Client
	cfg    Config
	logger *zap.Logger
}

func NewService(client *llm.Client, cfg Config, logger *zap.Logger) *Service {
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = 5 * time.Second
	}
	if cfg.SummaryTimeout <= 0 {
		cfg.SummaryTimeout = 4 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, cfg: cfg, logger: logger.Named("summary")}
}

// Health probes the service with the configured short timeout.
func (s *Service) Health(ctx context.Context, url string) Health {
	return s.HealthWithin(ctx, url, s.cfg.HealthTimeout)
}

// HealthWithin probes with an explicit timeout.
func (s *Service) HealthWithin(ctx context.Context, url string, timeout time.Duration) Health {
	status, err := s.client.Probe(ctx, "summary.health", url+"/health", timeout)
	if err != nil {
		s.logger.Info("ai_health_unreachable", zap.String("url", url), zap.Error(err))
		return Unreachable
	}
	if status != http.StatusOK {
		s.logger.Info("ai_health_unhealthy", zap.String("url", url), zap.Int("status", status))
		return Unhealthy
	}
	return Healthy
}

// Summarize asks the service for a short English summary of c.
func (s *Service) Summarize(ctx context.Context, url string, c chem.Classification) (string, error) {
	const op = "summary.summarize"

	body, err := s.client.Do(ctx, llm.Call{
		Op:      op,
		URL:     url,
		Payload: map[string]string{"prompt": BuildPrompt(c)},
		Timeout: s.cfg.SummaryTimeout,
	})
	if err != nil {
		return "", err
	}
	return parseReply(op, body)
}

// AnalyzeRecords sends raw reactivity records to {url}/analyze and returns
// the service's free-form analysis.
func (s *Service) AnalyzeRecords(ctx context.Context, url string, records []chem.Record) (string, error) {
	const op = "summary.analyze_records"

	if health := s.Health(ctx, url); health != Healthy {
		return "", chem.E(op, chem.KindUpstreamUnavailable, string(health), ErrUnhealthy)
	}

	body, err := s.client.Do(ctx, llm.Call{
		Op:      op,
		URL:     url + "/analyze",
		Payload: map[string][]chem.Record{"results": records},
		Timeout: s.cfg.SummaryTimeout,
	})
	if err != nil {
		return "", err
	}
	return parseReply(op, body)
}

// parseReply reads {"success", "response"|"analysis", "error"}.
func parseReply(op string, body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", chem.E(op, chem.KindUpstreamMalformed, "response is not JSON", nil)
	}
	reply := gjson.ParseBytes(body)

	if ok := reply.Get("success"); ok.Exists() && !ok.Bool() {
		msg := reply.Get("error").String()
		if msg == "" {
			msg = "service reported failure"
		}
		return "", chem.E(op, chem.KindUpstreamServer, msg, nil)
	}

	text := strings.TrimSpace(reply.Get("response").String())
	if text == "" {
		text = strings.TrimSpace(reply.Get("analysis").String())
	}
	if text == "" {
		return "", chem.E(op, chem.KindUpstreamMalformed, "empty summary", nil)
	}
	return text, nil
}

// BuildPrompt renders the classification as an English summarization prompt.
// At most three dangerous pairs and three hazards per pair are included.
func BuildPrompt(c chem.Classification) string {
	var b strings.Builder
	b.WriteString("Analyze the following chemical safety data and provide a brief safety summary in English.\n\n")
	fmt.Fprintf(&b, "Overall Status: %s\n", c.Summary.OverallStatus)
	fmt.Fprintf(&b, "Dangerous Pairs: %d\n", c.Summary.DangerousCount)
	fmt.Fprintf(&b, "Caution Pairs: %d\n\n", c.Summary.CautionCount)

	if len(c.DangerousPairs) > 0 {
		b.WriteString("Dangerous Combinations:\n")
		for _, p := range first(c.DangerousPairs, 3) {
			fmt.Fprintf(&b, "- %s + %s\n", p.Chemical1, p.Chemical2)
			fmt.Fprintf(&b, "  Status: %s\n", p.Status)
			fmt.Fprintf(&b, "  Hazards: %s\n", strings.Join(firstStrings(p.Hazards, 3), ", "))
		}
	}

	b.WriteString("\nProvide a concise safety summary (2-3 sentences).")
	return b.String()
}

func first(pairs []chem.Pair, n int) []chem.Pair {
	if len(pairs) > n {
		return pairs[:n]
	}
	return pairs
}

func firstStrings(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
