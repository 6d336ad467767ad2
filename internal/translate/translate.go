// Package translate turns the English summary into a friendly localized
// message using a generative model.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mixsafe-gateway/internal/chem"
	"mixsafe-gateway/internal/llm"
	"mixsafe-gateway/internal/metrics"

	"go.uber.org/zap"
)

// Translator is what the pipeline needs from this package.
type Translator interface {
	Translate(ctx context.Context, english string, c chem.Classification) (string, error)
}

type Config struct {
	Language   string        // e.g. "Korean"
	Attempts   int           // total tries on empty or malformed output (default: 2)
	RetryDelay time.Duration // backoff base between tries, 0 retries at once
}

// Service retries only when the model answered with nothing usable.
// Transport and server failures are returned on the first occurrence.
type Service struct {
	gen    Generator
	cfg    Config
	logger *zap.Logger
}

func NewService(gen Generator, cfg Config, logger *zap.Logger) *Service {
	if cfg.Attempts < 1 {
		cfg.Attempts = 2
	}
	if cfg.Language == "" {
		cfg.Language = "Korean"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{gen: gen, cfg: cfg, logger: logger.Named("translate")}
}

func (s *Service) Translate(ctx context.Context, english string, c chem.Classification) (string, error) {
	const op = "translate"
	prompt := BuildPrompt(s.cfg.Language, english, c)

	for attempt := 1; attempt <= s.cfg.Attempts; attempt++ {
		body, err := s.gen.Generate(ctx, prompt)
		if err != nil && !chem.IsKind(err, chem.KindUpstreamMalformed) {
			metrics.TranslationAttemptsTotal.WithLabelValues("failed").Inc()
			s.logger.Warn("translation_failed",
				zap.String("generator", s.gen.Name()),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return "", err
		}

		if err == nil {
			if text, strategy, ok := Extract(body); ok {
				metrics.TranslationAttemptsTotal.WithLabelValues("ok").Inc()
				s.logger.Debug("translation_complete",
					zap.String("generator", s.gen.Name()),
					zap.String("strategy", strategy),
					zap.Int("attempt", attempt),
					zap.Int("chars", len([]rune(text))),
				)
				return text, nil
			}
		}

		metrics.TranslationAttemptsTotal.WithLabelValues("malformed").Inc()
		s.logger.Info("translation_empty_response",
			zap.String("generator", s.gen.Name()),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.cfg.Attempts),
		)

		if attempt < s.cfg.Attempts && s.cfg.RetryDelay > 0 {
			select {
			case <-ctx.Done():
				return "", chem.E(op, chem.KindUpstreamTimeout, "cancelled between attempts", ctx.Err())
			case <-time.After(llm.Backoff(s.cfg.RetryDelay, attempt-1)):
			}
		}
	}

	return "", chem.E(op, chem.KindUpstreamMalformed,
		fmt.Sprintf("Empty or invalid response from %s after %d attempts", s.gen.Name(), s.cfg.Attempts), nil)
}

// Disabled is used when no generator is configured. Every call fails as
// unavailable so the pipeline reports a partial result.
type Disabled struct {
	Reason string
}

func (d Disabled) Translate(context.Context, string, chem.Classification) (string, error) {
	return "", chem.E("translate", chem.KindUpstreamUnavailable, d.Reason, nil)
}

type pairInfo struct {
	Chem1  string             `json:"chem1"`
	Chem2  string             `json:"chem2"`
	Status chem.Compatibility `json:"status"`
}

func describePairs(pairs []chem.Pair) string {
	if len(pairs) == 0 {
		return "None"
	}
	if len(pairs) > 3 {
		pairs = pairs[:3]
	}
	info := make([]pairInfo, 0, len(pairs))
	for _, p := range pairs {
		info = append(info, pairInfo{Chem1: p.Chemical1, Chem2: p.Chemical2, Status: p.Status})
	}
	out, _ := json.MarshalIndent(info, "", "  ")
	return string(out)
}

// BuildPrompt asks for a friendly, practical message in language.
func BuildPrompt(language, english string, c chem.Classification) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are a friendly chemical safety assistant helping users understand chemical safety results.
Convert the English analysis into a FRIENDLY, CONVERSATIONAL %s message for app users.

Analysis Info:
- Overall Status: %s
- Dangerous Count: %d
- Caution Count: %d

English Analysis:
%s

Dangerous Pairs (if any):
%s

Caution Pairs (if any):
%s
`, language, c.Summary.OverallStatus, c.Summary.DangerousCount, c.Summary.CautionCount,
		english, describePairs(c.DangerousPairs), describePairs(c.CautionPairs))

	b.WriteString(`
IMPORTANT GUIDELINES:

1. Merge duplicates: when several combinations share the same hazard (explosion, fire, gas), list the substances together and explain the hazard once.
2. Name the conditions: say WHEN and HOW it becomes dangerous (hot water, high concentration, closed room, poor ventilation).
3. Give safe usage: practical ways to avoid the dangerous condition (use separately, ventilate, dilute, cold water only).
4. Structure:
   - Dangerous: state how many dangerous combinations were found, group by explosion/fire, toxic gas, burns/corrosion, give a safe-usage line for each, and end with a clear warning never to mix these products.
   - Caution: state how many combinations need care, the exact condition for each, and how to use them safely.
   - Safe: tell the user the substances are safe to use together.

Use proper chemical names in the target language. Be specific and practical.
`)
	fmt.Fprintf(&b, "\n%s message (FRIENDLY TONE ONLY):\n", language)
	return b.String()
}
