package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net"
	"strings"
	"time"

	"mixsafe-gateway/internal/chem"
)

// classifyTransportError decides whether a failed round trip was a timeout
// or the endpoint being unreachable.
func classifyTransportError(ctx context.Context, err error) chem.Kind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return chem.KindUpstreamTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return chem.KindUpstreamTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsTimeout {
		return chem.KindUpstreamTimeout
	}

	// Dial, DNS, reset and anything else at the connection level.
	return chem.KindUpstreamUnavailable
}

// IsConnectionLevel reports whether err is a transport failure rather than
// a reply from the endpoint.
func IsConnectionLevel(err error) bool {
	switch chem.KindOf(err) {
	case chem.KindUpstreamTimeout, chem.KindUpstreamUnavailable:
		return true
	}
	// wrapped transport errors that never went through Do
	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{"connection refused", "connection reset", "no such host", "broken pipe"} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// Backoff calculates exponential backoff with full jitter:
// a random value in [0, base*2^attempt), capped at 30s.
//
// Example progression (base=100ms):
// Attempt 0: 0-100ms
// Attempt 1: 0-200ms
// Attempt 2: 0-400ms
func Backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	// Cap the exponent to prevent overflow
	const maxExponent = 10
	if attempt > maxExponent {
		attempt = maxExponent
	}
	if attempt < 0 {
		attempt = 0
	}

	maxBackoff := time.Duration(float64(base) * math.Pow(2, float64(attempt)))

	const maxAllowed = 30 * time.Second
	if maxBackoff > maxAllowed {
		maxBackoff = maxAllowed
	}

	return time.Duration(rand.Float64() * float64(maxBackoff))
}
