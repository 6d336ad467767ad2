package summary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"mixsafe-gateway/internal/chem"
	"mixsafe-gateway/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newService(t *testing.T, cfg Config) *Service {
	t.Helper()
	return NewService(llm.NewClient(llm.Config{}, zaptest.NewLogger(t)), cfg, zaptest.NewLogger(t))
}

func dangerClassification() chem.Classification {
	return chem.Classification{
		DangerousPairs: []chem.Pair{{
			Record: chem.Record{
				Chemical1: "Sodium Hypochlorite", Chemical2: "Ammonia", Status: chem.Incompatible,
				Hazards: []string{"Toxic", "Gas Generation", "Heat Generation", "Corrosive"},
			},
			RiskLevel: chem.RiskHigh,
		}},
		Summary: chem.Summary{TotalPairs: 1, DangerousCount: 1, OverallStatus: chem.StatusDanger},
	}
}

func TestSummarizeSendsPromptToRoot(t *testing.T) {
	var prompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/", r.URL.Path)
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		prompt = body["prompt"]
		_, _ = w.Write([]byte(`{"success":true,"response":"  Never mix bleach with ammonia.  "}`))
	}))
	defer srv.Close()

	text, err := newService(t, Config{}).Summarize(context.Background(), srv.URL, dangerClassification())
	require.NoError(t, err)
	assert.Equal(t, "Never mix bleach with ammonia.", text)
	assert.Contains(t, prompt, "Overall Status: danger")
	assert.Contains(t, prompt, "- Sodium Hypochlorite + Ammonia")
	assert.Contains(t, prompt, "Hazards: Toxic, Gas Generation, Heat Generation\n")
}

func TestSummarizeAnalysisFieldFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"analysis":"Do not mix."}`))
	}))
	defer srv.Close()

	text, err := newService(t, Config{}).Summarize(context.Background(), srv.URL, dangerClassification())
	require.NoError(t, err)
	assert.Equal(t, "Do not mix.", text)
}

func TestSummarizeFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   chem.Kind
	}{
		{"reported failure", 200, `{"success":false,"error":"model not loaded"}`, chem.KindUpstreamServer},
		{"empty", 200, `{"success":true,"response":""}`, chem.KindUpstreamMalformed},
		{"not json", 200, `<html>`, chem.KindUpstreamMalformed},
		{"server error", 500, `{"error":"boom","error_type":"ValueError"}`, chem.KindUpstreamServer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := newService(t, Config{}).Summarize(context.Background(), srv.URL, dangerClassification())
			assert.Equal(t, tc.kind, chem.KindOf(err))
		})
	}
}

func TestSummarizeTimeout(t *testing.T) {
	// the POST body is never read, so the server context alone would not
	// end the handler
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := newService(t, Config{SummaryTimeout: 50 * time.Millisecond}).
		Summarize(context.Background(), srv.URL, dangerClassification())
	assert.Equal(t, chem.KindUpstreamTimeout, chem.KindOf(err))
}

func TestHealthStates(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
	}))
	defer healthy.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(release)

	s := newService(t, Config{HealthTimeout: 50 * time.Millisecond})
	ctx := context.Background()
	assert.Equal(t, Healthy, s.Health(ctx, healthy.URL))
	assert.Equal(t, Unhealthy, s.Health(ctx, broken.URL))
	assert.Equal(t, Unreachable, s.Health(ctx, slow.URL))
}

func TestAnalyzeRecordsSkipsCallWhenUnhealthy(t *testing.T) {
	var analyzeCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		analyzeCalls.Add(1)
	}))
	defer srv.Close()

	_, err := newService(t, Config{}).AnalyzeRecords(context.Background(), srv.URL, nil)
	assert.Equal(t, chem.KindUpstreamUnavailable, chem.KindOf(err))
	assert.Zero(t, analyzeCalls.Load())
}

func TestAnalyzeRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			return
		}
		assert.Equal(t, "/analyze", r.URL.Path)
		var body struct {
			Results []chem.Record `json:"results"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		names := []string{}
		for _, rec := range body.Results {
			names = append(names, rec.Chemical1, rec.Chemical2)
		}
		_, _ = w.Write([]byte(`{"success":true,"analysis":"checked ` + strings.Join(names, ",") + `"}`))
	}))
	defer srv.Close()

	text, err := newService(t, Config{}).AnalyzeRecords(context.Background(), srv.URL,
		[]chem.Record{{Chemical1: "A", Chemical2: "B", Status: chem.Caution}})
	require.NoError(t, err)
	assert.Equal(t, "checked A,B", text)
}
