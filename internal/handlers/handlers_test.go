package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mixsafe-gateway/internal/chem"
	"mixsafe-gateway/internal/endpoint"
	"mixsafe-gateway/internal/pipeline"
	"mixsafe-gateway/internal/summary"
)

type mockPipeline struct {
	hybridCalls int
	lastReq     pipeline.Request
	result      chem.Result
	records     []chem.Record
	err         error
}

func (m *mockPipeline) Hybrid(_ context.Context, req pipeline.Request) (chem.Result, error) {
	m.hybridCalls++
	m.lastReq = req
	return m.result, m.err
}

func (m *mockPipeline) Analyze(_ context.Context, req pipeline.Request) (pipeline.AnalyzeResult, error) {
	m.lastReq = req
	if m.err != nil {
		return pipeline.AnalyzeResult{}, m.err
	}
	return pipeline.AnalyzeResult{Success: true, AiStatus: chem.AiSkipped}, nil
}

func (m *mockPipeline) Simple(_ context.Context, ids []string) (chem.Classification, error) {
	m.lastReq = pipeline.Request{Substances: ids}
	return chem.Classification{Summary: chem.Summary{OverallStatus: chem.StatusSafe, Message: "ok"}}, m.err
}

func (m *mockPipeline) AnalyzeRecords(_ context.Context, records []chem.Record) (string, error) {
	m.records = records
	return "analysis", m.err
}

type mockProber struct {
	health  summary.Health
	lastURL string
}

func (p *mockProber) HealthWithin(_ context.Context, url string, _ time.Duration) summary.Health {
	p.lastURL = url
	return p.health
}

func newHandler(url string) (*Handler, *mockPipeline, *mockProber) {
	p := &mockPipeline{result: chem.Result{Success: true, AiStatus: chem.AiSuccess}}
	prober := &mockProber{health: summary.Healthy}
	return New(p, prober, endpoint.NewCell(url), "1.0.0"), p, prober
}

func do(t *testing.T, h http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return out
}

func TestHybridAnalyzeFlattensProducts(t *testing.T) {
	h, p, _ := newHandler("")

	rr := do(t, h.HybridAnalyze, http.MethodPost, "/hybrid-analyze", `{
		"products": [
			{"productName": "Bleach Cleaner", "casNumbers": ["7681-52-9", "64-17-5"]},
			{"productName": "Ammonia Solution", "casNumbers": ["1336-21-6"]}
		]
	}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	want := []string{"7681-52-9", "64-17-5", "1336-21-6"}
	if strings.Join(p.lastReq.Substances, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected identifiers %v", p.lastReq.Substances)
	}
	if !p.lastReq.UseAI {
		t.Fatalf("useAi should default to true")
	}
	if got := decode(t, rr)["ai_status"]; got != "success" {
		t.Fatalf("unexpected ai_status %v", got)
	}
}

func TestHybridAnalyzeUseAIFalse(t *testing.T) {
	h, p, _ := newHandler("")
	rr := do(t, h.HybridAnalyze, http.MethodPost, "/hybrid-analyze", `{"useAi": false, "substances": ["bleach", "ammonia"]}`)
	if rr.Code != http.StatusOK || p.lastReq.UseAI {
		t.Fatalf("expected AI disabled, got code %d req %+v", rr.Code, p.lastReq)
	}
}

func TestAnalyzeValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{"products": [`},
		{"empty body", ``},
		{"no identifiers", `{"products": []}`},
		{"product without cas", `{"products": [{"productName": "x", "casNumbers": []}]}`},
		{"blank cas", `{"products": [{"productName": "x", "casNumbers": [""]}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, p, _ := newHandler("")
			rr := do(t, h.HybridAnalyze, http.MethodPost, "/hybrid-analyze", tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
			if p.hybridCalls != 0 {
				t.Fatalf("pipeline must not run on invalid input")
			}
			if decode(t, rr)["error"] != "invalid_input" {
				t.Fatalf("unexpected body %s", rr.Body.String())
			}
		})
	}
}

func TestErrorKindsMapToStatus(t *testing.T) {
	cases := []struct {
		kind   chem.Kind
		status int
	}{
		{chem.KindNotFound, http.StatusNotFound},
		{chem.KindUpstreamUnavailable, http.StatusServiceUnavailable},
		{chem.KindUpstreamTimeout, http.StatusGatewayTimeout},
		{chem.KindUpstreamServer, http.StatusBadGateway},
		{chem.KindUpstreamMalformed, http.StatusBadGateway},
		{chem.KindInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		h, p, _ := newHandler("")
		p.err = chem.E("pipeline.fetch", tc.kind, "No reactivity data found for given substances", nil)

		rr := do(t, h.HybridAnalyze, http.MethodPost, "/hybrid-analyze", `{"substances": ["a", "b"]}`)
		if rr.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.kind, tc.status, rr.Code)
		}
		body := decode(t, rr)
		if body["detail"] == "" {
			t.Fatalf("%s: empty detail", tc.kind)
		}
	}
}

func TestSimpleAnalyzeFlattensClassification(t *testing.T) {
	h, _, _ := newHandler("")
	rr := do(t, h.SimpleAnalyze, http.MethodPost, "/simple-analyze", `{"substances": ["water", "salt"]}`)
	body := decode(t, rr)
	if body["success"] != true {
		t.Fatalf("expected success, got %s", rr.Body.String())
	}
	if _, ok := body["summary"]; !ok {
		t.Fatalf("classification fields should be inlined: %s", rr.Body.String())
	}
}

func TestAnalyze(t *testing.T) {
	h, p, _ := newHandler("")
	rr := do(t, h.Analyze, http.MethodPost, "/analyze", `{"use_ai": false, "substances": ["bleach", "ammonia"]}`)
	if rr.Code != http.StatusOK || p.lastReq.UseAI {
		t.Fatalf("unexpected %d %+v", rr.Code, p.lastReq)
	}
	if decode(t, rr)["ai_status"] != "skipped" {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
}

func TestHealth(t *testing.T) {
	cases := []struct {
		url    string
		health summary.Health
		aiAPI  string
	}{
		{"", summary.Healthy, "not configured"},
		{"http://ai", summary.Healthy, "connected"},
		{"http://ai", summary.Unhealthy, "error"},
		{"http://ai", summary.Unreachable, "unreachable"},
	}
	for _, tc := range cases {
		h, _, prober := newHandler(tc.url)
		prober.health = tc.health

		rr := do(t, h.Health, http.MethodGet, "/health", "")
		body := decode(t, rr)
		if body["status"] != "healthy" || body["ai_api"] != tc.aiAPI {
			t.Fatalf("url %q health %s: unexpected body %s", tc.url, tc.health, rr.Body.String())
		}
		if tc.url == "" && body["ai_url"] != "Not set" {
			t.Fatalf("expected ai_url Not set, got %v", body["ai_url"])
		}
	}
}

func TestSetAIURL(t *testing.T) {
	h, _, _ := newHandler("")

	rr := do(t, h.SetAIURL, http.MethodPost, "/set-ai-url?url=https://abc.ngrok.io/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if h.Endpoint.Get() != "https://abc.ngrok.io" {
		t.Fatalf("endpoint not updated: %q", h.Endpoint.Get())
	}

	rr = do(t, h.SetAIURL, http.MethodPost, "/set-ai-url", `{"url": "http://10.0.0.2:7860"}`)
	if rr.Code != http.StatusOK || h.Endpoint.Get() != "http://10.0.0.2:7860" {
		t.Fatalf("body form failed: %d %q", rr.Code, h.Endpoint.Get())
	}

	rr = do(t, h.SetAIURL, http.MethodPost, "/set-ai-url?url=not-a-url", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid url, got %d", rr.Code)
	}
	if h.Endpoint.Get() != "http://10.0.0.2:7860" {
		t.Fatalf("invalid url must not replace the endpoint")
	}
}

func TestAnalyzeFromRecords(t *testing.T) {
	h, p, _ := newHandler("")
	rr := do(t, h.AnalyzeFromRecords, http.MethodPost, "/analyze-from-records", `[]`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without AI url, got %d", rr.Code)
	}

	h.Endpoint.Set("http://ai")
	rr = do(t, h.AnalyzeFromRecords, http.MethodPost, "/analyze-from-records",
		`[{"chemical_1": "Sodium Hypochlorite", "chemical_2": "Ammonia", "status": "incompatible", "hazards": ["Toxic"]}]`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(p.records) != 1 || decode(t, rr)["ai_analysis"] != "analysis" {
		t.Fatalf("unexpected records %v body %s", p.records, rr.Body.String())
	}

	rr = do(t, h.AnalyzeFromRecords, http.MethodPost, "/analyze-from-records", `[{"chemical_1": "A"}]`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for incomplete record, got %d", rr.Code)
	}
}

func TestRoot(t *testing.T) {
	h, _, _ := newHandler("http://ai")
	body := decode(t, do(t, h.Root, http.MethodGet, "/", ""))
	if body["ai_configured"] != true || body["version"] != "1.0.0" {
		t.Fatalf("unexpected root body %v", body)
	}
}
