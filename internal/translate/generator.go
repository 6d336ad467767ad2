package translate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"mixsafe-gateway/internal/chem"
	"mixsafe-gateway/internal/llm"

	openai "github.com/sashabaranov/go-openai"
)

// Generator sends a prompt to a text model and returns the raw response
// body. Interpreting the body is left to Extract.
type Generator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
	Name() string
}

const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiGenerator calls the Gemini generateContent REST method.
type GeminiGenerator struct {
	client  *llm.Client
	baseURL string
	model   string
	apiKey  string
	timeout time.Duration
}

func NewGeminiGenerator(client *llm.Client, baseURL, model, apiKey string, timeout time.Duration) *GeminiGenerator {
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiGenerator{client: client, baseURL: baseURL, model: model, apiKey: apiKey, timeout: timeout}
}

func (g *GeminiGenerator) Name() string { return "gemini" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) ([]byte, error) {
	return g.client.Do(ctx, llm.Call{
		Op:      "translate.gemini",
		Method:  http.MethodPost,
		URL:     g.baseURL + "/v1beta/models/" + url.PathEscape(g.model) + ":generateContent",
		Payload: geminiRequest{Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}}},
		Headers: map[string]string{"x-goog-api-key": g.apiKey},
		Timeout: g.timeout,
	})
}

// OpenAIGenerator uses any OpenAI-compatible chat completion endpoint.
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAIGenerator(apiKey, baseURL, model string, timeout time.Duration) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIGenerator{client: openai.NewClientWithConfig(cfg), model: model, timeout: timeout}
}

func (g *OpenAIGenerator) Name() string { return "openai" }

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) ([]byte, error) {
	const op = "translate.openai"

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, classifyOpenAIError(ctx, op, err)
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return nil, chem.E(op, chem.KindInternal, "encode completion", err)
	}
	return body, nil
}

func classifyOpenAIError(ctx context.Context, op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		ce := chem.E(op, chem.KindUpstreamServer, apiErr.Message, err)
		ce.Status = apiErr.HTTPStatusCode
		return ce
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		ce := chem.E(op, chem.KindUpstreamServer, "request failed", err)
		ce.Status = reqErr.HTTPStatusCode
		return ce
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return chem.E(op, chem.KindUpstreamTimeout, "no response from model", err)
	}
	return chem.E(op, chem.KindUpstreamUnavailable, "cannot connect to model", err)
}
