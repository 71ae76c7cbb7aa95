package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/modules/voicegen"
	"github.com/yungbote/postvoice-backend/internal/platform/envutil"
	"github.com/yungbote/postvoice-backend/internal/platform/httpx"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

// Observer receives one sample per HTTP round trip.
type Observer interface {
	ObserveLLMRequest(model, endpoint, status string, dur time.Duration, tokensIn, tokensOut int)
}

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	EmbedModel  string
	Timeout     time.Duration
	Temperature *float64
}

// ConfigFromEnv reads OPENAI_* variables.
func ConfigFromEnv() Config {
	cfg := Config{
		APIKey:     envutil.String("OPENAI_API_KEY", ""),
		BaseURL:    strings.TrimRight(envutil.String("OPENAI_BASE_URL", "https://api.openai.com"), "/"),
		Model:      envutil.String("OPENAI_MODEL", "gpt-4.1-mini"),
		EmbedModel: envutil.String("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		Timeout:    envutil.Seconds("OPENAI_TIMEOUT_SECONDS", 120*time.Second),
	}
	if !envutil.Bool("OPENAI_DISABLE_TEMPERATURE", false) {
		t := 0.7
		cfg.Temperature = &t
	}
	return cfg
}

// Client talks to the OpenAI HTTP API. Each call is a single attempt; retry
// policy belongs to the caller.
type Client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
	obs        Observer

	// models that rejected the temperature parameter
	noTempMu sync.RWMutex
	noTemp   map[string]bool
}

var (
	_ voicegen.EmbeddingService  = (*Client)(nil)
	_ voicegen.GenerationService = (*Client)(nil)
)

func NewClient(log *logger.Logger, cfg Config, obs Observer) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Client{
		log:        log.With("service", "OpenAIClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		obs:        obs,
		noTemp:     map[string]bool{},
	}, nil
}

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	body := e.Body
	if len(body) > 512 {
		body = body[:512]
	}
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, body)
}

func (e *httpError) HTTPStatusCode() int { return e.StatusCode }

// classify tags err with the retryable bit. Caller cancellation passes
// through untouched.
func classify(op string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	return apperr.Dependency(op, httpx.IsRetryableError(err), err)
}

func (c *Client) doOnce(ctx context.Context, path, model string, body any, out any) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(model, path, "transport_error", start, 0, 0)
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		c.observe(model, path, "read_error", start, 0, 0)
		return nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.observe(model, path, fmt.Sprintf("%d", resp.StatusCode), start, 0, 0)
		return raw, &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	in, outTok := extractUsage(raw)
	c.observe(model, path, "ok", start, in, outTok)
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return raw, fmt.Errorf("openai decode error: %w", err)
		}
	}
	return raw, nil
}

func (c *Client) observe(model, path, status string, start time.Time, in, out int) {
	if c.obs == nil {
		return
	}
	c.obs.ObserveLLMRequest(model, path, status, time.Since(start), in, out)
}

// -------------------- Embeddings --------------------

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Model string `json:"model"`
	Data  []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func (c *Client) Embed(ctx context.Context, in voicegen.EmbedRequest) (voicegen.EmbedResponse, error) {
	if err := in.Validate(); err != nil {
		return voicegen.EmbedResponse{}, err
	}
	req := embeddingsRequest{Model: c.cfg.EmbedModel, Input: in.Texts}
	var resp embeddingsResponse
	if _, err := c.doOnce(ctx, "/v1/embeddings", c.cfg.EmbedModel, req, &resp); err != nil {
		return voicegen.EmbedResponse{}, classify("openai.embed", err)
	}

	out := make([][]float32, len(in.Texts))
	for i, d := range resp.Data {
		idx := d.Index
		if idx < 0 || idx >= len(out) || out[idx] != nil {
			idx = i
		}
		if idx >= len(out) {
			continue
		}
		vec := make([]float32, len(d.Embedding))
		for j, f := range d.Embedding {
			vec[j] = float32(f)
		}
		out[idx] = vec
	}
	for i := range out {
		if len(out[i]) == 0 {
			// treated as a transient upstream glitch
			return voicegen.EmbedResponse{}, apperr.Dependency("openai.embed", true,
				fmt.Errorf("embeddings missing index %d: requested=%d returned=%d", i, len(in.Texts), len(resp.Data)))
		}
	}
	tokens := resp.Usage.PromptTokens
	if tokens == 0 {
		tokens = resp.Usage.TotalTokens
	}
	return voicegen.EmbedResponse{Vectors: out, Model: resp.Model, Tokens: tokens}, nil
}

// -------------------- Responses API --------------------

type inputMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesRequest struct {
	Model string         `json:"model"`
	Input []inputMessage `json:"input"`
	Text  struct {
		Format map[string]any `json:"format,omitempty"`
	} `json:"text,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type responsesResponse struct {
	Model  string `json:"model"`
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type    string `json:"type"`
			Text    string `json:"text,omitempty"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (r responsesResponse) text() (string, string) {
	var out, refusal strings.Builder
	for _, item := range r.Output {
		if item.Type != "message" {
			continue
		}
		for _, c := range item.Content {
			switch c.Type {
			case "output_text":
				out.WriteString(c.Text)
			case "refusal":
				refusal.WriteString(c.Refusal)
			}
		}
	}
	return out.String(), refusal.String()
}

// Complete runs one Responses API call. With a schema the output is strict
// JSON matching it.
func (c *Client) Complete(ctx context.Context, in voicegen.CompletionRequest) (voicegen.CompletionResponse, error) {
	if err := in.Validate(); err != nil {
		return voicegen.CompletionResponse{}, err
	}
	req := responsesRequest{Model: c.cfg.Model}
	if s := strings.TrimSpace(in.System); s != "" {
		req.Input = append(req.Input, inputMessage{Role: "system", Content: s})
	}
	req.Input = append(req.Input, inputMessage{Role: "user", Content: in.User})
	if in.Schema != nil {
		req.Text.Format = map[string]any{
			"type":   "json_schema",
			"name":   in.SchemaName,
			"schema": in.Schema,
			"strict": true,
		}
	}
	if c.cfg.Temperature != nil && !c.modelRejectsTemperature(req.Model) {
		req.Temperature = c.cfg.Temperature
	}

	var resp responsesResponse
	_, err := c.doOnce(ctx, "/v1/responses", req.Model, req, &resp)
	if err != nil && req.Temperature != nil && isUnsupportedTemperature(err) {
		c.noteRejectsTemperature(req.Model)
		req.Temperature = nil
		resp = responsesResponse{}
		_, err = c.doOnce(ctx, "/v1/responses", req.Model, req, &resp)
	}
	if err != nil {
		return voicegen.CompletionResponse{}, classify("openai.complete", err)
	}

	text, refusal := resp.text()
	if refusal != "" {
		return voicegen.CompletionResponse{}, apperr.Dependency("openai.complete", false, fmt.Errorf("model refused: %s", refusal))
	}
	if strings.TrimSpace(text) == "" {
		return voicegen.CompletionResponse{}, apperr.Dependency("openai.complete", true, errors.New("no output_text in response"))
	}
	return voicegen.CompletionResponse{
		Text:      text,
		TokensIn:  resp.Usage.InputTokens,
		TokensOut: resp.Usage.OutputTokens,
		Model:     resp.Model,
	}, nil
}

func (c *Client) modelRejectsTemperature(model string) bool {
	c.noTempMu.RLock()
	defer c.noTempMu.RUnlock()
	return c.noTemp[strings.ToLower(model)]
}

func (c *Client) noteRejectsTemperature(model string) {
	c.noTempMu.Lock()
	c.noTemp[strings.ToLower(model)] = true
	c.noTempMu.Unlock()
	c.log.Info("model rejected temperature; omitting from now on", "model", model)
}

func isUnsupportedTemperature(err error) bool {
	var he *httpError
	if !errors.As(err, &he) || he.StatusCode != http.StatusBadRequest {
		return false
	}
	msg := strings.ToLower(he.Body)
	if !strings.Contains(msg, "temperature") {
		return false
	}
	for _, frag := range []string{"unsupported", "not supported", "does not support", "unknown parameter", "only the default"} {
		if strings.Contains(msg, frag) {
			return true
		}
	}
	return false
}

func extractUsage(raw []byte) (int, int) {
	var payload struct {
		Usage struct {
			InputTokens      int `json:"input_tokens"`
			OutputTokens     int `json:"output_tokens"`
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return 0, 0
	}
	u := payload.Usage
	if u.InputTokens == 0 && u.OutputTokens == 0 {
		return u.PromptTokens, u.CompletionTokens
	}
	return u.InputTokens, u.OutputTokens
}
