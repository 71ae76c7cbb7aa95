package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/modules/voicegen"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	temp := 0.5
	c, err := NewClient(logger.Nop(), Config{APIKey: "k", BaseURL: srv.URL, Model: "m", EmbedModel: "e", Temperature: &temp}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestEmbed_OrdersByIndex(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"model":"e","data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}],"usage":{"prompt_tokens":7}}`))
	})

	resp, err := c.Embed(context.Background(), voicegen.EmbedRequest{Texts: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if resp.Vectors[0][0] != 1 || resp.Vectors[1][1] != 1 || resp.Tokens != 7 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestComplete_ReturnsTextAndUsage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req responsesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Text.Format["name"] != "post" || len(req.Input) != 2 {
			t.Errorf("unexpected request: %+v", req)
		}
		_, _ = w.Write([]byte(`{"model":"m","output":[{"type":"message","role":"assistant","content":[{"type":"output_text","text":"{\"ok\":true}"}]}],"usage":{"input_tokens":11,"output_tokens":3}}`))
	})

	resp, err := c.Complete(context.Background(), voicegen.CompletionRequest{System: "s", User: "u", SchemaName: "post", Schema: map[string]any{"type": "object"}})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text != `{"ok":true}` || resp.TokensIn != 11 || resp.TokensOut != 3 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestComplete_ClassifiesStatus(t *testing.T) {
	cases := []struct {
		status    int
		retryable bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
	}
	for _, tc := range cases {
		status := tc.status
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
		})
		_, err := c.Complete(context.Background(), voicegen.CompletionRequest{User: "u"})
		if err == nil {
			t.Fatalf("status %d: expected error", status)
		}
		if apperr.IsRetryable(err) != tc.retryable {
			t.Fatalf("status %d: want retryable=%v got code=%s", status, tc.retryable, apperr.CodeOf(err))
		}
	}
}

func TestComplete_DropsRejectedTemperature(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req responsesRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Temperature != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Unsupported parameter: 'temperature' is not supported with this model."}}`))
			return
		}
		_, _ = w.Write([]byte(`{"output":[{"type":"message","content":[{"type":"output_text","text":"hi"}]}]}`))
	})

	for i := 0; i < 2; i++ {
		resp, err := c.Complete(context.Background(), voicegen.CompletionRequest{User: "u"})
		if err != nil || resp.Text != "hi" {
			t.Fatalf("call %d: resp=%+v err=%v", i, resp, err)
		}
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("want 3 HTTP calls (one rejected) got %d", got)
	}
}
