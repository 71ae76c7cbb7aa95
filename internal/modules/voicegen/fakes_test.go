package voicegen

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Retry.BaseDelay = time.Millisecond
	cfg.Retry.MaxDelay = 2 * time.Millisecond
	cfg.Retry.Jitter = 0
	return cfg
}

// hashEmbedder maps each word to a bucket, so identical texts get identical
// vectors and texts with disjoint vocabularies are close to orthogonal.
type hashEmbedder struct {
	dim   int
	mu    sync.Mutex
	calls int
	fail  error
}

func (e *hashEmbedder) Embed(_ context.Context, req EmbedRequest) (EmbedResponse, error) {
	e.mu.Lock()
	e.calls++
	fail := e.fail
	e.mu.Unlock()
	if fail != nil {
		return EmbedResponse{}, fail
	}
	out := make([][]float32, len(req.Texts))
	for i, t := range req.Texts {
		v := make([]float32, e.dim)
		for _, w := range strings.Fields(strings.ToLower(t)) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(strings.Trim(w, ".,!?:;")))
			v[int(h.Sum32())%e.dim]++
		}
		out[i] = v
	}
	return EmbedResponse{Vectors: out, Tokens: len(req.Texts) * 10}, nil
}

// scriptedGenerator answers each call with fn. Calls are counted per
// schema name.
type scriptedGenerator struct {
	mu    sync.Mutex
	calls map[string]int
	fn    func(call int, req CompletionRequest) (CompletionResponse, error)
}

func newScriptedGenerator(fn func(call int, req CompletionRequest) (CompletionResponse, error)) *scriptedGenerator {
	return &scriptedGenerator{calls: map[string]int{}, fn: fn}
}

func (g *scriptedGenerator) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	g.mu.Lock()
	g.calls[req.SchemaName]++
	n := g.calls[req.SchemaName]
	g.mu.Unlock()
	return g.fn(n, req)
}

func (g *scriptedGenerator) count(schema string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[schema]
}

func jsonReply(v any) CompletionResponse {
	b, _ := json.Marshal(v)
	return CompletionResponse{Text: string(b), TokensIn: 100, TokensOut: 50}
}

var errRateLimited = apperr.Dependency("complete", true, errors.New("status 429: rate limited"))
var errBadRequest = apperr.Dependency("complete", false, errors.New("status 400: invalid request"))
