package voicegen

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
)

// EmbedRequest is one batched embedding call.
type EmbedRequest struct {
	Texts []string
}

func (r EmbedRequest) Validate() error {
	if len(r.Texts) == 0 {
		return apperr.Validation("embed", nil, "no texts to embed")
	}
	for i, t := range r.Texts {
		if strings.TrimSpace(t) == "" {
			return apperr.Validation("embed", nil, "text %d is empty", i)
		}
	}
	return nil
}

type EmbedResponse struct {
	Vectors [][]float32
	Model   string
	Tokens  int
}

// EmbeddingService returns one vector per input text, in order.
type EmbeddingService interface {
	Embed(ctx context.Context, req EmbedRequest) (EmbedResponse, error)
}

// CompletionRequest is a structured-output generation call.
type CompletionRequest struct {
	System     string
	User       string
	SchemaName string
	Schema     map[string]any
}

func (r CompletionRequest) Validate() error {
	if strings.TrimSpace(r.User) == "" {
		return apperr.Validation("complete", nil, "user prompt is empty")
	}
	if r.Schema != nil && strings.TrimSpace(r.SchemaName) == "" {
		return apperr.Validation("complete", nil, "schema name required with schema")
	}
	return nil
}

type CompletionResponse struct {
	Text      string
	TokensIn  int
	TokensOut int
	Model     string
}

// GenerationService returns generated text (JSON when a schema is supplied).
type GenerationService interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// checkEmbedResponse enforces one vector per text and a shared dimension.
func checkEmbedResponse(op string, req EmbedRequest, resp EmbedResponse) error {
	if len(resp.Vectors) != len(req.Texts) {
		return apperr.Dependency(op, false, fmt.Errorf("embedding count mismatch: requested=%d returned=%d", len(req.Texts), len(resp.Vectors)))
	}
	dim := -1
	for i, v := range resp.Vectors {
		if len(v) == 0 {
			return apperr.Dependency(op, false, fmt.Errorf("embedding %d is empty", i))
		}
		if dim >= 0 && len(v) != dim {
			return apperr.Dependency(op, false, errDimension(i, len(v), dim))
		}
		dim = len(v)
	}
	return nil
}

func errDimension(i, got, want int) error {
	return fmt.Errorf("embedding %d has dimension %d, expected %d", i, got, want)
}

// ScrapeFailure is the structured reason a profile import failed. Callers
// treat every reason the same way: fall back to manual entry.
type ScrapeFailure string

const (
	ScrapeTimeout        ScrapeFailure = "timeout"
	ScrapePrivateProfile ScrapeFailure = "private_profile"
	ScrapeRateLimited    ScrapeFailure = "rate_limited"
	ScrapeNotFound       ScrapeFailure = "not_found"
	ScrapeUnavailable    ScrapeFailure = "unavailable"
)

type ScrapeError struct {
	Reason ScrapeFailure
	Cause  error
}

func (e *ScrapeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("profile scrape failed (%s): %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("profile scrape failed (%s)", e.Reason)
}

func (e *ScrapeError) Unwrap() error { return e.Cause }

// ProfileScrapeService fetches a creator's recent public posts.
type ProfileScrapeService interface {
	FetchPosts(ctx context.Context, profileURL string, limit int) ([]string, error)
}
