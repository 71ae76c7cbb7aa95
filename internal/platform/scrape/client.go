package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/postvoice-backend/internal/modules/voicegen"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

// Client calls the profile scraping sidecar:
//
//	GET {base}/v1/profile/posts?url=...&limit=N -> {"posts":[{"text":"..."}]}
type Client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ voicegen.ProfileScrapeService = (*Client)(nil)

func NewClient(log *logger.Logger, baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		log:        log.With("service", "ProfileScrapeClient"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type postsResponse struct {
	Posts []struct {
		Text string `json:"text"`
	} `json:"posts"`
}

func (c *Client) FetchPosts(ctx context.Context, profileURL string, limit int) ([]string, error) {
	if c.baseURL == "" {
		return nil, &voicegen.ScrapeError{Reason: voicegen.ScrapeUnavailable, Cause: errors.New("scraper not configured")}
	}
	q := url.Values{}
	q.Set("url", profileURL)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/profile/posts?"+q.Encode(), nil)
	if err != nil {
		return nil, &voicegen.ScrapeError{Reason: voicegen.ScrapeUnavailable, Cause: err}
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		reason := voicegen.ScrapeUnavailable
		var ne net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
			reason = voicegen.ScrapeTimeout
		}
		return nil, &voicegen.ScrapeError{Reason: reason, Cause: err}
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &voicegen.ScrapeError{Reason: voicegen.ScrapeNotFound}
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return nil, &voicegen.ScrapeError{Reason: voicegen.ScrapePrivateProfile}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &voicegen.ScrapeError{Reason: voicegen.ScrapeRateLimited}
	case resp.StatusCode == http.StatusGatewayTimeout || resp.StatusCode == http.StatusRequestTimeout:
		return nil, &voicegen.ScrapeError{Reason: voicegen.ScrapeTimeout}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &voicegen.ScrapeError{Reason: voicegen.ScrapeUnavailable, Cause: fmt.Errorf("http %d", resp.StatusCode)}
	}

	var body postsResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, &voicegen.ScrapeError{Reason: voicegen.ScrapeUnavailable, Cause: err}
	}
	out := make([]string, 0, len(body.Posts))
	for _, p := range body.Posts {
		if t := strings.TrimSpace(p.Text); t != "" {
			out = append(out, t)
		}
	}
	c.log.Debug("profile scraped", "posts", len(out))
	return out, nil
}
