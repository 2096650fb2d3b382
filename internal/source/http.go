package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nao1215/reviewharvest/internal/config"
	"github.com/nao1215/reviewharvest/internal/model"
)

// maxResponseBytes bounds the size of a decoded response body. A full page
// of 20 000 reviews stays well below it.
const maxResponseBytes = 256 << 20

// maxErrorBodyBytes bounds the body excerpt kept in a StatusError.
const maxErrorBodyBytes = 512

// HTTPSource reads reviews from the JSON gateway.
//
// Requests are paced by a token bucket owned by the source. Since a source
// is bound to one identity's client, pacing is per identity.
type HTTPSource struct {
	baseURL   string
	client    *http.Client
	userAgent string
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(s *HTTPSource) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithRateLimit paces requests to rps per second with the given burst.
// A non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) HTTPOption {
	return func(s *HTTPSource) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(logger *slog.Logger) HTTPOption {
	return func(s *HTTPSource) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewHTTPSource creates a source for the gateway at baseURL. A nil client
// uses http.DefaultClient.
func NewHTTPSource(baseURL string, client *http.Client, opts ...HTTPOption) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	s := &HTTPSource{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    client,
		userAgent: config.DefaultUserAgent,
		limiter:   rate.NewLimiter(rate.Limit(config.DefaultRequestsPerSecond), config.DefaultBurst),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// appResponse is the metadata payload.
type appResponse struct {
	Title string `json:"title"`
}

// reviewsResponse is the review listing payload.
type reviewsResponse struct {
	Reviews           []wireReview `json:"reviews"`
	ContinuationToken *string      `json:"continuation_token"`
}

// wireReview is one review as sent by the gateway. Pointer fields tell an
// absent field from a zero value.
type wireReview struct {
	UserName      *string    `json:"userName"`
	Score         *int       `json:"score"`
	At            *time.Time `json:"at"`
	Content       *string    `json:"content"`
	ThumbsUpCount int        `json:"thumbsUpCount"`
	ReplyContent  *string    `json:"replyContent"`
	RepliedAt     *time.Time `json:"repliedAt"`
}

// toModel converts w. A review without userName or content fields is
// malformed; an empty content is a rating-only review.
func (w wireReview) toModel() (model.Review, error) {
	if w.UserName == nil {
		return model.Review{}, model.ErrMissingAuthor
	}
	if w.Content == nil {
		return model.Review{}, model.ErrMissingText
	}

	r := model.Review{
		Author:   *w.UserName,
		Text:     *w.Content,
		ThumbsUp: w.ThumbsUpCount,
	}
	if w.Score != nil {
		r.Rating = *w.Score
	}
	if w.At != nil {
		r.At = w.At.UTC()
	}
	if w.ReplyContent != nil {
		r.Reply = *w.ReplyContent
	}
	if w.RepliedAt != nil {
		t := w.RepliedAt.UTC()
		r.RepliedAt = &t
	}
	return r, nil
}

// ResolveMetadata returns the target with its store title.
func (s *HTTPSource) ResolveMetadata(ctx context.Context, id string, locale model.Locale) (model.Target, error) {
	q := url.Values{}
	q.Set("lang", locale.Language)
	q.Set("country", locale.Country)

	var resp appResponse
	if err := s.getJSON(ctx, "/apps/"+url.PathEscape(id), q, &resp); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return model.Target{}, fmt.Errorf("%w: %s", ErrTargetNotFound, id)
		}
		return model.Target{}, err
	}
	return model.Target{ID: id, Title: strings.TrimSpace(resp.Title)}, nil
}

// FetchPage returns one page of reviews.
func (s *HTTPSource) FetchPage(ctx context.Context, req PageRequest) (Page, error) {
	if err := req.validate(); err != nil {
		return Page{}, err
	}

	sortOrder := req.Sort
	if sortOrder == "" {
		sortOrder = SortMostRelevant
	}

	q := url.Values{}
	q.Set("lang", req.Language)
	q.Set("country", req.Country)
	q.Set("score", strconv.Itoa(req.Score))
	q.Set("count", strconv.Itoa(req.Count))
	q.Set("sort", sortOrder)
	if req.Cursor != "" {
		q.Set("continuation_token", req.Cursor)
	}

	var resp reviewsResponse
	if err := s.getJSON(ctx, "/apps/"+url.PathEscape(req.TargetID)+"/reviews", q, &resp); err != nil {
		return Page{}, err
	}

	page := Page{Reviews: make([]model.Review, 0, len(resp.Reviews))}
	for i, w := range resp.Reviews {
		r, err := w.toModel()
		if err != nil {
			return Page{}, fmt.Errorf("%w: record %d: %w", ErrMalformedResponse, i, err)
		}
		page.Reviews = append(page.Reviews, r)
	}
	if resp.ContinuationToken != nil {
		page.Next = *resp.ContinuationToken
	}
	return page, nil
}

// getJSON performs a paced GET and decodes the JSON body into v.
func (s *HTTPSource) getJSON(ctx context.Context, path string, q url.Values, v any) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	reqURL := s.baseURL + path
	if len(q) > 0 {
		reqURL += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	s.logger.Debug("source request", "path", path, "status", resp.StatusCode, "elapsed", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes)) //nolint:errcheck // Excerpt only
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return nil
}
