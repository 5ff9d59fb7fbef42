package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// HTTPSink posts events to a configured URL, rate-limited to avoid
// overwhelming the receiving webhook when identifications arrive in
// bursts.
type HTTPSink struct {
	url        string
	authToken  string
	client     *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewHTTPSink constructs an HTTPSink. ratePerSecond <= 0 falls back to 10
// requests per second; limiting is always on, with a burst of 1.
func NewHTTPSink(url, authToken string, ratePerSecond float64, timeout time.Duration, logger *slog.Logger) *HTTPSink {
	if logger == nil {
		logger = slog.Default()
	}
	if ratePerSecond <= 0 {
		ratePerSecond = 10
	}
	return &HTTPSink{
		url:       url,
		authToken: authToken,
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		logger:    logger,
	}
}

// Send posts ev as JSON, blocking until the rate limiter admits the
// request or ctx is cancelled.
func (s *HTTPSink) Send(ctx context.Context, ev Event) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("sink: rate limiter: %w", err)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("sink: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sink: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sink: post event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sink: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
