// Package gemini is a minimal typed client for the Gemini
// generateContent REST API, covering exactly what the gateway needs:
// system instructions, multi-turn contents, function declarations and
// inline audio parts. No streaming.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Transient empty responses (no candidates or empty parts despite
// finishReason=STOP) are a known Gemini behaviour; a short backoff and
// retry usually resolves them.
const (
	maxAttempts    = 3
	retryDelayBase = 500 * time.Millisecond
)

// ErrBlocked is returned when the prompt or the response was blocked by
// a safety filter. Blocks are definitive: retrying cannot help.
var ErrBlocked = errors.New("gemini: blocked by safety filter")

// Client talks to one Gemini API endpoint. It is safe for concurrent
// use and meant to be constructed once at process start.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	sleep   func(ctx context.Context, d time.Duration) error
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{},
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GenerateContent runs one model invocation, retrying transient empty
// responses with exponential backoff. The caller bounds the total time
// through ctx.
func (c *Client) GenerateContent(ctx context.Context, model string, req *Request) (*Response, error) {
	var resp *Response
	for attempt := 0; attempt < maxAttempts; attempt++ {
		var err error
		resp, err = c.post(ctx, model, req)
		if err != nil {
			return nil, err
		}

		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			log.Warn().Str("block_reason", resp.PromptFeedback.BlockReason).Msg("prompt blocked")
			return nil, ErrBlocked
		}
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == "SAFETY" {
			log.Warn().Msg("response blocked by safety filter")
			return nil, ErrBlocked
		}
		if !resp.empty() {
			return resp, nil
		}

		if attempt < maxAttempts-1 {
			delay := retryDelayBase << attempt
			log.Warn().
				Int("attempt", attempt+1).
				Dur("delay", delay).
				Msg("empty response from gemini, retrying")
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}
	}
	return nil, errors.New("gemini: empty response after retries")
}

func (c *Client) post(ctx context.Context, model string, req *Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "gemini: encode request")
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "gemini: build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "gemini: call failed")
	}
	defer func() { _ = httpResp.Body.Close() }()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "gemini: read response")
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("gemini: API returned %d: %s", httpResp.StatusCode, truncate(string(raw), 512))
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.Wrap(err, "gemini: decode response")
	}
	return &resp, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
