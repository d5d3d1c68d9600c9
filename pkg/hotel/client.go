// Package hotel is the typed HTTP client for the hotel REST backend.
// It executes the requests the tool registry builds, propagates the
// caller's bearer credential verbatim, and classifies failures so the
// orchestrator can feed them back to the model. It never retries;
// whether to try again is the model's decision in the next round.
package hotel

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Failure classes. The orchestrator maps these onto tool trace status
// and decides whether to keep dispatching subsequent calls.
type ErrorKind string

const (
	ErrTimeout    ErrorKind = "TIMEOUT"
	ErrBackend4xx ErrorKind = "BACKEND_4XX"
	ErrBackend5xx ErrorKind = "BACKEND_5XX"
	ErrNetwork    ErrorKind = "NETWORK"
)

// CallError is a classified backend failure.
type CallError struct {
	Kind       ErrorKind
	StatusCode int
	Body       string
	cause      error
}

func (e *CallError) Error() string {
	if e.StatusCode != 0 {
		return string(e.Kind) + ": backend returned " + http.StatusText(e.StatusCode)
	}
	return string(e.Kind) + ": " + e.cause.Error()
}

func (e *CallError) Unwrap() error { return e.cause }

// AsCallError extracts a *CallError from err's chain.
func AsCallError(err error) (*CallError, bool) {
	var ce *CallError
	ok := errors.As(err, &ce)
	return ce, ok
}

// Client executes one backend request per tool dispatch.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Do issues method+path with the optional JSON body and returns the
// parsed response body. DELETE endpoints answer 204; that becomes a
// small status document so the model always gets JSON back.
func (c *Client) Do(ctx context.Context, method, path string, body map[string]any, bearer string) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encode backend request")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, errors.Wrap(err, "build backend request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	log.Debug().Str("method", method).Str("path", path).Msg("backend call")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, &CallError{Kind: ErrTimeout, cause: err}
		}
		return nil, &CallError{Kind: ErrNetwork, cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &CallError{Kind: ErrNetwork, cause: err}
	}

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return json.RawMessage(`{"status":"deleted"}`), nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return json.RawMessage(raw), nil
	case resp.StatusCode >= 500:
		return nil, &CallError{Kind: ErrBackend5xx, StatusCode: resp.StatusCode, Body: string(raw)}
	default:
		return nil, &CallError{Kind: ErrBackend4xx, StatusCode: resp.StatusCode, Body: string(raw)}
	}
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	var te timeouter
	return errors.As(err, &te) && te.Timeout()
}
