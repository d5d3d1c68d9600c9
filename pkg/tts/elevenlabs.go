// Package tts synthesizes the assistant's final reply as speech via
// the ElevenLabs HTTP API. Synthesis is strictly optional: any failure
// here degrades a voice answer to text, it never fails the turn.
package tts

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

// ErrUnavailable marks synthesis that cannot even be attempted, for
// example when no API key is configured.
var ErrUnavailable = errors.New("tts: synthesis unavailable")

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	outputFormat   = "mp3_44100_128"
	mimeMP3        = "audio/mpeg"
)

// Synthesizer turns text into audio. Implementations must be safe for
// concurrent use.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (audio []byte, mimeType string, err error)
}

// Client is the ElevenLabs-backed Synthesizer.
type Client struct {
	apiKey  string
	voiceID string
	modelID string
	baseURL string
	http    *http.Client
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func NewClient(apiKey, voiceID, modelID string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		voiceID: voiceID,
		modelID: modelID,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type synthesisRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Synthesize renders text as MP3 audio.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	if c.apiKey == "" || c.voiceID == "" {
		return nil, "", ErrUnavailable
	}
	if text == "" {
		return nil, "", errors.New("tts: empty text")
	}

	payload, err := json.Marshal(synthesisRequest{Text: text, ModelID: c.modelID})
	if err != nil {
		return nil, "", errors.Wrap(err, "encode synthesis request")
	}

	url := c.baseURL + "/v1/text-to-speech/" + c.voiceID + "?output_format=" + outputFormat
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, "", errors.Wrap(err, "build synthesis request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", errors.Wrap(err, "synthesis call failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		log.Warn().Int("status", resp.StatusCode).Msg("speech synthesis rejected")
		return nil, "", errors.Errorf("tts: synthesis returned %d: %s", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", errors.Wrap(err, "read synthesis response")
	}
	if len(audio) == 0 {
		return nil, "", errors.New("tts: empty audio response")
	}
	return audio, mimeMP3, nil
}
