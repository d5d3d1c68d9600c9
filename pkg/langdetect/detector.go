// Package langdetect resolves the dominant language of a user text to
// a BCP-47 tag with a single deterministic call to a lightweight
// model. The result is cached in the session by the caller, so the
// cost is paid at most once per session.
package langdetect

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/desu777/GrandHotelAgent/pkg/gemini"
)

// DefaultLanguage is returned whenever detection cannot produce a
// valid tag: empty input, model error, or a malformed answer.
const DefaultLanguage = "en-US"

var tagRe = regexp.MustCompile(`^[a-z]{2,3}(-[A-Z]{2})?$`)

const systemPrompt = "You are a strict language detector. " +
	"Return ONLY the primary BCP-47 language code of the provided text. " +
	"Examples: 'en-US', 'pl-PL', 'de-DE'. Do not add explanations."

// LLM is the one model operation the detector needs.
type LLM interface {
	GenerateContent(ctx context.Context, model string, req *gemini.Request) (*gemini.Response, error)
}

type Detector struct {
	llm   LLM
	model string
}

func New(llm LLM, model string) *Detector {
	return &Detector{llm: llm, model: model}
}

// Detect returns a BCP-47 tag for text and whether detection actually
// succeeded. ok=false means the default was substituted and the caller
// should surface a warning.
func (d *Detector) Detect(ctx context.Context, text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return DefaultLanguage, false
	}

	resp, err := d.llm.GenerateContent(ctx, d.model, &gemini.Request{
		SystemInstruction: &gemini.Content{Parts: []gemini.Part{{Text: systemPrompt}}},
		Contents: []gemini.Content{
			{Role: gemini.RoleUser, Parts: []gemini.Part{{Text: text}}},
		},
		GenerationConfig: &gemini.GenerationConfig{Temperature: gemini.Float64(0)},
	})
	if err != nil {
		log.Warn().Err(err).Msg("language detection failed, using default")
		return DefaultLanguage, false
	}

	tag := strings.TrimSpace(resp.Text())
	if !tagRe.MatchString(tag) {
		log.Warn().Str("tag", tag).Msg("invalid language tag from model, using default")
		return DefaultLanguage, false
	}
	return tag, true
}
