package langdetect

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/desu777/GrandHotelAgent/pkg/gemini"
)

type fakeLLM struct {
	reply string
	err   error
	calls int
}

func (f *fakeLLM) GenerateContent(_ context.Context, _ string, _ *gemini.Request) (*gemini.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &gemini.Response{Candidates: []gemini.Candidate{{
		Content: &gemini.Content{Role: gemini.RoleModel, Parts: []gemini.Part{{Text: f.reply}}},
	}}}, nil
}

func TestDetectValidTag(t *testing.T) {
	llm := &fakeLLM{reply: "pl-PL"}
	d := New(llm, "detect-model")

	tag, ok := d.Detect(context.Background(), "Cześć, szukam informacji o hotelu")
	assert.True(t, ok)
	assert.Equal(t, "pl-PL", tag)
	assert.Equal(t, 1, llm.calls)
}

func TestDetectTrimsWhitespace(t *testing.T) {
	d := New(&fakeLLM{reply: "  de-DE\n"}, "m")
	tag, ok := d.Detect(context.Background(), "Guten Tag")
	assert.True(t, ok)
	assert.Equal(t, "de-DE", tag)
}

func TestDetectBareLanguageTag(t *testing.T) {
	d := New(&fakeLLM{reply: "fr"}, "m")
	tag, ok := d.Detect(context.Background(), "Bonjour")
	assert.True(t, ok)
	assert.Equal(t, "fr", tag)
}

func TestDetectGarbageFallsBack(t *testing.T) {
	d := New(&fakeLLM{reply: "The language appears to be Polish."}, "m")
	tag, ok := d.Detect(context.Background(), "Cześć")
	assert.False(t, ok)
	assert.Equal(t, DefaultLanguage, tag)
}

func TestDetectErrorFallsBack(t *testing.T) {
	d := New(&fakeLLM{err: errors.New("model down")}, "m")
	tag, ok := d.Detect(context.Background(), "hello")
	assert.False(t, ok)
	assert.Equal(t, DefaultLanguage, tag)
}

func TestDetectEmptyInputSkipsModel(t *testing.T) {
	llm := &fakeLLM{reply: "en-US"}
	d := New(llm, "m")

	tag, ok := d.Detect(context.Background(), "   ")
	assert.False(t, ok)
	assert.Equal(t, DefaultLanguage, tag)
	assert.Equal(t, 0, llm.calls)
}
