package agent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desu777/GrandHotelAgent/pkg/agenterrors"
	"github.com/desu777/GrandHotelAgent/pkg/gemini"
	"github.com/desu777/GrandHotelAgent/pkg/orchestrator"
	"github.com/desu777/GrandHotelAgent/pkg/session"
)

type fakeDetector struct {
	tag   string
	ok    bool
	calls int
}

func (d *fakeDetector) Detect(_ context.Context, _ string) (string, bool) {
	d.calls++
	return d.tag, d.ok
}

type fakeRunner struct {
	reply  string
	trace  []orchestrator.ToolTrace
	err    error
	inputs []orchestrator.Input
}

func (r *fakeRunner) Run(_ context.Context, in orchestrator.Input) (*orchestrator.Result, error) {
	r.inputs = append(r.inputs, in)
	if r.err != nil {
		return nil, r.err
	}
	return &orchestrator.Result{Reply: r.reply, Trace: r.trace}, nil
}

type fakeSynth struct {
	audio []byte
	err   error
	calls int
}

func (s *fakeSynth) Synthesize(_ context.Context, _ string) ([]byte, string, error) {
	s.calls++
	if s.err != nil {
		return nil, "", s.err
	}
	return s.audio, "audio/mpeg", nil
}

type failingStore struct{}

func (failingStore) Load(context.Context, string) (*session.Session, error) {
	return nil, errors.New("redis: connection refused")
}
func (failingStore) Save(context.Context, string, *session.Session) error {
	return errors.New("redis: connection refused")
}
func (failingStore) Touch(context.Context, string) error {
	return errors.New("redis: connection refused")
}

type allowAll struct{}

func (allowAll) Admit(context.Context, string) session.Decision {
	return session.Decision{Allowed: true}
}

type denyAll struct{ retryAfter int }

func (d denyAll) Admit(context.Context, string) session.Decision {
	return session.Decision{Allowed: false, RetryAfter: d.retryAfter}
}

func newController(store session.Store, limiter session.Limiter, det *fakeDetector, runner *fakeRunner) *Controller {
	return NewController(store, limiter, det, runner, nil, 20, time.Minute)
}

func TestTurnHappyPath(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	det := &fakeDetector{tag: "pl-PL", ok: true}
	runner := &fakeRunner{reply: "Dzień dobry! W czym mogę pomóc?"}

	out, err := newController(store, allowAll{}, det, runner).Turn(context.Background(), TurnInput{
		SessionID: "s1",
		Text:      "Cześć",
		Bearer:    "jwt-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "s1", out.SessionID)
	assert.Equal(t, "Dzień dobry! W czym mogę pomóc?", out.Reply)
	assert.Equal(t, "pl-PL", out.Language)
	assert.Empty(t, out.Warnings)

	// The exchange landed in the store with the detected language.
	sess, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "pl-PL", sess.Language)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, session.RoleUser, sess.Messages[0].Role)
	assert.Equal(t, session.RoleAssistant, sess.Messages[1].Role)

	// Orchestrator got the credential and the language directive.
	require.Len(t, runner.inputs, 1)
	assert.Equal(t, "jwt-1", runner.inputs[0].Bearer)
	assert.Contains(t, runner.inputs[0].System, "LANG = pl-PL")
	assert.Contains(t, runner.inputs[0].System, "CURRENT_DATETIME_UTC")
}

func TestTurnGeneratesSessionID(t *testing.T) {
	det := &fakeDetector{tag: "en-US", ok: true}
	runner := &fakeRunner{reply: "Hello!"}

	out, err := newController(session.NewMemoryStore(time.Hour), allowAll{}, det, runner).
		Turn(context.Background(), TurnInput{Text: "hi"})
	require.NoError(t, err)
	assert.NotEmpty(t, out.SessionID)
}

func TestTurnDetectsLanguageOnce(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	det := &fakeDetector{tag: "de-DE", ok: true}
	runner := &fakeRunner{reply: "Hallo!"}
	c := newController(store, allowAll{}, det, runner)

	for i := 0; i < 3; i++ {
		_, err := c.Turn(context.Background(), TurnInput{SessionID: "s1", Text: "Hallo"})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, det.calls)
}

func TestTurnDetectionFallbackWarnsButDoesNotCache(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	det := &fakeDetector{tag: "en-US", ok: false}
	runner := &fakeRunner{reply: "ok"}
	c := newController(store, allowAll{}, det, runner)

	out, err := c.Turn(context.Background(), TurnInput{SessionID: "s1", Text: "asdf"})
	require.NoError(t, err)
	require.Len(t, out.Warnings, 1)
	assert.Equal(t, agenterrors.WarnLanguageDefault, out.Warnings[0].Code)

	// An undetected language is retried on the next turn.
	_, err = c.Turn(context.Background(), TurnInput{SessionID: "s1", Text: "more text"})
	require.NoError(t, err)
	assert.Equal(t, 2, det.calls)
}

func TestTurnRateLimited(t *testing.T) {
	det := &fakeDetector{tag: "en-US", ok: true}
	runner := &fakeRunner{reply: "never"}

	_, err := newController(session.NewMemoryStore(time.Hour), denyAll{retryAfter: 17}, det, runner).
		Turn(context.Background(), TurnInput{SessionID: "s1", Text: "hi", TraceID: "t-9"})
	require.Error(t, err)

	envelope := agenterrors.AsError(err)
	assert.Equal(t, agenterrors.CodeRateLimited, envelope.Code)
	assert.Equal(t, 429, envelope.Status)
	assert.Equal(t, "t-9", envelope.TraceID)
	assert.Equal(t, map[string]int{"retryAfter": 17}, envelope.Details)
	assert.Empty(t, runner.inputs)
}

func TestTurnStoreOutageDegrades(t *testing.T) {
	det := &fakeDetector{tag: "en-US", ok: true}
	runner := &fakeRunner{reply: "Here are our rooms."}

	out, err := newController(failingStore{}, allowAll{}, det, runner).
		Turn(context.Background(), TurnInput{SessionID: "s1", Text: "rooms?"})
	require.NoError(t, err)

	assert.Equal(t, "Here are our rooms.", out.Reply)
	require.Len(t, out.Warnings, 1)
	assert.Equal(t, agenterrors.WarnSessionStore, out.Warnings[0].Code)
	// The turn ran statelessly.
	require.Len(t, runner.inputs, 1)
	assert.Empty(t, runner.inputs[0].History)
}

func TestTurnHistoryTrimmed(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	det := &fakeDetector{tag: "en-US", ok: true}
	runner := &fakeRunner{reply: "noted"}
	c := NewController(store, allowAll{}, det, runner, nil, 6, time.Minute)

	for i := 0; i < 10; i++ {
		_, err := c.Turn(context.Background(), TurnInput{SessionID: "s1", Text: "msg"})
		require.NoError(t, err)
	}

	sess, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, sess.Messages, 6)
}

func TestTurnHistoryForwardedToRunner(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	det := &fakeDetector{tag: "en-US", ok: true}
	runner := &fakeRunner{reply: "again"}
	c := newController(store, allowAll{}, det, runner)

	_, err := c.Turn(context.Background(), TurnInput{SessionID: "s1", Text: "first"})
	require.NoError(t, err)
	_, err = c.Turn(context.Background(), TurnInput{SessionID: "s1", Text: "second"})
	require.NoError(t, err)

	require.Len(t, runner.inputs, 2)
	assert.Empty(t, runner.inputs[0].History)
	require.Len(t, runner.inputs[1].History, 2)
	assert.Equal(t, "first", runner.inputs[1].History[0].Content)
}

func TestTurnVoiceMode(t *testing.T) {
	det := &fakeDetector{tag: "en-US", ok: true}
	runner := &fakeRunner{reply: "Welcome!"}
	synth := &fakeSynth{audio: []byte("mp3")}
	c := NewController(session.NewMemoryStore(time.Hour), allowAll{}, det, runner, synth, 20, time.Minute)

	out, err := c.Turn(context.Background(), TurnInput{SessionID: "s1", Text: "hi", VoiceMode: true})
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3"), out.Audio)
	assert.Equal(t, "audio/mpeg", out.AudioMime)
	assert.Equal(t, 1, synth.calls)
}

func TestTurnVoiceModeFailureDegradesToText(t *testing.T) {
	det := &fakeDetector{tag: "en-US", ok: true}
	runner := &fakeRunner{reply: "Welcome!"}
	synth := &fakeSynth{err: errors.New("quota exhausted")}
	c := NewController(session.NewMemoryStore(time.Hour), allowAll{}, det, runner, synth, 20, time.Minute)

	out, err := c.Turn(context.Background(), TurnInput{SessionID: "s1", Text: "hi", VoiceMode: true})
	require.NoError(t, err)
	assert.Equal(t, "Welcome!", out.Reply)
	assert.Nil(t, out.Audio)
	require.Len(t, out.Warnings, 1)
	assert.Equal(t, agenterrors.WarnTTSUnavailable, out.Warnings[0].Code)
}

func TestTurnNoSynthWithoutVoiceMode(t *testing.T) {
	det := &fakeDetector{tag: "en-US", ok: true}
	runner := &fakeRunner{reply: "text only"}
	synth := &fakeSynth{audio: []byte("mp3")}
	c := NewController(session.NewMemoryStore(time.Hour), allowAll{}, det, runner, synth, 20, time.Minute)

	out, err := c.Turn(context.Background(), TurnInput{SessionID: "s1", Text: "hi"})
	require.NoError(t, err)
	assert.Nil(t, out.Audio)
	assert.Equal(t, 0, synth.calls)
}

func TestTurnAudioOnlyInput(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	det := &fakeDetector{tag: "en-US", ok: true}
	runner := &fakeRunner{reply: "I heard you."}
	c := newController(store, allowAll{}, det, runner)

	out, err := c.Turn(context.Background(), TurnInput{
		SessionID: "s1",
		Audio:     &gemini.Blob{MimeType: "audio/webm", Data: "aGk="},
	})
	require.NoError(t, err)
	assert.Equal(t, "I heard you.", out.Reply)

	require.Len(t, runner.inputs, 1)
	require.NotNil(t, runner.inputs[0].Audio)

	sess, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "[voice message]", sess.Messages[0].Content)
}

func TestTurnRunnerErrorPropagates(t *testing.T) {
	det := &fakeDetector{tag: "en-US", ok: true}
	runner := &fakeRunner{err: errors.New("model call failed")}

	_, err := newController(session.NewMemoryStore(time.Hour), allowAll{}, det, runner).
		Turn(context.Background(), TurnInput{SessionID: "s1", Text: "hi"})
	require.Error(t, err)
}

func TestComposePromptWithoutLanguage(t *testing.T) {
	c := newController(session.NewMemoryStore(time.Hour), allowAll{}, &fakeDetector{}, &fakeRunner{})
	prompt := c.composePrompt("")
	assert.Contains(t, prompt, "CURRENT_DATETIME_UTC")
	assert.False(t, strings.Contains(prompt, "[Runtime Instruction]"))
}
