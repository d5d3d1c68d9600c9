// Package agent hosts the turn controller: the sequential pipeline a
// validated chat request flows through. It owns the cross-cutting turn
// concerns (rate limiting, session state, language detection, history
// persistence, optional speech synthesis) and delegates the actual
// dialogue to the orchestrator.
package agent

import (
	"context"
	_ "embed"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/desu777/GrandHotelAgent/pkg/agenterrors"
	"github.com/desu777/GrandHotelAgent/pkg/gemini"
	"github.com/desu777/GrandHotelAgent/pkg/orchestrator"
	"github.com/desu777/GrandHotelAgent/pkg/session"
	"github.com/desu777/GrandHotelAgent/pkg/tts"
)

//go:embed prompt.txt
var systemPrompt string

// LanguageDetector resolves the dominant language of a first utterance.
type LanguageDetector interface {
	Detect(ctx context.Context, text string) (tag string, ok bool)
}

// Runner is the orchestrator operation the controller invokes.
type Runner interface {
	Run(ctx context.Context, in orchestrator.Input) (*orchestrator.Result, error)
}

// TurnInput is one validated chat request. Text and Audio may both be
// set; at least one is guaranteed present by the HTTP layer.
type TurnInput struct {
	SessionID string
	Text      string
	Audio     *gemini.Blob
	Bearer    string
	TraceID   string
	VoiceMode bool
}

// TurnOutput is everything a successful turn produces.
type TurnOutput struct {
	SessionID string
	Reply     string
	Language  string
	Trace     []orchestrator.ToolTrace
	Warnings  []agenterrors.Warning
	Audio     []byte
	AudioMime string
}

type Controller struct {
	store        session.Store
	limiter      session.Limiter
	detector     LanguageDetector
	runner       Runner
	synth        tts.Synthesizer
	maxMessages  int
	turnDeadline time.Duration
	clock        func() time.Time
}

func NewController(
	store session.Store,
	limiter session.Limiter,
	detector LanguageDetector,
	runner Runner,
	synth tts.Synthesizer,
	maxMessages int,
	turnDeadline time.Duration,
) *Controller {
	if maxMessages <= 0 {
		maxMessages = 20
	}
	if turnDeadline <= 0 {
		turnDeadline = 60 * time.Second
	}
	return &Controller{
		store:        store,
		limiter:      limiter,
		detector:     detector,
		runner:       runner,
		synth:        synth,
		maxMessages:  maxMessages,
		turnDeadline: turnDeadline,
		clock:        time.Now,
	}
}

// Turn runs one complete chat turn. Session-store and TTS failures
// degrade the answer with warnings instead of failing it; only rate
// limiting and orchestrator faults produce errors.
func (c *Controller) Turn(ctx context.Context, in TurnInput) (*TurnOutput, error) {
	sessionID := in.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if decision := c.limiter.Admit(ctx, sessionID); !decision.Allowed {
		return nil, agenterrors.RateLimited(decision.RetryAfter).WithTraceID(in.TraceID)
	}

	var warnings []agenterrors.Warning
	storeDown := false

	sess, err := c.store.Load(ctx, sessionID)
	if err != nil {
		// The turn proceeds statelessly rather than failing.
		log.Warn().Err(err).Str("session_id", sessionID).Msg("session load failed, continuing without history")
		storeDown = true
		warnings = append(warnings, agenterrors.Warning{
			Code:    agenterrors.WarnSessionStore,
			Message: "conversation history is temporarily unavailable",
		})
	}
	if sess == nil {
		sess = session.New(c.clock())
	}

	language := sess.Language
	if language == "" {
		tag, ok := c.detector.Detect(ctx, in.Text)
		language = tag
		if ok {
			sess.Language = tag
		} else if in.Text != "" {
			warnings = append(warnings, agenterrors.Warning{
				Code:    agenterrors.WarnLanguageDefault,
				Message: "could not detect the message language, defaulting to " + tag,
			})
		}
	}

	turnCtx, cancel := context.WithTimeout(ctx, c.turnDeadline)
	defer cancel()

	result, err := c.runner.Run(turnCtx, orchestrator.Input{
		System:   c.composePrompt(language),
		Language: language,
		History:  sess.Messages,
		UserText: in.Text,
		Audio:    in.Audio,
		Bearer:   in.Bearer,
	})
	if err != nil {
		return nil, errors.Wrap(err, "turn orchestration failed")
	}

	now := c.clock().UTC()
	userContent := in.Text
	if userContent == "" && in.Audio != nil {
		userContent = "[voice message]"
	}
	sess.Append(
		session.Message{Role: session.RoleUser, Content: userContent, TS: now},
		session.Message{Role: session.RoleAssistant, Content: result.Reply, TS: now},
	)
	sess.Trim(c.maxMessages)

	if !storeDown {
		if err := c.store.Save(ctx, sessionID, sess); err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("session save failed")
			warnings = append(warnings, agenterrors.Warning{
				Code:    agenterrors.WarnSessionStore,
				Message: "this exchange could not be saved to the conversation history",
			})
		}
	}

	out := &TurnOutput{
		SessionID: sessionID,
		Reply:     result.Reply,
		Language:  language,
		Trace:     result.Trace,
		Warnings:  warnings,
	}

	if in.VoiceMode && c.synth != nil {
		audio, mime, err := c.synth.Synthesize(ctx, result.Reply)
		if err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("speech synthesis failed, answering with text only")
			out.Warnings = append(out.Warnings, agenterrors.Warning{
				Code:    agenterrors.WarnTTSUnavailable,
				Message: "voice synthesis is temporarily unavailable",
			})
		} else {
			out.Audio = audio
			out.AudioMime = mime
		}
	}

	return out, nil
}

// composePrompt appends the runtime context to the static persona: the
// current UTC datetime so the model resolves relative dates, and a
// language directive once the session language is known.
func (c *Controller) composePrompt(language string) string {
	now := c.clock().UTC()
	prompt := systemPrompt +
		"\n\n[Runtime Context]\nCURRENT_DATETIME_UTC = " + now.Format(time.RFC3339) +
		"\nToday's date (UTC): " + now.Format("2006-01-02") + "\n"
	if language != "" {
		prompt += "\n[Runtime Instruction]\nLANG = " + language +
			"\nAnswer exclusively in LANG. Do not mix languages.\n"
	}
	return prompt
}
