// Package orchestrator drives the function-calling dialogue for one
// turn: call the model, dispatch the tools it requests, feed the
// results back, and repeat until the model emits plain text or a bound
// is hit. Tool failures never escape this loop; they are returned to
// the model as structured results so it can recover or apologise.
package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/desu777/GrandHotelAgent/pkg/gemini"
	"github.com/desu777/GrandHotelAgent/pkg/hotel"
	"github.com/desu777/GrandHotelAgent/pkg/session"
	"github.com/desu777/GrandHotelAgent/pkg/tools"
)

// Trace statuses for one tool dispatch.
const (
	StatusOK      = "OK"
	StatusError   = "ERROR"
	StatusTimeout = "TIMEOUT"
)

// ToolTrace is the observability record for one backend call. It never
// carries argument values or backend payloads.
type ToolTrace struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	DurationMs int64  `json:"durationMs"`
}

// LLM is the model operation the orchestrator drives.
type LLM interface {
	GenerateContent(ctx context.Context, model string, req *gemini.Request) (*gemini.Response, error)
}

// Backend executes one tool dispatch against the hotel REST API.
type Backend interface {
	Do(ctx context.Context, method, path string, body map[string]any, bearer string) (json.RawMessage, error)
}

// Input is everything one run needs. History is immutable; the
// in-turn tool exchange never leaks back into it.
type Input struct {
	System   string
	Language string
	History  []session.Message
	UserText string
	Audio    *gemini.Blob
	Bearer   string
}

// Result of a run. Aborted is set when the round bound or the deadline
// was hit and Reply holds the constant apology.
type Result struct {
	Reply   string
	Trace   []ToolTrace
	Aborted bool
}

type Orchestrator struct {
	llm       LLM
	model     string
	registry  *tools.Registry
	backend   Backend
	maxRounds int
	clock     func() time.Time
}

func New(llm LLM, model string, registry *tools.Registry, backend Backend, maxRounds int) *Orchestrator {
	if maxRounds <= 0 {
		maxRounds = 6
	}
	return &Orchestrator{
		llm:       llm,
		model:     model,
		registry:  registry,
		backend:   backend,
		maxRounds: maxRounds,
		clock:     time.Now,
	}
}

// Run executes the turn state machine. The caller bounds wall-clock
// time through ctx; hitting that deadline mid-run aborts with the
// apology rather than an error.
func (o *Orchestrator) Run(ctx context.Context, in Input) (*Result, error) {
	contents := o.buildContents(in)
	req := &gemini.Request{
		Contents:          contents,
		SystemInstruction: &gemini.Content{Parts: []gemini.Part{{Text: in.System}}},
		Tools:             []gemini.Tool{{FunctionDeclarations: o.registry.FunctionDeclarations()}},
		ToolConfig: &gemini.ToolConfig{
			FunctionCallingConfig: &gemini.FunctionCallingConfig{Mode: "AUTO"},
		},
	}

	var trace []ToolTrace

	for round := 1; round <= o.maxRounds; round++ {
		resp, err := o.llm.GenerateContent(ctx, o.model, req)
		if err != nil {
			switch {
			case errors.Is(err, gemini.ErrBlocked):
				return &Result{Reply: BlockedReply(in.Language), Trace: trace}, nil
			case errors.Is(err, context.DeadlineExceeded):
				log.Warn().Int("round", round).Msg("turn deadline hit during model call")
				return &Result{Reply: AbortedReply(in.Language), Trace: trace, Aborted: true}, nil
			default:
				return nil, errors.Wrap(err, "model call failed")
			}
		}

		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			// EMIT: a plain-text answer ends the turn.
			return &Result{Reply: resp.Text(), Trace: trace}, nil
		}

		// A tool call takes precedence over any text in the same
		// message; the text is discarded to keep the machine
		// deterministic.
		req.Contents = append(req.Contents, *resp.ModelContent())

		resultParts, newTrace := o.dispatch(ctx, calls, in.Bearer)
		trace = append(trace, newTrace...)
		req.Contents = append(req.Contents, gemini.Content{Role: gemini.RoleUser, Parts: resultParts})
	}

	log.Warn().Int("max_rounds", o.maxRounds).Msg("function-calling round bound exceeded")
	return &Result{Reply: AbortedReply(in.Language), Trace: trace, Aborted: true}, nil
}

// dispatch executes the model's tool calls sequentially in the given
// order. A NETWORK failure aborts the remaining calls; every other
// failure only affects its own result.
func (o *Orchestrator) dispatch(ctx context.Context, calls []gemini.FunctionCall, bearer string) ([]gemini.Part, []ToolTrace) {
	parts := make([]gemini.Part, 0, len(calls))
	var trace []ToolTrace
	networkDown := false

	for _, call := range calls {
		if networkDown {
			parts = append(parts, functionResult(call.Name, map[string]any{
				"error":  "SKIPPED",
				"detail": "skipped after a network failure on a previous tool call",
			}))
			continue
		}

		decl := o.registry.Get(call.Name)
		if decl == nil {
			log.Warn().Str("tool", call.Name).Msg("model requested unknown tool")
			parts = append(parts, functionResult(call.Name, map[string]any{
				"error":  "UNKNOWN_TOOL",
				"detail": "no such tool: " + call.Name,
			}))
			continue
		}

		args := call.Args
		if args == nil {
			args = map[string]any{}
		}
		if argErr := decl.Validate(args); argErr != nil {
			log.Debug().Str("tool", call.Name).Strs("violations", argErr.Violations).Msg("tool arguments rejected")
			parts = append(parts, functionResult(call.Name, map[string]any{
				"error":  "INVALID_ARGS",
				"detail": argErr.Violations,
			}))
			continue
		}

		method, path, body := decl.BuildRequest(args)

		// Duration covers the backend call only, not model time.
		start := o.clock()
		raw, err := o.backend.Do(ctx, method, path, body, bearer)
		durationMs := o.clock().Sub(start).Milliseconds()

		if err != nil {
			status, result := classifyCallError(err)
			trace = append(trace, ToolTrace{Name: call.Name, Status: status, DurationMs: durationMs})
			parts = append(parts, functionResult(call.Name, result))
			if ce, ok := hotel.AsCallError(err); ok && ce.Kind == hotel.ErrNetwork {
				networkDown = true
			}
			log.Warn().Err(err).Str("tool", call.Name).Msg("tool dispatch failed")
			continue
		}

		trace = append(trace, ToolTrace{Name: call.Name, Status: StatusOK, DurationMs: durationMs})

		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			decoded = string(raw)
		}
		parts = append(parts, functionResult(call.Name, map[string]any{"result": decoded}))
	}

	return parts, trace
}

func (o *Orchestrator) buildContents(in Input) []gemini.Content {
	contents := make([]gemini.Content, 0, len(in.History)+1)
	for _, msg := range in.History {
		role := gemini.RoleUser
		switch msg.Role {
		case session.RoleAssistant:
			role = gemini.RoleModel
		case session.RoleUser:
		default:
			continue
		}
		contents = append(contents, gemini.Content{Role: role, Parts: []gemini.Part{{Text: msg.Content}}})
	}

	var userParts []gemini.Part
	if in.Audio != nil {
		userParts = append(userParts, gemini.Part{InlineData: in.Audio})
	}
	if in.UserText != "" {
		userParts = append(userParts, gemini.Part{Text: in.UserText})
	}
	contents = append(contents, gemini.Content{Role: gemini.RoleUser, Parts: userParts})
	return contents
}

func functionResult(name string, response map[string]any) gemini.Part {
	return gemini.Part{FunctionResponse: &gemini.FunctionResponse{Name: name, Response: response}}
}

func classifyCallError(err error) (status string, result map[string]any) {
	ce, ok := hotel.AsCallError(err)
	if !ok {
		return StatusError, map[string]any{"error": "INTERNAL", "detail": err.Error()}
	}
	switch ce.Kind {
	case hotel.ErrTimeout:
		return StatusTimeout, map[string]any{"error": "TIMEOUT", "detail": "the backend did not answer in time"}
	case hotel.ErrBackend4xx:
		return StatusError, map[string]any{
			"error":  string(ce.Kind),
			"status": ce.StatusCode,
			"detail": ce.Body,
		}
	case hotel.ErrBackend5xx:
		return StatusError, map[string]any{
			"error":  string(ce.Kind),
			"status": ce.StatusCode,
			"detail": "the backend failed to process the request",
		}
	default:
		return StatusError, map[string]any{"error": "NETWORK", "detail": "could not reach the backend"}
	}
}
