// Package httpserver is the gin HTTP surface of the gateway: the
// /chat contract, the health probe, request validation and the
// rendering of the unified error envelope.
package httpserver

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/desu777/GrandHotelAgent/pkg/agent"
	"github.com/desu777/GrandHotelAgent/pkg/agenterrors"
	"github.com/desu777/GrandHotelAgent/pkg/gemini"
	"github.com/desu777/GrandHotelAgent/pkg/orchestrator"
)

// maxBodyBytes caps the request body; audio uploads dominate the size.
const maxBodyBytes = 20 << 20

const maxTraceIDLen = 64

// TurnHandler is the single operation the HTTP layer delegates to.
type TurnHandler interface {
	Turn(ctx context.Context, in agent.TurnInput) (*agent.TurnOutput, error)
}

type Server struct {
	turns   TurnHandler
	version string
	engine  *gin.Engine
}

func New(turns TurnHandler, version string, production bool) *Server {
	if production {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{turns: turns, version: version}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.GET("/health", s.handleHealth)
	router.POST("/chat", s.handleChat)
	s.engine = router
	return s
}

// Handler exposes the router for an http.Server and for tests.
func (s *Server) Handler() http.Handler { return s.engine }

type chatRequest struct {
	SessionID string        `json:"sessionId"`
	Message   string        `json:"message"`
	Audio     *audioPayload `json:"audio"`
	VoiceMode bool          `json:"voiceMode"`
	Client    *clientMeta   `json:"client"`
}

type audioPayload struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type clientMeta struct {
	TraceID string `json:"traceId"`
}

type chatResponse struct {
	SessionID string                   `json:"sessionId"`
	Language  string                   `json:"language"`
	Reply     string                   `json:"reply"`
	Audio     *audioPayload            `json:"audio,omitempty"`
	ToolTrace []orchestrator.ToolTrace `json:"toolTrace,omitempty"`
	Warnings  []agenterrors.Warning    `json:"warnings,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.version})
}

func (s *Server) handleChat(c *gin.Context) {
	bearer, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		renderError(c, agenterrors.Unauthorized("missing or malformed bearer token"))
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			renderError(c, agenterrors.PayloadTooLarge("request body exceeds %d bytes", maxBodyBytes))
			return
		}
		renderError(c, agenterrors.BadRequest("invalid JSON body").WithCause(err))
		return
	}

	traceID := ""
	if req.Client != nil {
		traceID = req.Client.TraceID
	}
	if len(traceID) > maxTraceIDLen {
		renderError(c, agenterrors.BadRequest("traceId must be at most %d characters", maxTraceIDLen))
		return
	}
	c.Set("trace_id", traceID)
	c.Set("session_id", req.SessionID)

	audio, err := decodeAudio(req.Audio)
	if err != nil {
		renderError(c, agenterrors.AsError(err).WithTraceID(traceID))
		return
	}
	if strings.TrimSpace(req.Message) == "" && audio == nil {
		renderError(c, agenterrors.BadRequest("either message or audio is required").WithTraceID(traceID))
		return
	}

	wantsAudio := acceptsAudio(c.GetHeader("Accept"))
	if wantsAudio && !req.VoiceMode {
		renderError(c, agenterrors.BadRequest("Accept: audio/mpeg requires voiceMode").WithTraceID(traceID))
		return
	}

	out, err := s.turns.Turn(c.Request.Context(), agent.TurnInput{
		SessionID: req.SessionID,
		Text:      req.Message,
		Audio:     audio,
		Bearer:    bearer,
		TraceID:   traceID,
		VoiceMode: req.VoiceMode,
	})
	if err != nil {
		renderError(c, agenterrors.AsError(err).WithTraceID(traceID))
		return
	}
	c.Set("session_id", out.SessionID)

	if wantsAudio && len(out.Audio) > 0 {
		c.Header("X-Agent-Text", url.QueryEscape(out.Reply))
		c.Data(http.StatusOK, out.AudioMime, out.Audio)
		return
	}

	resp := chatResponse{
		SessionID: out.SessionID,
		Language:  out.Language,
		Reply:     out.Reply,
		ToolTrace: out.Trace,
		Warnings:  out.Warnings,
	}
	if len(out.Audio) > 0 {
		resp.Audio = &audioPayload{
			MimeType: out.AudioMime,
			Data:     base64.StdEncoding.EncodeToString(out.Audio),
		}
	}
	c.JSON(http.StatusOK, resp)
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func decodeAudio(payload *audioPayload) (*gemini.Blob, error) {
	if payload == nil {
		return nil, nil
	}
	if payload.MimeType == "" || payload.Data == "" {
		return nil, agenterrors.BadRequest("audio requires mimeType and data")
	}
	if _, err := base64.StdEncoding.DecodeString(payload.Data); err != nil {
		return nil, agenterrors.BadRequest("audio data is not valid base64").WithCause(err)
	}
	return &gemini.Blob{MimeType: payload.MimeType, Data: payload.Data}, nil
}

func acceptsAudio(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		media := strings.TrimSpace(part)
		if i := strings.IndexByte(media, ';'); i >= 0 {
			media = media[:i]
		}
		if media == "audio/mpeg" {
			return true
		}
	}
	return false
}

func renderError(c *gin.Context, e *agenterrors.Error) {
	if e.Status >= 500 {
		log.Error().Err(e).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	c.AbortWithStatusJSON(e.Status, e)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := log.Info()
		if c.Writer.Status() >= 400 {
			event = log.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("session_id", c.GetString("session_id")).
			Str("trace_id", c.GetString("trace_id")).
			Msg("request")
	}
}
