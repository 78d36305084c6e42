package v1

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	apierrors "github.com/hrygo/divinecanvas/server/internal/errors"
	aichat "github.com/hrygo/divinecanvas/server/router/api/v1/ai"
)

// CreateChatCompletion runs one chat turn and streams it as SSE.
// POST /api/chat/completions
func (s *APIV1Service) CreateChatCompletion(c echo.Context) error {
	if s.chatHandler == nil {
		return writeError(c, apierrors.ServiceUnavailable("AI is not configured"))
	}
	req := &aichat.ChatRequest{}
	if err := c.Bind(req); err != nil {
		return writeError(c, apierrors.InvalidRequest("invalid request body"))
	}
	req.RequestID = c.Response().Header().Get(echo.HeaderXRequestID)

	sink := aichat.NewSSEWriter(c.Response())
	if err := s.chatHandler.Handle(c.Request().Context(), req, sink); err != nil {
		if c.Response().Committed {
			// The stream is gone; nothing more can be written.
			slog.Debug("chat stream ended early", slog.String("error", err.Error()))
			return nil
		}
		return writeError(c, err)
	}
	return nil
}

// DigestDocument summarizes a long document chunk by chunk over SSE.
// POST /api/documents/digest
func (s *APIV1Service) DigestDocument(c echo.Context) error {
	if s.digestStreamer == nil {
		return writeError(c, apierrors.ServiceUnavailable("AI is not configured"))
	}
	req := &aichat.DigestRequest{}
	if err := c.Bind(req); err != nil {
		return writeError(c, apierrors.InvalidRequest("invalid request body"))
	}
	if err := s.digestStreamer.Validate(req); err != nil {
		return writeError(c, err)
	}

	if err := s.digestStreamer.Stream(c.Request().Context(), req, aichat.NewSSEWriter(c.Response())); err != nil {
		slog.Debug("digest stream ended early", slog.String("error", err.Error()))
	}
	return nil
}
