package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	apierrors "github.com/hrygo/divinecanvas/server/internal/errors"
)

// ListSessions returns all sessions, most recently updated first.
// GET /api/sessions
func (s *APIV1Service) ListSessions(c echo.Context) error {
	sessions, err := s.Store.ListChatSessions(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sessions)
}

// GetSession returns the session's ordered message log.
// GET /api/sessions/:id
func (s *APIV1Service) GetSession(c echo.Context) error {
	id, err := sessionIDParam(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx := c.Request().Context()
	if _, err := s.Store.GetChatSession(ctx, id); err != nil {
		return writeError(c, err)
	}
	messages, err := s.Store.ListChatMessages(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, messages)
}

// DeleteSession deletes a session and its messages.
// DELETE /api/sessions/:id
func (s *APIV1Service) DeleteSession(c echo.Context) error {
	id, err := sessionIDParam(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := s.Store.DeleteChatSession(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "success"})
}

func sessionIDParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apierrors.InvalidRequest("invalid session id")
	}
	return id, nil
}

// writeError renders err as a JSON {code, message} body.
func writeError(c echo.Context, err error) error {
	apiErr := apierrors.FromError(err)
	return c.JSON(apiErr.HTTPStatus(), apiErr)
}
