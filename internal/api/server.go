package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/chatter/internal/inference"
	"github.com/samcharles93/chatter/internal/webui"
)

// Controller is the part of the prompt controller the server drives.
type Controller interface {
	Submit(inference.PromptSubmitted) (*inference.Ticket, error)
	Current() (id, text string, ok bool)
	Status() inference.Status
	OnPublish(func(inference.Outcome))
}

type Server struct {
	store *RunStore
	ctrl  Controller
	now   func() time.Time
}

// NewServer wires the store to the controller's publish hook.
func NewServer(store *RunStore, ctrl Controller) *Server {
	if store == nil {
		store = NewRunStore()
	}
	ctrl.OnPublish(func(out inference.Outcome) {
		store.Complete(out)
	})
	return &Server{store: store, ctrl: ctrl, now: time.Now}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/", s.handleIndex)
	e.POST("/v1/prompts", s.handleSubmitPrompt)
	e.GET("/v1/result", s.handleCurrentResult)
	e.GET("/v1/runs/:id", s.handleGetRun)
	e.DELETE("/v1/runs/:id", s.handleDeleteRun)
	e.GET("/v1/status", s.handleStatus)
}

func (s *Server) handleIndex(c *echo.Context) error {
	return c.HTML(http.StatusOK, webui.IndexHTML())
}

func (s *Server) handleSubmitPrompt(c *echo.Context) error {
	req, err := decodeJSON[SubmitPromptRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if strings.TrimSpace(req.Text) == "" {
		return writeError(c, http.StatusBadRequest, "invalid_request_error", "text is required", "text", "")
	}

	ticket, err := s.ctrl.Submit(inference.PromptSubmitted{Text: req.Text})
	switch {
	case errors.Is(err, inference.ErrQueueFull):
		return writeError(c, http.StatusServiceUnavailable, "server_error", err.Error(), "", "queue_full")
	case errors.Is(err, inference.ErrClosed):
		return writeError(c, http.StatusServiceUnavailable, "server_error", err.Error(), "", "closed")
	case err != nil:
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
	}
	rec := s.store.Create(ticket.ID, req.Text, s.now())

	if !req.Wait {
		return c.JSON(http.StatusAccepted, SubmitPromptResponse{
			ID:     ticket.ID,
			Object: "prompt",
			Status: rec.Status,
		})
	}

	out, err := ticket.Wait(c.Request().Context())
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return writeError(c, http.StatusRequestTimeout, "request_timeout", "request cancelled before the run finished", "", "")
		}
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
	}
	// The publish hook has already run by the time Wait returns.
	rec, ok := s.store.Get(out.ID)
	if !ok {
		rec = s.store.Complete(out)
	}
	return c.JSON(http.StatusOK, SubmitPromptResponse{
		ID:     ticket.ID,
		Object: "prompt",
		Status: rec.Status,
		Run:    &rec,
	})
}

func (s *Server) handleCurrentResult(c *echo.Context) error {
	id, text, ok := s.ctrl.Current()
	if !ok {
		return writeNotFound(c, "no result has been published yet")
	}
	return c.JSON(http.StatusOK, CurrentResultResponse{
		Object: "result",
		RunID:  id,
		Text:   text,
	})
}

func (s *Server) handleGetRun(c *echo.Context) error {
	id := c.Param("id")
	rec, ok := s.store.Get(id)
	if !ok {
		return writeNotFound(c, "run not found")
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) handleDeleteRun(c *echo.Context) error {
	id := c.Param("id")
	if !s.store.Delete(id) {
		return writeNotFound(c, "run not found")
	}
	return c.JSON(http.StatusOK, DeleteRunResponse{
		ID:      id,
		Object:  "run.deleted",
		Deleted: true,
	})
}

func (s *Server) handleStatus(c *echo.Context) error {
	st := s.ctrl.Status()
	return c.JSON(http.StatusOK, StatusResponse{
		Object:    "status",
		State:     st.State.String(),
		Queued:    st.Queued,
		HasResult: st.HasResult,
		LastError: st.LastError,
	})
}

func decodeJSON[T any](r io.Reader) (*T, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var out T
	if err := dec.Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, newInvalidRequest("request body is required")
		}
		return nil, newInvalidRequest("invalid JSON: " + err.Error())
	}
	return &out, nil
}
