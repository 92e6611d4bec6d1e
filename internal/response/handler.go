package response

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/eleven-am/formpulse/internal/analytics"
	"github.com/eleven-am/formpulse/internal/dto"
	"github.com/eleven-am/formpulse/internal/form"
	"github.com/eleven-am/formpulse/internal/shared"
	"github.com/labstack/echo/v4"
)

// Enqueuer is the fire-and-forget entry point into the analytics pipeline.
type Enqueuer interface {
	Enqueue(event analytics.ResponseEvent)
}

type Handler struct {
	store     *Store
	forms     *form.Store
	analytics Enqueuer
	logger    *slog.Logger
}

func NewHandler(store *Store, forms *form.Store, analytics Enqueuer, logger *slog.Logger) *Handler {
	return &Handler{
		store:     store,
		forms:     forms,
		analytics: analytics,
		logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/:id/responses", h.Submit)
	g.GET("/:id/responses", h.List)
}

// Submit accepts a public submission. The response is durably stored before
// the handler returns; the aggregate update and broadcast happen on the
// analytics worker afterwards, and a failure or drop there never reaches the
// submitter.
func (h *Handler) Submit(c echo.Context) error {
	ctx := c.Request().Context()
	formID := c.Param("id")

	f, err := h.forms.GetByID(ctx, formID)
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("form_not_found", "form not found")
	}
	if err != nil {
		h.logger.Error("load form failed", "error", err, "form_id", formID)
		return shared.InternalError("submit_failed", "failed to load form")
	}
	if !f.Published {
		return shared.Forbidden("form_not_published", "form is not accepting responses")
	}

	var req dto.SubmitResponseRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}
	if err := validateAnswers(f, req.Answers); err != nil {
		return shared.BadRequest("invalid_answers", err.Error())
	}

	r := &Response{
		FormID:      formID,
		Answers:     make(AnswerList, len(req.Answers)),
		SubmittedAt: time.Now().UTC(),
	}
	for i, a := range req.Answers {
		r.Answers[i] = Answer{FieldID: a.FieldID, Value: a.Value}
	}

	if err := h.store.Create(ctx, r); err != nil {
		h.logger.Error("store response failed", "error", err, "form_id", formID)
		return shared.InternalError("submit_failed", "failed to store response")
	}

	h.analytics.Enqueue(r.Event())

	return c.JSON(http.StatusCreated, dto.SubmitResponseResponse{
		ID:          r.ID,
		FormID:      formID,
		SubmittedAt: r.SubmittedAt.Format(time.RFC3339),
	})
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	formID := c.Param("id")

	ok, err := h.forms.Exists(ctx, formID)
	if err != nil {
		h.logger.Error("check form failed", "error", err, "form_id", formID)
		return shared.InternalError("list_failed", "failed to load form")
	}
	if !ok {
		return shared.NotFound("form_not_found", "form not found")
	}

	responses, err := h.store.FindByForm(ctx, formID, nil, nil)
	if err != nil {
		h.logger.Error("list responses failed", "error", err, "form_id", formID)
		return shared.InternalError("list_failed", "failed to list responses")
	}

	resp := dto.ResponseListResponse{
		FormID:    formID,
		Total:     len(responses),
		Responses: make([]dto.ResponseDetail, len(responses)),
	}
	for i, r := range responses {
		answers := make([]dto.AnswerPayload, len(r.Answers))
		for j, a := range r.Answers {
			answers[j] = dto.AnswerPayload{FieldID: a.FieldID, Value: a.Value}
		}
		resp.Responses[i] = dto.ResponseDetail{
			ID:          r.ID,
			Answers:     answers,
			SubmittedAt: r.SubmittedAt.Format(time.RFC3339),
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// validateAnswers enforces required fields. Answers for unknown fields are
// accepted and stored; the aggregator skips them.
func validateAnswers(f *form.Form, answers []dto.AnswerPayload) error {
	answered := make(map[string]bool, len(answers))
	for _, a := range answers {
		if a.Value != nil {
			answered[a.FieldID] = true
		}
	}
	for _, field := range f.Fields {
		if field.Required && !answered[field.ID] {
			return errors.New("missing required field: " + field.ID)
		}
	}
	return nil
}
