package form

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/eleven-am/formpulse/internal/dto"
	"github.com/eleven-am/formpulse/internal/schema"
	"github.com/eleven-am/formpulse/internal/shared"
	"github.com/labstack/echo/v4"
)

// AggregateManager is the slice of the analytics service the form lifecycle
// needs: resetting or merging the stored aggregate after a schema edit, and
// removing it when the form goes away.
type AggregateManager interface {
	ResetAggregate(ctx context.Context, formID string, fields schema.FieldList) error
	MergeAggregate(ctx context.Context, formID string, fields schema.FieldList) error
	DeleteAggregate(ctx context.Context, formID string) error
}

type Handler struct {
	store      *Store
	aggregates AggregateManager
	logger     *slog.Logger
}

func NewHandler(store *Store, aggregates AggregateManager, logger *slog.Logger) *Handler {
	return &Handler{
		store:      store,
		aggregates: aggregates,
		logger:     logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/publish", h.Publish)
	g.POST("/:id/schema-check", h.SchemaCheck)
}

func formToResponse(f *Form) dto.FormResponse {
	return dto.FormResponse{
		ID:          f.ID,
		OwnerID:     f.OwnerID,
		Title:       f.Title,
		Description: f.Description,
		Fields:      f.Fields,
		Published:   f.Published,
		CreatedAt:   f.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   f.UpdatedAt.Format(time.RFC3339),
	}
}

func validateFields(fields schema.FieldList) error {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.ID == "" {
			return errors.New("every field needs an id")
		}
		if _, dup := seen[f.ID]; dup {
			return errors.New("duplicate field id: " + f.ID)
		}
		seen[f.ID] = struct{}{}
		if f.Type.IsChoice() && len(f.Options) == 0 {
			return errors.New("choice field needs options: " + f.ID)
		}
	}
	return nil
}

func (h *Handler) Create(c echo.Context) error {
	var req dto.CreateFormRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}
	if req.Title == "" {
		return shared.BadRequest("missing_title", "title is required")
	}
	if err := validateFields(req.Fields); err != nil {
		return shared.BadRequest("invalid_fields", err.Error())
	}

	f := &Form{
		OwnerID:     req.OwnerID,
		Title:       req.Title,
		Description: req.Description,
		Fields:      req.Fields,
	}
	if err := h.store.Create(c.Request().Context(), f); err != nil {
		h.logger.Error("create form failed", "error", err)
		return shared.InternalError("create_failed", "failed to create form")
	}

	return c.JSON(http.StatusCreated, formToResponse(f))
}

func (h *Handler) List(c echo.Context) error {
	ownerID := c.QueryParam("owner_id")
	if ownerID == "" {
		return shared.BadRequest("missing_owner", "owner_id is required")
	}

	forms, err := h.store.GetByOwner(c.Request().Context(), ownerID)
	if err != nil {
		h.logger.Error("list forms failed", "error", err, "owner_id", ownerID)
		return shared.InternalError("list_failed", "failed to list forms")
	}

	resp := dto.FormListResponse{Forms: make([]dto.FormResponse, len(forms))}
	for i, f := range forms {
		resp.Forms[i] = formToResponse(f)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Get(c echo.Context) error {
	f, err := h.store.GetByID(c.Request().Context(), c.Param("id"))
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("form_not_found", "form not found")
	}
	if err != nil {
		h.logger.Error("get form failed", "error", err, "form_id", c.Param("id"))
		return shared.InternalError("get_failed", "failed to load form")
	}
	return c.JSON(http.StatusOK, formToResponse(f))
}

// Update saves a schema edit. The change classifier decides what happens to
// the stored aggregate: incompatible edits zero it, compatible edits merge
// it field by field. The same classification the editor previewed via
// SchemaCheck runs here, so the warning shown before saving and the actual
// reset decision can never disagree.
func (h *Handler) Update(c echo.Context) error {
	ctx := c.Request().Context()

	f, err := h.store.GetByID(ctx, c.Param("id"))
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("form_not_found", "form not found")
	}
	if err != nil {
		return shared.InternalError("get_failed", "failed to load form")
	}

	var req dto.UpdateFormRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}
	if req.Title == "" {
		return shared.BadRequest("missing_title", "title is required")
	}
	if err := validateFields(req.Fields); err != nil {
		return shared.BadRequest("invalid_fields", err.Error())
	}

	report := schema.Classify(f.Snapshot(), schema.Snapshot{
		Title:       req.Title,
		Description: req.Description,
		Fields:      req.Fields,
	})

	f.Title = req.Title
	f.Description = req.Description
	f.Fields = req.Fields
	if err := h.store.Update(ctx, f); err != nil {
		h.logger.Error("update form failed", "error", err, "form_id", f.ID)
		return shared.InternalError("update_failed", "failed to update form")
	}

	if report.ResetsAggregates {
		err = h.aggregates.ResetAggregate(ctx, f.ID, f.Fields)
	} else if report.HasChanges {
		err = h.aggregates.MergeAggregate(ctx, f.ID, f.Fields)
	}
	if err != nil {
		h.logger.Error("aggregate reshape failed", "error", err, "form_id", f.ID)
		return shared.InternalError("aggregate_failed", "form saved but analytics update failed")
	}

	return c.JSON(http.StatusOK, dto.UpdateFormResponse{
		Form:         formToResponse(f),
		ChangeReport: report,
	})
}

func (h *Handler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	formID := c.Param("id")

	if err := h.store.Delete(ctx, formID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NotFound("form_not_found", "form not found")
		}
		h.logger.Error("delete form failed", "error", err, "form_id", formID)
		return shared.InternalError("delete_failed", "failed to delete form")
	}

	if err := h.aggregates.DeleteAggregate(ctx, formID); err != nil {
		h.logger.Error("delete aggregate failed", "error", err, "form_id", formID)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Publish(c echo.Context) error {
	var req dto.PublishFormRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}

	err := h.store.SetPublished(c.Request().Context(), c.Param("id"), req.Published)
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("form_not_found", "form not found")
	}
	if err != nil {
		h.logger.Error("publish form failed", "error", err, "form_id", c.Param("id"))
		return shared.InternalError("publish_failed", "failed to update form")
	}
	return c.NoContent(http.StatusNoContent)
}

// SchemaCheck classifies a pending edit without saving it, so the editor can
// warn before a destructive save.
func (h *Handler) SchemaCheck(c echo.Context) error {
	f, err := h.store.GetByID(c.Request().Context(), c.Param("id"))
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("form_not_found", "form not found")
	}
	if err != nil {
		return shared.InternalError("get_failed", "failed to load form")
	}

	var req dto.SchemaCheckRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}

	report := schema.Classify(f.Snapshot(), schema.Snapshot{
		Title:       req.Title,
		Description: req.Description,
		Fields:      req.Fields,
	})
	return c.JSON(http.StatusOK, report)
}
