package analytics

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/eleven-am/formpulse/internal/shared"
	"github.com/labstack/echo/v4"
)

// analyticsResponse flattens the aggregate alongside the form id.
type analyticsResponse struct {
	FormID string `json:"formId"`
	*FormAggregate
}

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/:id/analytics", h.Get)
}

func (h *Handler) Get(c echo.Context) error {
	formID := c.Param("id")

	opts, err := parseOptions(c)
	if err != nil {
		return shared.BadRequest("invalid_query", err.Error())
	}

	ctx := c.Request().Context()
	var agg *FormAggregate
	if opts.IsZero() {
		agg, err = h.service.GetAggregate(ctx, formID)
	} else {
		agg, err = h.service.ComputeAggregate(ctx, formID, opts)
	}
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("form_not_found", "form not found")
	}
	if err != nil {
		h.logger.Error("compute analytics failed", "error", err, "form_id", formID)
		return shared.InternalError("analytics_failed", "failed to compute analytics")
	}

	return c.JSON(http.StatusOK, analyticsResponse{FormID: formID, FormAggregate: agg})
}

func parseOptions(c echo.Context) (RecomputeOptions, error) {
	var opts RecomputeOptions

	if raw := c.QueryParam("fields"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				opts.FieldIDs = append(opts.FieldIDs, id)
			}
		}
	}

	if raw := c.QueryParam("from"); raw != "" {
		t, err := parseBound(raw, false)
		if err != nil {
			return opts, err
		}
		opts.From = &t
	}
	if raw := c.QueryParam("to"); raw != "" {
		t, err := parseBound(raw, true)
		if err != nil {
			return opts, err
		}
		opts.To = &t
	}
	return opts, nil
}

// parseBound accepts RFC3339 timestamps or plain dates. A date-only upper
// bound covers the whole day, keeping the range inclusive.
func parseBound(raw string, upper bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, errors.New("dates must be RFC3339 or YYYY-MM-DD")
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
