package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/sgdevreal/stimmo/internal/model"
	"github.com/sgdevreal/stimmo/internal/pipeline"
	"github.com/sgdevreal/stimmo/internal/query"
	"github.com/sgdevreal/stimmo/internal/source"

	"github.com/gofiber/fiber/v2"
)

// Handler serves the dashboard endpoints.
type Handler struct {
	engine Engine
}

// NewHandler returns a handler backed by engine.
func NewHandler(engine Engine) *Handler {
	return &Handler{engine: engine}
}

// GetDomains returns the selectable values of both dashboards and the
// trend dashboard's default selection.
func (h *Handler) GetDomains(c *fiber.Ctx) error {
	ctx := c.Context()
	q, err := queryValues(c)
	if err != nil {
		return writeError(c, err)
	}

	trend, err := h.engine.TrendDomains(ctx)
	if err != nil {
		return writeError(c, err)
	}
	defaults, err := h.engine.DefaultTrendSelection(ctx)
	if err != nil {
		return writeError(c, err)
	}
	explore, err := h.engine.ExploreDomains(ctx, ignoreParam(q))
	if err != nil {
		return writeError(c, err)
	}

	cfg := h.engine.Config()
	ignored := append([]string{}, cfg.Explore.Ignore...)
	ignored = append(ignored, ignoreParam(q)...)
	return c.Status(http.StatusOK).JSON(DomainsResponse{
		Trend:            NewDomainResponses(trend),
		TrendDefaults:    defaults,
		Explore:          NewDomainResponses(explore),
		ExploreIgnored:   ignored,
		CutoffTrend:      dateOrEmpty(cfg.Trend.Cutoff),
		CutoffExplore:    dateOrEmpty(cfg.Explore.Cutoff),
		ListingURLPrefix: cfg.Listings.URLPrefix,
	})
}

// GetTrend returns the grouped trend for the requested selection.
func (h *Handler) GetTrend(c *fiber.Ctx) error {
	ctx := c.Context()
	sel, err := h.trendSelection(ctx, c)
	if err != nil {
		return writeError(c, err)
	}

	view, err := h.engine.Trend(ctx, sel)
	if err != nil {
		return writeError(c, err)
	}
	if notModified(c, view.Snapshot.ID, sel, "trend") {
		return c.SendStatus(http.StatusNotModified)
	}
	return c.Status(http.StatusOK).JSON(NewTrendResponse(view))
}

// GetExplore returns the per-day explore dashboard.
func (h *Handler) GetExplore(c *fiber.Ctx) error {
	ctx := c.Context()
	q, err := queryValues(c)
	if err != nil {
		return writeError(c, err)
	}
	ignore := ignoreParam(q)

	domains, err := h.engine.ExploreDomains(ctx, ignore)
	if err != nil {
		return writeError(c, err)
	}
	sel, err := exploreSelection(q, domains)
	if err != nil {
		return writeError(c, err)
	}

	view, err := h.engine.Explore(ctx, sel, ignore)
	if err != nil {
		return writeError(c, err)
	}
	if notModified(c, view.Snapshot.ID, sel, append([]string{"explore"}, view.Ignore...)...) {
		return c.SendStatus(http.StatusNotModified)
	}
	return c.Status(http.StatusOK).JSON(NewExploreResponse(view))
}

// GetListings runs the listing sample for the trend selection.
func (h *Handler) GetListings(c *fiber.Ctx) error {
	ctx := c.Context()
	sel, err := h.trendSelection(ctx, c)
	if err != nil {
		return writeError(c, err)
	}

	view, err := h.engine.Listings(ctx, sel)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(NewListingsResponse(view))
}

func (h *Handler) trendSelection(ctx context.Context, c *fiber.Ctx) (model.Selection, error) {
	q, err := queryValues(c)
	if err != nil {
		return model.Selection{}, err
	}
	base, err := h.engine.DefaultTrendSelection(ctx)
	if err != nil {
		return model.Selection{}, err
	}
	return trendSelection(q, base, h.engine.Config().Trend.Columns)
}

func queryValues(c *fiber.Ctx) (url.Values, error) {
	q, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pipeline.ErrBadFilter, err)
	}
	return q, nil
}

// notModified sets a strong ETag derived from the snapshot and the request
// inputs and reports whether the client already holds it.
func notModified(c *fiber.Ctx, snapshotID string, sel model.Selection, extra ...string) bool {
	key, err := pipeline.ViewKey(snapshotID, sel, extra...)
	if err != nil {
		return false
	}
	etag := fmt.Sprintf("%q", fmt.Sprintf("%x", key))
	c.Set(fiber.HeaderETag, etag)
	return c.Get(fiber.HeaderIfNoneMatch) == etag
}

func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, pipeline.ErrBadFilter),
		errors.Is(err, pipeline.ErrUnknownColumn),
		errors.Is(err, query.ErrInvalidIdentifier):
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_selection",
			Message: err.Error(),
		})
	case errors.Is(err, source.ErrUnavailable):
		return c.Status(http.StatusServiceUnavailable).JSON(ErrorResponse{
			Error:   "datastore_unavailable",
			Message: err.Error(),
		})
	case errors.Is(err, context.DeadlineExceeded):
		return c.Status(http.StatusGatewayTimeout).JSON(ErrorResponse{
			Error:   "timeout",
			Message: err.Error(),
		})
	default:
		log.Printf("stimmo request %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Error: "internal_server_error",
		})
	}
}

func dateOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}
