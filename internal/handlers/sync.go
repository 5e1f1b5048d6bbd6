package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/Kentzo-Omakse/hexim/internal/batch"
	synerr "github.com/Kentzo-Omakse/hexim/pkg/errors"
	"github.com/Kentzo-Omakse/hexim/pkg/redis"
	"github.com/Kentzo-Omakse/hexim/pkg/value"
	"github.com/labstack/echo/v4"
)

// Runner runs one locked batch of the queue.
type Runner interface {
	RunOnce(ctx context.Context) (*batch.Result, error)
}

// Debugger syncs a single variation fetched live from the source.
type Debugger interface {
	RunSingle(ctx context.Context, variationID int64) (*batch.Result, error)
}

type Enqueuer interface {
	Enqueue(ctx context.Context, variation value.Value) (string, error)
}

type Source interface {
	GetVariation(ctx context.Context, id int64) (value.Value, bool, error)
}

// SyncHandler handles the sync and queue endpoints.
type SyncHandler struct {
	runner   Runner
	debugger Debugger
	queue    Enqueuer
	source   Source
}

func NewSyncHandler(runner Runner, debugger Debugger, queue Enqueuer, source Source) *SyncHandler {
	return &SyncHandler{runner: runner, debugger: debugger, queue: queue, source: source}
}

type EnqueueResponse struct {
	ID          string `json:"id"`
	VariationID int64  `json:"variation_id"`
}

func (h *SyncHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/sync/run", h.Run)
	g.POST("/sync/debug/:variation_id", h.Debug)

	updates := g.Group("/updates")
	updates.POST("", h.Enqueue)
	updates.POST("/:variation_id", h.EnqueueFromSource)
}

// Run handles POST /sync/run
func (h *SyncHandler) Run(c echo.Context) error {
	result, err := h.runner.RunOnce(c.Request().Context())
	if errors.Is(err, redis.ErrLockNotAcquired) {
		return Conflict("a sync run is already in progress")
	}
	if err != nil {
		return err
	}
	return SuccessResponse(c, result)
}

// Debug handles POST /sync/debug/:variation_id
func (h *SyncHandler) Debug(c echo.Context) error {
	id, err := ParseID(c, "variation_id")
	if err != nil {
		return err
	}

	result, err := h.debugger.RunSingle(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return SuccessResponse(c, result)
}

// Enqueue handles POST /updates with a variation document as body.
func (h *SyncHandler) Enqueue(c echo.Context) error {
	var variation value.Value
	if err := c.Bind(&variation); err != nil {
		return BadRequest("invalid request body")
	}
	return h.enqueue(c, variation)
}

// EnqueueFromSource handles POST /updates/:variation_id
func (h *SyncHandler) EnqueueFromSource(c echo.Context) error {
	id, err := ParseID(c, "variation_id")
	if err != nil {
		return err
	}

	variation, found, err := h.source.GetVariation(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if !found {
		return synerr.New(synerr.KindSourceFetchEmpty, "VariationID not found.").AddForeignID(strconv.FormatInt(id, 10))
	}
	return h.enqueue(c, variation)
}

func (h *SyncHandler) enqueue(c echo.Context, variation value.Value) error {
	id, err := h.queue.Enqueue(c.Request().Context(), variation)
	if err != nil {
		return err
	}
	return CreatedResponse(c, EnqueueResponse{ID: id, VariationID: variation.Get("id").IntOr(0)})
}
