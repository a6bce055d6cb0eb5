package handlers

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noisycontents/uzu-orders/internal/logger"
	"github.com/noisycontents/uzu-orders/internal/pipeline"
	"github.com/noisycontents/uzu-orders/internal/supabase"
)

// SyncHandler triggers pipeline runs over HTTP. Runs execute inline and
// strictly one at a time; a trigger landing while another run is active is
// answered with 409 instead of queueing.
type SyncHandler struct {
	runner   *pipeline.Runner
	registry *Registry
	logger   *logger.Logger
	busy     sync.Mutex
}

func NewSyncHandler(runner *pipeline.Runner, registry *Registry, logger *logger.Logger) *SyncHandler {
	return &SyncHandler{runner: runner, registry: registry, logger: logger}
}

type syncRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Date string `json:"date"`
}

// Imweb triggers an imweb sync: a single date, an explicit range, or the
// rolling daily window when the body names neither.
func (h *SyncHandler) Imweb(c *gin.Context) {
	var req syncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	mode := pipeline.ModeImwebDaily
	switch {
	case req.Date != "":
		mode = pipeline.ModeImwebSingleDate
	case req.From != "" || req.To != "":
		if req.From == "" || req.To == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "range sync needs both from and to"})
			return
		}
		mode = pipeline.ModeImwebRange
	}
	h.run(c, mode, pipeline.Options{From: req.From, To: req.To, Date: req.Date})
}

// Woocommerce triggers a WooCommerce sync, daily unless a date is given.
func (h *SyncHandler) Woocommerce(c *gin.Context) {
	var req syncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	h.run(c, pipeline.ModeWoocommerce, pipeline.Options{Date: req.Date})
}

// Daily triggers the rolling daily imweb sync.
func (h *SyncHandler) Daily(c *gin.Context) {
	h.run(c, pipeline.ModeImwebDaily, pipeline.Options{})
}

func (h *SyncHandler) run(c *gin.Context, mode string, opts pipeline.Options) {
	if !h.busy.TryLock() {
		c.JSON(http.StatusConflict, gin.H{"error": "a sync run is already in progress"})
		return
	}
	defer h.busy.Unlock()

	opts.RunID = uuid.New().String()
	h.registry.Start(opts.RunID, mode, opts, time.Now())
	h.logger.Info("Run %s started (%s)", opts.RunID, mode)

	res, err := h.runner.Run(c.Request.Context(), mode, opts)
	h.registry.Finish(opts.RunID, res, err, time.Now())

	run, _ := h.registry.Get(opts.RunID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, run)
	case errors.Is(err, supabase.ErrNoRowsStored):
		c.JSON(http.StatusBadGateway, run)
	default:
		h.logger.Error("Run %s failed: %v", opts.RunID, err)
		c.JSON(http.StatusInternalServerError, run)
	}
}

// ListRuns returns every recorded run, newest first.
func (h *SyncHandler) ListRuns(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"runs": h.registry.List()})
}

// GetRun returns one run by ID.
func (h *SyncHandler) GetRun(c *gin.Context) {
	run, ok := h.registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, run)
}
