package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"signal-engine/internal/engine"
	"signal-engine/internal/model"
	"signal-engine/internal/strategy"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	maxProfileTicks  = 1_000_000
	maxTickHistory   = 10_000
	defaultTickLimit = 100
)

type Handler struct {
	loader *engine.DataLoader
	logger *zap.Logger
}

// NewHandler builds the API handler. loader may be nil when no database is
// configured.
func NewHandler(loader *engine.DataLoader, logger *zap.Logger) *Handler {
	return &Handler{
		loader: loader,
		logger: logger,
	}
}

func (h *Handler) Register(g *gin.RouterGroup) {
	g.POST("/signals", h.GenerateSignals)
	g.POST("/profile", h.RunProfile)
	g.GET("/ticks/:symbol", h.GetTicks)
}

type tickResult struct {
	Timestamp time.Time         `json:"ts"`
	Symbol    string            `json:"symbol"`
	Price     float64           `json:"price"`
	Signals   []strategy.Signal `json:"signals"`
}

// GenerateSignals runs a fresh strategy over the posted ticks.
func (h *Handler) GenerateSignals(c *gin.Context) {
	var req struct {
		Strategy   string       `json:"strategy" binding:"required"`
		WindowSize int          `json:"window_size" binding:"required"`
		Ticks      []model.Tick `json:"ticks"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	strat, err := strategy.NewStrategy(req.Strategy, req.WindowSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results := make([]tickResult, 0, len(req.Ticks))
	summary, err := engine.Run(c.Request.Context(), strat, engine.NewSliceSource(req.Ticks),
		engine.SinkFunc(func(tk model.Tick, signals []strategy.Signal) error {
			if signals == nil {
				signals = []strategy.Signal{}
			}
			results = append(results, tickResult{
				Timestamp: tk.Timestamp,
				Symbol:    tk.Symbol,
				Price:     tk.Price,
				Signals:   signals,
			})
			return nil
		}))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, model.ErrInvalidPrice) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"strategy":    strat.Name(),
		"window_size": strat.WindowSize(),
		"summary":     summary,
		"results":     results,
	})
}

// RunProfile compares the strategies on synthetic data.
func (h *Handler) RunProfile(c *gin.Context) {
	var req struct {
		WindowSize int      `json:"window_size" binding:"required"`
		TickCounts []int    `json:"tick_counts" binding:"required"`
		Repeats    int      `json:"repeats"`
		Strategies []string `json:"strategies"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for _, n := range req.TickCounts {
		if n > maxProfileTicks {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tick count exceeds " + strconv.Itoa(maxProfileTicks)})
			return
		}
	}

	profiler, err := engine.NewProfiler(engine.ProfileConfig{
		WindowSize: req.WindowSize,
		TickCounts: req.TickCounts,
		Repeats:    req.Repeats,
		Strategies: req.Strategies,
	}, h.logger)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := profiler.Run(c.Request.Context())
	if err != nil {
		h.logger.Error("profiling failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profiling failed"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetTicks returns the most recent stored ticks of a symbol.
func (h *Handler) GetTicks(c *gin.Context) {
	if h.loader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "tick store not configured"})
		return
	}

	symbol := model.NormalizeSymbol(c.Param("symbol"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultTickLimit)))
	if err != nil || limit < 1 || limit > maxTickHistory {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and " + strconv.Itoa(maxTickHistory)})
		return
	}

	ticks, err := h.loader.LoadTicks(c.Request.Context(), symbol, limit)
	if err != nil {
		h.logger.Error("failed to query ticks", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if ticks == nil {
		ticks = []model.Tick{}
	}
	c.JSON(http.StatusOK, ticks)
}
