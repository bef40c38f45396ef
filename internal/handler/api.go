package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/fortunestack/capacity-planner/internal/cache"
	"github.com/fortunestack/capacity-planner/internal/metrics"
	"github.com/fortunestack/capacity-planner/internal/model"
	"github.com/fortunestack/capacity-planner/internal/selector"
	"github.com/fortunestack/capacity-planner/internal/store"
)

// SelectionRunner runs a feasibility selection over candidate regions.
type SelectionRunner interface {
	Select(ctx context.Context, requirements model.RequirementSet, candidateRegions []string) (*model.Report, error)
}

// RegionLister returns the regions available to the account.
type RegionLister interface {
	ListRegions(ctx context.Context) ([]string, error)
}

// FortuneSource serves the sample random-record endpoint.
type FortuneSource interface {
	Random(ctx context.Context) (*store.Fortune, error)
	HealthCheck(ctx context.Context) error
}

type Handler struct {
	runner       SelectionRunner
	regions      RegionLister
	fortunes     FortuneSource
	cache        *cache.Cache
	requirements model.RequirementSet
	candidates   []string
	logger       *logrus.Logger
}

func New(runner SelectionRunner, regions RegionLister, fortunes FortuneSource, c *cache.Cache, requirements model.RequirementSet, candidates []string, logger *logrus.Logger) *Handler {
	return &Handler{
		runner:       runner,
		regions:      regions,
		fortunes:     fortunes,
		cache:        c,
		requirements: requirements,
		candidates:   candidates,
		logger:       logger,
	}
}

// Register wires all routes onto the engine.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/report", h.GetReport)
		api.GET("/regions", h.GetRegions)
		api.POST("/refresh", h.Refresh)
		api.GET("/fortune", h.GetFortune)
		api.GET("/export/json", h.ExportJSON)
		api.GET("/export/html", h.ExportHTML)
	}
}

// GetReport runs the selection over the configured candidate regions,
// or over ?regions=a,b when given. Reports are cached per region set.
func (h *Handler) GetReport(c *gin.Context) {
	regionParam := c.Query("regions")
	regions := h.candidates
	if regionParam != "" {
		regions = strings.Split(regionParam, ",")
	}

	cacheKey := "report:" + regionParam
	if cached, ok := h.cache.Get(cacheKey); ok {
		if report, ok := cached.(*model.Report); ok {
			c.JSON(http.StatusOK, gin.H{
				"report":     report,
				"from_cache": true,
			})
			return
		}
	}

	started := time.Now()
	report, err := h.runner.Select(c.Request.Context(), h.requirements, regions)
	if err != nil {
		h.logger.WithError(err).Warn("selection failed")
		var cfgErr *selector.ConfigurationError
		status := http.StatusInternalServerError
		if errors.As(err, &cfgErr) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	metrics.SelectionTotal.Inc()
	metrics.SelectionDuration.Observe(time.Since(started).Seconds())
	metrics.FeasibleRegions.Set(float64(len(report.Feasible)))

	h.cache.Set(cacheKey, report)
	c.JSON(http.StatusOK, gin.H{
		"report":     report,
		"from_cache": false,
	})
}

func (h *Handler) GetRegions(c *gin.Context) {
	cacheKey := "regions"
	if cached, ok := h.cache.Get(cacheKey); ok {
		c.JSON(http.StatusOK, gin.H{
			"regions":    cached,
			"from_cache": true,
		})
		return
	}

	regions, err := h.regions.ListRegions(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Warn("region listing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.cache.Set(cacheKey, regions)
	c.JSON(http.StatusOK, gin.H{
		"regions":    regions,
		"from_cache": false,
	})
}

func (h *Handler) Refresh(c *gin.Context) {
	h.cache.Clear()
	c.JSON(http.StatusOK, gin.H{
		"message": "Cache cleared successfully",
	})
}

func (h *Handler) GetFortune(c *gin.Context) {
	if h.fortunes == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no database configured"})
		return
	}

	fortune, err := h.fortunes.Random(c.Request.Context())
	if err != nil {
		if errors.Is(err, store.ErrNoFortunes) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, fortune)
}

func (h *Handler) Health(c *gin.Context) {
	if h.fortunes != nil {
		if err := h.fortunes.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "degraded",
				"error":  err.Error(),
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
