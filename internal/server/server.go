package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/ontograph/internal/core"
	"github.com/agenthands/ontograph/internal/core/community"
	"github.com/agenthands/ontograph/internal/core/errs"
	"github.com/agenthands/ontograph/internal/core/model"
	"github.com/agenthands/ontograph/internal/core/traverse"
	"github.com/agenthands/ontograph/internal/logger"
	"github.com/agenthands/ontograph/internal/metrics"
)

// manifestQuerier is implemented by document stores that can list recorded
// ingestion manifests.
type manifestQuerier interface {
	Query(ctx context.Context, table string, filters map[string]string) ([]map[string]any, error)
}

type healthChecker interface {
	Health(ctx context.Context) error
}

type Server struct {
	Engine        *core.Engine
	Log           *logger.Logger
	Metrics       *metrics.Metrics
	ManifestTable string
}

func NewServer(e *core.Engine, manifestTable string) *Server {
	return &Server{Engine: e, Log: e.Log, Metrics: e.Metrics, ManifestTable: manifestTable}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())

	r.GET("/health", s.Health)
	r.POST("/ingest", s.Ingest)
	r.GET("/ingest/manifests", s.Manifests)

	entities := r.Group("/entities/:type/:id")
	entities.GET("", s.Entity)
	entities.GET("/expand", s.Expand)
	entities.GET("/provenance", s.Provenance)
	entities.GET("/mentions", s.Mentions)

	resolution := r.Group("/resolution")
	resolution.GET("/duplicates", s.Duplicates)
	resolution.GET("/suggestions", s.Suggestions)
	resolution.POST("/resolve", s.Resolve)
	resolution.GET("/:type/:id/cluster", s.Cluster)

	if s.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.Metrics.Handler()))
	}
	return r
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Log.Debug("Request handled",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// fail maps err onto an HTTP status through the error taxonomy.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrInvalidArgument), errors.Is(err, errs.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrMissingEndpoint):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrStore):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		s.Log.Error("Request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// Health reports the ontology version and, when a document store is
// configured, whether it answers. An unreachable store answers 503.
func (s *Server) Health(c *gin.Context) {
	resp := gin.H{"status": "ok", "ontology_version": s.Engine.Schema.Version}
	hc, ok := s.Engine.Manifests.(healthChecker)
	if !ok {
		c.JSON(http.StatusOK, resp)
		return
	}
	if err := hc.Health(c.Request.Context()); err != nil {
		s.Log.Warn("Document store health check failed", "error", err)
		resp["status"] = "degraded"
		resp["docstore"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	resp["docstore"] = "ok"
	c.JSON(http.StatusOK, resp)
}

// Ingest runs one ingestion pass. File failures are part of the report, so a
// run that produced a report answers 200.
func (s *Server) Ingest(c *gin.Context) {
	report, err := s.Engine.Ingest(c.Request.Context())
	if report == nil {
		s.fail(c, err)
		return
	}
	resp := gin.H{"report": report, "totals": report.Totals()}
	if err != nil {
		resp["error"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) Manifests(c *gin.Context) {
	q, ok := s.Engine.Manifests.(manifestQuerier)
	if !ok {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "no document store configured"})
		return
	}
	filters := map[string]string{}
	if runID := c.Query("run_id"); runID != "" {
		filters["run_id"] = "eq." + runID
	}
	rows, err := q.Query(c.Request.Context(), s.ManifestTable, filters)
	if err != nil {
		s.fail(c, errs.Store("list manifests", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"manifests": rows})
}

func (s *Server) Entity(c *gin.Context) {
	n, err := s.Engine.Traversal.Entity(c.Request.Context(), c.Param("type"), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (s *Server) Expand(c *gin.Context) {
	depth := traverse.MinDepth
	if v := c.Query("depth"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			s.fail(c, errs.InvalidArgument("depth must be an integer, got %q", v))
			return
		}
		depth = d
	}
	// communities is a boolean or a method name (lpa, components).
	method := c.Query("communities")
	if on, err := strconv.ParseBool(method); err == nil {
		method = ""
		if on {
			method = community.MethodLPA
		}
	}

	var (
		g   *model.GraphData
		err error
	)
	if method == "" {
		g, err = s.Engine.Traversal.Expand(c.Request.Context(), c.Param("type"), c.Param("id"), depth)
	} else {
		g, err = s.Engine.Traversal.ExpandWithCommunities(c.Request.Context(), c.Param("type"), c.Param("id"), depth, method)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *Server) Provenance(c *gin.Context) {
	p, err := s.Engine.Traversal.Provenance(c.Request.Context(), c.Param("type"), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) Mentions(c *gin.Context) {
	m, err := s.Engine.Traversal.Mentions(c.Request.Context(), c.Param("type"), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mentions": m})
}

func (s *Server) Duplicates(c *gin.Context) {
	typ := c.Query("type")
	if typ == "" {
		s.fail(c, errs.InvalidArgument("type query parameter is required"))
		return
	}
	dups, err := s.Engine.Resolution.FindDuplicates(c.Request.Context(), typ)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"duplicates": dups})
}

func (s *Server) Suggestions(c *gin.Context) {
	sugg, err := s.Engine.Resolution.SuggestMerges(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": sugg})
}

type ResolveRequest struct {
	Type       string   `json:"type" binding:"required"`
	Primary    string   `json:"primary" binding:"required"`
	Duplicates []string `json:"duplicates" binding:"required"`
}

func (s *Server) Resolve(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := s.Engine.Resolution.Resolve(c.Request.Context(), req.Primary, req.Duplicates, req.Type); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "resolved", "primary": req.Primary, "duplicates": req.Duplicates})
}

func (s *Server) Cluster(c *gin.Context) {
	ids, err := s.Engine.Resolution.ResolvedCluster(c.Request.Context(), c.Param("id"), c.Param("type"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cluster": ids})
}
