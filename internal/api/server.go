package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"StockSentinel/internal/batch"
	"StockSentinel/internal/metrics"
	"StockSentinel/internal/model"
	"StockSentinel/internal/recorder"
	"StockSentinel/pkg/logger"
)

// CronSecretHeader carries the shared secret for /cron/trigger.
const CronSecretHeader = "X-Cron-Secret"

// JobChecker runs due schedules.
type JobChecker interface {
	CheckJobs(ctx context.Context) (int, error)
}

// HistoryReader lists persisted analyses.
type HistoryReader interface {
	History(ctx context.Context, symbol string, limit int) ([]recorder.HistoryEntry, error)
}

// Pinger reports database health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the handlers' collaborators. History and DB may be nil.
type Deps struct {
	Jobs     JobChecker
	Analyzer batch.Analyzer
	History  HistoryReader
	DB       Pinger
}

// Server exposes health, metrics, the cron hook and ad-hoc analysis over HTTP.
type Server struct {
	router     *gin.Engine
	deps       Deps
	cronSecret string
	log        *logger.Logger
	ctx        context.Context
}

// NewServer builds the router. ctx bounds background cron runs.
func NewServer(ctx context.Context, deps Deps, cronSecret string, release bool, log *logger.Logger) *Server {
	if release {
		gin.SetMode(gin.ReleaseMode)
	}
	if log == nil {
		log = logger.Get()
	}
	s := &Server{
		router:     gin.New(),
		deps:       deps,
		cronSecret: cronSecret,
		log:        log.With("component", "api"),
		ctx:        ctx,
	}
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestLogger())
	s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// HTTPServer wraps the router with timeouts.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) routes() {
	s.router.GET("/healthz", s.health)
	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))
	s.router.POST("/cron/trigger", s.cronTrigger)
	s.router.GET("/analyze/:symbol", s.analyze)
	s.router.GET("/history/:symbol", s.history)
}

func (s *Server) health(c *gin.Context) {
	if s.deps.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.DB.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// cronTrigger runs due schedules. By default it returns 202 and runs in the
// background; ?wait=true blocks and reports how many schedules fired.
func (s *Server) cronTrigger(c *gin.Context) {
	if s.cronSecret != "" {
		got := c.GetHeader(CronSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.cronSecret)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid cron secret"})
			return
		}
	}

	if c.Query("wait") == "true" {
		fired, err := s.deps.Jobs.CheckJobs(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"fired": fired})
		return
	}

	go func() {
		if _, err := s.deps.Jobs.CheckJobs(s.ctx); err != nil {
			s.log.Errorw("background check jobs failed", "error", err)
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (s *Server) analyze(c *gin.Context) {
	settings := model.DefaultSettings
	if v := c.Query("strategy"); v != "" {
		settings.Strategy = v
	}
	if v := c.Query("goal"); v != "" {
		settings.Goal = v
	}
	if v := c.Query("risk"); v != "" {
		settings.Risk = v
	}

	res := s.deps.Analyzer.Analyze(c.Request.Context(), c.Param("symbol"), settings)
	status := http.StatusOK
	if res.Signal == model.SignalError {
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"data": res})
}

func (s *Server) history(c *gin.Context) {
	if s.deps.History == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "history is not recorded"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	entries, err := s.deps.History.History(c.Request.Context(), c.Param("symbol"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debugw("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
