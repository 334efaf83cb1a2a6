package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/julianstephens/streaks/internal/constants"
	"github.com/julianstephens/streaks/internal/logger"
	"github.com/julianstephens/streaks/internal/observability"
	"github.com/julianstephens/streaks/internal/storage"
	"github.com/julianstephens/streaks/internal/streak"
)

// SweepStatus reports on the scheduled sweep. *scheduler.Scheduler satisfies it.
type SweepStatus interface {
	NextRun() time.Time
	LastSummary() (streak.Summary, bool)
}

// Dependencies are the collaborators the HTTP surface needs. Schedule is nil
// when the server runs without the scheduled sweep.
type Dependencies struct {
	Store     storage.Provider
	Evaluator *streak.Evaluator
	Ingestor  *streak.Ingestor
	Sweeper   *streak.Sweeper
	Metrics   *observability.Metrics
	Gatherer  prometheus.Gatherer
	Schedule  SweepStatus
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(constants.AppName), requestLogger(deps.Metrics))

	h := &handlers{deps: deps, counter: streak.NewProofCounter(deps.Store)}

	router.GET("/health", h.health)
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/v1")
	{
		v1.POST("/proofs", h.recordProof)
		v1.POST("/sweep", h.runSweep)
		v1.GET("/habits/:owner_id/:habit_id/streak", h.habitStreak)
	}
	return router
}

func requestLogger(m *observability.Metrics) gin.HandlerFunc {
	log := logger.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		m.ObserveHTTP(route, fmt.Sprint(status))
		log.Debug("Request", "method", c.Request.Method, "route", route, "status", status, "duration", time.Since(start))
	}
}

// Server wraps http.Server with context-driven shutdown.
type Server struct {
	srv *http.Server
}

func New(addr string, handler http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
