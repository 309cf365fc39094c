// Package server exposes the transformer over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/i-StarX/tc-transformer/pkg/transformer"
	"github.com/i-StarX/tc-transformer/pkg/transformer/logging"
	"github.com/i-StarX/tc-transformer/pkg/transformer/models"
)

// ProcessFunc processes one uploaded workbook.
type ProcessFunc func(ctx context.Context, r io.Reader, name string, opts transformer.Options) (*transformer.Result, error)

// Config configures a Server.
type Config struct {
	// MaxConcurrentRuns bounds the runs in flight. Values below 1 mean 1.
	MaxConcurrentRuns int64
	// Options are the defaults applied to every run.
	Options transformer.Options
	// Gatherer serves /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// Server handles test-case uploads.
type Server struct {
	cfg     Config
	process ProcessFunc
	runs    *semaphore.Weighted
	logger  *zap.Logger
	engine  *gin.Engine
}

// New returns a Server that hands uploads to process.
func New(cfg Config, process ProcessFunc, logger *zap.Logger) *Server {
	if cfg.MaxConcurrentRuns < 1 {
		cfg.MaxConcurrentRuns = 1
	}
	s := &Server{
		cfg:     cfg,
		process: process,
		runs:    semaphore.NewWeighted(cfg.MaxConcurrentRuns),
		logger:  logging.Named(logger, "server"),
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{})))
	}
	r.POST("/process-test-cases", s.processTestCases)
	return r
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.logger.Info("request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("elapsed", time.Since(start)))
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) processTestCases(c *gin.Context) {
	testURL := strings.TrimSpace(c.PostForm("test_url"))
	if testURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "test_url is required"})
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "file is required"})
		return
	}

	opts := s.cfg.Options
	opts.BaseURL = testURL
	if sheet := c.PostForm("sheet"); sheet != "" {
		opts.Sheet = sheet
	}

	ctx := c.Request.Context()
	if err := s.runs.Acquire(ctx, 1); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "request cancelled while waiting for a free run slot"})
		return
	}
	defer s.runs.Release(1)

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	defer f.Close()

	result, err := s.process(ctx, f, header.Filename, opts)
	if err != nil {
		status := http.StatusInternalServerError
		if transformer.IsInputError(err) {
			status = http.StatusBadRequest
		}
		var stageErr *transformer.StageError
		if errors.As(err, &stageErr) {
			s.logger.Error("run failed", zap.Int(logging.Group, stageErr.Group), zap.String(logging.Stage, stageErr.Stage), zap.Error(err))
		} else {
			s.logger.Warn("run rejected", zap.Error(err))
		}
		c.JSON(status, gin.H{"detail": err.Error()})
		return
	}

	records := result.Records
	if records == nil {
		records = []models.Record{}
	}
	c.JSON(http.StatusOK, records)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
