// Package server HTTP API 로 분석기와 보안 분석기를 노출한다.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"code-intel/internal/analyzer"
	"code-intel/internal/security"
	"code-intel/internal/types"
)

const serviceName = "code-intel"

// Server HTTP API 서버
type Server struct {
	analyzer *analyzer.Analyzer
	security *security.Analyzer
	logger   *slog.Logger
	router   *gin.Engine
}

// Option 서버 설정 함수
type Option func(*Server)

// WithLogger 로거 지정
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New 라우터를 구성한 서버 생성
func New(a *analyzer.Analyzer, sec *security.Analyzer, opts ...Option) *Server {
	s := &Server{analyzer: a, security: sec, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))

	router.GET("/healthz", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/analyze/file", s.analyzeFile)
		v1.POST("/analyze/directory", s.analyzeDirectory)
		v1.POST("/analyze/changes", s.analyzeChanges)
		v1.POST("/security/file", s.securityFile)
		v1.POST("/security/directory", s.securityDirectory)
		v1.DELETE("/cache", s.clearCache)
	}

	s.router = router
	return s
}

// Handler 라우터를 http.Handler 로 반환
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run ctx 가 취소될 때까지 addr 에서 서비스한다
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type pathRequest struct {
	Path string `json:"path" binding:"required"`
}

type directoryRequest struct {
	Path      string   `json:"path" binding:"required"`
	Recursive *bool    `json:"recursive"`
	Patterns  []string `json:"patterns"`
}

type changesRequest struct {
	Path       string `json:"path" binding:"required"`
	OldContent string `json:"old_content"`
	NewContent string `json:"new_content"`
}

type changesResponse struct {
	Old         *types.ModuleAnalysis `json:"old"`
	New         *types.ModuleAnalysis `json:"new"`
	Suggestions []types.Suggestion    `json:"suggestions"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "cached_files": s.analyzer.CacheSize()})
}

func (s *Server) analyzeFile(c *gin.Context) {
	var req pathRequest
	if !bind(c, &req) {
		return
	}

	module, err := s.analyzer.AnalyzeFile(c.Request.Context(), req.Path)
	if err != nil {
		s.fail(c, err)
		return
	}
	if module == nil {
		s.fail(c, analyzer.ErrUnsupportedLanguage)
		return
	}
	c.JSON(http.StatusOK, module)
}

func (s *Server) analyzeDirectory(c *gin.Context) {
	var req directoryRequest
	if !bind(c, &req) {
		return
	}

	opts := s.analyzer.DefaultDirectoryOptions()
	if req.Recursive != nil {
		opts.Recursive = *req.Recursive
	}
	if len(req.Patterns) > 0 {
		opts.Patterns = req.Patterns
	}

	result, err := s.analyzer.AnalyzeDirectory(c.Request.Context(), req.Path, opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) analyzeChanges(c *gin.Context) {
	var req changesRequest
	if !bind(c, &req) {
		return
	}

	old, cur, suggestions, err := s.analyzer.AnalyzeChanges(c.Request.Context(), req.OldContent, req.NewContent, req.Path)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, changesResponse{Old: old, New: cur, Suggestions: suggestions})
}

func (s *Server) securityFile(c *gin.Context) {
	var req pathRequest
	if !bind(c, &req) {
		return
	}

	report, err := s.security.AnalyzeFile(c.Request.Context(), req.Path)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) securityDirectory(c *gin.Context) {
	var req directoryRequest
	if !bind(c, &req) {
		return
	}

	report, err := s.security.AnalyzeDirectory(c.Request.Context(), req.Path, req.Patterns)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) clearCache(c *gin.Context) {
	if path := c.Query("path"); path != "" {
		s.analyzer.Invalidate(path)
	} else {
		s.analyzer.ClearCache()
	}
	c.JSON(http.StatusOK, gin.H{"cached_files": s.analyzer.CacheSize()})
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, analyzer.ErrUnsupportedLanguage) {
		status = http.StatusUnprocessableEntity
	}
	s.logger.Warn("request failed",
		slog.String("path", c.FullPath()),
		slog.Int("status", status),
		slog.String("error", err.Error()))
	c.JSON(status, gin.H{"error": err.Error()})
}
