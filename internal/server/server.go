package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uaizouk/backoffice/internal/config"
	obslogger "github.com/uaizouk/backoffice/internal/observability/logger"
	"github.com/uaizouk/backoffice/internal/scheduler"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

// JobRunner is the part of the scheduler the admin surface drives.
type JobRunner interface {
	RunJob(ctx context.Context, name string) (scheduler.Result, error)
	LastResult(name string) (scheduler.Result, bool)
}

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, log *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(log)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", srv.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type ServerParams struct {
	fx.In

	Gin    *gin.Engine
	Cfg    config.Config
	Log    *zap.Logger
	Runner *scheduler.Scheduler
}

type Server struct {
	engine     *gin.Engine
	log        *zap.Logger
	runner     JobRunner
	adminToken string
}

func NewServer(p ServerParams) *Server {
	return newServer(p.Gin, p.Log, p.Runner, p.Cfg.AdminToken)
}

func newServer(engine *gin.Engine, log *zap.Logger, runner JobRunner, adminToken string) *Server {
	s := &Server{
		engine:     engine,
		log:        log.Named("http.server"),
		runner:     runner,
		adminToken: strings.TrimSpace(adminToken),
	}
	s.registerAdminRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerAdminRoutes leaves /internal unrouted when no admin token is configured.
func (s *Server) registerAdminRoutes() {
	if s.adminToken == "" {
		s.log.Info("ADMIN_TOKEN not set, job endpoints are disabled")
		return
	}
	internal := s.engine.Group("/internal", s.AdminTokenRequired())
	internal.POST("/jobs/:name/run", s.RunJob)
	internal.GET("/jobs/:name/last", s.LastJobResult)
}
