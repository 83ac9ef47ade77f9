package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Options struct {
	Addr          string
	ExposeMetrics bool
	CORSOrigins   []string
}

type Server struct {
	engine *gin.Engine
	srv    *http.Server
	log    *slog.Logger
}

// New собирает gin-движок: /health, /metrics и маршруты из mount.
func New(opts Options, log *slog.Logger, middleware []gin.HandlerFunc, mount ...func(gin.IRouter)) *Server {
	r := gin.New()
	r.Use(gin.Recovery())
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  opts.CORSOrigins,
			AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
			ExposeHeaders: []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
			MaxAge:        12 * time.Hour,
		}))
	}
	r.Use(middleware...)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	if opts.ExposeMetrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	for _, m := range mount {
		m(r)
	}

	return &Server{
		engine: r,
		srv:    &http.Server{Addr: opts.Addr, Handler: r, ReadHeaderTimeout: 10 * time.Second},
		log:    log,
	}
}

func (s *Server) Handler() http.Handler { return s.engine }

// Start блокируется до остановки; штатное закрытие ошибкой не считается.
func (s *Server) Start() error {
	s.log.Info("HTTP server started", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
