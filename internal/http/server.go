package http

import (
	"context"
	"log"
	"net/http"

	"github.com/appointmint/apptbot/internal/config"
	"github.com/appointmint/apptbot/internal/http/middleware"
	"github.com/appointmint/apptbot/internal/metrics"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	e    *echo.Echo
	addr string
}

func NewServer(cfg config.Config, engine Conversation, rds *redis.Client) *Server {
	// echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	sigMW := middleware.TwilioSignature(cfg.Twilio.AuthToken)
	rlMW := middleware.SenderLimit(middleware.SenderLimitConfig{
		Redis:     rds,
		PerMinute: cfg.RateLimit.PerMinute,
		KeyPrefix: "rl:sender:",
	})

	// routes
	e.POST("/whatsapp", whatsappHandler(engine), sigMW, rlMW)

	return &Server{e: e, addr: cfg.HTTP.Addr}
}

func (s *Server) Start() error {
	log.Printf("http: listening on %s", s.addr)
	return s.e.Start(s.addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
