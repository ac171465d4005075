package star

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/openlh/star/internal/channels"
	"github.com/openlh/star/internal/observability"
)

// Monitor serves the read-only HTTP surface: health, deck layout,
// channel state and Prometheus metrics. It never drives the
// instrument.
type Monitor struct {
	svc     *Service
	router  *gin.Engine
	started time.Time
}

func NewMonitor(svc *Service, corsOrigins []string) *Monitor {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware())
	if len(corsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: corsOrigins,
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	m := &Monitor{
		svc:     svc,
		router:  r,
		started: time.Now(),
	}
	m.registerRoutes()
	return m
}

func (m *Monitor) HTTPRouter() *gin.Engine {
	return m.router
}

func (m *Monitor) registerRoutes() {
	m.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(m.started).String(),
		})
	})

	m.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	m.router.GET("/deck", func(c *gin.Context) {
		c.String(http.StatusOK, m.svc.DeckSummary())
	})

	m.router.GET("/channels", func(c *gin.Context) {
		states := m.svc.ChannelStates()
		out := make([]gin.H, len(states))
		for i, ch := range states {
			out[i] = channelJSON(i+1, ch)
		}
		c.JSON(http.StatusOK, gin.H{"channels": out})
	})
}

func channelJSON(number int, ch channels.Channel) gin.H {
	return gin.H{
		"channel":     number,
		"state":       ch.State.String(),
		"volume_ul":   ch.VolumeUL,
		"capacity_ul": ch.CapacityUL,
	}
}

// Serve blocks until the context is cancelled, then shuts the listener
// down gracefully.
func (m *Monitor) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: m.router}

	errc := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
			return
		}
		errc <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		return err
	}
}
