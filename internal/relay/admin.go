package relay

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/tcprelay/internal/logging"
	"github.com/danmuck/tcprelay/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Admin serves health, peer listing and metrics for one Server over HTTP.
type Admin struct {
	server *Server
	addr   string
	router *gin.Engine
}

func NewAdmin(server *Server, addr string, corsOrigins []string) *Admin {
	node := server.Config().NodeID
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(observability.Logger(node)))
	r.Use(observability.RequestMetricsMiddleware(node))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	a := &Admin{
		server: server,
		addr:   strings.TrimSpace(addr),
		router: r,
	}
	a.registerRoutes()
	return a
}

func (a *Admin) Handler() http.Handler {
	return a.router
}

func (a *Admin) registerRoutes() {
	node := a.server.Config().NodeID
	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  a.server.Uptime().String(),
			"node":    node,
			"version": Version,
		})
	})

	a.router.GET("/ready", func(c *gin.Context) {
		ready := a.server.Serving()
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		listen := ""
		if addr := a.server.Addr(); addr != nil {
			listen = addr.String()
		}
		c.JSON(status, gin.H{
			"ready":  ready,
			"listen": listen,
			"node":   node,
		})
	})

	a.router.GET("/peers", func(c *gin.Context) {
		peers := a.server.Peers()
		c.JSON(http.StatusOK, gin.H{
			"count": len(peers),
			"peers": peers,
		})
	})

	a.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Serve runs the admin listener until ctx is done.
func (a *Admin) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.addr,
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logging.Infof("relay.Admin.Serve listening addr=%q", a.addr)
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
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if v := strings.TrimSpace(o); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return []string{"http://localhost:3000"}
	}
	return out
}
