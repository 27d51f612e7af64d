package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Spok95/learning-platform-bot/internal/httpapi"
	"github.com/Spok95/learning-platform-bot/internal/metrics"
)

type HTTPServer struct {
	srv *http.Server
}

// NewRouter: /healthz, /metrics и JSON API. Без запуска сервера, для тестов.
func NewRouter(db *sql.DB, api *httpapi.API, origins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 800*time.Millisecond)
		defer cancel()
		t0 := time.Now()
		if err := db.PingContext(ctx); err != nil {
			c.String(http.StatusServiceUnavailable, "db not ok: "+err.Error())
			return
		}
		metrics.ObserveDBPing(time.Since(t0))
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if api != nil {
		api.Register(r, origins)
	}
	return r
}

func StartHTTP(ctx context.Context, addr string, handler http.Handler, log *zap.Logger) *HTTPServer {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()

	return &HTTPServer{srv: srv}
}

func (s *HTTPServer) Addr() string { return s.srv.Addr }
