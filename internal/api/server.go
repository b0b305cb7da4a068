package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"wallscope/internal/liquidity"
	"wallscope/internal/storage"
)

// Server hosts the read-only query surface over the store and aggregator.
type Server struct {
	engine     *gin.Engine
	store      storage.Store
	aggregator *liquidity.Aggregator
	logger     *zap.Logger
}

func NewServer(store storage.Store, aggregator *liquidity.Aggregator, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.Default())

	s := &Server{
		engine:     engine,
		store:      store,
		aggregator: aggregator,
		logger:     logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/", s.health)
	s.engine.GET("/health", s.health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/v1")
	v1.GET("/liquidity/walls/:token0/:token1", s.walls)
	v1.GET("/tokens/:chain_id/:address", s.token)
	v1.GET("/pools/:dex/:chain_id", s.pools)
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
