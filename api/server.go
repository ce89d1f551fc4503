package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/nzai/vpa/stores"
	"github.com/nzai/vpa/strategies"
	"go.uber.org/zap"
)

// Response api response envelope
type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// Options api server options
type Options struct {
	Address string
	Metrics bool
}

// Server read only api server
type Server struct {
	engine   *gin.Engine
	store    stores.Store
	registry *strategies.Registry
	options  Options
	now      func() time.Time
}

// NewServer create api server
func NewServer(store stores.Store, registry *strategies.Registry, options Options) *Server {
	gin.SetMode(gin.ReleaseMode)

	if registry == nil {
		registry = strategies.Default()
	}

	server := &Server{
		engine:   gin.New(),
		store:    store,
		registry: registry,
		options:  options,
		now:      time.Now,
	}

	server.engine.Use(server.logger(), server.recovery())

	pprof.Register(server.engine, "/debug/pprof")

	server.registerRoute()

	zap.L().Debug("register route success")

	return server
}

// Run serve until ctx is done then shut down gracefully
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.options.Address,
		Handler: s.engine,
	}

	errs := make(chan error, 1)
	go func() {
		zap.L().Info("api server listen", zap.String("address", s.options.Address))
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		zap.L().Error("api server failed", zap.Error(err), zap.String("address", s.options.Address))
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	err := server.Shutdown(shutdownCtx)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		zap.L().Error("shutdown api server failed", zap.Error(err))
		return err
	}

	zap.L().Info("api server stopped")

	return nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}
