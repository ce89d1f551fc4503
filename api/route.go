package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nzai/vpa/metrics"
)

func (s *Server) registerRoute() {
	s.engine.NoRoute(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusNotFound, Response{Error: http.StatusText(http.StatusNotFound)})
	})

	if s.options.Metrics {
		s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	api := s.engine.Group("/api")
	api.GET("/ping", s.ping)
	api.GET("/strategies", s.listStrategies)

	market := api.Group("/markets/:market", s.validMarket())
	market.GET("/minutes", s.getMinutes)
	market.GET("/trades", s.getTrades)
	market.GET("/analysis", s.getAnalysis)
}

func (s *Server) ping(c *gin.Context) {
	c.String(http.StatusOK, "pong")
}

func (s *Server) listStrategies(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Data: s.registry.List()})
}
