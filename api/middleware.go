package api

import (
	"errors"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nzai/vpa/metrics"
	"go.uber.org/zap"
)

// RequestIDHeader request id echoed back to the client
const RequestIDHeader = "X-Request-Id"

const slowRequest = time.Second * 5

func requestID(c *gin.Context) string {
	id := c.GetHeader(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}

	c.Header(RequestIDHeader, id)
	return id
}

func (s *Server) logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		fields := []zap.Field{
			zap.String("request_id", requestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("url", c.Request.URL.String()),
			zap.String("client_ip", c.ClientIP()),
		}

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		status := c.Writer.Status()
		metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()

		duration := time.Since(start)
		fields = append(fields,
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int("size", c.Writer.Size()),
			zap.Duration("duration", duration))

		switch {
		case status >= http.StatusInternalServerError:
			zap.L().Error("request failed", fields...)
		case duration > slowRequest:
			zap.L().Warn("slow request", fields...)
		default:
			zap.L().Debug("request served", fields...)
		}
	}
}

// brokenPipe the client went away, no status can be written
func brokenPipe(recovered interface{}) bool {
	err, ok := recovered.(error)
	if !ok {
		return false
	}

	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		return false
	}

	var syscallErr *os.SyscallError
	if !errors.As(opErr.Err, &syscallErr) {
		return false
	}

	message := strings.ToLower(syscallErr.Error())
	return strings.Contains(message, "broken pipe") || strings.Contains(message, "connection reset by peer")
}

func (s *Server) recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}

			zap.L().Error("handler panic recovered",
				zap.Any("panic", recovered),
				zap.Stack("stack"),
				zap.String("method", c.Request.Method),
				zap.String("url", c.Request.URL.String()))

			if brokenPipe(recovered) {
				c.Abort()
				return
			}

			c.AbortWithStatusJSON(http.StatusInternalServerError, Response{Error: http.StatusText(http.StatusInternalServerError)})
		}()

		c.Next()
	}
}
