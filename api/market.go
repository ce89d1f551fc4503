package api

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nzai/vpa/constants"
	"github.com/nzai/vpa/indexes"
	"github.com/nzai/vpa/trades"
	"go.uber.org/zap"
)

const defaultEMAPeriod = 10

var marketRegexp = regexp.MustCompile(constants.MarketPattern)

func (s *Server) validMarket() gin.HandlerFunc {
	return func(c *gin.Context) {
		market := c.Param("market")
		if !marketRegexp.MatchString(market) {
			c.AbortWithStatusJSON(http.StatusBadRequest, Response{Error: fmt.Sprintf("invalid market: %s", market)})
			return
		}
		c.Next()
	}
}

func parseHours(c *gin.Context, key string, defaultValue time.Duration) (time.Duration, error) {
	value := c.Query(key)
	if value == "" {
		return defaultValue, nil
	}

	hours, err := strconv.Atoi(value)
	if err != nil || hours <= 0 {
		return 0, fmt.Errorf("invalid %s: %s", key, value)
	}

	return time.Duration(hours) * time.Hour, nil
}

// parsePeriod start defaults to period before now, stop to an hour after now
func (s *Server) parsePeriod(c *gin.Context) (time.Time, time.Time, error) {
	now := s.now()

	period, err := parseHours(c, "period", constants.DefaultPeriod)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	start := now.Add(-period)
	if value := c.Query("start"); value != "" {
		start, err = trades.ParseTimestamp(value)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start: %s", value)
		}
	}

	stop := now.Add(constants.DefaultAhead)
	if value := c.Query("stop"); value != "" {
		stop, err = trades.ParseTimestamp(value)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid stop: %s", value)
		}
	}

	if !start.Before(stop) {
		return time.Time{}, time.Time{}, errors.New("start must be before stop")
	}

	return start, stop, nil
}

// MinutesData minute buckets with close rate ema
type MinutesData struct {
	Minutes []*trades.MinuteBucket `json:"minutes"`
	EMA     []*indexes.EMA         `json:"ema"`
}

func (s *Server) getMinutes(c *gin.Context) {
	market := c.Param("market")
	start, stop, err := s.parsePeriod(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: err.Error()})
		return
	}

	emaPeriod := defaultEMAPeriod
	if value := c.Query("ema"); value != "" {
		emaPeriod, err = strconv.Atoi(value)
		if err != nil || emaPeriod <= 0 {
			c.JSON(http.StatusBadRequest, Response{Error: fmt.Sprintf("invalid ema: %s", value)})
			return
		}
	}

	buckets, err := s.store.QueryMinutes(c.Request.Context(), market, start, stop)
	if err != nil {
		zap.L().Error("query minutes failed", zap.Error(err), zap.String("market", market))
		c.JSON(http.StatusInternalServerError, Response{Error: err.Error()})
		return
	}

	emas, err := indexes.NewEMAIndex(emaPeriod).Calculate(buckets)
	if err != nil {
		zap.L().Error("calculate ema failed", zap.Error(err), zap.String("market", market))
		c.JSON(http.StatusInternalServerError, Response{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, Response{Data: MinutesData{Minutes: buckets, EMA: emas}})
}

func (s *Server) getTrades(c *gin.Context) {
	market := c.Param("market")
	start, stop, err := s.parsePeriod(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: err.Error()})
		return
	}

	ts, err := s.store.QueryTrades(c.Request.Context(), market, start, stop)
	if err != nil {
		zap.L().Error("query trades failed", zap.Error(err), zap.String("market", market))
		c.JSON(http.StatusInternalServerError, Response{Error: err.Error()})
		return
	}

	if ts == nil {
		ts = []trades.Trade{}
	}

	c.JSON(http.StatusOK, Response{Data: ts})
}

// AnalysisData volume profiles of both sides, a side without trade is null
type AnalysisData struct {
	Buy  *indexes.VolumeProfile `json:"buy"`
	Sell *indexes.VolumeProfile `json:"sell"`
}

func (s *Server) getAnalysis(c *gin.Context) {
	market := c.Param("market")
	period, err := parseHours(c, "period", constants.DefaultAnalysisPeriod)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: err.Error()})
		return
	}

	now := s.now()
	ts, err := s.store.QueryTrades(c.Request.Context(), market, now.Add(-period), now.Add(constants.DefaultAhead))
	if err != nil {
		zap.L().Error("query trades failed", zap.Error(err), zap.String("market", market))
		c.JSON(http.StatusInternalServerError, Response{Error: err.Error()})
		return
	}

	index := indexes.NewVolumeProfileIndex()
	var data AnalysisData
	for _, side := range []struct {
		orderType trades.OrderType
		profile   **indexes.VolumeProfile
	}{
		{trades.OrderTypeBuy, &data.Buy},
		{trades.OrderTypeSell, &data.Sell},
	} {
		profile, err := index.Calculate(ts, side.orderType)
		if err != nil && !errors.Is(err, constants.ErrRecordNotFound) {
			zap.L().Error("calculate volume profile failed", zap.Error(err), zap.String("market", market))
			c.JSON(http.StatusInternalServerError, Response{Error: err.Error()})
			return
		}
		*side.profile = profile
	}

	if data.Buy == nil && data.Sell == nil {
		c.JSON(http.StatusNotFound, Response{Error: constants.ErrRecordNotFound.Error()})
		return
	}

	c.JSON(http.StatusOK, Response{Data: data})
}
