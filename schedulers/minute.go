package schedulers

import (
	"context"
	"sort"
	"time"

	"github.com/nzai/vpa/constants"
	"github.com/nzai/vpa/metrics"
	"github.com/nzai/vpa/stores"
	"github.com/nzai/vpa/trades"
	"github.com/nzai/vpa/utils"
	"go.uber.org/zap"
)

// MinuteAggregator roll raw trades of the current and previous minute into minute buckets
type MinuteAggregator struct {
	store    stores.Store
	interval time.Duration
	now      func() time.Time
}

// NewMinuteAggregator create minute aggregator
func NewMinuteAggregator(store stores.Store, interval time.Duration) *MinuteAggregator {
	if interval <= 0 {
		interval = constants.AggregateInterval
	}

	return &MinuteAggregator{
		store:    store,
		interval: interval,
		now:      time.Now,
	}
}

// Run tick every interval until ctx is done, a failed tick is returned
func (s MinuteAggregator) Run(ctx context.Context) error {
	zap.L().Info("minute aggregator start", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("minute aggregator stop")
			return nil
		case <-ticker.C:
			err := s.Tick(ctx, s.now())
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// Tick recompute buckets of the minute containing now and the minute before
func (s MinuteAggregator) Tick(ctx context.Context, now time.Time) error {
	current := utils.MinuteZero(now)
	previous := utils.PreviousMinuteZero(now)
	next := utils.NextMinuteZero(now)

	previousTrades, err := s.store.QueryTrades(ctx, "", previous, current)
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("query_trades").Inc()
		zap.L().Error("query previous minute trades failed", zap.Error(err), zap.Time("minute", previous))
		return err
	}

	currentTrades, err := s.store.QueryTrades(ctx, "", current, next)
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("query_trades").Inc()
		zap.L().Error("query current minute trades failed", zap.Error(err), zap.Time("minute", current))
		return err
	}

	if len(previousTrades) == 0 && len(currentTrades) == 0 {
		return nil
	}

	buckets := Aggregate(append(previousTrades, currentTrades...))

	exists, err := s.store.QueryMinuteKeys(ctx, previous, next)
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("query_minute_keys").Inc()
		zap.L().Error("query minute keys failed", zap.Error(err), zap.Time("start", previous), zap.Time("stop", next))
		return err
	}

	for _, bucket := range buckets {
		if exists[bucket.Key()] {
			err = s.store.UpdateMinute(ctx, bucket)
			if err != nil {
				metrics.StoreErrorsTotal.WithLabelValues("update_minute").Inc()
				return err
			}
			metrics.BucketsTotal.WithLabelValues("update").Inc()
			continue
		}

		err = s.store.InsertMinute(ctx, bucket)
		if err != nil {
			metrics.StoreErrorsTotal.WithLabelValues("insert_minute").Inc()
			return err
		}
		metrics.BucketsTotal.WithLabelValues("insert").Inc()
	}

	zap.L().Debug("minute buckets saved",
		zap.Time("minute", current),
		zap.Int("trades", len(previousTrades)+len(currentTrades)),
		zap.Int("buckets", len(buckets)))

	return nil
}

// Aggregate fold trades into per market per minute buckets ordered by minute then market
func Aggregate(ts []trades.Trade) []*trades.MinuteBucket {
	sorted := make([]trades.Trade, len(ts))
	copy(sorted, ts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	dict := make(map[trades.MinuteKey]*trades.MinuteBucket)
	for _, trade := range sorted {
		key := trades.NewMinuteKey(trade.Market, trade.Timestamp)
		bucket, found := dict[key]
		if !found {
			bucket = trades.NewMinuteBucket(key.Market, key.Minute)
			dict[key] = bucket
		}

		bucket.Add(trade)
	}

	buckets := make([]*trades.MinuteBucket, 0, len(dict))
	for _, bucket := range dict {
		buckets = append(buckets, bucket)
	}

	sort.Slice(buckets, func(i, j int) bool {
		if !buckets[i].Minute.Equal(buckets[j].Minute) {
			return buckets[i].Minute.Before(buckets[j].Minute)
		}
		return buckets[i].Market < buckets[j].Market
	})

	return buckets
}
