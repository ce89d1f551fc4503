package recorder

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nzai/vpa/constants"
	"github.com/nzai/vpa/metrics"
	"github.com/nzai/vpa/notifiers"
	"github.com/nzai/vpa/stores"
	"github.com/nzai/vpa/strategies"
	"github.com/nzai/vpa/trades"
	"go.uber.org/zap"
)

// Recorder trade sink, persist fills then feed market strategies
type Recorder struct {
	store      stores.Store
	notifier   notifiers.Notifier
	strategies map[string][]strategies.Strategy
	mutex      *sync.RWMutex
}

// NewRecorder create recorder
func NewRecorder(store stores.Store, notifier notifiers.Notifier) *Recorder {
	if notifier == nil {
		notifier = notifiers.NewLog()
	}

	return &Recorder{
		store:      store,
		notifier:   notifier,
		strategies: map[string][]strategies.Strategy{},
		mutex:      new(sync.RWMutex),
	}
}

// Attach strategies consuming trades of market
func (s *Recorder) Attach(market string, ss ...strategies.Strategy) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.strategies[market] = append(s.strategies[market], ss...)
}

// Detach drop every strategy attached to markets
func (s *Recorder) Detach(markets ...string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, market := range markets {
		delete(s.strategies, market)
	}
}

// Strategies attached to market
func (s *Recorder) Strategies(market string) []strategies.Strategy {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	ss := make([]strategies.Strategy, len(s.strategies[market]))
	copy(ss, s.strategies[market])
	return ss
}

// Seed load trades of the last period from store into every strategy window of market
func (s *Recorder) Seed(ctx context.Context, market string, period time.Duration, now time.Time) error {
	ts, err := s.store.QueryTrades(ctx, market, now.Add(-period), now)
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("query_trades").Inc()
		zap.L().Error("query history trades failed",
			zap.Error(err),
			zap.String("market", market),
			zap.Duration("period", period))
		return err
	}

	for _, strategy := range s.Strategies(market) {
		window := trades.NewWindow()
		for _, trade := range ts {
			window.Append(trade)
		}
		strategy.SetTrades(window)
	}

	zap.L().Info("strategy windows seeded",
		zap.String("market", market),
		zap.Int("trades", len(ts)),
		zap.Duration("period", period))

	return nil
}

// OnTrades persist fills of market and run its strategies
func (s *Recorder) OnTrades(ctx context.Context, market string, fills []trades.Fill) error {
	ts := make([]trades.Trade, 0, len(fills))
	for _, fill := range fills {
		trade, err := fill.Trade(market)
		if err != nil {
			metrics.MalformedFramesTotal.Inc()
			zap.L().Error("invalid fill, batch dropped",
				zap.Error(err),
				zap.String("market", market),
				zap.Int("fills", len(fills)))
			return fmt.Errorf("%w: %v", constants.ErrMalformedFrame, err)
		}
		ts = append(ts, trade)
	}

	if len(ts) == 0 {
		return nil
	}

	sort.SliceStable(ts, func(i, j int) bool {
		return ts[i].Timestamp.Before(ts[j].Timestamp)
	})

	err := s.store.InsertTrades(ctx, ts...)
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("insert_trades").Inc()
		zap.L().Error("save trades failed",
			zap.Error(err),
			zap.String("market", market),
			zap.Int("trades", len(ts)))
		return err
	}

	metrics.TradesTotal.WithLabelValues(market).Add(float64(len(ts)))

	for _, strategy := range s.Strategies(market) {
		for _, trade := range ts {
			decision := strategy.AddTrade(trade)
			if decision == nil || decision.Action == strategies.ActionNone {
				continue
			}

			metrics.DecisionsTotal.WithLabelValues(strategy.Name(), decision.Action.String()).Inc()

			err = s.notifier.Notify(notifiers.NewDecisionEvent(market, strategy.Name(), decision))
			if err != nil {
				// notification is best effort, trades are already saved
				zap.L().Warn("notify decision failed",
					zap.Error(err),
					zap.String("market", market),
					zap.String("strategy", strategy.Name()))
			}
		}
	}

	return nil
}
