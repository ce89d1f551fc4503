package watcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nzai/vpa/constants"
	"github.com/nzai/vpa/recorder"
	"github.com/nzai/vpa/sources"
	"github.com/nzai/vpa/stores"
	"github.com/nzai/vpa/strategies"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Stream live trade feed
type Stream interface {
	Start(ctx context.Context, tickers []string, handler sources.TradesHandler) error
	Stop() error
}

// Aggregator periodic job returning when ctx is done or a pass failed
type Aggregator interface {
	Run(ctx context.Context) error
}

// Options watcher options
type Options struct {
	// Strategies comma separated strategy names attached to every market
	Strategies string
	// History trades loaded into new strategy windows
	History time.Duration
	// RetryInterval wait before restarting a failed aggregator
	RetryInterval time.Duration
}

// Watcher own stream, aggregator and store lifetimes
type Watcher struct {
	options    Options
	store      stores.Store
	stream     Stream
	aggregator Aggregator
	registry   *strategies.Registry
	recorder   *recorder.Recorder

	mutex   sync.Mutex
	markets []string
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

// NewWatcher create watcher
func NewWatcher(store stores.Store, stream Stream, aggregator Aggregator, rec *recorder.Recorder, registry *strategies.Registry, options Options) *Watcher {
	if options.History <= 0 {
		options.History = constants.DefaultHistory
	}

	if options.RetryInterval <= 0 {
		options.RetryInterval = constants.RetryInterval
	}

	if registry == nil {
		registry = strategies.Default()
	}

	return &Watcher{
		options:    options,
		store:      store,
		stream:     stream,
		aggregator: aggregator,
		registry:   registry,
		recorder:   rec,
	}
}

// Start attach and seed strategies, then run stream and aggregator
func (w *Watcher) Start(ctx context.Context, markets []string) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.cancel != nil || w.stopped {
		return errors.New("watcher already started")
	}

	if len(markets) == 0 {
		return errors.New("no market to watch")
	}

	for _, market := range markets {
		ss, err := w.registry.Parse(w.options.Strategies)
		if err != nil {
			zap.L().Error("parse strategies failed", zap.Error(err), zap.String("strategies", w.options.Strategies))
			w.recorder.Detach(markets...)
			return err
		}

		w.recorder.Attach(market, ss...)

		if len(ss) == 0 {
			continue
		}

		err = w.recorder.Seed(ctx, market, w.options.History, time.Now())
		if err != nil {
			// a cold window only delays signals
			zap.L().Warn("seed strategy windows failed", zap.Error(err), zap.String("market", market))
		}
	}

	err := w.stream.Start(ctx, markets, w.recorder.OnTrades)
	if err != nil {
		zap.L().Error("start stream failed", zap.Error(err), zap.Strings("markets", markets))
		// a later Start attaches fresh strategies
		w.recorder.Detach(markets...)
		return err
	}

	aggregatorCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go w.supervise(aggregatorCtx, done)

	w.markets = markets
	w.cancel = cancel
	w.done = done

	zap.L().Info("watcher started",
		zap.Strings("markets", markets),
		zap.String("strategies", w.options.Strategies))

	return nil
}

// supervise restart the aggregator after a failed pass until ctx is done
func (w *Watcher) supervise(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		err := w.aggregator.Run(ctx)
		if ctx.Err() != nil {
			return
		}

		zap.L().Error("minute aggregator failed, restart later",
			zap.Error(err),
			zap.Duration("retry", w.options.RetryInterval))

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.options.RetryInterval):
		}
	}
}

// Stop stop aggregator, stream and store in order, every step runs even if a previous one failed
func (w *Watcher) Stop() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true

	var err error
	if w.cancel != nil {
		w.cancel()
		<-w.done
		w.cancel = nil
	}

	err = multierr.Append(err, w.stream.Stop())
	err = multierr.Append(err, w.store.Close())

	if err != nil {
		zap.L().Error("stop watcher failed", zap.Error(err), zap.Strings("markets", w.markets))
		return err
	}

	zap.L().Info("watcher stopped", zap.Strings("markets", w.markets))

	return nil
}

// Run start watcher and block until ctx is done
func (w *Watcher) Run(ctx context.Context, markets []string) error {
	err := w.Start(ctx, markets)
	if err != nil {
		return multierr.Append(err, w.Stop())
	}

	<-ctx.Done()

	return w.Stop()
}
