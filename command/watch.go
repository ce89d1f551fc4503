package command

import (
	"errors"

	"github.com/nzai/vpa/api"
	"github.com/nzai/vpa/notifiers"
	"github.com/nzai/vpa/recorder"
	"github.com/nzai/vpa/schedulers"
	"github.com/nzai/vpa/sources"
	"github.com/nzai/vpa/stores"
	"github.com/nzai/vpa/strategies"
	"github.com/nzai/vpa/watcher"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func init() {
	RegisterCommand(&Watch{})
}

// Watch live watcher command
type Watch struct{}

// Command cli command
func (s Watch) Command() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "record live trades, aggregate minutes and run strategies",
		Flags: []cli.Flag{
			configFlag,
			&cli.StringFlag{
				Name:    "markets",
				Aliases: []string{"m"},
				Usage:   "comma separated markets, overrides config, eg: BTC-ETH,BTC-LTC",
			},
			&cli.StringFlag{
				Name:    "strategies",
				Aliases: []string{"s"},
				Usage:   "comma separated strategies, overrides config, eg: pump,trailing_stop",
			},
			&cli.BoolFlag{
				Name:  "serve",
				Usage: "also serve the read api from this process",
			},
		},
		Action: s.run,
	}
}

func (s Watch) run(c *cli.Context) error {
	cfg, err := setup(c)
	if err != nil {
		return err
	}

	markets := cfg.Markets
	if value := c.String("markets"); value != "" {
		markets = splitList(value)
	}

	if len(markets) == 0 {
		return errors.New("markets undefined")
	}

	if c.IsSet("strategies") {
		cfg.Strategies = c.String("strategies")
	}

	store, err := stores.Parse(cfg.Store)
	if err != nil {
		zap.L().Error("parse store failed", zap.Error(err), zap.String("store", cfg.Store))
		return err
	}

	notifier, err := notifiers.Parse(notifiers.Options{
		Type:    cfg.Notifier.Type,
		Broker:  cfg.Notifier.Broker,
		Topic:   cfg.Notifier.Topic,
		TLSCert: cfg.Notifier.TLSCert,
		TLSKey:  cfg.Notifier.TLSKey,
	})
	if err != nil {
		return multierr.Append(err, store.Close())
	}
	defer notifier.Close()

	stream := sources.NewBittrex(sources.BittrexOptions{
		SocketURL:        cfg.Venue.SocketURL,
		Hub:              cfg.Venue.Hub,
		ReconnectTimeout: cfg.Venue.ReconnectTimeout.Duration,
		NegotiateRetry:   cfg.Venue.NegotiateRetry,
		Credentials: sources.StaticCredentials{
			Cookie:    cfg.Venue.Cookie,
			UserAgent: cfg.Venue.UserAgent,
		},
	})

	w := watcher.NewWatcher(
		store,
		stream,
		schedulers.NewMinuteAggregator(store, cfg.Aggregator.Interval.Duration),
		recorder.NewRecorder(store, notifier),
		strategies.Default(),
		watcher.Options{
			Strategies: cfg.Strategies,
			History:    cfg.History.Duration,
		})

	if c.Bool("serve") {
		server := api.NewServer(store, strategies.Default(), api.Options{
			Address: cfg.Server.Address,
			Metrics: cfg.Metrics.Enabled,
		})

		go func() {
			err := server.Run(c.Context)
			if err != nil {
				zap.L().Error("api server stopped", zap.Error(err))
			}
		}()
	}

	return w.Run(c.Context, markets)
}
