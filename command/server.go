package command

import (
	"github.com/nzai/vpa/api"
	"github.com/nzai/vpa/stores"
	"github.com/nzai/vpa/strategies"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func init() {
	RegisterCommand(&Server{})
}

// Server read only api command
type Server struct{}

// Command cli command
func (s Server) Command() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "serve minutes, trades and analysis over http",
		Flags: []cli.Flag{
			configFlag,
			&cli.StringFlag{
				Name:    "address",
				Aliases: []string{"a"},
				Usage:   "listen address, overrides config",
			},
		},
		Action: s.run,
	}
}

func (s Server) run(c *cli.Context) error {
	cfg, err := setup(c)
	if err != nil {
		return err
	}

	if address := c.String("address"); address != "" {
		cfg.Server.Address = address
	}

	store, err := stores.Parse(cfg.Store)
	if err != nil {
		zap.L().Error("parse store failed", zap.Error(err), zap.String("store", cfg.Store))
		return err
	}
	defer store.Close()

	server := api.NewServer(store, strategies.Default(), api.Options{
		Address: cfg.Server.Address,
		Metrics: cfg.Metrics.Enabled,
	})

	return server.Run(c.Context)
}
