package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nzai/vpa/command"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	undo := zap.ReplaceGlobals(logger)
	defer undo()

	app := &cli.App{
		Name:  "vpa",
		Usage: "watch live trades, roll them into minutes and run strategies",
	}

	for _, cmd := range command.Commands {
		app.Commands = append(app.Commands, cmd.Command())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		zap.L().Fatal(err.Error())
	}
}
