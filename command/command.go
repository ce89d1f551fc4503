package command

import (
	"strings"

	"github.com/nzai/vpa/config"
	"github.com/nzai/vpa/utils"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// Commander provide a cli command
type Commander interface {
	Command() *cli.Command
}

// Commands registered commands
var Commands = []Commander{}

// RegisterCommand add command
func RegisterCommand(cmd Commander) {
	Commands = append(Commands, cmd)
}

var configFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "toml config file, environment only when empty",
	EnvVars: []string{"VPA_CONFIG"},
}

// setup parse config and replace the global logger
func setup(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Parse(c.String(configFlag.Name))
	if err != nil {
		zap.L().Error("parse config failed", zap.Error(err), zap.String("path", c.String(configFlag.Name)))
		return nil, err
	}

	logger, err := utils.NewLogger(cfg.Log.Level, utils.LogOptions{
		Dir:        cfg.Log.Dir,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	})
	if err != nil {
		zap.L().Error("create logger failed", zap.Error(err), zap.String("level", cfg.Log.Level))
		return nil, err
	}
	zap.ReplaceGlobals(logger)

	zap.L().Debug("config loaded", zap.String("env", cfg.Env), zap.Strings("markets", cfg.Markets))

	return cfg, nil
}

// splitList split comma separated values
func splitList(s string) []string {
	var values []string
	for _, value := range strings.Split(s, ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			values = append(values, value)
		}
	}
	return values
}
