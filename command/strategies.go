package command

import (
	"fmt"

	"github.com/nzai/vpa/strategies"
	"github.com/urfave/cli/v2"
)

func init() {
	RegisterCommand(&ListStrategies{})
}

// ListStrategies strategies command
type ListStrategies struct{}

// Command cli command
func (s ListStrategies) Command() *cli.Command {
	return &cli.Command{
		Name:  "strategies",
		Usage: "list registered strategies",
		Action: func(c *cli.Context) error {
			for _, name := range strategies.Default().List() {
				fmt.Fprintln(c.App.Writer, name)
			}
			return nil
		},
	}
}
