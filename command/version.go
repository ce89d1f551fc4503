package command

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// Version build version
var Version = "v0.1.0"

func init() {
	RegisterCommand(&ShowVersion{})
}

// ShowVersion version command
type ShowVersion struct{}

// Command cli command
func (s ShowVersion) Command() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Usage:   "show version",
		Aliases: []string{"v"},
		Action: func(c *cli.Context) error {
			fmt.Fprintln(c.App.Writer, Version)
			return nil
		},
	}
}
