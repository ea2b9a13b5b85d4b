package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/securekv/internal/cli/output"
	"github.com/yndnr/securekv/internal/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the effective configuration with the secret masked",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "explicit",
						Usage: "List only the settings a file, environment variable or flag set",
					},
				},
				Action: func(c *cli.Context) error {
					if c.Bool("explicit") {
						return showExplicit(c)
					}
					cfg, err := setup(c)
					if err != nil {
						return err
					}
					return render(c, config.Sanitize(cfg))
				},
			},
			{
				Name:  "validate",
				Usage: "Validate the effective configuration",
				Action: func(c *cli.Context) error {
					if _, err := setup(c); err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, "configuration is valid")
					return nil
				},
			},
		},
	}
}

func showExplicit(c *cli.Context) error {
	flags, err := flagOverrides(c)
	if err != nil {
		return err
	}
	settings, err := config.Explicit(c.String("config"), flags)
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return err
	}
	if format != output.FormatTable {
		return render(c, settings)
	}

	t := &output.Table{Headers: []string{"KEY", "VALUE"}}
	for _, st := range settings {
		t.AddRow(st.Key, st.Value)
	}
	return render(c, t)
}
