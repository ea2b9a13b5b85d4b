package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/securekv/pkg/secret"
)

// secretResult is what secret generate prints.
type secretResult struct {
	Secret      string `json:"secret,omitempty" yaml:"secret,omitempty"`
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`
}

// SecretCommand returns the secret subcommand group.
func SecretCommand() *cli.Command {
	return &cli.Command{
		Name:  "secret",
		Usage: "Encryption secret helpers",
		Subcommands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "Print a new random secret and its fingerprint",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "length",
						Usage: "Random bytes of entropy",
						Value: secret.DefaultLength,
					},
				},
				Action: func(c *cli.Context) error {
					n := c.Int("length")
					if n < 16 {
						return cli.Exit("secret generate: --length must be at least 16", 2)
					}
					s, err := secret.Generate(n)
					if err != nil {
						return err
					}
					return render(c, secretResult{Secret: s, Fingerprint: secret.Fingerprint(s)})
				},
			},
			{
				Name:  "fingerprint",
				Usage: "Print the fingerprint of the configured secret",
				Action: func(c *cli.Context) error {
					cfg, err := setup(c)
					if err != nil {
						return err
					}
					if cfg.Security.Secret == "" {
						return cli.Exit("secret fingerprint: no secret configured", 1)
					}
					return render(c, secretResult{Fingerprint: secret.Fingerprint(cfg.Security.Secret)})
				},
			},
		},
	}
}
