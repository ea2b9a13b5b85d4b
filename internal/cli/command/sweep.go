package command

import (
	"github.com/urfave/cli/v2"
)

// SweepCommand returns the sweep command.
func SweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "Evict expired and unreadable entries once",
		Action: func(c *cli.Context) error {
			s, err := openStore(c)
			if err != nil {
				return err
			}
			defer s.Close()

			stats, err := s.Sweep(c.Context)
			if err != nil {
				return err
			}
			return render(c, stats)
		},
	}
}
