package command

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"
)

// getResult is what get prints.
type getResult struct {
	Key   string `json:"key" yaml:"key"`
	Value any    `json:"value" yaml:"value"`
}

// SetCommand returns the set command.
func SetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Store a value",
		ArgsUsage: "KEY VALUE",
		Description: "VALUE is parsed as JSON when it is valid JSON and stored as a string otherwise.\n" +
			"Use --raw to always store it as a string.",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "Time to live; 0 never expires",
			},
			&cli.BoolFlag{
				Name:  "raw",
				Usage: "Store VALUE as a string without JSON parsing",
			},
		},
		Action: setAction,
	}
}

func setAction(c *cli.Context) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	key, value := c.Args().Get(0), parseValue(c.Args().Get(1), c.Bool("raw"))

	s, err := openStore(c)
	if err != nil {
		return err
	}
	defer s.Close()

	return s.Set(c.Context, key, value, c.Duration("ttl"))
}

func parseValue(arg string, raw bool) any {
	if raw {
		return arg
	}
	var v any
	if err := json.Unmarshal([]byte(arg), &v); err != nil {
		return arg
	}
	return v
}

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Print a value",
		ArgsUsage: "KEY",
		Action:    getAction,
	}
}

func getAction(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	key := c.Args().First()

	s, err := openStore(c)
	if err != nil {
		return err
	}
	defer s.Close()

	var value any
	found, err := s.Get(c.Context, key, &value)
	if err != nil {
		return err
	}
	if !found {
		return cli.Exit(fmt.Sprintf("key %q not found", key), 1)
	}
	return render(c, getResult{Key: key, Value: value})
}

// RemoveCommand returns the rm command.
func RemoveCommand() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Aliases:   []string{"remove", "del"},
		Usage:     "Remove a key; removing a missing key succeeds",
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			if err := requireArgs(c, 1); err != nil {
				return err
			}
			s, err := openStore(c)
			if err != nil {
				return err
			}
			defer s.Close()
			return s.Remove(c.Context, c.Args().First())
		},
	}
}

// ClearCommand returns the clear command.
func ClearCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Remove every entry",
		Action: func(c *cli.Context) error {
			s, err := openStore(c)
			if err != nil {
				return err
			}
			defer s.Close()
			return s.Clear(c.Context)
		},
	}
}

// KeysCommand returns the keys command.
func KeysCommand() *cli.Command {
	return &cli.Command{
		Name:  "keys",
		Usage: "List stored keys, including expired entries not yet swept",
		Action: func(c *cli.Context) error {
			s, err := openStore(c)
			if err != nil {
				return err
			}
			defer s.Close()

			keys, err := s.Keys(c.Context)
			if err != nil {
				return err
			}
			return render(c, keys)
		},
	}
}
