package command

import (
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/securekv/internal/cli/output"
	"github.com/yndnr/securekv/internal/config"
	"github.com/yndnr/securekv/internal/infra/buildinfo"
	"github.com/yndnr/securekv/internal/storage"
	"github.com/yndnr/securekv/internal/telemetry/logger"
	"github.com/yndnr/securekv/pkg/securekv"
)

const metaConfig = "config"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "securekv",
		Usage:   "Encrypted, expiring key-value store",
		Version: buildinfo.Version,
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			SetCommand(),
			GetCommand(),
			RemoveCommand(),
			ClearCommand(),
			KeysCommand(),
			SweepCommand(),
			DaemonCommand(),
			ConfigCommand(),
			SecretCommand(),
			VersionCommand(),
		},
		HideVersion: true,
	}
}

// globalFlags returns the global CLI flags. Store flags override the
// config file and SECUREKV_* environment only when set.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a YAML config file",
			EnvVars: []string{"SECUREKV_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "data-dir",
			Aliases: []string{"d"},
			Usage:   "Directory for durable backends",
		},
		&cli.StringFlag{
			Name:  "type",
			Usage: "Store type: local, session",
		},
		&cli.BoolFlag{
			Name:  "transactional",
			Usage: "Use the transactional (bbolt) backend",
		},
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Backend: ephemeral-session, durable-local, transactional (replaces --type and --transactional)",
		},
		&cli.BoolFlag{
			Name:  "encrypt",
			Usage: "Encrypt stored envelopes",
		},
		&cli.StringFlag{
			Name:    "secret",
			Usage:   "Encryption secret",
			EnvVars: []string{"SECUREKV_SECRET"},
		},
		&cli.StringFlag{
			Name:  "cipher",
			Usage: "Cipher: aes-gcm, chacha20-poly1305, auto",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
	}
}

// flagOverrides maps explicitly set global flags onto config keys.
func flagOverrides(c *cli.Context) (map[string]any, error) {
	overrides := make(map[string]any)
	for flag, key := range map[string]string{
		"data-dir":  "store.data_dir",
		"type":      "store.type",
		"secret":    "security.secret",
		"cipher":    "security.cipher",
		"log-level": "log.level",
	} {
		if c.IsSet(flag) {
			overrides[key] = c.String(flag)
		}
	}
	if c.IsSet("transactional") {
		overrides["store.transactional"] = c.Bool("transactional")
	}
	if c.IsSet("encrypt") {
		overrides["security.encryption"] = c.Bool("encrypt")
	}
	if c.IsSet("backend") {
		kind, err := storage.ParseKind(c.String("backend"))
		if err != nil {
			return nil, cli.Exit(err.Error(), 2)
		}
		overrides["store.transactional"] = kind == storage.KindTransactional
		switch kind {
		case storage.KindEphemeralSession:
			overrides["store.type"] = string(securekv.TypeSession)
		case storage.KindDurableLocal:
			overrides["store.type"] = string(securekv.TypeLocal)
		}
	}
	return overrides, nil
}

// setup loads and verifies the configuration once per run, builds the
// process logger and attaches it to c.Context.
func setup(c *cli.Context) (*config.File, error) {
	if cfg, ok := c.App.Metadata[metaConfig].(*config.File); ok {
		return cfg, nil
	}

	flags, err := flagOverrides(c)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(c.String("config"), flags)
	if err != nil {
		return nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, err
	}

	lc := cfg.LoggerConfig()
	lc.Output = c.App.ErrWriter
	l, err := logger.New(lc)
	if err != nil {
		return nil, err
	}

	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[metaConfig] = cfg
	c.Context = logger.WithLogger(c.Context, l)
	return cfg, nil
}

// openStore opens the configured store. Callers must Close it.
func openStore(c *cli.Context, opts ...securekv.Option) (*securekv.Store, error) {
	cfg, err := setup(c)
	if err != nil {
		return nil, err
	}
	return openFrom(c, cfg.StoreConfig(), opts...)
}

func openFrom(c *cli.Context, sc securekv.Config, opts ...securekv.Option) (*securekv.Store, error) {
	opts = append([]securekv.Option{securekv.WithLogger(loggerOf(c))}, opts...)
	s, err := securekv.Open(sc, opts...)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return s, nil
}

func loggerOf(c *cli.Context) *slog.Logger {
	return logger.FromContext(c.Context)
}

// render writes data to the app writer in the selected output format.
func render(c *cli.Context, data any) error {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return err
	}
	return output.NewFormatter(format).Format(c.App.Writer, data)
}

// FormatError renders a failed run for stderr. Store errors lead with
// their stable code so scripts can match on it.
func FormatError(err error) string {
	if code := securekv.ErrorCode(err); code != "" {
		return fmt.Sprintf("error %s: %v", code, err)
	}
	return fmt.Sprintf("error: %v", err)
}

// requireArgs checks the positional argument count.
func requireArgs(c *cli.Context, n int) error {
	if c.NArg() != n {
		return cli.Exit(fmt.Sprintf("%s: expected %d argument(s): %s", c.Command.Name, n, c.Command.ArgsUsage), 2)
	}
	return nil
}
