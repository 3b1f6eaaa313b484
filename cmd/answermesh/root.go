package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/hupe1980/answermesh/config"
	"github.com/hupe1980/answermesh/logging"
)

var errNoIdentity = errors.New("username is required: set USERNAME or pass --username")

type globalOptions struct {
	EnvFile  string
	Username string
}

// cli carries the state shared by all subcommands once the root pre-run
// has loaded settings.
type cli struct {
	options  globalOptions
	settings *config.Settings
	logger   logging.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	cmd := &cobra.Command{
		Use:           "answermesh",
		Short:         "Answer benchmark questions with a hierarchy of agents.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(func(o *config.Options) {
				o.EnvFile = c.options.EnvFile
			})
			if err != nil {
				return err
			}
			c.settings = settings

			logger, err := newLogger(settings)
			if err != nil {
				return err
			}
			c.logger = logger

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&c.options.EnvFile, "env-file", ".env", "dotenv file with settings")
	cmd.PersistentFlags().StringVar(&c.options.Username, "username", "", "identity the answers are stored for (overrides USERNAME)")

	cmd.AddCommand(newRunOneCmd(c))
	cmd.AddCommand(newRunAllCmd(c))
	cmd.AddCommand(newSubmitCmd(c))
	cmd.AddCommand(newAnswersCmd(c))

	return cmd
}

// identity resolves the requesting identity.
func (c *cli) identity() (string, error) {
	if c.options.Username != "" {
		return c.options.Username, nil
	}
	if c.settings.Username != "" {
		return c.settings.Username, nil
	}
	return "", errNoIdentity
}

func newLogger(s *config.Settings) (logging.Logger, error) {
	level, err := logging.ParseLevel(s.LogLevel)
	if err != nil {
		return nil, err
	}

	var out io.Writer = os.Stderr
	if s.LogFile != "" {
		out = &lumberjack.Logger{
			Filename:   s.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
		}
	}

	switch s.LogBackend {
	case "zap":
		if s.LogFile != "" {
			return logging.NewZapLoggerWithWriter(level, s.LogFormat, out), nil
		}
		return logging.NewZapLogger(level, s.LogFormat)
	case "", "slog":
		return logging.NewLogger(&logging.LoggerConfig{
			Level:     level,
			Format:    s.LogFormat,
			Output:    out,
			Component: "answermesh",
		}), nil
	default:
		return nil, fmt.Errorf("unsupported log backend %q", s.LogBackend)
	}
}
