package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/prodsearch/internal/config"
	logpkg "github.com/kailas-cloud/prodsearch/internal/logger"
	"github.com/kailas-cloud/prodsearch/internal/version"
)

// cli carries what PersistentPreRunE loads for every subcommand.
type cli struct {
	env    string
	dotenv string
	cfg    config.Config
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "prodsearch",
		Short:         "Semantic product search, grounded answers and shopping chat",
		SilenceUsage:  true,
		SilenceErrors: false,
		Version:       version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return c.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&c.env, "env", "", "config environment (default: $ENV or local)")
	root.PersistentFlags().StringVar(&c.dotenv, "dotenv", ".env", "dotenv file loaded before the config")

	root.AddCommand(
		newServeCmd(c),
		newSearchCmd(c),
		newAskCmd(c),
		newLoadCmd(c),
		newVersionCmd(),
	)
	return root
}

func (c *cli) init() error {
	if c.dotenv != "" {
		if err := godotenv.Load(c.dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", c.dotenv, err)
		}
	}
	if c.env == "" {
		c.env = config.GetEnv()
	}

	cfg, err := config.Load(c.env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c.cfg = cfg

	logger, err := logpkg.NewLogger(c.env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	c.logger = logger
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
