package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arnavshah/shift-roster-api/internal/config"
	"github.com/arnavshah/shift-roster-api/internal/logging"
)

// CLI holds what every subcommand needs
type CLI struct {
	cfg    *config.Config
	logger *zap.Logger
	ctx    context.Context
}

var (
	verbose bool
	cli     *CLI
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "shiftctl",
		Short:        "Generate monthly shift rosters offline",
		Long:         `Runs the roster engine on a JSON roster file and writes the result as JSON, CSV or an Excel workbook.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if cli != nil && cli.logger != nil {
				cli.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(keygenCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// initApp loads configuration and sets up the console logger
func initApp(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, err := logging.NewLogger(level, "console", "")
	if err != nil {
		return err
	}

	cli = &CLI{cfg: cfg, logger: logger, ctx: ctx}
	return nil
}
