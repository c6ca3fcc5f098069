package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arnavshah/shift-roster-api/internal/app"
	"github.com/arnavshah/shift-roster-api/pkg/auth"
	"github.com/arnavshah/shift-roster-api/pkg/export"
	"github.com/arnavshah/shift-roster-api/pkg/models"
	"github.com/arnavshah/shift-roster-api/pkg/roster"
	"github.com/arnavshah/shift-roster-api/pkg/store"
)

func loadRoster(path string) (*models.Roster, error) {
	if path == "" {
		path = cli.cfg.InitialDataPath
	}
	return (&store.FileStore{Path: path}).Load(cli.ctx)
}

// writeOutput writes to path atomically, or to w when path is empty
func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := w.Write(data)
		return err
	}
	return atomic.WriteFile(path, bytes.NewReader(data))
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the month for a roster file",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, _ := cmd.Flags().GetString("input")
			output, _ := cmd.Flags().GetString("output")
			format, _ := cmd.Flags().GetString("format")

			opts := app.EngineOptions(cli.cfg)
			if cmd.Flags().Changed("max-iterations") {
				opts.MaxRepairIterations, _ = cmd.Flags().GetInt("max-iterations")
			}
			if cmd.Flags().Changed("time-budget") {
				opts.TimeBudget, _ = cmd.Flags().GetDuration("time-budget")
			}

			r, err := loadRoster(input)
			if err != nil {
				return err
			}
			out, err := roster.Run(cli.ctx, r, opts)
			if err != nil {
				return err
			}
			for _, w := range out.Warnings {
				cli.logger.Warn(w)
			}
			cli.logger.Debug("generated",
				zap.Int("shortages", len(out.Shortages)),
				zap.Int("repair_iterations", out.Result.RepairIterations),
				zap.Bool("repair_exhausted", out.Result.RepairExhausted))

			var data []byte
			switch format {
			case "json":
				data, err = json.MarshalIndent(out.Response(uuid.NewString()), "", "  ")
				data = append(data, '\n')
			case "csv":
				var buf bytes.Buffer
				err = export.CSV(&buf, out.Problem, out.Result.Table)
				data = buf.Bytes()
			case "xlsx":
				data, err = export.XLSX(out.Problem, out.Result.Table, out.Shortages)
			default:
				return fmt.Errorf("unknown format %q (json, csv, xlsx)", format)
			}
			if err != nil {
				return err
			}
			if err := writeOutput(cmd.OutOrStdout(), output, data); err != nil {
				return err
			}

			if len(out.Shortages) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d understaffed slots\n", len(out.Shortages))
			}
			return nil
		},
	}

	cmd.Flags().StringP("input", "i", "", "Roster JSON file (defaults to the configured initial data path)")
	cmd.Flags().StringP("output", "o", "", "Output file (defaults to stdout)")
	cmd.Flags().StringP("format", "f", "json", "Output format: json, csv or xlsx")
	cmd.Flags().Int("max-iterations", 0, "Override the repair iteration budget")
	cmd.Flags().Duration("time-budget", 5*time.Second, "Override the repair time budget")

	return cmd
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a roster file without generating it",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, _ := cmd.Flags().GetString("input")

			r, err := loadRoster(input)
			if err != nil {
				return err
			}
			problem, warnings, err := roster.Build(r)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%04d-%02d: %d days, %d staff, %d shifts\n",
				r.Year, r.Month, len(problem.Calendar.Days), len(problem.Staff), len(problem.Shifts))
			printWarnings(w, warnings)
			return nil
		},
	}

	cmd.Flags().StringP("input", "i", "", "Roster JSON file (defaults to the configured initial data path)")
	return cmd
}

func printWarnings(w io.Writer, warnings []string) {
	for _, msg := range warnings {
		fmt.Fprintf(w, "warning: %s\n", msg)
	}
}

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen <userID>",
		Short: "Print an API key signed with API_MASTER_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cli.cfg.APIMasterSecret == "" {
				return fmt.Errorf("API_MASTER_SECRET is not set")
			}
			svc := auth.NewService(cli.cfg.JWTSecret, cli.cfg.APIMasterSecret)
			fmt.Fprintf(cmd.OutOrStdout(), "Generated Key for %s:\n%s\n", args[0], svc.GenerateHMACKey(args[0]))
			return nil
		},
	}
}
