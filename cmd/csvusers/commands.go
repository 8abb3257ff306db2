package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/csvusers/internal/core"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

func convertCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Print the CSV file's records as JSON without storing them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Ingest.CSVFilePath
			if len(args) == 1 {
				path = args[0]
			}

			records, err := core.ReadAll(path, core.IngestOptions(&a.cfg.Ingest)...)
			if err != nil {
				return userError(err)
			}
			if records == nil {
				records = []core.RawRecord{}
			}
			return writeJSON(cmd.OutOrStdout(), records)
		},
	}
	return cmd
}

func processCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "process [file]",
		Short: "Load the CSV file into the database and print the age distribution",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			var path string
			if len(args) == 1 {
				path = args[0]
			}
			result, err := svc.ProcessFile(cmd.Context(), path)
			if err != nil {
				return userError(err)
			}

			out := cmd.OutOrStdout()
			if output == outputJSON {
				return writeJSON(out, result)
			}
			fmt.Fprintf(out, "Processed %d records from %s (run %s)\n\n", result.RecordsProcessed, result.Path, result.RunID)
			return core.WriteAgeReport(out, result.AgeDistribution)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	return cmd
}

func reportCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the age distribution of stored users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			dist, counts, err := svc.AgeDistribution(cmd.Context())
			if err != nil {
				return userError(err)
			}

			out := cmd.OutOrStdout()
			if output == outputJSON {
				return writeJSON(out, map[string]any{"ageDistribution": dist, "counts": counts})
			}
			fmt.Fprintf(out, "%d users\n\n", counts.Total)
			return core.WriteAgeReport(out, dist)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	return cmd
}

func exportCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write stored users as flat CSV that process can load again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			var users []core.User
			for offset := 0; ; {
				page, err := svc.ListUsers(cmd.Context(), core.MaxPageSize, offset)
				if err != nil {
					return userError(err)
				}
				users = append(users, page.Users...)
				offset += len(page.Users)
				if len(page.Users) < core.MaxPageSize || int64(offset) >= page.Total {
					break
				}
			}

			comma := a.cfg.Ingest.Comma()
			if file == "" {
				return core.WriteUsersCSV(cmd.OutOrStdout(), users, comma)
			}

			f, err := os.Create(file)
			if err != nil {
				return err
			}
			if err := core.WriteUsersCSV(f, users, comma); err != nil {
				f.Close()
				return fmt.Errorf("write %s: %w", file, err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d users to %s\n", len(users), file)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "write to this file instead of stdout")
	return cmd
}

func resetCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every stored user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete all users without --yes")
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			n, err := svc.ResetUsers(cmd.Context())
			if err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d users\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

// userError swaps err for its user-facing message when one is known. The
// original stays reachable through errors.Unwrap.
func userError(err error) error {
	if !core.IsUserFacing(err) {
		return err
	}
	slog.Debug("command failed", "error", err)
	return core.NewUserError(err)
}

func checkOutput(output string) error {
	if output != outputTable && output != outputJSON {
		return fmt.Errorf("unknown output format %q (want %s or %s)", output, outputTable, outputJSON)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
