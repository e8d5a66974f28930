package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/spigell/cv-screener/internal/candidate"
	"github.com/spigell/cv-screener/internal/sheet"
)

type statusReport struct {
	Table string `json:"table"`
	candidate.Summary
}

var statusCmd = &cobra.Command{
	Use:   "status [table]",
	Short: "Print the screening progress of a table as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		config, err := getConfig()
		if err != nil {
			return err
		}

		table, err := statusTable(config, args)
		if err != nil {
			return err
		}

		store, err := sheet.Load(table, sheet.Options{
			Sheet:    config.Sheet,
			Columns:  config.Columns,
			ReadOnly: true,
		})
		if err != nil {
			return err
		}
		defer store.Close()

		return printJSON(statusReport{Table: table, Summary: store.Summarize()})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// statusTable defaults to the most advanced table on disk.
func statusTable(config *Config, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	for _, table := range []string{config.Processed, config.Updated, config.Input} {
		if exists(table) {
			return table, nil
		}
	}
	return "", errors.New("no table found, pass its path as an argument")
}
