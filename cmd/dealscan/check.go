package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amishk599/dealscan/internal/config"
	"github.com/amishk599/dealscan/internal/csvio"
	"github.com/amishk599/dealscan/internal/model"
)

var checkInput string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate an input CSV without calling the API",
	Long:  "Reads the input like a real run would, reports missing columns and invalid rows, and exits. No API calls, no output file.",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkInput, "input", "i", "", "input CSV of companies")
	_ = checkCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	in, err := csvio.ReadFile(checkInput)
	if err != nil {
		return fmt.Errorf("input is not usable: %w", err)
	}

	invalid := 0
	for _, row := range in.Rows {
		if row.Invalid != nil {
			invalid++
			logger.Warn("invalid row", "line", row.Invalid.Line, "problems", row.Invalid.Problems)
			continue
		}
		logger.Debug("valid row", "line", row.Record.Line, "company", row.Record.Name)
	}

	if cfg.AI.APIKey == "" {
		logger.Warn("no API key configured; a real run would stop here", "env", config.APIKeyEnv)
	}

	fmt.Printf("%s: %d rows, %d valid, %d invalid\n", checkInput, len(in.Rows), len(in.Rows)-invalid, invalid)
	if extra := len(in.Header) - len(model.RequiredColumns); extra > 0 {
		fmt.Printf("%d extra columns will be passed through\n", extra)
	}
	return nil
}
