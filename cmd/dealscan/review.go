package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amishk599/dealscan/internal/csvio"
	"github.com/amishk599/dealscan/internal/review"
	"github.com/amishk599/dealscan/internal/store"
)

var reviewInput string

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Browse an enriched CSV interactively (TUI)",
	Long: "Opens the split-pane browser on an enriched CSV. Without -i, shows a picker of\n" +
		"outputs from recent runs recorded in the cache database.",
	Args: cobra.NoArgs,
	RunE: runReviewCmd,
}

func init() {
	reviewCmd.Flags().StringVarP(&reviewInput, "input", "i", "", "enriched CSV to browse")
	rootCmd.AddCommand(reviewCmd)
}

func runReviewCmd(cmd *cobra.Command, args []string) error {
	if reviewInput != "" {
		t, err := csvio.ReadTable(reviewInput)
		if err != nil {
			return err
		}
		_, err = review.RunReviewTUI(t)
		return err
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sqlStore, err := store.NewSQLiteStore(cfg.Cache.Path)
	if err != nil {
		return fmt.Errorf("open store %s: %w", cfg.Cache.Path, err)
	}
	runs, err := sqlStore.RecentRuns(20)
	sqlStore.Close()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs. Pass -i to open an enriched CSV directly.")
		return nil
	}

	labels := make([]string, len(runs))
	for i, r := range runs {
		labels[i] = fmt.Sprintf("%s  %s  (%d companies, %d interesting)",
			r.StartedAt.Local().Format("2006-01-02 15:04"), r.Output, r.Total, r.Interesting)
	}

	for {
		choice, err := review.RunPicker("Review: select a run", labels)
		if err != nil {
			fmt.Printf("Picker error: %v\n", err)
			return nil
		}
		if choice < 0 {
			return nil
		}

		t, err := csvio.ReadTable(runs[choice].Output)
		if err != nil {
			fmt.Printf("Cannot open %s: %v\n", runs[choice].Output, err)
			continue
		}

		wantQuit, err := review.RunReviewTUI(t)
		if err != nil {
			fmt.Printf("TUI error: %v\n", err)
		}
		if wantQuit {
			return nil
		}
		// else: loop → back to picker
	}
}
