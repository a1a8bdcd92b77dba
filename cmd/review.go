package cmd

import (
	"github.com/spf13/cobra"

	"margin/internal/annotate"
	"margin/internal/config"
	"margin/internal/ui"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "List every coded segment, newest first",
	RunE:  runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	stores, closeStores, err := openStores(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	rows, err := annotate.NewAggregator(stores).List(cmd.Context())
	if err != nil {
		return err
	}

	ui.New().ReviewTable(rows)
	return nil
}
