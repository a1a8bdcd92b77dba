package cmd

import (
	"github.com/spf13/cobra"

	"margin/internal/config"
	"margin/internal/ui"
)

var textsCmd = &cobra.Command{
	Use:   "texts",
	Short: "List loaded texts",
	RunE:  runTexts,
}

func init() {
	rootCmd.AddCommand(textsCmd)
}

func runTexts(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	stores, closeStores, err := openStores(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	texts, err := stores.Texts.ListTexts(cmd.Context())
	if err != nil {
		return err
	}

	ui.New().TextTable(texts)
	return nil
}
