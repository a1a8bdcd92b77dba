package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"margin/internal/annotate"
	"margin/internal/config"
	"margin/internal/ui"
)

var showCmd = &cobra.Command{
	Use:   "show <text-id>",
	Short: "Display a text with its coded segments highlighted",
	Long: "Show re-derives display fragments from the stored spans and prints\n" +
		"the text with each coded run highlighted in its code's color.\n" +
		"Overlapping codes appear as stacked swatches after the shared run.",
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	textID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("text ID must be a number: %w", annotate.ErrValidation)
	}

	stores, closeStores, err := openStores(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	text, err := stores.Texts.GetText(cmd.Context(), textID)
	if err != nil {
		return err
	}
	spans, err := stores.Segments.ListSegmentsByText(cmd.Context(), textID)
	if err != nil {
		return err
	}
	codes, err := stores.Codes.ListCodes(cmd.Context())
	if err != nil {
		return err
	}

	fragments := annotate.Render(text.Content, spans)
	h := ui.NewHighlighter(codes, cfg.NoColor)

	fmt.Printf("#%d %s\n\n", text.ID, text.Title)
	fmt.Println(h.Render(fragments))
	if legend := h.Legend(fragments); legend != "" {
		fmt.Println()
		fmt.Print(legend)
	}
	return nil
}
