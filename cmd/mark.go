package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"margin/internal/annotate"
	"margin/internal/config"
	"margin/internal/ui"
)

var markCmd = &cobra.Command{
	Use:   "mark <selection>",
	Short: "Tag a passage of a stored text with a code",
	Long: "Mark resumes coding on a stored text, resolves the given selection\n" +
		"to character offsets (first occurrence wins), and records it under\n" +
		"the named code. Pass --start/--end to supply exact offsets instead\n" +
		"of re-searching; the selection argument is then omitted.",
	Args: cobra.MaximumNArgs(1),
	RunE: runMark,
}

func init() {
	markCmd.Flags().Int64("text", 0, "ID of the text to code (required)")
	markCmd.Flags().String("code", "", "name of the code to apply (required)")
	markCmd.Flags().Int("start", -1, "exact start offset (with --end, replaces selection search)")
	markCmd.Flags().Int("end", -1, "exact end offset")
	_ = markCmd.MarkFlagRequired("text")
	_ = markCmd.MarkFlagRequired("code")

	rootCmd.AddCommand(markCmd)
}

func runMark(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	printer := ui.New()

	textID, _ := cmd.Flags().GetInt64("text")
	codeName, _ := cmd.Flags().GetString("code")
	start, _ := cmd.Flags().GetInt("start")
	end, _ := cmd.Flags().GetInt("end")
	exact := start >= 0 || end >= 0

	if exact && (start < 0 || end < 0) {
		return fmt.Errorf("--start and --end must be given together: %w", annotate.ErrValidation)
	}
	if !exact && len(args) == 0 {
		return fmt.Errorf("a selection argument or --start/--end is required: %w", annotate.ErrValidation)
	}

	stores, closeStores, err := openStores(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	emitter := openEmitter(cfg)
	defer emitter.Close()

	code, err := stores.Codes.GetCodeByName(cmd.Context(), codeName)
	if err != nil {
		return err
	}

	session := annotate.NewSession(stores, emitter)
	if _, err := session.Adopt(cmd.Context(), textID); err != nil {
		return err
	}

	if exact {
		_, err = session.SelectAt(cmd.Context(), start, end)
	} else {
		_, err = session.Select(cmd.Context(), args[0])
	}
	if err != nil {
		if errors.Is(err, annotate.ErrNotFound) && !exact {
			printer.SelectionRejected(args[0])
		}
		return err
	}

	span, err := session.ApplyCode(cmd.Context(), code.ID)
	if err != nil {
		return err
	}

	printer.SpanRecorded(span, code.Name)
	return nil
}
