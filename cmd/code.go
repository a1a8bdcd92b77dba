package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"margin/internal/annotate"
	"margin/internal/codebook"
	"margin/internal/config"
	"margin/internal/tui"
	"margin/internal/ui"
)

var codeCmd = &cobra.Command{
	Use:   "code <text-id>",
	Short: "Code a stored text interactively",
	Long: "Code opens an interactive session on a stored text: type a passage\n" +
		"to select it, pick a code, and apply. If a codebook file is\n" +
		"configured it is imported on startup and hot-reloaded on change.",
	Args: cobra.ExactArgs(1),
	RunE: runCode,
}

func init() {
	rootCmd.AddCommand(codeCmd)
}

func runCode(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	printer := ui.New()

	textID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("text ID must be a number: %w", annotate.ErrValidation)
	}

	stores, closeStores, err := openStores(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	emitter := openEmitter(cfg)
	defer emitter.Close()

	session := annotate.NewSession(stores, emitter)
	if _, err := session.Adopt(cmd.Context(), textID); err != nil {
		return err
	}

	// Seed codes from the configured codebook, then watch it for edits so
	// new codes appear mid-session.
	var watcher *codebook.Watcher
	if cfg.CodebookPath != "" {
		cb, err := codebook.Load(cfg.CodebookPath)
		switch {
		case err == nil:
			if _, err := codebook.Import(cmd.Context(), stores.Codes, cb); err != nil {
				return err
			}
		case errors.Is(err, codebook.ErrNoCodebook):
			// No codebook is fine; codes may already be in the store.
		default:
			return err
		}

		if w, werr := codebook.NewWatcher(cfg.CodebookPath); werr == nil {
			if serr := w.Start(); serr == nil {
				watcher = w
				defer w.Stop()
			}
		} else {
			printer.Info("codebook watch disabled: " + werr.Error())
		}
	}

	codes, err := stores.Codes.ListCodes(cmd.Context())
	if err != nil {
		return err
	}

	return tui.Run(session, stores, codes, watcher)
}
