package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"margin/internal/annotate"
	"margin/internal/config"
	"margin/internal/ui"
)

var loadCmd = &cobra.Command{
	Use:   "load [file]",
	Short: "Load a text document for coding",
	Long: "Load reads a text from a file (or stdin when no file is given) and\n" +
		"stores it immutably. Annotations reference the stored content by\n" +
		"character offsets, so a loaded text never changes.",
	Args: cobra.MaximumNArgs(1),
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().String("title", "", "title for the text (default: file name)")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	printer := ui.New()

	var (
		content []byte
		title   string
		err     error
	)
	if len(args) == 1 {
		content, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		title = filepath.Base(args[0])
	} else {
		content, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		title = "(stdin)"
	}
	if flagTitle, _ := cmd.Flags().GetString("title"); flagTitle != "" {
		title = flagTitle
	}

	if strings.TrimSpace(string(content)) == "" {
		return fmt.Errorf("refusing to load empty text: %w", annotate.ErrValidation)
	}

	stores, closeStores, err := openStores(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	emitter := openEmitter(cfg)
	defer emitter.Close()

	session := annotate.NewSession(stores, emitter)
	text, err := session.LoadText(cmd.Context(), title, string(content))
	if err != nil {
		return err
	}

	printer.TextLoaded(text)
	fmt.Println(text.ID)
	return nil
}
