package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"margin/internal/codebook"
	"margin/internal/config"
	"margin/internal/telemetry"
	"margin/internal/ui"
)

var codesCmd = &cobra.Command{
	Use:   "codes",
	Short: "List and manage codes",
	RunE:  runCodesList,
}

var codesAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a new code",
	Args:  cobra.ExactArgs(1),
	RunE:  runCodesAdd,
}

var codesImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import codes from a TOML codebook",
	Long: "Import creates every code in the codebook that does not already\n" +
		"exist. Existing codes are kept unchanged; codebooks never overwrite.",
	Args: cobra.MaximumNArgs(1),
	RunE: runCodesImport,
}

var codesExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export all codes as a TOML codebook",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCodesExport,
}

func init() {
	codesAddCmd.Flags().String("description", "", "what the code means")
	codesAddCmd.Flags().String("color", "", "display color, #RRGGBB")

	codesCmd.AddCommand(codesAddCmd)
	codesCmd.AddCommand(codesImportCmd)
	codesCmd.AddCommand(codesExportCmd)
	rootCmd.AddCommand(codesCmd)
}

func runCodesList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	stores, closeStores, err := openStores(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	codes, err := stores.Codes.ListCodes(cmd.Context())
	if err != nil {
		return err
	}

	ui.New().CodeTable(codes)
	return nil
}

func runCodesAdd(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	stores, closeStores, err := openStores(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	description, _ := cmd.Flags().GetString("description")
	color, _ := cmd.Flags().GetString("color")

	code, err := stores.Codes.CreateCode(cmd.Context(), args[0], description, color)
	if err != nil {
		return err
	}

	emitter := openEmitter(cfg)
	defer emitter.Close()
	_ = emitter.Emit(telemetry.Event{
		Kind:   telemetry.KindCodeCreated,
		CodeID: code.ID,
		Data:   map[string]any{"name": code.Name},
	})

	ui.New().CodeCreated(code)
	return nil
}

func runCodesImport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	path := cfg.CodebookPath
	if len(args) == 1 {
		path = args[0]
	}

	cb, err := codebook.Load(path)
	if err != nil {
		return err
	}
	if errs := codebook.Validate(cb); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "  %v\n", e)
		}
		return fmt.Errorf("%s: %d validation error(s)", path, len(errs))
	}

	stores, closeStores, err := openStores(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	res, err := codebook.Import(cmd.Context(), stores.Codes, cb)
	if err != nil {
		return err
	}

	emitter := openEmitter(cfg)
	defer emitter.Close()
	_ = emitter.Emit(telemetry.Event{
		Kind: telemetry.KindCodebookImported,
		Data: map[string]any{"path": path, "created": len(res.Created), "skipped": len(res.Skipped)},
	})

	ui.New().ImportSummary(res.Created, res.Skipped)
	return nil
}

func runCodesExport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	stores, closeStores, err := openStores(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	cb, err := codebook.Export(cmd.Context(), stores.Codes)
	if err != nil {
		return err
	}

	path := cfg.CodebookPath
	if len(args) == 1 {
		path = args[0]
	}
	if err := codebook.Save(path, cb); err != nil {
		return err
	}

	ui.New().Info(fmt.Sprintf("exported %d code(s) to %s", len(cb.Codes), path))
	return nil
}
