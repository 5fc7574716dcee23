package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/keurnel/sigforge/internal/sigasm"
	"github.com/keurnel/sigforge/internal/sigasm/export"
)

var (
	exportFormat string
	exportModule string
	exportList   bool
)

var exportCmd = &cobra.Command{
	Use:     "export <signatures.json>",
	GroupID: "pipeline",
	Short:   "Render a previously generated signature set as downstream-tool text",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportList {
			for _, f := range export.Formats() {
				cmd.Printf("%-12s %-16s %-6s %s\n", f.ID, f.Name, f.Extension, f.Description)
			}
			return nil
		}
		if len(args) != 1 {
			return fmt.Errorf("export requires exactly one signatures.json argument unless --list is given")
		}
		return runExport(cmd, args[0])
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "export format: aob|mask|ida|cheatengine|cpp|x64dbg (default: config/built-in)")
	exportCmd.Flags().StringVar(&exportModule, "module", "", "module name, used by the cheatengine emitter (default: config/built-in)")
	exportCmd.Flags().BoolVar(&exportList, "list", false, "list supported export formats and exit")
}

// signatureSetFile is the on-disk JSON shape sigforge generate/export
// exchange: a target name mapped to its generated variants.
type signatureSetFile map[string][]sigasm.GeneratedSignature

func runExport(cmd *cobra.Command, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading signature set: %w", err)
	}

	var file signatureSetFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing signature set: %w", err)
	}

	format := exportFormat
	if format == "" {
		format = loadedConfig.Output.Format
	}
	module := exportModule
	if module == "" {
		module = loadedConfig.Output.Module
	}

	set := export.NewSignatureSet(file)
	rendered, err := export.Render(set, format, module, time.Now())
	if err != nil {
		return err
	}

	cmd.Println(rendered)
	return nil
}
