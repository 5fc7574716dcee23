package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/keurnel/sigforge/internal/config"
	"github.com/keurnel/sigforge/internal/debugcontext"
)

var (
	configPath string
	verbose    bool
	formatHint string

	loadedConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "sigforge",
	Short: "Signature synthesis toolkit",
	Long:  `sigforge turns a disassembly listing into resilient byte-pattern signatures.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		loadedConfig = cfg
		return nil
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "pipeline",
		Title: "Signature pipeline",
	})

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print accumulated diagnostic entries after the command runs")
	rootCmd.PersistentFlags().StringVar(&formatHint, "format", "auto", "input format hint: auto|pipe|dash|hex")

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(generateTargetedCmd)
	rootCmd.AddCommand(smartCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)
}

// printDiagnostics prints every accumulated entry when --verbose is set.
func printDiagnostics(cmd *cobra.Command, ctx *debugcontext.DebugContext) {
	if !verbose {
		return
	}
	for _, entry := range ctx.Entries() {
		cmd.PrintErrln(entry.String())
	}
}

// readInput reads the named file, or stdin when path is "-".
func readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}
