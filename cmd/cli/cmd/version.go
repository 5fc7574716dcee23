package cmd

import "github.com/spf13/cobra"

// serviceVersion mirrors the reference FastAPI app's health-check
// identity string.
const serviceVersion = "sigforge 0.1.0"

var versionCmd = &cobra.Command{
	Use:     "version",
	GroupID: "pipeline",
	Short:   "Print the sigforge version",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(serviceVersion)
	},
}
