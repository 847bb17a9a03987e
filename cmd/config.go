package cmd

import (
	fleetauth "davidallendj/fleetauth/internal"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create a new default config file",
	Run: func(cmd *cobra.Command, args []string) {
		// create a new config at all args (paths)
		if len(args) == 0 {
			args = []string{"config.yaml"}
		}
		for _, path := range args {
			fleetauth.SaveDefaultConfig(path)
		}
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
