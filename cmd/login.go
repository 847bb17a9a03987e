package cmd

import (
	"context"
	fleetauth "davidallendj/fleetauth/internal"
	"fmt"

	"github.com/spf13/cobra"
)

func errMissing(field string) error {
	return fmt.Errorf("%s must be set", field)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Run only the OAuth authorization code flow (no registration)",
	Run: func(cmd *cobra.Command, args []string) {
		applySetupFlags(cmd)
		config.SkipRegister = true
		runFlow(fleetauth.Setup)
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Run only the partner registration flow",
	Run: func(cmd *cobra.Command, args []string) {
		applySetupFlags(cmd)
		runFlow(func(ctx context.Context, config *fleetauth.Config) error {
			if config.Client.Id == "" {
				return errMissing("client ID")
			}
			if config.Client.Secret == "" {
				return errMissing("client secret")
			}
			return fleetauth.RegisterPartner(ctx, config)
		})
	},
}

func init() {
	registerSetupFlags(loginCmd, false)
	registerSetupFlags(registerCmd, true)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
}
