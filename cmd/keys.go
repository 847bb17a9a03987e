package cmd

import (
	fleetauth "davidallendj/fleetauth/internal"
	"davidallendj/fleetauth/internal/fleet"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var keysFlags = struct {
	privateKeyFile string
	publicKeyFile  string
}{}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate the EC key pair used for partner registration",
	Run: func(cmd *cobra.Command, args []string) {
		f := cmd.Flags()
		if f.Changed("private-key-file") {
			config.PrivateKeyFile = keysFlags.privateKeyFile
		}
		if f.Changed("public-key-file") {
			config.PublicKeyFile = keysFlags.publicKeyFile
		}
		_, err := fleetauth.EnsureKeyPair(fleetauth.OpensslKeyPair, config.PrivateKeyFile, config.PublicKeyFile, true)
		if err != nil {
			fmt.Printf("failed to generate key pair: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Private key: %s\nPublic key: %s\n", config.PrivateKeyFile, config.PublicKeyFile)
		fmt.Printf("\nHost the public key at https://<your-domain>/%s before registering.\n", fleet.KeyRelPath)
	},
}

func init() {
	keysCmd.Flags().StringVar(&keysFlags.privateKeyFile, "private-key-file", config.PrivateKeyFile, "set the private key path")
	keysCmd.Flags().StringVar(&keysFlags.publicKeyFile, "public-key-file", config.PublicKeyFile, "set the public key path")
	rootCmd.AddCommand(keysCmd)
}
