package cmd

import (
	"context"
	fleetauth "davidallendj/fleetauth/internal"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var setupFlags = struct {
	clientId           string
	clientSecret       string
	tokenHost          string
	redirectUri        string
	scope              string
	timeoutSeconds     int
	skipRegister       bool
	forceRegister      bool
	registerRegions    string
	domain             string
	privateKeyFile     string
	publicKeyFile      string
	generateKeys       bool
	skipPublicKeyCheck bool
	audience           string
	fetchVehicleId     bool
	noOpen             bool
	printToken         bool
	decodeAccessToken  bool
}{}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Run the full bootstrap: partner registration, OAuth login, vehicle id lookup",
	Run: func(cmd *cobra.Command, args []string) {
		applySetupFlags(cmd)
		runFlow(fleetauth.Setup)
	},
}

// runFlow executes a flow with SIGINT wired to cancellation, mapping
// outcomes to the exit codes the original consumers expect.
func runFlow(flow func(context.Context, *fleetauth.Config) error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := flow(ctx, &config)
	if err == nil {
		return
	}
	if errors.Is(err, fleetauth.ErrCancelled) || errors.Is(err, context.Canceled) {
		fmt.Printf("\nCancelled by user.\n")
		os.Exit(130)
	}
	fmt.Printf("%v\n", err)
	os.Exit(1)
}

// applySetupFlags overrides file-config values with explicitly set flags.
func applySetupFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("client-id") {
		config.Client.Id = setupFlags.clientId
	}
	if f.Changed("client-secret") {
		config.Client.Secret = setupFlags.clientSecret
	}
	if f.Changed("token-host") {
		config.TokenHost = setupFlags.tokenHost
	}
	if f.Changed("redirect-uri") {
		config.RedirectUri = setupFlags.redirectUri
	}
	if f.Changed("scope") {
		config.Scope = setupFlags.scope
	}
	if f.Changed("timeout-seconds") {
		config.TimeoutSeconds = setupFlags.timeoutSeconds
	}
	if f.Changed("skip-register") {
		config.SkipRegister = setupFlags.skipRegister
	}
	if f.Changed("force-register") {
		config.ForceRegister = setupFlags.forceRegister
	}
	if f.Changed("register-regions") {
		config.RegisterRegions = setupFlags.registerRegions
	}
	if f.Changed("domain") {
		config.Domain = setupFlags.domain
	}
	if f.Changed("private-key-file") {
		config.PrivateKeyFile = setupFlags.privateKeyFile
	}
	if f.Changed("public-key-file") {
		config.PublicKeyFile = setupFlags.publicKeyFile
	}
	if f.Changed("generate-keys") {
		config.GenerateKeys = setupFlags.generateKeys
	}
	if f.Changed("skip-public-key-check") {
		config.SkipPublicKeyCheck = setupFlags.skipPublicKeyCheck
	}
	if f.Changed("audience") {
		config.Audience = setupFlags.audience
	}
	if f.Changed("fetch-vehicle-id") {
		config.FetchVehicleId = setupFlags.fetchVehicleId
	}
	if f.Changed("no-open") {
		config.OpenBrowser = !setupFlags.noOpen
	}
	if f.Changed("print-token") {
		config.PrintToken = setupFlags.printToken
	}
	if f.Changed("decode-access-token") {
		config.DecodeAccessToken = setupFlags.decodeAccessToken
	}
}

func registerSetupFlags(cmd *cobra.Command, withPartnerFlags bool) {
	f := cmd.Flags()
	f.StringVar(&setupFlags.clientId, "client-id", "", "set the OAuth client ID")
	f.StringVar(&setupFlags.clientSecret, "client-secret", "", "set the OAuth client secret")
	f.StringVar(&setupFlags.tokenHost, "token-host", config.TokenHost, "set the token host")
	f.StringVar(&setupFlags.redirectUri, "redirect-uri", config.RedirectUri, "set the redirect URI (must match the developer portal)")
	f.StringVar(&setupFlags.scope, "scope", config.Scope, "set the scopes")
	f.IntVar(&setupFlags.timeoutSeconds, "timeout-seconds", config.TimeoutSeconds, "set the callback wait deadline")
	f.StringVar(&setupFlags.audience, "audience", config.Audience, "force a Fleet API URL instead of detecting the region")
	f.BoolVar(&setupFlags.fetchVehicleId, "fetch-vehicle-id", config.FetchVehicleId, "fetch the first vehicle id after auth")
	f.BoolVar(&setupFlags.noOpen, "no-open", !config.OpenBrowser, "do not auto-open the browser")
	f.BoolVar(&setupFlags.printToken, "print-token", config.PrintToken, "print the full access token")
	f.BoolVar(&setupFlags.decodeAccessToken, "decode-access-token", config.DecodeAccessToken, "print the access token claims")
	if withPartnerFlags {
		registerPartnerFlags(cmd)
	}
}

func registerPartnerFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVar(&setupFlags.skipRegister, "skip-register", config.SkipRegister, "skip the partner register flow")
	f.BoolVar(&setupFlags.forceRegister, "force-register", config.ForceRegister, "register even when the cache says it is done")
	f.StringVar(&setupFlags.registerRegions, "register-regions", config.RegisterRegions, "comma-separated regions to register (eu,na)")
	f.StringVar(&setupFlags.domain, "domain", config.Domain, "app domain that matches the app's allowed_origins")
	f.StringVar(&setupFlags.privateKeyFile, "private-key-file", config.PrivateKeyFile, "set the private key path")
	f.StringVar(&setupFlags.publicKeyFile, "public-key-file", config.PublicKeyFile, "set the public key path")
	f.BoolVar(&setupFlags.generateKeys, "generate-keys", config.GenerateKeys, "generate an EC key pair before registration")
	f.BoolVar(&setupFlags.skipPublicKeyCheck, "skip-public-key-check", config.SkipPublicKeyCheck, "skip the hosted public-key URL check")
}

func init() {
	registerSetupFlags(setupCmd, true)
	rootCmd.AddCommand(setupCmd)
}
