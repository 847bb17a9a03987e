package cmd

import (
	fleetauth "davidallendj/fleetauth/internal"
	"fmt"
	"os"

	"github.com/davidallendj/go-utils/pathx"
	"github.com/spf13/cobra"
)

var (
	confPath  = ""
	cacheFlag = ""
	config    = fleetauth.NewConfig()
)

var rootCmd = &cobra.Command{
	Use:   "fleetauth",
	Short: "Tesla Fleet setup helper: partner registration + OAuth token + vehicle id lookup",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start CLI: %s", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVarP(&confPath, "config", "c", "", "set the config path")
	rootCmd.PersistentFlags().StringVar(&cacheFlag, "cache", config.CachePath, "set the registration cache path (empty disables)")
}

func initConfig() {
	// load config if found; flags override file values afterwards
	if confPath != "" {
		exists, err := pathx.PathExists(confPath)
		if err != nil {
			fmt.Printf("failed to load config\n")
			os.Exit(1)
		} else if exists {
			config = fleetauth.LoadConfig(confPath)
		}
	}
	if rootCmd.PersistentFlags().Changed("cache") {
		config.CachePath = cacheFlag
	}
}
