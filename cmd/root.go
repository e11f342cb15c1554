package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/toolchainworks/relpack/internal/config"
)

var (
	cfgFile    string
	cacheDir   string
	extractDir string
	noCache    bool
	Cfg        *config.Config
	Version    string
)

var RootCmd = &cobra.Command{
	Use:   "relpack",
	Short: "Relpack - stage toolchain release binaries from archive URLs",
	Long: `Relpack downloads a toolchain release archive, extracts it, discovers
the executable binaries inside and stages them with release metadata,
or publishes them as GitHub releases.`,
	SilenceUsage: true,
}

func Execute(version string) error {
	Version = version
	return RootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./relpack.yaml)")
	RootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "download cache directory (overrides config)")
	RootCmd.PersistentFlags().StringVar(&extractDir, "extract-dir", "", "extraction cache directory (overrides config)")
	RootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "disable caching, always download and extract fresh")
}

func initConfig() {
	var err error

	Cfg, err = config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Printf("Fatal: Configuration could not be loaded: %v\n", err)
		os.Exit(1)
	}

	// Flag overrides on top of file/env configuration
	if cacheDir != "" {
		Cfg.Cache.Dir = cacheDir
	}
	if extractDir != "" {
		Cfg.Cache.ExtractDir = extractDir
	}
	if noCache {
		Cfg.Cache.Enabled = false
	}
}
