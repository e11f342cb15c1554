package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/toolchainworks/relpack/internal/operations/cache"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete the download and extraction caches",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := cache.NewStore(Cfg.Cache)
		if err := store.Clean(); err != nil {
			return err
		}
		fmt.Println("Cache cleaned successfully")
		return nil
	},
}

func init() {
	RootCmd.AddCommand(cleanCmd)
}
