package main

import (
	"fmt"
	"strings"

	"github.com/kraken-build/kraken"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of kraken",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("kraken version %s\n", strings.TrimSpace(kraken.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
