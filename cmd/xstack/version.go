package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/xstack"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of xstack",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "xstack version %s\n", strings.TrimSpace(xstack.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
