package main

import (
	"github.com/aretw0/xstack/internal/cli"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the processes available to manifests",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		reg, err := cli.NewRegistry(execOptions(cmd))
		if err != nil {
			return err
		}
		return cli.List(cmd.OutOrStdout(), reg, asJSON)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().Bool("json", false, "Output as JSON")
}
