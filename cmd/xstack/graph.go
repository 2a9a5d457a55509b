package main

import (
	"github.com/aretw0/xstack/internal/cli"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <manifest>",
	Short: "Export the stack as a Mermaid diagram",
	Long:  `Resolves every process of the manifest without running it and outputs a Mermaid diagram (graph TD) with forward and undo edges.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := cli.NewRegistry(execOptions(cmd))
		if err != nil {
			return err
		}
		return cli.Graph(cmd.OutOrStdout(), reg, args[0])
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
