package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/xstack/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "xstack",
	Short: "xstack runs ordered process stacks with automatic rollback",
	Long: `xstack executes a declared sequence of processes against a shared context.
When a process fails, every process that already succeeded is compensated in reverse order.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// The run already reported its outcome.
		if !errors.Is(err, cli.ErrNotCompleted) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", cli.EnvDefault(cli.EnvLogLevel, "warn"), "Log level (debug, info, warn, error) [$"+cli.EnvLogLevel+"]")
	rootCmd.PersistentFlags().String("commands", cli.EnvDefault(cli.EnvCommands, ""), "YAML file of named commands exec steps may run [$"+cli.EnvCommands+"]")
	rootCmd.PersistentFlags().Bool("allow-inline-exec", false, "Let manifests run arbitrary command lines through exec (dangerous)")
}

// execOptions collects the exec allow-list flags.
func execOptions(cmd *cobra.Command) cli.ExecOptions {
	var opts cli.ExecOptions
	opts.CommandsPath, _ = cmd.Flags().GetString("commands")
	opts.AllowInline, _ = cmd.Flags().GetBool("allow-inline-exec")
	return opts
}
