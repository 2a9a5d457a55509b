package main

import (
	"context"
	"os"

	"github.com/aretw0/xstack/internal/cli"
	"github.com/aretw0/xstack/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <manifest>",
	Short: "Run a stack manifest",
	Long:  `Builds the stack declared in a YAML or JSON manifest and runs it, printing lifecycle events as they happen.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.RunOptions{
			ManifestPath: args[0],
			Stdout:       cmd.OutOrStdout(),
			Stderr:       cmd.ErrOrStderr(),
		}
		opts.Context, _ = cmd.Flags().GetString("context")
		opts.NoRollback, _ = cmd.Flags().GetBool("no-rollback")
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.RedisAddr, _ = cmd.Flags().GetString("redis")
		opts.LogLevel, _ = cmd.Flags().GetString("log-level")
		opts.Exec = execOptions(cmd)
		opts.Rich = !opts.JSON && cli.IsTerminal(os.Stdout)

		if opts.Rich {
			tui.PrintBanner(opts.Stdout)
		}

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		_, err := cli.Execute(ctx, opts)
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("context", "", "Initial context as a JSON object, merged over the manifest context")
	runCmd.Flags().Bool("no-rollback", false, "Leave succeeded processes in place when a process fails")
	runCmd.Flags().Bool("json", false, "Write events and the result as NDJSON")
	runCmd.Flags().String("redis", cli.EnvDefault(cli.EnvRedisAddr, ""), "Publish events to this Redis address [$"+cli.EnvRedisAddr+"]")
}
