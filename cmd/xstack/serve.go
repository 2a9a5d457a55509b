package main

import (
	"context"
	"time"

	"github.com/aretw0/xstack/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Exposes the built-in processes over a JSON API: submit manifests, inspect recent runs, stream events and scrape metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.ServeOptions{Stderr: cmd.ErrOrStderr()}
		opts.Host, _ = cmd.Flags().GetString("host")
		opts.Port, _ = cmd.Flags().GetString("port")
		opts.RedisAddr, _ = cmd.Flags().GetString("redis")
		opts.LogLevel, _ = cmd.Flags().GetString("log-level")
		opts.HistorySize, _ = cmd.Flags().GetInt("history")
		opts.RunTimeout, _ = cmd.Flags().GetDuration("run-timeout")
		opts.Exec = execOptions(cmd)

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		return cli.Serve(ctx, opts)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "127.0.0.1", "Interface to listen on (empty for all)")
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("redis", cli.EnvDefault(cli.EnvRedisAddr, ""), "Publish events to this Redis address [$"+cli.EnvRedisAddr+"]")
	serveCmd.Flags().Int("history", 256, "Number of finished runs kept for GET /runs/{id}")
	serveCmd.Flags().Duration("run-timeout", 5*time.Minute, "Cancel runs submitted over the API after this long (0 for no limit)")
}
