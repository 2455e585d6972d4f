package cmd

import (
	"context"
	"os"

	"github.com/Laisky/errors/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/spf13/cobra"

	"github.com/smithery-ai/smithery-cookbook/internal/mcp/sessionconfig"
)

var stdioCMD = &cobra.Command{
	Use:   "stdio",
	Short: "serve MCP over stdin/stdout",
	Args:  gcmd.NoExtraArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return initialize(cmd, TransportStdio)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		return runStdio(ctx)
	},
}

// runStdio reads the session config from the environment once and serves until stdin closes.
func runStdio(ctx context.Context) error {
	cfg := sessionconfig.FromEnv(nil)
	if err := sessionconfig.RequireToken(cfg); err != nil {
		return errors.WithStack(err)
	}

	svcs, err := setupServices(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	defer svcs.Close()

	return svcs.mcp.ServeStdio(ctx, cfg, os.Stdin, os.Stdout)
}

func init() {
	rootCMD.AddCommand(stdioCMD)
}
