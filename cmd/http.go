package cmd

import (
	"context"
	"fmt"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/spf13/cobra"

	"github.com/smithery-ai/smithery-cookbook/internal/mcp/calllog"
	"github.com/smithery-ai/smithery-cookbook/internal/web"
	"github.com/smithery-ai/smithery-cookbook/library/log"
)

var httpCMD = &cobra.Command{
	Use:   "http",
	Short: "serve MCP over streamable HTTP",
	Args:  gcmd.NoExtraArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return initialize(cmd, TransportHTTP)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		return runHTTP(ctx)
	},
}

func runHTTP(ctx context.Context) error {
	svcs, err := setupServices(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	defer svcs.Close()

	server, err := web.New(web.Options{
		Logger:  log.Logger.Named("web"),
		MCP:     svcs.mcp.Handler(),
		CallLog: calllog.NewHTTPHandler(svcs.callLog, log.Logger.Named("call_log_http")),
		Debug:   gconfig.S.GetBool("debug"),
	})
	if err != nil {
		return errors.Wrap(err, "new web server")
	}

	return server.Run(ctx, listenAddr())
}

// listenAddr prefers --listen, then PORT on all interfaces.
func listenAddr() string {
	if addr := gconfig.S.GetString("listen"); addr != "" {
		return addr
	}

	port, err := parseStrictInt(gconfig.S.Get(keyPort))
	if err != nil || port == 0 {
		port = defaultPort
	}
	return fmt.Sprintf("0.0.0.0:%d", port)
}

func init() {
	rootCMD.AddCommand(httpCMD)
}
