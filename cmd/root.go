// Package cmd is the command line entrypoint of the text utilities MCP server.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	glog "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/smithery-ai/smithery-cookbook/library/config"
	"github.com/smithery-ai/smithery-cookbook/library/log"
)

// Transports selectable through TRANSPORT or a subcommand.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Configuration keys populated from the environment.
const (
	keyPort      = "port"
	keyTransport = "transport"
	keySQLiteDSN = "settings.db.sqlite.dsn"

	defaultPort      = 8080
	defaultSQLiteDSN = "file:cookbook?mode=memory&cache=shared"
)

var envKeys = map[string]string{
	"PORT":      keyPort,
	"TRANSPORT": keyTransport,
}

var rootCMD = &cobra.Command{
	Use:   "smithery-cookbook",
	Short: "smithery-cookbook",
	Long:  `text utilities MCP server, served over stdio or streamable HTTP`,
	Args:  gcmd.NoExtraArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return initialize(cmd, "")
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		if currentTransport() == TransportHTTP {
			return runHTTP(ctx)
		}
		return runStdio(ctx)
	},
}

// initialize loads configuration and prepares the logger.
// forced overrides TRANSPORT when a subcommand selects the transport.
func initialize(cmd *cobra.Command, forced string) error {
	if err := gconfig.S.BindPFlags(cmd.Flags()); err != nil {
		return errors.Wrap(err, "bind pflags")
	}

	config.EnvOverlay(nil, envKeys)
	if forced != "" {
		gconfig.S.Set(keyTransport, forced)
	}

	// stdout belongs to the protocol in stdio mode
	if currentTransport() == TransportStdio {
		if err := log.UseStderr(); err != nil {
			return errors.Wrap(err, "redirect logs to stderr")
		}
	}

	if gconfig.S.GetBool("debug") {
		gconfig.S.Set("log-level", "debug")
	}
	if err := setupLogger(); err != nil {
		return errors.Wrap(err, "setup logger")
	}

	if err := config.LoadFromFile(gconfig.S.GetString("config")); err != nil {
		return errors.Wrap(err, "load configuration")
	}
	// env wins over the settings file
	config.EnvOverlay(nil, envKeys)
	if forced != "" {
		gconfig.S.Set(keyTransport, forced)
	}

	if err := validateStartupConfig(); err != nil {
		return errors.Wrap(err, "validate configuration")
	}

	log.Logger.Debug("initialized",
		zap.String("transport", currentTransport()),
		zap.String("log_level", gconfig.S.GetString("log-level")))
	return nil
}

func setupLogger() error {
	lvl := gconfig.S.GetString("log-level")
	if lvl == "" {
		return nil
	}
	if err := log.Logger.ChangeLevel(glog.Level(lvl)); err != nil {
		return errors.Wrapf(err, "change log level to %q", lvl)
	}
	return nil
}

func currentTransport() string {
	transport := strings.ToLower(strings.TrimSpace(gconfig.S.GetString(keyTransport)))
	if transport == "" {
		return TransportStdio
	}
	return transport
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func init() {
	rootCMD.PersistentFlags().Bool("debug", false, "run in debug mode")
	rootCMD.PersistentFlags().StringP("config", "c", "", "optional settings file path")
	rootCMD.PersistentFlags().String("log-level", "info", "`debug/info/error`")
	rootCMD.PersistentFlags().String("listen", "", "http listen address, overrides PORT, like `0.0.0.0:8080`")
}

// Execute execute root command
func Execute() {
	if err := rootCMD.Execute(); err != nil {
		log.Logger.Fatal("start", zap.Error(err))
	}
}
