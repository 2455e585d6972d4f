// Package log is a logging package that provides functions to log messages.
package log

import (
	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
)

// Logger is the process-wide logger. Components derive named children from it.
var Logger logSDK.Logger

func init() {
	var err error
	if Logger, err = logSDK.NewConsoleWithName("cookbook", logSDK.LevelInfo); err != nil {
		logSDK.Shared.Panic("new logger", zap.Error(err))
	}
}

// UseStderr rebuilds Logger so that every entry goes to stderr.
// The stdio transport owns stdout, so it must be called before serving over stdio.
func UseStderr() error {
	level := Logger.Level().String()
	logger, err := logSDK.New(
		logSDK.WithName("cookbook"),
		logSDK.WithOutputPaths([]string{"stderr"}),
		logSDK.WithErrorOutputPaths([]string{"stderr"}),
	)
	if err != nil {
		return errors.Wrap(err, "new stderr logger")
	}
	if err = logger.ChangeLevel(logSDK.Level(level)); err != nil {
		return errors.Wrapf(err, "change level to %q", level)
	}

	Logger = logger
	return nil
}
