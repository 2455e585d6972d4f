package cmd

import (
	"context"
	"database/sql"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"
	_ "github.com/mattn/go-sqlite3"

	mcpserver "github.com/smithery-ai/smithery-cookbook/internal/mcp"
	"github.com/smithery-ai/smithery-cookbook/internal/mcp/calllog"
	"github.com/smithery-ai/smithery-cookbook/internal/mcp/tools"
	"github.com/smithery-ai/smithery-cookbook/internal/mcp/users"
	"github.com/smithery-ai/smithery-cookbook/library/log"
)

// services bundles everything both transports share.
type services struct {
	db      *sql.DB
	callLog *calllog.Service
	mcp     *mcpserver.Server
}

func (s *services) Close() {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Logger.Warn("close sqlite", zap.Error(err))
		}
	}
}

// openDB opens the SQLite database shared by the user directory and the call log.
func openDB(ctx context.Context) (*sql.DB, error) {
	dsn := gconfig.S.GetString(keySQLiteDSN)
	if dsn == "" {
		dsn = defaultSQLiteDSN
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping sqlite")
	}

	log.Logger.Info("connected to sqlite")
	return db, nil
}

func setupServices(ctx context.Context) (*services, error) {
	db, err := openDB(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	svcs := &services{db: db}

	directory, err := users.NewDirectory(ctx, db, log.Logger.Named("users"))
	if err != nil {
		svcs.Close()
		return nil, errors.Wrap(err, "new user directory")
	}

	if svcs.callLog, err = calllog.NewService(ctx, db, log.Logger.Named("call_log"), nil); err != nil {
		svcs.Close()
		return nil, errors.Wrap(err, "new call log service")
	}

	if svcs.mcp, err = mcpserver.NewServer(mcpserver.Options{
		Logger:   log.Logger,
		Settings: mcpserver.LoadSettingsFromConfig(tools.Names),
		Users:    directory,
		CallLog:  svcs.callLog,
	}); err != nil {
		svcs.Close()
		return nil, errors.Wrap(err, "new mcp server")
	}

	return svcs, nil
}
