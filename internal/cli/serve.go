package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/charmlink/internal/config"
	"github.com/lazypower/charmlink/internal/engine"
	"github.com/lazypower/charmlink/internal/keyring"
	"github.com/lazypower/charmlink/internal/logger"
	"github.com/lazypower/charmlink/internal/server"
	"github.com/lazypower/charmlink/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

// resolveDSN returns the sqlite path or postgres connection string to open.
// A postgres DSN missing from config and env is read from the OS keyring.
func resolveDSN(c config.Config) (string, error) {
	if c.Database.Driver == store.DriverPostgres {
		if c.Database.DSN != "" {
			return c.Database.DSN, nil
		}
		dsn, err := keyring.GetDSN()
		if err != nil {
			return "", fmt.Errorf("no postgres dsn in config, CHARMLINK_DSN or keyring (run 'charmlink db set-dsn'): %w", err)
		}
		return dsn, nil
	}

	if c.Database.Path != "" {
		return c.Database.Path, nil
	}
	return store.DefaultDBPath()
}

func openStore(c config.Config) (*store.DB, error) {
	dsn, err := resolveDSN(c)
	if err != nil {
		return nil, err
	}
	db, err := store.Open(c.Database.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	eng := engine.New(db)
	eng.MaxHabitsPerCall = cfg.Engine.MaxHabitsPerCall
	eng.WindowDays = cfg.Engine.GraphWindowDays
	eng.MaxWindowDays = cfg.Engine.MaxGraphWindow

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	srv := server.New(eng, server.Options{
		Version:         VersionString(),
		UserHeader:      cfg.Auth.UserHeader,
		DefaultLocation: loc,
		RequestTimeout:  cfg.Server.RequestTimeout,
	})
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	failed := make(chan error, 1)

	go func() {
		logger.Info("charmlink serving", "addr", addr, "driver", db.Driver, "db", db.Path, "tz", loc.String())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
	}()

	select {
	case err := <-failed:
		return fmt.Errorf("server error: %w", err)
	case <-done:
	}
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}
