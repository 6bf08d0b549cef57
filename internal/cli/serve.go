package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/awch-D/claude-skill-auditor/internal/api"
	"github.com/awch-D/claude-skill-auditor/internal/security"
	"github.com/awch-D/claude-skill-auditor/internal/storage"
)

func newServeCommand() *cobra.Command {
	var (
		addr   string
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the audit history over a read-mostly HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRuntime()
			if err != nil {
				return &ExitError{Code: 2, Msg: "config: " + err.Error()}
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}

			engine, err := buildEngine(cfg, nil)
			if err != nil {
				return &ExitError{Code: 2, Msg: err.Error()}
			}
			db, err := openDB(cfg, dbPath)
			if err != nil {
				return &ExitError{Code: 2, Msg: "open database: " + err.Error()}
			}
			if db == nil {
				return &ExitError{Code: 2, Msg: "serve requires a history database (--db or config)"}
			}
			defer db.Close()

			if err := bootstrapAdmin(db); err != nil {
				return &ExitError{Code: 2, Msg: "bootstrap admin: " + err.Error()}
			}

			srv := &api.Server{
				DB:              db,
				UserStore:       db,
				Engine:          engine,
				Logger:          slog.Default(),
				AllowedOrigins:  cfg.Server.AllowedOrigins,
				SessionDuration: cfg.Server.SessionTTL,
			}

			httpSrv := &http.Server{
				Addr:              addr,
				Handler:           srv.Routes(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				slog.Info("api listening", "addr", addr)
				errCh <- httpSrv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return &ExitError{Code: 2, Msg: "server: " + err.Error()}
				}
			case <-ctx.Done():
				slog.Info("shutting down")
				shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = httpSrv.Shutdown(shutCtx)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address")
	cmd.Flags().StringVar(&dbPath, "db", "", "history database path")

	return cmd
}

// bootstrapAdmin creates the initial admin account when the environment
// provides credentials and no such user exists yet.
func bootstrapAdmin(db *storage.DB) error {
	user := os.Getenv("SKILL_AUDITOR_ADMIN_USER")
	pass := os.Getenv("SKILL_AUDITOR_ADMIN_PASSWORD")
	if user == "" || pass == "" {
		return nil
	}
	if _, _, err := db.GetUserByUsername(user); err == nil {
		return nil
	}
	hash, err := security.HashPassword(pass)
	if err != nil {
		return err
	}
	if _, err := db.CreateUser(user, hash, "admin"); err != nil {
		return err
	}
	slog.Info("admin user created", "username", user)
	return nil
}
