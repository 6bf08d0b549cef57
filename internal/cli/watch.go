package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/awch-D/claude-skill-auditor/internal/watch"
)

func newWatchCommand() *cobra.Command {
	var (
		rulesDirs []string
		dbPath    string
	)

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Re-audit skills as their files change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRuntime()
			if err != nil {
				return &ExitError{Code: 2, Msg: "config: " + err.Error()}
			}
			engine, err := buildEngine(cfg, rulesDirs)
			if err != nil {
				return &ExitError{Code: 2, Msg: err.Error()}
			}
			db, err := openDB(cfg, dbPath)
			if err != nil {
				return &ExitError{Code: 2, Msg: "open database: " + err.Error()}
			}
			if db != nil {
				defer db.Close()
			}

			wcfg := watch.DefaultConfig(args[0])
			wcfg.OnChange = func(ctx context.Context, path string) error {
				res, err := runAudit(cfg, engine, db, path, db != nil)
				if err != nil {
					return err
				}
				if res == nil {
					slog.Info("skill approved, skipped", "path", path)
					return nil
				}
				slog.Info("re-audited",
					"path", path,
					"audit_id", res.AuditID,
					"score", res.RiskScore(),
					"findings", res.TotalFindings(),
					"blocked", res.IsBlocked())
				return nil
			}
			wcfg.OnError = func(err error) {
				slog.Warn("watch", "err", err)
			}

			w, err := watch.New(wcfg)
			if err != nil {
				return &ExitError{Code: 2, Msg: "watcher: " + err.Error()}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := w.Start(ctx); err != nil {
				return &ExitError{Code: 2, Msg: "watcher: " + err.Error()}
			}
			slog.Info("watching", "dir", args[0])
			<-ctx.Done()
			return w.Stop()
		},
	}

	cmd.Flags().StringArrayVar(&rulesDirs, "rules-dir", nil, "additional rule pack directories")
	cmd.Flags().StringVar(&dbPath, "db", "", "history database path")

	return cmd
}
