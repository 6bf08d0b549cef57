// Package cli wires the auditor's commands together.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/awch-D/claude-skill-auditor/internal/audit"
	"github.com/awch-D/claude-skill-auditor/internal/rules"
	"github.com/awch-D/claude-skill-auditor/internal/shared"
	"github.com/awch-D/claude-skill-auditor/internal/storage"
)

var (
	cfgPath string
	verbose bool
)

// ExitError carries a process exit code through cobra's error path.
// Code 1 means the audit failed policy; code 2 means the tool itself failed.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string { return e.Msg }

// NewRootCommand creates and returns the root cobra command.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skill-auditor",
		Short: "Static security auditor for Claude skill files",
		Long: `skill-auditor inspects Claude skill documents (YAML frontmatter plus a
Markdown body) for prompt injection, dangerous tool grants, command
injection, data exfiltration and related risks. It never executes any
skill content.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to configuration file")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newAuditCommand())
	cmd.AddCommand(newScanCommand())
	cmd.AddCommand(newDiffCommand())
	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newWatchCommand())
	cmd.AddCommand(newInitCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// Execute runs the CLI and maps errors to exit codes.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		var ee *ExitError
		if errors.As(err, &ee) {
			if ee.Msg != "" {
				fmt.Fprintln(os.Stderr, ee.Msg)
			}
			os.Exit(ee.Code)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
}

// loadRuntime resolves configuration and sets up logging.
func loadRuntime() (shared.Config, error) {
	cfg, err := shared.LoadConfig(cfgPath)
	if err != nil {
		return cfg, err
	}
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	shared.InitLogger(cfg.Logging.Format, level)
	return cfg, nil
}

// buildEngine assembles the rule engine from builtin packs, configured
// rule directories and config-level rule adjustments.
func buildEngine(cfg shared.Config, extraDirs []string) (*rules.Engine, error) {
	e := rules.NewEngine()
	if cfg.BuiltinEnabled() {
		if _, err := rules.LoadBuiltin(e); err != nil {
			return nil, fmt.Errorf("load builtin rules: %w", err)
		}
	}
	for _, dir := range append(append([]string{}, cfg.Rules.CustomDirs...), extraDirs...) {
		if _, err := rules.LoadDirectory(e, dir); err != nil {
			return nil, fmt.Errorf("load rules from %s: %w", dir, err)
		}
	}
	for _, id := range cfg.Rules.Disabled {
		e.DisableRule(id)
	}
	for id, sevName := range cfg.Rules.SeverityOverrides {
		sev, err := audit.ParseSeverity(sevName)
		if err != nil {
			return nil, fmt.Errorf("severity override for %s: %w", id, err)
		}
		e.OverrideSeverity(id, sev)
	}
	return e, nil
}

// openDB opens the history database, or returns nil when persistence is
// disabled. An explicit --db flag overrides the configured DSN.
func openDB(cfg shared.Config, dbOverride string) (*storage.DB, error) {
	dsn := cfg.Database.DSN
	if dbOverride != "" {
		dsn = dbOverride
	}
	if dsn == "" {
		return nil, nil
	}
	db, err := storage.OpenSQLite(dsn)
	if err != nil {
		return nil, err
	}
	if err := db.CreateSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
