package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/awch-D/claude-skill-auditor/internal/audit"
	"github.com/awch-D/claude-skill-auditor/internal/parser"
	"github.com/awch-D/claude-skill-auditor/internal/reporting"
	"github.com/awch-D/claude-skill-auditor/internal/rules"
	"github.com/awch-D/claude-skill-auditor/internal/shared"
	"github.com/awch-D/claude-skill-auditor/internal/storage"
)

func newAuditCommand() *cobra.Command {
	var (
		outDir      string
		format      string
		minSeverity string
		failOn      string
		rulesDirs   []string
		dbPath      string
		noSave      bool
		toStdout    bool
	)

	cmd := &cobra.Command{
		Use:   "audit <skill-file>",
		Short: "Audit a single skill file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRuntime()
			if err != nil {
				return &ExitError{Code: 2, Msg: "config: " + err.Error()}
			}
			if format == "" {
				format = cfg.Output.DefaultFormat
			}
			if outDir == "" {
				outDir = cfg.Output.OutDir
			}
			if minSeverity == "" {
				minSeverity = cfg.CI.MinSeverity
			}
			if failOn == "" {
				failOn = cfg.CI.FailOn
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

			res, err := runAudit(cfg, engine, db, args[0], !noSave)
			if err != nil {
				return &ExitError{Code: 2, Msg: err.Error()}
			}
			if res == nil {
				// whitelisted
				return nil
			}

			min, err := audit.ParseSeverity(minSeverity)
			if err != nil {
				return &ExitError{Code: 2, Msg: "invalid min severity: " + minSeverity}
			}
			printSummary(cmd, res, min)

			if toStdout {
				rep, err := reporting.ForFormat(format)
				if err != nil {
					return &ExitError{Code: 2, Msg: err.Error()}
				}
				out, err := rep.Generate(res)
				if err != nil {
					return &ExitError{Code: 2, Msg: "generate report: " + err.Error()}
				}
				cmd.Println(out)
			} else {
				rep, err := reporting.ForFormat(format)
				if err != nil {
					return &ExitError{Code: 2, Msg: err.Error()}
				}
				base := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
				path, err := reporting.WriteReport(rep, res, outDir, base)
				if err != nil {
					return &ExitError{Code: 2, Msg: "write report: " + err.Error()}
				}
				cmd.Println("report written to", path)
			}

			return checkPolicy(cfg, res, failOn)
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "directory for generated reports")
	cmd.Flags().StringVarP(&format, "format", "f", "", "report format (json, markdown, sarif)")
	cmd.Flags().StringVarP(&minSeverity, "min-severity", "s", "", "lowest severity to display")
	cmd.Flags().StringVar(&failOn, "fail-on", "", "severity that fails the audit (critical, high, medium, low, none)")
	cmd.Flags().StringArrayVar(&rulesDirs, "rules-dir", nil, "additional rule pack directories")
	cmd.Flags().StringVar(&dbPath, "db", "", "history database path")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not persist the audit")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "print the report instead of writing a file")

	return cmd
}

// runAudit parses and analyzes one skill file. A nil result with nil
// error means the file hash is whitelisted and analysis was skipped.
func runAudit(cfg shared.Config, engine *rules.Engine, db *storage.DB, path string, save bool) (*audit.Result, error) {
	sk, err := parser.ParseFile(path)
	if err != nil {
		return nil, err
	}
	if cfg.IsApprovedHash(sk.FileHash) {
		slog.Info("skill hash approved, skipping analysis", "path", path, "hash", sk.FileHash)
		return nil, nil
	}
	for _, warn := range parser.Validate(sk) {
		slog.Warn("skill validation", "path", path, "warning", warn)
	}

	findings := engine.Analyze(sk)
	if db != nil {
		waivers, err := db.ListWaivers(true)
		if err != nil {
			slog.Warn("list waivers", "err", err)
		} else if len(waivers) > 0 {
			var waived int
			findings, waived = rules.ApplyWaivers(findings, sk.Metadata.Name, waivers)
			if waived > 0 {
				slog.Info("findings waived", "count", waived)
			}
		}
	}

	res := audit.NewResult(sk, findings)
	if db != nil && save {
		if err := db.SaveAudit(res); err != nil {
			slog.Warn("save audit", "id", res.AuditID, "err", err)
		}
	}
	return res, nil
}

func printSummary(cmd *cobra.Command, res *audit.Result, min audit.Severity) {
	cmd.Printf("audit %s  skill=%q  score=%d/100  findings=%d  blocked=%v\n",
		res.AuditID, res.Skill.Metadata.Name, res.RiskScore(), res.TotalFindings(), res.IsBlocked())

	shown := res.FilterByMinSeverity(min)
	sort.SliceStable(shown, func(i, j int) bool {
		return shown[i].Severity.Rank() < shown[j].Severity.Rank()
	})
	for _, f := range shown {
		loc := ""
		if f.LineNumber > 0 {
			loc = fmt.Sprintf(" (line %d)", f.LineNumber)
		}
		cmd.Printf("  [%s] %s: %s%s\n", strings.ToUpper(string(f.Severity)), f.RuleID, f.Title, loc)
		if f.Evidence != "" {
			cmd.Printf("      %s\n", f.Evidence)
		}
	}
	if hidden := res.TotalFindings() - len(shown); hidden > 0 {
		cmd.Printf("  (%d finding(s) below %s hidden)\n", hidden, min)
	}
}

// checkPolicy applies the CI gate and returns an ExitError when the
// audit should fail the build.
func checkPolicy(cfg shared.Config, res *audit.Result, failOn string) error {
	if res.IsBlocked() {
		return &ExitError{Code: 1, Msg: "audit blocked: critical or high severity findings present"}
	}
	if cfg.CI.MaxRiskScore > 0 && res.RiskScore() > cfg.CI.MaxRiskScore {
		return &ExitError{Code: 1, Msg: fmt.Sprintf("risk score %d exceeds limit %d", res.RiskScore(), cfg.CI.MaxRiskScore)}
	}
	if failOn == "" || strings.EqualFold(failOn, "none") {
		return nil
	}
	threshold, err := audit.ParseSeverity(failOn)
	if err != nil {
		return &ExitError{Code: 2, Msg: "invalid fail-on severity: " + failOn}
	}
	if n := res.CountAtOrAbove(threshold); n > 0 {
		return &ExitError{Code: 1, Msg: fmt.Sprintf("%d finding(s) at or above %s", n, threshold)}
	}
	return nil
}
