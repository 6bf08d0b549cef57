package cli

import (
	"github.com/spf13/cobra"

	"github.com/awch-D/claude-skill-auditor/internal/reporting"
)

func newDiffCommand() *cobra.Command {
	var (
		baseID string
		headID string
		dbPath string
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare two stored audits of a skill",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRuntime()
			if err != nil {
				return &ExitError{Code: 2, Msg: "config: " + err.Error()}
			}
			if outDir == "" {
				outDir = cfg.Output.OutDir
			}

			db, err := openDB(cfg, dbPath)
			if err != nil {
				return &ExitError{Code: 2, Msg: "open database: " + err.Error()}
			}
			if db == nil {
				return &ExitError{Code: 2, Msg: "diff requires a history database (--db or config)"}
			}
			defer db.Close()

			base, err := db.LoadAudit(baseID)
			if err != nil {
				return &ExitError{Code: 2, Msg: "load base audit: " + err.Error()}
			}
			head, err := db.LoadAudit(headID)
			if err != nil {
				return &ExitError{Code: 2, Msg: "load head audit: " + err.Error()}
			}

			path, err := reporting.WriteDiffJSON(outDir, &base, &head)
			if err != nil {
				return &ExitError{Code: 2, Msg: "write diff: " + err.Error()}
			}

			d := reporting.Diff(&base, &head)
			cmd.Printf("diff %s..%s: %d new, %d resolved, %d changed (score %+d)\n",
				baseID, headID, d.Summary.NewCount, d.Summary.RemovedCount, d.Summary.ChangedCount, d.Summary.ScoreDelta)
			cmd.Println("diff written to", path)

			if d.Summary.NowBlocked {
				return &ExitError{Code: 1, Msg: "head audit is blocked and base was not"}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&baseID, "base", "", "base audit ID")
	cmd.Flags().StringVar(&headID, "head", "", "head audit ID")
	cmd.Flags().StringVar(&dbPath, "db", "", "history database path")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "directory for the diff file")
	_ = cmd.MarkFlagRequired("base")
	_ = cmd.MarkFlagRequired("head")

	return cmd
}
