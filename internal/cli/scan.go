package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func newScanCommand() *cobra.Command {
	var (
		recursive bool
		rulesDirs []string
		dbPath    string
		failOn    string
		noSave    bool
	)

	cmd := &cobra.Command{
		Use:   "scan <dir>",
		Short: "Audit every skill file under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRuntime()
			if err != nil {
				return &ExitError{Code: 2, Msg: "config: " + err.Error()}
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

			files, err := collectSkillFiles(args[0], recursive)
			if err != nil {
				return &ExitError{Code: 2, Msg: err.Error()}
			}
			if len(files) == 0 {
				cmd.Println("no skill files found")
				return nil
			}

			var (
				failed   []string
				skipped  int
				parseErr int
			)
			for _, path := range files {
				res, err := runAudit(cfg, engine, db, path, !noSave)
				if err != nil {
					cmd.Printf("%-50s parse error: %v\n", path, err)
					parseErr++
					continue
				}
				if res == nil {
					cmd.Printf("%-50s approved (whitelisted)\n", path)
					skipped++
					continue
				}
				status := "ok"
				if res.IsBlocked() {
					status = "BLOCKED"
				}
				cmd.Printf("%-50s score=%3d findings=%2d %s\n", path, res.RiskScore(), res.TotalFindings(), status)
				if checkPolicy(cfg, res, failOn) != nil {
					failed = append(failed, path)
				}
			}

			cmd.Printf("\nscanned %d file(s): %d failed, %d whitelisted, %d unparseable\n",
				len(files), len(failed), skipped, parseErr)
			if parseErr > 0 {
				return &ExitError{Code: 2, Msg: fmt.Sprintf("%d file(s) could not be parsed", parseErr)}
			}
			if len(failed) > 0 {
				return &ExitError{Code: 1, Msg: "failing skills: " + strings.Join(failed, ", ")}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "descend into subdirectories")
	cmd.Flags().StringArrayVar(&rulesDirs, "rules-dir", nil, "additional rule pack directories")
	cmd.Flags().StringVar(&dbPath, "db", "", "history database path")
	cmd.Flags().StringVar(&failOn, "fail-on", "", "severity that fails the scan")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not persist the audits")

	return cmd
}

func collectSkillFiles(root string, recursive bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	if recursive {
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isMarkdown(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !e.IsDir() && isMarkdown(e.Name()) {
				files = append(files, filepath.Join(root, e.Name()))
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func isMarkdown(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".markdown"
}
