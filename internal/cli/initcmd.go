package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/awch-D/claude-skill-auditor/internal/shared"
)

const configTemplate = `# skill-auditor configuration
rules:
  builtin_enabled: true
  custom_dirs: []
  disabled: []
  severity_overrides: {}

output:
  default_format: markdown
  out_dir: ./reports

ci:
  fail_on: high
  min_severity: low
  max_risk_score: 0

whitelist:
  approved_hashes: []

database:
  dsn: ""

server:
  addr: 127.0.0.1:8780
  session_ttl: 12h
  allowed_origins: []

logging:
  format: text
  level: info
`

func newInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgPath
			if path == "" {
				path = shared.DefaultConfigFile
			}
			if !force {
				if _, err := os.Stat(path); err == nil {
					return &ExitError{Code: 2, Msg: path + " already exists (use --force to overwrite)"}
				}
			}
			if err := os.WriteFile(path, []byte(configTemplate), 0o644); err != nil {
				return &ExitError{Code: 2, Msg: "write config: " + err.Error()}
			}
			cmd.Println("wrote", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}
