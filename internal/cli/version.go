package cli

import (
	"github.com/spf13/cobra"

	"github.com/awch-D/claude-skill-auditor/internal/audit"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the auditor version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("skill-auditor", audit.AuditorVersion)
		},
	}
}
