package others

import "github.com/spf13/cobra"

// Actions organizes the retention-core and system subcommands.
type Actions interface {
	Run(cmd *cobra.Command, args []string) error
	Version(cmd *cobra.Command, args []string) error
}

// Commands builds the system command set.
func Commands(h Actions) []*cobra.Command {
	return []*cobra.Command{
		{
			Use:   "run",
			Short: "Run the retention coordinator until interrupted",
			RunE:  h.Run,
		},
		{
			Use:   "version",
			Short: "Show version, git revision, and build timestamp",
			RunE:  h.Version,
		},
	}
}
