package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd *cobra.Command

func init() {
	rootCmd = &cobra.Command{
		Use:   "taskboss",
		Short: "TaskBoss - task board with WhatsApp reminders",
		Long: `TaskBoss keeps a task board and reminds the people in charge of each task
over WhatsApp: daily status reminders at fixed times and advance reminders
for deadlines coming up.`,
		RunE:          runServe,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// Execute runs the root command
func Execute(version string) error {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(remindCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
