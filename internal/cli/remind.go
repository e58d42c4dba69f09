package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"taskboss/internal/reminder"
	"taskboss/internal/service"
)

var (
	remindKind   string
	remindSlot   int
	remindUser   uint
	remindDryRun bool
)

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Build one reminder run and send it now",
	Long: `Builds the reminder messages for one run from the stored tasks and settings.
Without --dry-run every message is sent through the WhatsApp gateway.`,
	RunE: runRemind,
}

func init() {
	remindCmd.Flags().StringVar(&remindKind, "kind", string(reminder.KindDaily), "reminder kind: daily or advance")
	remindCmd.Flags().IntVar(&remindSlot, "slot", 1, "daily reminder number (1-based)")
	remindCmd.Flags().UintVar(&remindUser, "user", 0, "user id (default: the owner)")
	remindCmd.Flags().BoolVar(&remindDryRun, "dry-run", false, "print the messages without sending")
}

func runRemind(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	userID := remindUser
	if userID == 0 {
		userID = a.owner.ID
	}
	kind := reminder.Kind(remindKind)
	out := cmd.OutOrStdout()

	if remindDryRun {
		plan, err := a.reminders.Plan(ctx, userID, kind, remindSlot, a.clock())
		if err != nil {
			return err
		}
		printPlan(out, plan)
		return nil
	}

	dispatch, err := a.reminders.Dispatch(ctx, userID, kind, remindSlot, a.clock())
	if err != nil {
		return err
	}
	printDispatch(out, dispatch)
	if dispatch.Failed > 0 {
		return fmt.Errorf("%d of %d messages failed", dispatch.Failed, len(dispatch.Results))
	}
	return nil
}

func printPlan(w io.Writer, plan reminder.Plan) {
	fmt.Fprintf(w, "%d message(s) for %d task(s)\n", len(plan.Jobs), plan.TaskCount)
	for _, job := range plan.Jobs {
		fmt.Fprintf(w, "\n--- %s %s (%s)\n%s\n", job.TargetType, job.Recipient, job.Target, job.Message)
	}
	printSkips(w, plan.Skips)
}

func printDispatch(w io.Writer, d *service.Dispatch) {
	fmt.Fprintf(w, "sent %d, failed %d\n", d.Sent, d.Failed)
	for _, res := range d.Results {
		if res.Sent {
			fmt.Fprintf(w, "  ok    %s %s (%d tasks)\n", res.Job.TargetType, res.Job.Recipient, res.Job.TaskCount)
		} else {
			fmt.Fprintf(w, "  FAIL  %s %s: %s\n", res.Job.TargetType, res.Job.Recipient, res.Error)
		}
	}
	printSkips(w, d.Plan.Skips)
}

func printSkips(w io.Writer, skips []reminder.Skip) {
	for _, skip := range skips {
		fmt.Fprintf(w, "  skip  %s %s: %s\n", skip.TargetType, skip.Name, skip.Reason)
	}
}
