package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/personarag/pkg/types"
)

var (
	contextNamespace  string
	contextFresh      bool
	contextInvalidate bool
)

var contextCmd = &cobra.Command{
	Use:   "context <user-id>",
	Short: "Show a user's personalization context",
	Long: `Load the user's profile, progress and recent activity and print the
derived context block used for prompt construction.

Examples:
  personarag context u-123 --namespace mindset
  personarag context u-123 --fresh
  personarag context u-123 --invalidate`,
	Args: cobra.ExactArgs(1),
	RunE: runContext,
}

var (
	recordNamespace string
	recordPractice  string
	recordDuration  int
	recordScore     int
	recordPoints    int
	recordNotes     string
	recordAt        string
)

var recordCmd = &cobra.Command{
	Use:   "record <user-id>",
	Short: "Record a completed practice for a user",
	Long: `Record a completed practice, roll the user's streak and points forward,
and drop their cached contexts.

Examples:
  personarag record u-123 --practice breathing --score 7 --points 10
  personarag record u-123 --practice journaling --at 2026-05-19T08:00:00Z`,
	Args: cobra.ExactArgs(1),
	RunE: runRecord,
}

func init() {
	contextCmd.Flags().StringVarP(&contextNamespace, "namespace", "n", string(types.NamespaceMindset), "namespace the context is for")
	contextCmd.Flags().BoolVar(&contextFresh, "fresh", false, "bypass the cache")
	contextCmd.Flags().BoolVar(&contextInvalidate, "invalidate", false, "drop the cached contexts instead of loading")

	recordCmd.Flags().StringVarP(&recordNamespace, "namespace", "n", "", "namespace the practice belongs to")
	recordCmd.Flags().StringVarP(&recordPractice, "practice", "p", "", "practice type")
	recordCmd.Flags().IntVar(&recordDuration, "duration", 0, "duration in minutes")
	recordCmd.Flags().IntVar(&recordScore, "score", 0, "self-reported score, 1-10 (0 for none)")
	recordCmd.Flags().IntVar(&recordPoints, "points", 0, "points awarded")
	recordCmd.Flags().StringVar(&recordNotes, "notes", "", "free-form notes")
	recordCmd.Flags().StringVar(&recordAt, "at", "", "completion time, RFC 3339 (default: now)")
}

func runContext(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if contextInvalidate {
		removed := engine.Loader.Invalidate(cmd.Context(), args[0])
		fmt.Fprintf(out, "Removed %d cached contexts for %s\n", removed, args[0])
		return nil
	}

	ns, err := types.ParseNamespace(contextNamespace)
	if err != nil {
		return err
	}
	uc, err := engine.Loader.Load(cmd.Context(), args[0], ns, !contextFresh)
	if err != nil {
		return fmt.Errorf("load context: %w", err)
	}

	if jsonOut {
		return printJSON(out, uc)
	}
	fmt.Fprintln(out, uc.Render())
	return nil
}

func runRecord(cmd *cobra.Command, args []string) error {
	activity := &types.Activity{
		UserID:          args[0],
		Namespace:       types.Namespace(recordNamespace),
		PracticeType:    recordPractice,
		DurationMinutes: recordDuration,
		Notes:           recordNotes,
	}
	if recordScore != 0 {
		score := recordScore
		activity.Score = &score
	}
	if recordAt != "" {
		at, err := time.Parse(time.RFC3339, recordAt)
		if err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
		activity.CompletedAt = at
	}

	progress, err := engine.Recorder.RecordActivity(cmd.Context(), activity, recordPoints)
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, progress)
	}
	fmt.Fprintf(out, "Recorded. Streak: %d (longest %d) | Points: %d | Practices: %d\n",
		progress.CurrentStreak, progress.LongestStreak, progress.TotalPoints, progress.PracticesCompleted)
	return nil
}
