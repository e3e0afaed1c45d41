package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fieldpilot/fieldpilot/internal/scheduling/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	scheduleFilePath string
	outputJSON       bool

	resolveConflictIndex int
	resolveApplyIndex    int

	autoApply bool
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Detect, resolve, and analyze scheduling conflicts",
}

var conflictsDetectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect conflicts in a schedule",
	Long: `Scans a schedule for conflicts: overlapping bookings per installer,
daily capacity overruns, infeasible travel between consecutive jobs, and
bookings during declared absence.

Examples:
  fieldpilot conflicts detect --schedule week32.json
  fieldpilot conflicts detect --schedule week32.json --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil {
			return fmt.Errorf("application not initialized")
		}

		snapshot, err := loadScheduleFile(scheduleFilePath)
		if err != nil {
			return err
		}

		conflicts, err := app.Detector.Detect(cmd.Context(), snapshot)
		if err != nil {
			return err
		}

		if outputJSON {
			return json.NewEncoder(os.Stdout).Encode(conflicts)
		}

		printConflicts(snapshot, conflicts)
		return nil
	},
}

var conflictsResolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Propose resolutions for a detected conflict",
	Long: `Proposes ranked resolutions for one conflict found by detect.
Conflicts are addressed by their position in the detect output, which is
stable for a given schedule.

Examples:
  fieldpilot conflicts resolve --schedule week32.json --conflict 1
  fieldpilot conflicts resolve --schedule week32.json --conflict 1 --apply 1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil {
			return fmt.Errorf("application not initialized")
		}

		snapshot, err := loadScheduleFile(scheduleFilePath)
		if err != nil {
			return err
		}

		conflicts, err := app.Detector.Detect(cmd.Context(), snapshot)
		if err != nil {
			return err
		}
		if resolveConflictIndex < 1 || resolveConflictIndex > len(conflicts) {
			return fmt.Errorf("conflict %d not found, detect reported %d conflict(s)", resolveConflictIndex, len(conflicts))
		}
		conflict := conflicts[resolveConflictIndex-1]

		proposals, err := app.Engine.ProposeResolutions(cmd.Context(), conflict, snapshot)
		if err != nil {
			return err
		}
		if len(proposals) == 0 {
			fmt.Println("No safe resolutions found; manual rescheduling required.")
			return nil
		}

		if resolveApplyIndex == 0 {
			printProposals(snapshot, conflict, proposals)
			return nil
		}

		if resolveApplyIndex < 1 || resolveApplyIndex > len(proposals) {
			return fmt.Errorf("proposal %d not found, engine returned %d proposal(s)", resolveApplyIndex, len(proposals))
		}

		updated, record, err := app.Executor.ApplyResolution(cmd.Context(), conflict, proposals[resolveApplyIndex-1], snapshot, "cli")
		if err != nil {
			return err
		}
		if err := saveScheduleAssignments(scheduleFilePath, updated); err != nil {
			return err
		}

		fmt.Printf("Applied: %s\n", record.Resolution())
		fmt.Printf("Schedule written to %s (version %d)\n", scheduleFilePath, updated.Version())
		return nil
	},
}

var conflictsAutoCmd = &cobra.Command{
	Use:   "auto",
	Short: "Auto-resolve all safely resolvable conflicts",
	Long: `Runs detection and applies the best resolution for every conflict
marked auto-resolvable, skipping anything that needs human judgment.
Without --apply the run is a dry report.

Examples:
  fieldpilot conflicts auto --schedule week32.json
  fieldpilot conflicts auto --schedule week32.json --apply`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil {
			return fmt.Errorf("application not initialized")
		}

		snapshot, err := loadScheduleFile(scheduleFilePath)
		if err != nil {
			return err
		}

		conflicts, err := app.Detector.Detect(cmd.Context(), snapshot)
		if err != nil {
			return err
		}
		if len(conflicts) == 0 {
			fmt.Println("No conflicts detected.")
			return nil
		}

		report, err := app.Executor.AutoResolveAll(cmd.Context(), conflicts, snapshot)
		if err != nil {
			return err
		}

		fmt.Println()
		fmt.Printf("  AUTO-RESOLVE: %d conflict(s) found\n", len(conflicts))
		fmt.Println(strings.Repeat("=", 60))
		for _, record := range report.Resolved {
			fmt.Printf("  resolved  %-18s %s\n", record.ConflictType(), record.Resolution())
		}
		for _, skipped := range report.Skipped {
			fmt.Printf("  skipped   %-18s %s (%s)\n", skipped.Conflict.Type, skipped.Conflict.Description, skipped.Reason)
		}
		fmt.Println(strings.Repeat("-", 60))
		fmt.Printf("  %d resolved, %d skipped\n\n", len(report.Resolved), len(report.Skipped))

		if !autoApply || len(report.Resolved) == 0 {
			return nil
		}
		if err := saveScheduleAssignments(scheduleFilePath, report.Snapshot); err != nil {
			return err
		}
		fmt.Printf("Schedule written to %s (version %d)\n", scheduleFilePath, report.Snapshot.Version())
		return nil
	},
}

var conflictsAnalyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Summarize conflict patterns and resolution outcomes",
	Long: `Aggregates live conflicts in the schedule with locally recorded
resolution history into totals, success rate, per-type counts, and
prevention recommendations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil {
			return fmt.Errorf("application not initialized")
		}

		snapshot, err := loadScheduleFile(scheduleFilePath)
		if err != nil {
			return err
		}

		conflicts, err := app.Detector.Detect(cmd.Context(), snapshot)
		if err != nil {
			return err
		}

		var history []*domain.ConflictResolutionHistory
		if app.HistoryRepo != nil {
			history, err = app.HistoryRepo.FindByProject(cmd.Context(), snapshot.ProjectID())
			if err != nil {
				return err
			}
		}

		analytics := app.Analytics.Summarize(conflicts, history)

		if outputJSON {
			return json.NewEncoder(os.Stdout).Encode(analytics)
		}

		fmt.Println()
		fmt.Println("  CONFLICT ANALYTICS")
		fmt.Println(strings.Repeat("=", 60))
		fmt.Printf("  total conflicts:    %d\n", analytics.TotalConflicts)
		fmt.Printf("  resolved:           %d\n", analytics.ResolvedCount)
		fmt.Printf("  success rate:       %.1f%%\n", analytics.ResolutionSuccessRate)
		fmt.Printf("  avg time to resolve: %s\n", analytics.AverageResolutionTime.Round(time.Second))
		fmt.Println()
		for conflictType, count := range analytics.ConflictsByType {
			fmt.Printf("  %-20s %d\n", conflictType, count)
		}
		if len(analytics.PreventionRecommendations) > 0 {
			fmt.Println()
			fmt.Println("  Recommendations:")
			for _, rec := range analytics.PreventionRecommendations {
				fmt.Printf("  - %s\n", rec.Message)
			}
		}
		fmt.Println()
		return nil
	},
}

func printConflicts(snapshot *domain.Snapshot, conflicts []domain.SchedulingConflict) {
	if len(conflicts) == 0 {
		fmt.Println("No conflicts detected.")
		return
	}

	fmt.Println()
	fmt.Printf("  %d CONFLICT(S) DETECTED\n", len(conflicts))
	fmt.Println(strings.Repeat("=", 60))
	for i, c := range conflicts {
		auto := ""
		if c.AutoResolvable {
			auto = " [auto-resolvable]"
		}
		fmt.Printf("  %d. %-9s %-18s%s\n", i+1, strings.ToUpper(string(c.Severity)), c.Type, auto)
		fmt.Printf("     %s\n", c.Description)
		fmt.Printf("     members: %s\n", memberNames(snapshot, c.AffectedTeamMembers))
		if c.SuggestedResolution != "" {
			fmt.Printf("     suggestion: %s\n", c.SuggestedResolution)
		}
	}
	fmt.Println()
}

func printProposals(snapshot *domain.Snapshot, conflict domain.SchedulingConflict, proposals []domain.ConflictResolution) {
	fmt.Println()
	fmt.Printf("  RESOLUTIONS FOR: %s\n", conflict.Description)
	fmt.Println(strings.Repeat("=", 60))
	for i, p := range proposals {
		fmt.Printf("  %d. [%s] %s (disruption %.1f)\n", i+1, p.Action, p.Description, p.DisruptionScore)
	}
	fmt.Println()
	fmt.Println("  Apply one with --apply <n>")
	fmt.Println()
}

func memberNames(snapshot *domain.Snapshot, ids []uuid.UUID) string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if m := snapshot.TeamMember(id); m != nil {
			names = append(names, m.Name())
			continue
		}
		names = append(names, id.String())
	}
	return strings.Join(names, ", ")
}

func init() {
	conflictsCmd.PersistentFlags().StringVarP(&scheduleFilePath, "schedule", "s", "", "schedule JSON file (required)")
	_ = conflictsCmd.MarkPersistentFlagRequired("schedule")
	conflictsCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "emit JSON instead of text")

	conflictsResolveCmd.Flags().IntVar(&resolveConflictIndex, "conflict", 0, "conflict number from detect output (required)")
	_ = conflictsResolveCmd.MarkFlagRequired("conflict")
	conflictsResolveCmd.Flags().IntVar(&resolveApplyIndex, "apply", 0, "apply the given proposal number")

	conflictsAutoCmd.Flags().BoolVar(&autoApply, "apply", false, "write resolutions back to the schedule file")

	conflictsCmd.AddCommand(conflictsDetectCmd)
	conflictsCmd.AddCommand(conflictsResolveCmd)
	conflictsCmd.AddCommand(conflictsAutoCmd)
	conflictsCmd.AddCommand(conflictsAnalyticsCmd)
	rootCmd.AddCommand(conflictsCmd)
}
