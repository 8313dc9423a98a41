package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

var (
	cleanupDryRun           bool
	cleanupThreshold        float64
	cleanupDecayLambda      float64
	cleanupCollection       string
	cleanupIncludeUntracked bool
	cleanupYes              bool
)

// isInteractive reports whether confirmation can be asked. Tests override it.
var isInteractive = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete composed documents whose relevance has decayed",
	Long: `Evaluate every composed document and delete those whose decayed relevance
is below the threshold. The effective score is

  relevance_score × e^(−decay_lambda × days since last access)

External documents are never deleted. Documents without access tracking are
skipped unless --include-untracked is given, in which case they count as
score 0.

On a terminal the command shows what it would delete and asks for
confirmation. Pass --yes to skip the prompt, for example from cron.`,
	Args:        cobra.NoArgs,
	Annotations: backendCommand(),
	RunE:        runCleanup,
}

func init() {
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Report without deleting")
	cleanupCmd.Flags().Float64Var(&cleanupThreshold, "threshold", domain.DefaultCleanupThreshold,
		"Delete documents whose effective score is below this")
	cleanupCmd.Flags().Float64Var(&cleanupDecayLambda, "decay-lambda", domain.DefaultDecayLambda, "Decay rate per day")
	cleanupCmd.Flags().StringVarP(&cleanupCollection, "collection", "c", "", "Limit to one collection (default all)")
	cleanupCmd.Flags().BoolVar(&cleanupIncludeUntracked, "include-untracked", false,
		"Treat documents without access tracking as score 0")
	cleanupCmd.Flags().BoolVarP(&cleanupYes, "yes", "y", false, "Delete without asking")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	if cleanupService == nil {
		return errors.New("cleanup service not configured")
	}

	opts := cleanupOptions(cmd)
	if !opts.DryRun && !cleanupYes {
		if !isInteractive() {
			return errors.New("refusing to delete without confirmation: pass --yes or --dry-run")
		}
		preview := opts
		preview.DryRun = true
		report, err := cleanupService.Run(cmd.Context(), preview)
		if err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}
		renderCleanupReport(cmd, report)

		n := report.Count(domain.ActionWouldDelete)
		if n == 0 {
			return nil
		}
		if !confirm(cmd, fmt.Sprintf("Delete %d document(s)?", n)) {
			cmd.Println("Aborted.")
			return nil
		}
		opts.Now = report.RanAt
	}

	report, err := cleanupService.Run(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	renderCleanupReport(cmd, report)

	if n := report.Count(domain.ActionFailed); n > 0 {
		return fmt.Errorf("%d document(s) could not be deleted", n)
	}
	return nil
}

// cleanupOptions merges flags over the configured defaults.
func cleanupOptions(cmd *cobra.Command) domain.CleanupOptions {
	st := currentSettings().Cleanup
	opts := domain.CleanupOptions{
		DryRun:          cleanupDryRun,
		Threshold:       st.Threshold,
		DecayLambda:     st.DecayLambda,
		Collection:      cleanupCollection,
		MissingTracking: st.Policy(),
	}
	if cmd.Flags().Changed("threshold") {
		opts.Threshold = cleanupThreshold
	}
	if cmd.Flags().Changed("decay-lambda") {
		opts.DecayLambda = cleanupDecayLambda
	}
	if cmd.Flags().Changed("include-untracked") {
		opts.MissingTracking = domain.MissingTrackingSkip
		if cleanupIncludeUntracked {
			opts.MissingTracking = domain.MissingTrackingZero
		}
	}
	return opts
}

func confirm(cmd *cobra.Command, question string) bool {
	cmd.Printf("%s [y/N] ", question)
	answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n') //nolint:errcheck // empty answer is no
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

var (
	reportTitle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	reportMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	reportDelete  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8"))
	reportKeep    = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1"))
	reportWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF"))
	reportBox     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#45475A")).
			Padding(0, 1)
)

func actionStyle(a domain.CleanupAction) lipgloss.Style {
	switch a {
	case domain.ActionDeleted, domain.ActionWouldDelete:
		return reportDelete
	case domain.ActionKept:
		return reportKeep
	case domain.ActionFailed:
		return reportWarning
	default:
		return reportMuted
	}
}

func renderCleanupReport(cmd *cobra.Command, r *domain.CleanupReport) {
	mode := "cleanup"
	if r.DryRun {
		mode = "cleanup (dry run)"
	}
	cmd.Println(reportTitle.Render(mode))
	cmd.Println(reportMuted.Render(fmt.Sprintf("threshold %.3g, decay λ %.4g, collections: %s",
		r.Threshold, r.DecayLambda, strings.Join(r.Collections, ", "))))
	cmd.Println()

	for i := range r.Entries {
		e := r.Entries[i]
		if e.Action == domain.ActionKept && !r.DryRun {
			continue
		}
		line := fmt.Sprintf("%-17s %-36s score %3d  %6.1f days  eff %.3f  %s",
			e.Action, e.DocumentID, e.RelevanceScore, e.DaysSinceAccess, e.EffectiveScore, e.Title)
		if e.Error != "" {
			line += "  (" + e.Error + ")"
		}
		cmd.Println(actionStyle(e.Action).Render(line))
	}

	totals := []string{
		fmt.Sprintf("deleted %d", r.Count(domain.ActionDeleted)),
		fmt.Sprintf("would delete %d", r.Count(domain.ActionWouldDelete)),
		fmt.Sprintf("kept %d", r.Count(domain.ActionKept)),
		fmt.Sprintf("skipped external %d", r.Count(domain.ActionSkippedExternal)),
		fmt.Sprintf("skipped untracked %d", r.Count(domain.ActionSkippedUntracked)),
		fmt.Sprintf("failed %d", r.Count(domain.ActionFailed)),
	}
	cmd.Println(reportBox.Render(strings.Join(totals, " · ")))
}
