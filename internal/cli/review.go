package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/planweave/planweave/internal/plan"
	"github.com/planweave/planweave/internal/store"
	"github.com/planweave/planweave/internal/tui"
)

var (
	reviewOut          string
	reviewWorkspaceDir string
)

var reviewCmd = &cobra.Command{
	Use:   "review [request]",
	Short: "Generate a plan and review it interactively",
	Long:  `Generates an execution plan for the request and opens the review screen. Approve, skip, or fail each step; once every step is reviewed, finalize to write the handoff document.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runReview,
}

func init() {
	reviewCmd.Flags().StringVar(&reviewOut, "out", "final-plan.md", "where to write the finalized plan")
	reviewCmd.Flags().StringVar(&reviewWorkspaceDir, "workspace", "", "workspace directory to use as context")
}

func runReview(cmd *cobra.Command, args []string) error {
	gc, err := setupGeneration(cmd.Context(), reviewWorkspaceDir)
	if err != nil {
		return err
	}

	parsed, err := gc.gen.GeneratePlan(cmd.Context(), defaultSessionID, args[0], gc.files)
	if err != nil {
		return err
	}

	st := store.New(gc.cfg.ReviewPolicy(), store.NewCache())
	planID, err := st.CreatePlan(parsed)
	if err != nil {
		return err
	}

	if err := tui.Run(st); err != nil {
		return err
	}

	final, err := st.Plan(planID)
	if err != nil {
		return err
	}
	if final.Status != plan.PlanStatusFinalized {
		fmt.Fprintln(cmd.OutOrStdout(), "plan not finalized; nothing written")
		return nil
	}

	markdown := plan.RenderFinal(final, gc.cfg.ReviewPolicy())
	if err := os.WriteFile(reviewOut, []byte(markdown), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", reviewOut, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "finalized plan written to %s\n", reviewOut)
	return nil
}
