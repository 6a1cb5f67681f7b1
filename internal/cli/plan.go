package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/planweave/planweave/internal/plan"
)

var (
	planAsJSON       bool
	planWorkspaceDir string
)

var planCmd = &cobra.Command{
	Use:   "plan [request]",
	Short: "Generate an execution plan for a request",
	Long:  `Generates a phased execution plan from a natural-language request and prints it. Use --workspace to ground the plan in existing code.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().BoolVar(&planAsJSON, "json", false, "print the plan as JSON")
	planCmd.Flags().StringVar(&planWorkspaceDir, "workspace", "", "workspace directory to use as context")
}

func runPlan(cmd *cobra.Command, args []string) error {
	query := args[0]
	gc, err := setupGeneration(cmd.Context(), planWorkspaceDir)
	if err != nil {
		return err
	}

	p, err := gc.gen.GeneratePlan(cmd.Context(), defaultSessionID, query, gc.files)
	if err != nil {
		return err
	}

	if planAsJSON {
		out, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), plan.FormatGrammar(p))
	return nil
}
