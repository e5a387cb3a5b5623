package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ideagauge/internal/pipeline"
	"ideagauge/internal/types"
)

var (
	validateOneLiner string
	validateAudience string
	validateProblem  string
	validateNoWait   bool
)

var validateCmd = &cobra.Command{
	Use:   "validate [description]",
	Short: "Start a market validation run for a business idea",
	Long: `Starts the research pipeline for one idea. The refined idea fields
(--one-liner, --audience, --problem) are required; research cannot start
without them.

By default the command waits for the run and prints the report when it
finishes. With --no-wait it prints the run id immediately; use
"ideagauge status <id>" to poll it.

Example:
  ideagauge validate "invoicing for freelance plumbers" \
    --one-liner "Invoicing built for trade freelancers" \
    --audience "freelance plumbers" \
    --problem "generic invoicing tools ignore job-site workflows"`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateOneLiner, "one-liner", "", "One-sentence idea summary (required)")
	validateCmd.Flags().StringVar(&validateAudience, "audience", "", "Target audience (required)")
	validateCmd.Flags().StringVar(&validateProblem, "problem", "", "Problem the idea solves (required)")
	validateCmd.Flags().BoolVar(&validateNoWait, "no-wait", false, "Return the run id without waiting for the result")
	_ = validateCmd.MarkFlagRequired("one-liner")
	_ = validateCmd.MarkFlagRequired("audience")
	_ = validateCmd.MarkFlagRequired("problem")
}

func runValidate(cmd *cobra.Command, args []string) error {
	mgr, st, err := newManager(cmd.Context())
	if err != nil {
		return err
	}

	description := strings.Join(args, " ")
	if description == "" {
		description = validateOneLiner
	}

	id, err := mgr.Start(pipeline.Trigger{
		IdeaDescription: description,
		RefinedIdea: &types.RefinedIdea{
			OneLiner:       validateOneLiner,
			TargetAudience: validateAudience,
			Problem:        validateProblem,
		},
	})
	if err != nil {
		return err
	}

	fmt.Printf("Validation started: %s\n", id)
	if validateNoWait {
		// The run dies with the process; --no-wait is only useful when
		// another ideagauge process shares the data directory.
		mgr.Wait()
		return nil
	}

	lastStep := ""
	for {
		p, perr := mgr.Progress(id)
		if perr != nil {
			return perr
		}
		if p.CurrentStep != "" && p.CurrentStep != lastStep {
			lastStep = p.CurrentStep
			eta := ""
			if p.EstimatedTimeRemaining != "" {
				eta = fmt.Sprintf(" (about %s left)", p.EstimatedTimeRemaining)
			}
			fmt.Printf("  %3d%%  %s%s\n", p.Progress, p.CurrentStep, eta)
		}
		if p.Status.Terminal() {
			break
		}
		time.Sleep(2 * time.Second)
	}
	mgr.Wait()

	rec, err := st.LoadValidation(id)
	if err != nil {
		return err
	}
	if rec.Status == types.StatusFailed {
		return fmt.Errorf("validation failed: %s", rec.ErrorMessage)
	}

	fmt.Println()
	printReport(rec)
	return nil
}
