package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ideagauge/internal/store"
	"ideagauge/internal/types"
)

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show progress for a validation run",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	st, err := store.New(cfg.Store.DataDir, store.WithLogger(logger))
	if err != nil {
		return err
	}

	rec, err := st.LoadValidation(args[0])
	if err != nil {
		return err
	}
	p := types.ProgressOf(rec, time.Now().UTC())

	fmt.Printf("Run:      %s\n", rec.ID)
	fmt.Printf("Status:   %s\n", p.Status)
	fmt.Printf("Progress: %d%%\n", p.Progress)
	if p.CurrentStep != "" {
		fmt.Printf("Step:     %s\n", p.CurrentStep)
	}
	if p.EstimatedTimeRemaining != "" {
		fmt.Printf("ETA:      %s\n", p.EstimatedTimeRemaining)
	}
	if p.ErrorMessage != "" {
		fmt.Printf("Error:    %s\n", p.ErrorMessage)
	}

	fmt.Println()
	for _, step := range rec.ProcessingSteps {
		mark := " "
		switch step.Status {
		case types.StepCompleted:
			mark = "x"
		case types.StepProcessing:
			mark = ">"
		case types.StepFailed:
			mark = "!"
		}
		fmt.Printf("  [%s] %s\n", mark, step.Title)
	}
	return nil
}
