package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ideagauge/internal/store"
	"ideagauge/internal/types"
)

var reportCmd = &cobra.Command{
	Use:   "report [run-id]",
	Short: "Print the full report for a completed validation run",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	st, err := store.New(cfg.Store.DataDir, store.WithLogger(logger))
	if err != nil {
		return err
	}

	rec, err := st.LoadValidation(args[0])
	if err != nil {
		return err
	}
	if rec.Status != types.StatusCompleted {
		return fmt.Errorf("run %s is %s; report requires a completed run", rec.ID, rec.Status)
	}

	printReport(rec)
	return nil
}

func printReport(rec *types.ValidationRecord) {
	fmt.Printf("=== Validation report: %s ===\n", rec.Idea.Description)
	fmt.Println()

	if score := rec.FinalScore; score != nil {
		fmt.Printf("Overall: %d/100 (grade %s, confidence %d%%)\n",
			score.Overall.Score, score.Overall.Grade, score.Overall.Confidence)
		fmt.Printf("  Market demand: %d/100\n", score.MarketDemand.Score)
		printDetails(score.MarketDemand.Details, []string{"mentionVolume", "frustration", "severity", "engagement"})
		fmt.Printf("  Competition:   %d/100\n", score.Competition.Score)
		printDetails(score.Competition.Details, []string{"competitorMentions", "userComplaints", "opportunityGaps"})
		fmt.Println()
	}

	if n := rec.Narrative; n != nil {
		fmt.Println(n.Summary)
		fmt.Println()
		if len(n.Strengths) > 0 {
			fmt.Println("Strengths:")
			for _, s := range n.Strengths {
				fmt.Printf("  + %s\n", s)
			}
		}
		if len(n.Risks) > 0 {
			fmt.Println("Risks:")
			for _, r := range n.Risks {
				fmt.Printf("  - %s\n", r)
			}
		}
		if n.Recommendation != "" {
			fmt.Printf("\nRecommendation: %s\n", n.Recommendation)
		}
		fmt.Println()
	}

	if c := rec.CompetitorData; c != nil && len(c.Competitors) > 0 {
		names := make([]string, 0, len(c.Competitors))
		for _, comp := range c.Competitors {
			names = append(names, comp.Name)
		}
		fmt.Printf("Competitors: %s\n", strings.Join(names, ", "))
	}
	if m := rec.MarketSizeData; m != nil {
		fmt.Printf("Market size: TAM %s / SAM %s / SOM %s (growth %s)\n",
			m.TAM, m.SAM, m.SOM, m.GrowthRate)
	}
}

func printDetails(details map[string]int, order []string) {
	for _, key := range order {
		if v, ok := details[key]; ok {
			fmt.Printf("      %-18s %d\n", key, v)
		}
	}
}
