package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideagauge/internal/config"
	"ideagauge/internal/types"
)

func TestRootCommandWiring(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	assert.True(t, names["validate"])
	assert.True(t, names["status"])
	assert.True(t, names["report"])
}

func TestValidateRequiredFlags(t *testing.T) {
	for _, flag := range []string{"one-liner", "audience", "problem"} {
		f := validateCmd.Flags().Lookup(flag)
		require.NotNil(t, f, flag)
	}
}

func TestNewProviderRejectsMissingKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg = config.DefaultConfig()
	_, err := newProvider(context.Background())
	assert.Error(t, err)
}

func TestPrintReportHandlesSparseRecord(t *testing.T) {
	// Records from older runs may lack narrative or research payloads.
	printReport(&types.ValidationRecord{
		ID:     "r",
		Idea:   types.Idea{Description: "d"},
		Status: types.StatusCompleted,
		FinalScore: &types.ScoreResult{
			Overall: types.OverallScore{Score: 61, Grade: "C", Confidence: 40},
		},
	})
}
