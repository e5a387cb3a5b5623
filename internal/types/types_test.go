package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunStatusTerminal(t *testing.T) {
	tests := []struct {
		status RunStatus
		want   bool
	}{
		{StatusPending, false},
		{StatusProcessing, false},
		{StatusCompleted, true},
		{StatusFailed, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.Terminal(), "status %s", tt.status)
	}
}

func TestRefinedIdeaComplete(t *testing.T) {
	tests := []struct {
		name string
		idea *RefinedIdea
		want bool
	}{
		{"nil", nil, false},
		{"all present", &RefinedIdea{OneLiner: "a", TargetAudience: "b", Problem: "c"}, true},
		{"missing one-liner", &RefinedIdea{TargetAudience: "b", Problem: "c"}, false},
		{"missing audience", &RefinedIdea{OneLiner: "a", Problem: "c"}, false},
		{"missing problem", &RefinedIdea{OneLiner: "a", TargetAudience: "b"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.idea.Complete())
		})
	}
}

func TestAnalyzedContentAggregates(t *testing.T) {
	content := &AnalyzedContent{
		Quotes: []EvidenceQuote{
			{Community: "r/smallbusiness", Sentiment: SentimentFrustrated},
			{Community: "r/smallbusiness", Sentiment: SentimentNeutral},
			{Community: "r/startups", Sentiment: SentimentFrustrated},
			{Community: "", Sentiment: SentimentSatisfied},
		},
	}
	assert.Equal(t, 2, content.FrustratedCount())
	assert.Equal(t, []string{"r/smallbusiness", "r/startups"}, content.Communities())
}

func TestProgressOf(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("processing run estimates remaining time", func(t *testing.T) {
		rec := &ValidationRecord{
			Status:      StatusProcessing,
			Progress:    25,
			CurrentStep: "Searching discussions",
			CreatedAt:   created,
		}
		p := ProgressOf(rec, created.Add(30*time.Second))
		assert.Equal(t, StatusProcessing, p.Status)
		assert.Equal(t, 25, p.Progress)
		// 30s for 25% -> 90s remain
		assert.Equal(t, "1m30s", p.EstimatedTimeRemaining)
	})

	t.Run("terminal run carries error and completion", func(t *testing.T) {
		done := created.Add(time.Minute)
		rec := &ValidationRecord{
			Status:       StatusFailed,
			Progress:     40,
			ErrorMessage: "competitor research failed",
			CreatedAt:    created,
			CompletedAt:  &done,
		}
		p := ProgressOf(rec, created.Add(2*time.Minute))
		assert.Equal(t, StatusFailed, p.Status)
		assert.Equal(t, "competitor research failed", p.ErrorMessage)
		assert.Empty(t, p.EstimatedTimeRemaining)
		assert.Equal(t, &done, p.CompletedAt)
	})

	t.Run("pending run has no estimate", func(t *testing.T) {
		rec := &ValidationRecord{Status: StatusPending, CreatedAt: created}
		p := ProgressOf(rec, created.Add(time.Second))
		assert.Empty(t, p.EstimatedTimeRemaining)
	})
}
