// Package types holds the shared domain model for a validation run:
// the run record, its step records, the analyzed-evidence aggregates, and
// the final score result. All other packages depend on this one; it depends
// on nothing inside the module.
package types

import (
	"time"
)

// RunStatus is the lifecycle state of a validation run.
type RunStatus string

const (
	StatusPending    RunStatus = "PENDING"
	StatusProcessing RunStatus = "PROCESSING"
	StatusCompleted  RunStatus = "COMPLETED"
	StatusFailed     RunStatus = "FAILED"
)

// Terminal reports whether the run has stopped mutating.
func (s RunStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// StepStatus is the state of a single pipeline step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepProcessing StepStatus = "processing"
	StepCompleted  StepStatus = "completed"
	StepFailed     StepStatus = "failed"
)

// Sentiment classifies the tone of an evidence quote.
type Sentiment string

const (
	SentimentFrustrated Sentiment = "frustrated"
	SentimentNeutral    Sentiment = "neutral"
	SentimentSatisfied  Sentiment = "satisfied"
)

// RefinedIdea is the structured precondition for a run. All three fields
// must be non-empty before research steps can proceed.
type RefinedIdea struct {
	OneLiner       string `json:"oneLiner"`
	TargetAudience string `json:"targetAudience"`
	Problem        string `json:"problem"`
}

// Complete reports whether every field of the triple is present.
func (r *RefinedIdea) Complete() bool {
	return r != nil && r.OneLiner != "" && r.TargetAudience != "" && r.Problem != ""
}

// Idea is the submitted business idea plus its optional refinement.
type Idea struct {
	Description string       `json:"description"`
	Refined     *RefinedIdea `json:"refined,omitempty"`
}

// StepRecord tracks one pipeline step inside a ValidationRecord.
// The full step list is created up front at orchestrator construction and
// mutated in place; steps are never added or removed mid-run.
type StepRecord struct {
	Index          int        `json:"index"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	TargetProgress int        `json:"targetProgress"`
	Status         StepStatus `json:"status"`
	DataPoints     int        `json:"dataPointsFound,omitempty"`
	ErrorMessage   string     `json:"errorMessage,omitempty"`
}

// ValidationRecord is the single durable document for one run.
//
// Invariants: Progress is monotonically non-decreasing; at most one
// StepRecord is processing at any time; once Status is terminal the record
// is never mutated again.
type ValidationRecord struct {
	ID              string       `json:"id"`
	CreatedAt       time.Time    `json:"createdAt"`
	Idea            Idea         `json:"idea"`
	Status          RunStatus    `json:"status"`
	Progress        int          `json:"progress"`
	CurrentStep     string       `json:"currentStep,omitempty"`
	ProcessingSteps []StepRecord `json:"processingSteps"`

	CompetitorData  *CompetitorResearch  `json:"competitorData,omitempty"`
	MarketSizeData  *MarketSizeResearch  `json:"marketSizeData,omitempty"`
	ScalabilityData *ScalabilityResearch `json:"scalabilityData,omitempty"`
	MoatData        *MoatResearch        `json:"moatData,omitempty"`
	UniquenessData  *UniquenessResearch  `json:"uniquenessData,omitempty"`
	Narrative       *NarrativeAnalysis   `json:"narrative,omitempty"`

	FinalScore   *ScoreResult `json:"finalScore,omitempty"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
	CompletedAt  *time.Time   `json:"completedAt,omitempty"`
}

// EvidenceQuote is one sourced signal pulled from discussion content.
type EvidenceQuote struct {
	Text                string    `json:"text"`
	Author              string    `json:"author"`
	Community           string    `json:"community"`
	Upvotes             int       `json:"upvotes"`
	Sentiment           Sentiment `json:"sentiment"`
	RelevanceScore      float64   `json:"relevanceScore"`      // [0,1]
	SentimentConfidence float64   `json:"sentimentConfidence"` // [0,1]
}

// AnalyzedContent aggregates the evidence extracted from discussion posts.
type AnalyzedContent struct {
	Quotes             []EvidenceQuote `json:"quotes"`
	OverallSentiment   float64         `json:"overallSentiment"` // [0,10]
	PainPoints         []string        `json:"painPoints"`
	FrustrationLevel   float64         `json:"frustrationLevel"` // [0,1]
	TotalRelevantPosts int             `json:"totalRelevantPosts"`
	AnalysisConfidence float64         `json:"analysisConfidence"` // [0,1]
}

// FrustratedCount returns the number of quotes classified as frustrated.
func (a *AnalyzedContent) FrustratedCount() int {
	n := 0
	for _, q := range a.Quotes {
		if q.Sentiment == SentimentFrustrated {
			n++
		}
	}
	return n
}

// Communities returns the distinct communities the quotes came from.
func (a *AnalyzedContent) Communities() []string {
	seen := make(map[string]bool)
	var out []string
	for _, q := range a.Quotes {
		if q.Community != "" && !seen[q.Community] {
			seen[q.Community] = true
			out = append(out, q.Community)
		}
	}
	return out
}

// ScoreDetail is one scored dimension plus its sub-score breakdown.
type ScoreDetail struct {
	Score   int            `json:"score"` // [0,100]
	Details map[string]int `json:"details"`
}

// OverallScore is the blended final score.
type OverallScore struct {
	Score      int    `json:"score"` // [0,100]
	Grade      string `json:"grade"`
	Confidence int    `json:"confidence"` // [0,100]
}

// ScoreResult is the published outcome of a completed run.
type ScoreResult struct {
	MarketDemand ScoreDetail  `json:"marketDemand"`
	Competition  ScoreDetail  `json:"competition"`
	Overall      OverallScore `json:"overall"`
}

// CompetitorResearch is the typed payload of the competitor step.
type CompetitorResearch struct {
	Competitors     []Competitor `json:"competitors"`
	UserComplaints  []string     `json:"userComplaints"`
	OpportunityGaps []string     `json:"opportunityGaps"`
	Summary         string       `json:"summary"`
}

// Competitor describes one identified competitor.
type Competitor struct {
	Name      string `json:"name"`
	Strengths string `json:"strengths,omitempty"`
	Weakness  string `json:"weakness,omitempty"`
}

// MarketSizeResearch is the typed payload of the market-size step.
type MarketSizeResearch struct {
	TAM        string `json:"tam"`
	SAM        string `json:"sam"`
	SOM        string `json:"som"`
	GrowthRate string `json:"growthRate"`
	Summary    string `json:"summary"`
}

// ScalabilityResearch is the typed payload of the scalability step.
type ScalabilityResearch struct {
	Score      float64  `json:"score"` // [0,10]
	Factors    []string `json:"factors"`
	Challenges []string `json:"challenges"`
	Summary    string   `json:"summary"`
}

// MoatResearch is the typed payload of the moat step.
type MoatResearch struct {
	Defensibility float64  `json:"defensibility"` // [0,10]
	Moats         []string `json:"moats"`
	Risks         []string `json:"risks"`
	Summary       string   `json:"summary"`
}

// UniquenessResearch is the typed payload of the uniqueness step.
type UniquenessResearch struct {
	Score            float64  `json:"score"` // [0,10]
	Differentiators  []string `json:"differentiators"`
	SimilarOfferings []string `json:"similarOfferings"`
	Summary          string   `json:"summary"`
}

// NarrativeAnalysis is the synthesized written analysis.
type NarrativeAnalysis struct {
	Summary        string   `json:"summary"`
	Strengths      []string `json:"strengths"`
	Risks          []string `json:"risks"`
	Recommendation string   `json:"recommendation"`
}

// RawPost is one discussion post as returned by the discussion source,
// with no relevance guarantee.
type RawPost struct {
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	Author       string    `json:"author"`
	Upvotes      int       `json:"upvotes"`
	Community    string    `json:"community"`
	Permalink    string    `json:"permalink"`
	TimestampUTC time.Time `json:"timestampUtc"`
	CommentCount int       `json:"commentCount"`
}

// Progress is the pull-based surface clients poll; it is derived entirely
// from the persisted record.
type Progress struct {
	Status                 RunStatus  `json:"status"`
	Progress               int        `json:"progress"`
	CurrentStep            string     `json:"currentStep,omitempty"`
	EstimatedTimeRemaining string     `json:"estimatedTimeRemaining,omitempty"`
	ErrorMessage           string     `json:"errorMessage,omitempty"`
	CompletedAt            *time.Time `json:"completedAt,omitempty"`
}

// ProgressOf derives the polling surface from a record. The remaining-time
// estimate assumes steps so far are representative of steps to come.
func ProgressOf(rec *ValidationRecord, now time.Time) Progress {
	p := Progress{
		Status:       rec.Status,
		Progress:     rec.Progress,
		CurrentStep:  rec.CurrentStep,
		ErrorMessage: rec.ErrorMessage,
		CompletedAt:  rec.CompletedAt,
	}
	if rec.Status == StatusProcessing && rec.Progress > 0 && rec.Progress < 100 {
		elapsed := now.Sub(rec.CreatedAt)
		if elapsed > 0 {
			remaining := time.Duration(float64(elapsed) * float64(100-rec.Progress) / float64(rec.Progress))
			p.EstimatedTimeRemaining = remaining.Round(time.Second).String()
		}
	}
	return p
}
