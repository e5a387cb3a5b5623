// Package research implements the individual research calls of the
// validation pipeline: each one renders a prompt, asks the generative-text
// provider, and recovers a typed payload through internal/extract.
//
// Calls that feed required downstream inputs (keyword plan, domain research
// payloads) fail with the extractor's *ParseError when no structure can be
// recovered. Sentiment analysis instead degrades to a neutral safe default,
// because the pipeline can still finish with weak evidence.
package research

import (
	"context"

	"go.uber.org/zap"

	"ideagauge/internal/extract"
	"ideagauge/internal/provider"
	"ideagauge/internal/types"
)

// KeywordPlan is the search plan derived from the refined idea. It is an
// intermediate product, consumed by the discussion-search step, and is not
// persisted on the run record.
type KeywordPlan struct {
	Keywords    []string `json:"keywords"`
	Communities []string `json:"communities"`
	Queries     []string `json:"queries"`
}

// Researcher bundles the provider client used by every research call.
type Researcher struct {
	client provider.Client
	logger *zap.Logger
}

// New creates a Researcher.
func New(client provider.Client, logger *zap.Logger) *Researcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Researcher{client: client, logger: logger}
}

// call runs one provider round trip and decodes the response into out.
func (r *Researcher) call(ctx context.Context, label, prompt string, out any, schema extract.Schema) (extract.Result, error) {
	raw, err := provider.GenerateWithRetry(ctx, r.client, prompt)
	if err != nil {
		return extract.Result{}, err
	}
	res, err := extract.Decode(raw, out, schema)
	if err != nil {
		return extract.Result{}, err
	}
	r.logger.Debug("Research call decoded",
		zap.String("step", label),
		zap.String("strategy", string(res.Strategy)),
		zap.Float64("confidence", res.Confidence))
	return res, nil
}

// KeywordPlan derives keywords, target communities, and search queries from
// the refined idea. There is no sensible default for a search plan, so an
// unrecoverable response is fatal.
func (r *Researcher) KeywordPlan(ctx context.Context, idea *types.RefinedIdea) (*KeywordPlan, error) {
	var plan KeywordPlan
	_, err := r.call(ctx, "keywords", keywordPrompt(idea), &plan, extract.Schema{
		Fields: []extract.Field{
			{Name: "keywords", Kind: extract.FieldStringArray},
			{Name: "communities", Kind: extract.FieldStringArray},
			{Name: "queries", Kind: extract.FieldStringArray},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(plan.Communities) == 0 || len(plan.Queries) == 0 {
		return nil, &extract.ParseError{Reason: "keyword plan missing communities or queries"}
	}
	return &plan, nil
}

// AnalyzeSentiment turns raw posts into aggregated evidence. A response the
// extractor cannot recover degrades to a neutral default rather than
// failing the run.
func (r *Researcher) AnalyzeSentiment(ctx context.Context, idea *types.RefinedIdea, posts []types.RawPost) (*types.AnalyzedContent, float64, error) {
	var content types.AnalyzedContent
	res, err := r.call(ctx, "sentiment", sentimentPrompt(idea, posts), &content, extract.Schema{
		Fields: []extract.Field{
			{Name: "overallSentiment", Kind: extract.FieldNumber},
			{Name: "painPoints", Kind: extract.FieldStringArray},
			{Name: "frustrationLevel", Kind: extract.FieldNumber},
			{Name: "totalRelevantPosts", Kind: extract.FieldNumber},
			{Name: "analysisConfidence", Kind: extract.FieldNumber},
		},
		Default: func() any {
			return types.AnalyzedContent{
				Quotes:           []types.EvidenceQuote{},
				OverallSentiment: 5,
				PainPoints:       []string{},
			}
		},
	})
	if err != nil {
		return nil, 0, err
	}
	if content.TotalRelevantPosts > len(posts) {
		// The model sometimes inflates the count past what it was shown.
		content.TotalRelevantPosts = len(posts)
	}
	return &content, res.Confidence, nil
}

// Competitors researches the competitive landscape.
func (r *Researcher) Competitors(ctx context.Context, idea *types.RefinedIdea) (*types.CompetitorResearch, error) {
	var out types.CompetitorResearch
	_, err := r.call(ctx, "competitors", competitorPrompt(idea), &out, extract.Schema{
		Fields: []extract.Field{
			{Name: "userComplaints", Kind: extract.FieldStringArray},
			{Name: "opportunityGaps", Kind: extract.FieldStringArray},
			{Name: "summary", Kind: extract.FieldString},
		},
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// MarketSize researches addressable market estimates.
func (r *Researcher) MarketSize(ctx context.Context, idea *types.RefinedIdea) (*types.MarketSizeResearch, error) {
	var out types.MarketSizeResearch
	_, err := r.call(ctx, "market_size", marketSizePrompt(idea), &out, extract.Schema{
		Fields: []extract.Field{
			{Name: "tam", Kind: extract.FieldString},
			{Name: "sam", Kind: extract.FieldString},
			{Name: "som", Kind: extract.FieldString},
			{Name: "growthRate", Kind: extract.FieldString},
			{Name: "summary", Kind: extract.FieldString},
		},
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Scalability researches how the idea scales.
func (r *Researcher) Scalability(ctx context.Context, idea *types.RefinedIdea) (*types.ScalabilityResearch, error) {
	var out types.ScalabilityResearch
	_, err := r.call(ctx, "scalability", scalabilityPrompt(idea), &out, extract.Schema{
		Fields: []extract.Field{
			{Name: "score", Kind: extract.FieldNumber},
			{Name: "factors", Kind: extract.FieldStringArray},
			{Name: "challenges", Kind: extract.FieldStringArray},
			{Name: "summary", Kind: extract.FieldString},
		},
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Moat researches defensibility.
func (r *Researcher) Moat(ctx context.Context, idea *types.RefinedIdea) (*types.MoatResearch, error) {
	var out types.MoatResearch
	_, err := r.call(ctx, "moat", moatPrompt(idea), &out, extract.Schema{
		Fields: []extract.Field{
			{Name: "defensibility", Kind: extract.FieldNumber},
			{Name: "moats", Kind: extract.FieldStringArray},
			{Name: "risks", Kind: extract.FieldStringArray},
			{Name: "summary", Kind: extract.FieldString},
		},
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Uniqueness researches differentiation from existing offerings.
func (r *Researcher) Uniqueness(ctx context.Context, idea *types.RefinedIdea) (*types.UniquenessResearch, error) {
	var out types.UniquenessResearch
	_, err := r.call(ctx, "uniqueness", uniquenessPrompt(idea), &out, extract.Schema{
		Fields: []extract.Field{
			{Name: "score", Kind: extract.FieldNumber},
			{Name: "differentiators", Kind: extract.FieldStringArray},
			{Name: "similarOfferings", Kind: extract.FieldStringArray},
			{Name: "summary", Kind: extract.FieldString},
		},
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Narrative synthesizes the written analysis from the accumulated research.
// Reduced-confidence recovery is acceptable here; a thin narrative does not
// invalidate the run.
func (r *Researcher) Narrative(ctx context.Context, idea *types.RefinedIdea, content *types.AnalyzedContent, competitor *types.CompetitorResearch, market *types.MarketSizeResearch) (*types.NarrativeAnalysis, error) {
	var out types.NarrativeAnalysis
	_, err := r.call(ctx, "narrative", narrativePrompt(idea, content, competitor, market), &out, extract.Schema{
		Fields: []extract.Field{
			{Name: "summary", Kind: extract.FieldString},
			{Name: "strengths", Kind: extract.FieldStringArray},
			{Name: "risks", Kind: extract.FieldStringArray},
			{Name: "recommendation", Kind: extract.FieldString},
		},
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
