package research

import (
	"fmt"
	"strings"

	"ideagauge/internal/types"
)

// Prompt templates are parameterized domain copy. Each asks for a bare JSON
// object so the extractor's direct strategy usually wins; the recovery chain
// handles the rest.

const keywordPromptTemplate = `You are doing market research for a business idea.

Idea: %s
Target audience: %s
Problem it solves: %s

Identify how real people would talk about this problem online. Respond with
only a JSON object:
{
  "keywords": ["..."],          // 5-8 search keywords or short phrases
  "communities": ["r/..."],     // 4-6 subreddit names where the audience is
  "queries": ["..."]            // 3-5 literal search queries
}`

func keywordPrompt(idea *types.RefinedIdea) string {
	return fmt.Sprintf(keywordPromptTemplate, idea.OneLiner, idea.TargetAudience, idea.Problem)
}

const sentimentPromptTemplate = `You are analyzing social-media discussions for market validation.

Business idea: %s
Problem being validated: %s

Below are discussion posts. Judge each for relevance to the problem, then
summarize the evidence. Respond with only a JSON object:
{
  "quotes": [{"text": "...", "author": "...", "community": "...", "upvotes": 0,
              "sentiment": "frustrated|neutral|satisfied",
              "relevanceScore": 0.0, "sentimentConfidence": 0.0}],
  "overallSentiment": 0.0,      // 0 = despairing, 10 = delighted
  "painPoints": ["..."],
  "frustrationLevel": 0.0,      // 0-1
  "totalRelevantPosts": 0,
  "analysisConfidence": 0.0     // 0-1
}

Posts:
%s`

func sentimentPrompt(idea *types.RefinedIdea, posts []types.RawPost) string {
	return fmt.Sprintf(sentimentPromptTemplate, idea.OneLiner, idea.Problem, formatPosts(posts))
}

// formatPosts renders posts compactly, bounded so prompts stay within
// reasonable token budgets.
func formatPosts(posts []types.RawPost) string {
	const maxPosts = 40
	const maxBody = 600

	if len(posts) > maxPosts {
		posts = posts[:maxPosts]
	}
	var b strings.Builder
	for i, p := range posts {
		body := p.Body
		if len(body) > maxBody {
			body = body[:maxBody] + "..."
		}
		fmt.Fprintf(&b, "[%d] %s | %s | %d upvotes | %d comments\n%s\n\n",
			i+1, p.Community, p.Author, p.Upvotes, p.CommentCount,
			strings.TrimSpace(p.Title+"\n"+body))
	}
	if b.Len() == 0 {
		return "(no posts found)"
	}
	return b.String()
}

const competitorPromptTemplate = `Research the competitive landscape for this business idea.

Idea: %s
Target audience: %s

Respond with only a JSON object:
{
  "competitors": [{"name": "...", "strengths": "...", "weakness": "..."}],
  "userComplaints": ["..."],    // common complaints about existing offerings
  "opportunityGaps": ["..."],   // unmet needs competitors leave open
  "summary": "..."
}`

func competitorPrompt(idea *types.RefinedIdea) string {
	return fmt.Sprintf(competitorPromptTemplate, idea.OneLiner, idea.TargetAudience)
}

const marketSizePromptTemplate = `Estimate the market size for this business idea.

Idea: %s
Target audience: %s

Respond with only a JSON object:
{
  "tam": "...",        // total addressable market, with reasoning
  "sam": "...",        // serviceable addressable market
  "som": "...",        // serviceable obtainable market
  "growthRate": "...", // annual growth of the segment
  "summary": "..."
}`

func marketSizePrompt(idea *types.RefinedIdea) string {
	return fmt.Sprintf(marketSizePromptTemplate, idea.OneLiner, idea.TargetAudience)
}

const scalabilityPromptTemplate = `Assess how well this business idea scales.

Idea: %s
Problem: %s

Respond with only a JSON object:
{
  "score": 0.0,          // 0-10
  "factors": ["..."],    // what supports scaling
  "challenges": ["..."], // what limits scaling
  "summary": "..."
}`

func scalabilityPrompt(idea *types.RefinedIdea) string {
	return fmt.Sprintf(scalabilityPromptTemplate, idea.OneLiner, idea.Problem)
}

const moatPromptTemplate = `Assess the defensibility of this business idea.

Idea: %s
Target audience: %s

Respond with only a JSON object:
{
  "defensibility": 0.0, // 0-10
  "moats": ["..."],     // durable advantages available to this business
  "risks": ["..."],     // ways incumbents or copycats erode it
  "summary": "..."
}`

func moatPrompt(idea *types.RefinedIdea) string {
	return fmt.Sprintf(moatPromptTemplate, idea.OneLiner, idea.TargetAudience)
}

const uniquenessPromptTemplate = `Assess how unique this business idea is.

Idea: %s
Problem: %s

Respond with only a JSON object:
{
  "score": 0.0,                // 0-10
  "differentiators": ["..."],
  "similarOfferings": ["..."],
  "summary": "..."
}`

func uniquenessPrompt(idea *types.RefinedIdea) string {
	return fmt.Sprintf(uniquenessPromptTemplate, idea.OneLiner, idea.Problem)
}

const narrativePromptTemplate = `Write the final market-validation analysis for this business idea.

Idea: %s
Target audience: %s
Problem: %s

Evidence gathered so far:
- Sentiment: %.1f/10 across %d relevant posts
- Pain points: %s
- Competitor summary: %s
- Market size summary: %s

Respond with only a JSON object:
{
  "summary": "...",          // 2-3 paragraph narrative
  "strengths": ["..."],
  "risks": ["..."],
  "recommendation": "..."    // one-sentence verdict
}`

func narrativePrompt(idea *types.RefinedIdea, content *types.AnalyzedContent, competitor *types.CompetitorResearch, market *types.MarketSizeResearch) string {
	painPoints := "none identified"
	sentiment := 0.0
	relevant := 0
	if content != nil {
		sentiment = content.OverallSentiment
		relevant = content.TotalRelevantPosts
		if len(content.PainPoints) > 0 {
			painPoints = strings.Join(content.PainPoints, "; ")
		}
	}
	compSummary := "not available"
	if competitor != nil && competitor.Summary != "" {
		compSummary = competitor.Summary
	}
	marketSummary := "not available"
	if market != nil && market.Summary != "" {
		marketSummary = market.Summary
	}
	return fmt.Sprintf(narrativePromptTemplate,
		idea.OneLiner, idea.TargetAudience, idea.Problem,
		sentiment, relevant, painPoints, compSummary, marketSummary)
}
