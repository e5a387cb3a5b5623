// Package scoring converts aggregated evidence signals into calibrated
// 0-100 scores, a letter grade, and a data-quality confidence value.
//
// Every mapping is a tiered step function held in an explicit table, not a
// continuous formula, so a given input always reproduces the exact same
// output.
package scoring

import (
	"math"
	"regexp"
	"strings"

	"ideagauge/internal/types"
)

// tier maps an inclusive lower threshold to a point value. Tables are
// ordered highest threshold first; the first satisfied tier wins.
type tier struct {
	threshold float64
	points    int
}

// Market demand: mention volume, 0-30 points across 7 tiers on the absolute
// number of relevant mentions.
var mentionVolumeTiers = []tier{
	{100, 30},
	{50, 26},
	{25, 22},
	{10, 17},
	{5, 12},
	{1, 6},
	{0, 0},
}

// Market demand: frustration percentage, 0-35 points across 7 tiers on
// frustrated/total x 100.
var frustrationTiers = []tier{
	{70, 35},
	{55, 30},
	{40, 25},
	{30, 19},
	{20, 13},
	{10, 8},
	{0, 4},
}

// Competition: inverse scale on the percentage of quotes that reference a
// competitor. Fewer competitor mentions means more open ground. This table
// is keyed on inclusive upper bounds, unlike the others.
var competitorMentionTiers = []tier{
	{3, 40},
	{10, 35},
	{20, 28},
	{30, 22},
	{45, 15},
	{60, 10},
	{math.Inf(1), 5},
}

// Competition: count of user complaints about existing offerings.
var complaintTiers = []tier{
	{10, 35},
	{6, 28},
	{3, 20},
	{1, 13},
	{0, 8},
}

// Competition: count of identified opportunity gaps.
var opportunityGapTiers = []tier{
	{8, 25},
	{5, 19},
	{3, 14},
	{1, 9},
	{0, 5},
}

// Confidence: sample-size bonus on top of the 30-point base.
var sampleSizeTiers = []tier{
	{100, 30},
	{50, 24},
	{25, 18},
	{10, 12},
	{1, 6},
	{0, 0},
}

// Confidence: distinct communities the quotes came from.
var diversityTiers = []tier{
	{5, 15},
	{3, 10},
	{2, 6},
	{1, 3},
	{0, 0},
}

// Confidence: average upvotes across quotes.
var confidenceEngagementTiers = []tier{
	{50, 15},
	{20, 10},
	{5, 5},
	{0, 0},
}

func tierPoints(table []tier, value float64) int {
	for _, t := range table {
		if value >= t.threshold {
			return t.points
		}
	}
	return 0
}

// inverseTierPoints walks an upper-bound table: the first tier whose bound
// the value does not exceed wins.
func inverseTierPoints(table []tier, value float64) int {
	for _, t := range table {
		if value <= t.threshold {
			return t.points
		}
	}
	return 0
}

// Floor score published when the discussion search produced no mentions at
// all: weak demand evidence, but absence of data is not absence of demand.
const noMentionFloor = 15

const (
	severityCap     = 25
	severityPerHit  = 2
	severityBonus   = 3
	engagementCap   = 10
	upvotesPerPoint = 5.0
)

// severityKeywords flag financial or time cost language in quotes.
var severityKeywords = []string{
	"expensive", "overpriced", "costs me", "costing", "fees",
	"paying for", "waste of money", "losing money", "budget",
	"wasted", "waste of time", "time-consuming", "tedious",
	"hours every", "takes forever", "manually",
}

var (
	dollarAmountRe = regexp.MustCompile(`\$\d[\d,]*(?:\.\d+)?`)
	durationRe     = regexp.MustCompile(`(?i)\b\d+\+?\s*(?:minutes?|hours?|days?|weeks?|months?)\b`)
)

// MarketDemand scores demand evidence. With zero mentions the score is the
// fixed floor and every sub-detail is zero; no other tier applies.
func MarketDemand(content *types.AnalyzedContent) types.ScoreDetail {
	zero := map[string]int{
		"mentionVolume": 0,
		"frustration":   0,
		"severity":      0,
		"engagement":    0,
	}
	if content == nil || content.TotalRelevantPosts == 0 {
		return types.ScoreDetail{Score: noMentionFloor, Details: zero}
	}

	total := content.TotalRelevantPosts
	frustrationPct := float64(content.FrustratedCount()) / float64(total) * 100

	details := map[string]int{
		"mentionVolume": tierPoints(mentionVolumeTiers, float64(total)),
		"frustration":   tierPoints(frustrationTiers, frustrationPct),
		"severity":      severityScore(content.Quotes),
		"engagement":    engagementScore(content.Quotes),
	}
	return types.ScoreDetail{
		Score:   clamp(details["mentionVolume"] + details["frustration"] + details["severity"] + details["engagement"]),
		Details: details,
	}
}

/// severityScore scans quotes for cost language: each keyword hit adds a
// small increment, explicit dollar amounts and durations add a bonus,
// capped at severityCap.
func severityScore(quotes []types.EvidenceQuote) int {
	score := 0
	for _, q := range quotes {
		text := strings.ToLower(q.Text)
		for _, kw := range severityKeywords {
			if strings.Contains(text, kw) {
				score += severityPerHit
			}
		}
		if dollarAmountRe.MatchString(q.Text) {
			score += severityBonus
		}
		if durationRe.MatchString(q.Text) {
			score += severityBonus
		}
	}
	if score > severityCap {
		return severityCap
	}
	return score
}

// engagementScore is linear in average upvotes, one point per five
// upvotes, capped.
func engagementScore(quotes []types.EvidenceQuote) int {
	if len(quotes) == 0 {
		return 0
	}
	total := 0
	for _, q := range quotes {
		total += q.Upvotes
	}
	avg := float64(total) / float64(len(quotes))
	points := int(math.Round(avg / upvotesPerPoint))
	if points > engagementCap {
		return engagementCap
	}
	return points
}

// Competition scores how contested the space looks from evidence quotes and
// the competitor research payload.
func Competition(content *types.AnalyzedContent, comp *types.CompetitorResearch) types.ScoreDetail {
	mentionPct := competitorMentionPercent(content, comp)
	complaints := 0
	gaps := 0
	if comp != nil {
		complaints = len(comp.UserComplaints)
		gaps = len(comp.OpportunityGaps)
	}
	details := map[string]int{
		"competitorMentions": inverseTierPoints(competitorMentionTiers, mentionPct),
		"userComplaints":     tierPoints(complaintTiers, float64(complaints)),
		"opportunityGaps":    tierPoints(opportunityGapTiers, float64(gaps)),
	}
	return types.ScoreDetail{
		Score:   clamp(details["competitorMentions"] + details["userComplaints"] + details["opportunityGaps"]),
		Details: details,
	}
}

// competitorMentionPercent is the share of quotes that reference any known
// competitor by name.
func competitorMentionPercent(content *types.AnalyzedContent, comp *types.CompetitorResearch) float64 {
	if content == nil || len(content.Quotes) == 0 || comp == nil || len(comp.Competitors) == 0 {
		return 0
	}
	names := make([]string, 0, len(comp.Competitors))
	for _, c := range comp.Competitors {
		if n := strings.ToLower(strings.TrimSpace(c.Name)); n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return 0
	}
	mentions := 0
	for _, q := range content.Quotes {
		text := strings.ToLower(q.Text)
		for _, n := range names {
			if strings.Contains(text, n) {
				mentions++
				break
			}
		}
	}
	return float64(mentions) / float64(len(content.Quotes)) * 100
}

const (
	marketWeight      = 0.60
	competitionWeight = 0.40
)

// Overall blends the two subscores, rounds, and clamps to [0,100].
func Overall(marketDemand, competition int) int {
	return clamp(int(math.Round(marketWeight*float64(marketDemand) + competitionWeight*float64(competition))))
}

// Grade maps an overall score to its letter grade.
func Grade(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B+"
	case score >= 70:
		return "B"
	case score >= 60:
		return "C"
	case score >= 50:
		return "D"
	default:
		return "F"
	}
}

// Floor confidence when no mention data exists at all.
const noDataConfidence = 10

// Confidence estimates, independently of the primary score, how much
// evidence volume and diversity support trusting it.
func Confidence(content *types.AnalyzedContent) int {
	if content == nil || content.TotalRelevantPosts == 0 {
		return noDataConfidence
	}
	score := 30 // base: real mention data exists
	score += tierPoints(sampleSizeTiers, float64(content.TotalRelevantPosts))
	score += tierPoints(diversityTiers, float64(len(content.Communities())))
	if len(content.Quotes) > 0 || content.OverallSentiment > 0 {
		score += 10
	}
	if avg := averageUpvotes(content.Quotes); avg > 0 {
		score += tierPoints(confidenceEngagementTiers, avg)
	}
	return clamp(score)
}

func averageUpvotes(quotes []types.EvidenceQuote) float64 {
	if len(quotes) == 0 {
		return 0
	}
	total := 0
	for _, q := range quotes {
		total += q.Upvotes
	}
	return float64(total) / float64(len(quotes))
}

// Final produces the published score result for a completed run.
func Final(content *types.AnalyzedContent, comp *types.CompetitorResearch) *types.ScoreResult {
	market := MarketDemand(content)
	competition := Competition(content, comp)
	overall := Overall(market.Score, competition.Score)
	return &types.ScoreResult{
		MarketDemand: market,
		Competition:  competition,
		Overall: types.OverallScore{
			Score:      overall,
			Grade:      Grade(overall),
			Confidence: Confidence(content),
		},
	}
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
