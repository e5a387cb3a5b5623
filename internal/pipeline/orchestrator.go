// Package pipeline sequences the validation research steps for one run,
// tracks per-step state, and persists progress to the record store after
// every transition. Clients observe a run only by re-reading its record;
// nothing is pushed.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"ideagauge/internal/discussion"
	"ideagauge/internal/research"
	"ideagauge/internal/scoring"
	"ideagauge/internal/store"
	"ideagauge/internal/types"
)

// PreconditionError reports a missing required input. It is fatal and never
// retried; there is no manual-keyword fallback once refined-idea data is
// required.
type PreconditionError struct {
	Missing string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %s is required", e.Missing)
}

// StepError wraps a step failure with the step that produced it.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// stepDef is one entry of the fixed step template. Target progress values
// are per-step data; two steps sharing a checkpoint is allowed.
type stepDef struct {
	title          string
	description    string
	targetProgress int
}

var stepTemplate = []stepDef{
	{"Extract keywords", "Identifying keywords and target communities", 10},
	{"Search discussions", "Collecting posts from target communities", 25},
	{"Analyze sentiment", "Deriving evidence quotes and sentiment summary", 40},
	{"Research competitors", "Mapping the competitive landscape", 50},
	{"Estimate market size", "Estimating addressable market", 60},
	{"Assess scalability", "Assessing how the idea scales", 70},
	{"Evaluate moat", "Evaluating defensibility", 75},
	{"Evaluate uniqueness", "Evaluating differentiation", 75},
	{"Synthesize analysis", "Writing the narrative analysis", 90},
	{"Compute final score", "Scoring the gathered evidence", 100},
}

// StepTemplate returns a fresh StepRecord list for a new run.
func StepTemplate() []types.StepRecord {
	steps := make([]types.StepRecord, len(stepTemplate))
	for i, def := range stepTemplate {
		steps[i] = types.StepRecord{
			Index:          i,
			Title:          def.title,
			Description:    def.description,
			TargetProgress: def.targetProgress,
			Status:         types.StepPending,
		}
	}
	return steps
}

// searchCacheTTL keeps discussion results warm across re-runs of the same
// search plan.
const searchCacheTTL = 3600

// Orchestrator executes the step sequence for a single run. It owns the
// step array; all step mutation goes through transition.
type Orchestrator struct {
	id         string
	idea       types.Idea
	store      *store.Store
	researcher *research.Researcher
	source     discussion.Source
	logger     *zap.Logger

	steps []types.StepRecord

	// intermediate products, each step's output feeding the next
	plan        *research.KeywordPlan
	posts       []types.RawPost
	content     *types.AnalyzedContent
	competitor  *types.CompetitorResearch
	marketSize  *types.MarketSizeResearch
	scalability *types.ScalabilityResearch
	moat        *types.MoatResearch
	uniqueness  *types.UniquenessResearch
	narrative   *types.NarrativeAnalysis
	finalScore  *types.ScoreResult

	// highest progress persisted so far; persisted progress never decreases
	progress int
}

// Result is what Execute returns to its (fire-and-forget) caller. All
// failure detail is also persisted on the record.
type Result struct {
	Success    bool
	FinalScore *types.ScoreResult
	Steps      []types.StepRecord
	Err        error
}

// NewOrchestrator builds an orchestrator with the full step template.
func NewOrchestrator(id string, idea types.Idea, st *store.Store, r *research.Researcher, src discussion.Source, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		id:         id,
		idea:       idea,
		store:      st,
		researcher: r,
		source:     src,
		logger:     logger.With(zap.String("run", id)),
		steps:      StepTemplate(),
	}
}

// Execute runs the full sequence. It never panics and never returns an
// unhandled error: every failure is converted into a FAILED record and a
// failure Result.
func (o *Orchestrator) Execute(ctx context.Context) Result {
	if !o.idea.Refined.Complete() {
		err := &PreconditionError{Missing: "refined idea (oneLiner, targetAudience, problem)"}
		o.failRun(err)
		return Result{Success: false, Steps: o.steps, Err: err}
	}

	o.persist(map[string]any{
		"status":      types.StatusProcessing,
		"currentStep": "Starting research",
	})

	// Indices align with stepTemplate.
	sequence := []func(context.Context) (int, error){
		o.stepKeywords,
		o.stepSearch,
		o.stepSentiment,
		o.stepCompetitors,
		o.stepMarketSize,
		o.stepScalability,
		o.stepMoat,
		o.stepUniqueness,
		o.stepNarrative,
		o.stepFinalScore,
	}

	for i, run := range sequence {
		if err := o.runStep(ctx, i, run); err != nil {
			o.failRun(err)
			return Result{Success: false, Steps: o.steps, Err: err}
		}
	}

	o.completeRun()
	return Result{Success: true, FinalScore: o.finalScore, Steps: o.steps}
}

// runStep drives one step through processing -> completed/failed, persisting
// after each transition. A panic inside a step is captured as a StepError.
func (o *Orchestrator) runStep(ctx context.Context, index int, run func(context.Context) (int, error)) (err error) {
	def := stepTemplate[index]

	if terr := o.transition(index, types.StepProcessing); terr != nil {
		return &StepError{Step: def.title, Err: terr}
	}
	o.persist(map[string]any{
		"currentStep":     def.description,
		"processingSteps": o.steps,
	})

	defer func() {
		if r := recover(); r != nil {
			err = &StepError{Step: def.title, Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			o.steps[index].ErrorMessage = err.Error()
			_ = o.transition(index, types.StepFailed)
		}
	}()

	o.logger.Info("Step starting", zap.Int("step", index), zap.String("title", def.title))
	dataPoints, err := run(ctx)
	if err != nil {
		if _, ok := err.(*StepError); !ok {
			err = &StepError{Step: def.title, Err: err}
		}
		return err
	}

	o.steps[index].DataPoints = dataPoints
	if terr := o.transition(index, types.StepCompleted); terr != nil {
		return &StepError{Step: def.title, Err: terr}
	}
	if def.targetProgress > o.progress {
		o.progress = def.targetProgress
	}
	o.persist(map[string]any{
		"progress":        o.progress,
		"currentStep":     def.description,
		"processingSteps": o.steps,
	})
	o.logger.Info("Step completed",
		zap.Int("step", index),
		zap.Int("dataPoints", dataPoints),
		zap.Int("progress", o.progress))
	return nil
}

// transition is the single entry point for step status changes. It enforces
// that at most one step is processing at any time.
func (o *Orchestrator) transition(index int, status types.StepStatus) error {
	if index < 0 || index >= len(o.steps) {
		return fmt.Errorf("step index %d out of range", index)
	}
	if status == types.StepProcessing {
		for i := range o.steps {
			if i != index && o.steps[i].Status == types.StepProcessing {
				return fmt.Errorf("step %d is already processing", i)
			}
		}
	}
	o.steps[index].Status = status
	return nil
}

// persist merges a patch into the run record. Persistence failures are
// logged, not fatal: the run carries on and the next snapshot retries.
func (o *Orchestrator) persist(patch map[string]any) {
	if _, err := o.store.UpdateValidation(o.id, patch); err != nil {
		o.logger.Warn("Failed to persist run snapshot", zap.Error(err))
	}
}

func (o *Orchestrator) failRun(err error) {
	now := time.Now().UTC()
	o.persist(map[string]any{
		"status":          types.StatusFailed,
		"errorMessage":    err.Error(),
		"processingSteps": o.steps,
		"completedAt":     now,
	})
	o.logger.Error("Run failed", zap.Error(err))
}

func (o *Orchestrator) completeRun() {
	now := time.Now().UTC()
	o.persist(map[string]any{
		"status":          types.StatusCompleted,
		"progress":        100,
		"currentStep":     "Validation complete",
		"processingSteps": o.steps,
		"finalScore":      o.finalScore,
		"completedAt":     now,
	})
	o.logger.Info("Run completed",
		zap.Int("score", o.finalScore.Overall.Score),
		zap.String("grade", o.finalScore.Overall.Grade))
}

// --- steps ------------------------------------------------------------------

func (o *Orchestrator) stepKeywords(ctx context.Context) (int, error) {
	plan, err := o.researcher.KeywordPlan(ctx, o.idea.Refined)
	if err != nil {
		return 0, err
	}
	o.plan = plan
	return len(plan.Keywords) + len(plan.Communities) + len(plan.Queries), nil
}

// stepSearch deliberately reports success even when zero discussions are
// found: every other step treats missing required input as fatal, but an
// idea nobody discusses is itself a finding, and the scorer's no-mention
// floor handles it.
func (o *Orchestrator) stepSearch(ctx context.Context) (int, error) {
	key := searchCacheKey(o.plan)

	var cached []types.RawPost
	if hit, err := o.store.LoadCache(key, &cached); err == nil && hit {
		o.logger.Info("Discussion search served from cache", zap.Int("posts", len(cached)))
		o.posts = cached
		return len(cached), nil
	}

	posts, err := o.source.Search(ctx, o.plan.Communities, o.plan.Queries)
	if err != nil {
		return 0, err
	}
	o.posts = posts
	if err := o.store.SaveCache(key, posts, searchCacheTTL); err != nil {
		o.logger.Warn("Failed to cache search results", zap.Error(err))
	}
	return len(posts), nil
}

func searchCacheKey(plan *research.KeywordPlan) string {
	h := sha256.Sum256([]byte(strings.Join(plan.Communities, ",") + "|" + strings.Join(plan.Queries, ",")))
	return "search_" + hex.EncodeToString(h[:8])
}

func (o *Orchestrator) stepSentiment(ctx context.Context) (int, error) {
	content, _, err := o.researcher.AnalyzeSentiment(ctx, o.idea.Refined, o.posts)
	if err != nil {
		return 0, err
	}
	o.content = content
	return len(content.Quotes), nil
}

func (o *Orchestrator) stepCompetitors(ctx context.Context) (int, error) {
	out, err := o.researcher.Competitors(ctx, o.idea.Refined)
	if err != nil {
		return 0, err
	}
	o.competitor = out
	o.persist(map[string]any{"competitorData": out})
	return len(out.Competitors) + len(out.UserComplaints) + len(out.OpportunityGaps), nil
}

func (o *Orchestrator) stepMarketSize(ctx context.Context) (int, error) {
	out, err := o.researcher.MarketSize(ctx, o.idea.Refined)
	if err != nil {
		return 0, err
	}
	o.marketSize = out
	o.persist(map[string]any{"marketSizeData": out})
	return 1, nil
}

func (o *Orchestrator) stepScalability(ctx context.Context) (int, error) {
	out, err := o.researcher.Scalability(ctx, o.idea.Refined)
	if err != nil {
		return 0, err
	}
	o.scalability = out
	o.persist(map[string]any{"scalabilityData": out})
	return len(out.Factors) + len(out.Challenges), nil
}

func (o *Orchestrator) stepMoat(ctx context.Context) (int, error) {
	out, err := o.researcher.Moat(ctx, o.idea.Refined)
	if err != nil {
		return 0, err
	}
	o.moat = out
	o.persist(map[string]any{"moatData": out})
	return len(out.Moats) + len(out.Risks), nil
}

func (o *Orchestrator) stepUniqueness(ctx context.Context) (int, error) {
	out, err := o.researcher.Uniqueness(ctx, o.idea.Refined)
	if err != nil {
		return 0, err
	}
	o.uniqueness = out
	o.persist(map[string]any{"uniquenessData": out})
	return len(out.Differentiators) + len(out.SimilarOfferings), nil
}

func (o *Orchestrator) stepNarrative(ctx context.Context) (int, error) {
	out, err := o.researcher.Narrative(ctx, o.idea.Refined, o.content, o.competitor, o.marketSize)
	if err != nil {
		return 0, err
	}
	o.narrative = out
	o.persist(map[string]any{"narrative": out})
	return len(out.Strengths) + len(out.Risks), nil
}

func (o *Orchestrator) stepFinalScore(ctx context.Context) (int, error) {
	o.finalScore = scoring.Final(o.content, o.competitor)
	return 1, nil
}
