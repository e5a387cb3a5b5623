package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"ideagauge/internal/types"
)

// fakeProvider routes prompts to canned responses by matching a fragment of
// the prompt template. Overrides let individual tests inject failures or
// hooks for specific steps.
type fakeProvider struct {
	mu        sync.Mutex
	overrides map[string]func() (string, error)
	// onGenerate runs before every response; tests use it to observe
	// persisted state mid-run.
	onGenerate func()
	calls      []string
}

var cannedResponses = map[string]string{
	"real people": `{"keywords": ["plumber invoicing"], "communities": ["r/Plumbing", "r/smallbusiness"], "queries": ["invoicing software"]}`,
	"social-media discussions": `{
		"quotes": [
			{"text": "invoicing costs me $100 a month and takes 3 hours every week", "author": "u1", "community": "r/Plumbing", "upvotes": 40, "sentiment": "frustrated", "relevanceScore": 0.9, "sentimentConfidence": 0.8},
			{"text": "I just use spreadsheets", "author": "u2", "community": "r/smallbusiness", "upvotes": 5, "sentiment": "neutral", "relevanceScore": 0.6, "sentimentConfidence": 0.7}
		],
		"overallSentiment": 3.5, "painPoints": ["manual entry"], "frustrationLevel": 0.7,
		"totalRelevantPosts": 2, "analysisConfidence": 0.8}`,
	"competitive landscape": `{"competitors": [{"name": "QuickBooks"}], "userComplaints": ["fees", "complexity", "bloat"], "opportunityGaps": ["trade templates"], "summary": "generic incumbents"}`,
	"market size":           `{"tam": "$4B", "sam": "$400M", "som": "$12M", "growthRate": "6%", "summary": "steady niche"}`,
	"idea scales":           `{"score": 7, "factors": ["pure software"], "challenges": ["sales channel"], "summary": "scales well"}`,
	"defensibility":         `{"defensibility": 4, "moats": ["workflow lock-in"], "risks": ["incumbent copy"], "summary": "thin moat"}`,
	"how unique":            `{"score": 6, "differentiators": ["trade focus"], "similarOfferings": ["generic invoicing"], "summary": "moderately unique"}`,
	"final market-validation": `{"summary": "Clear pain, small niche.", "strengths": ["pain signal"], "risks": ["niche size"], "recommendation": "Build a focused MVP."}`,
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{overrides: make(map[string]func() (string, error))}
}

func (p *fakeProvider) failOn(fragment string, err error) {
	p.overrides[fragment] = func() (string, error) { return "", err }
}

func (p *fakeProvider) respondOn(fragment, response string) {
	p.overrides[fragment] = func() (string, error) { return response, nil }
}

func (p *fakeProvider) panicOn(fragment string) {
	p.overrides[fragment] = func() (string, error) { panic("provider blew up") }
}

func (p *fakeProvider) Generate(ctx context.Context, prompt string) (string, error) {
	p.mu.Lock()
	hook := p.onGenerate
	p.mu.Unlock()
	if hook != nil {
		hook()
	}

	for fragment, fn := range p.overrides {
		if strings.Contains(prompt, fragment) {
			p.record(fragment)
			return fn()
		}
	}
	for fragment, response := range cannedResponses {
		if strings.Contains(prompt, fragment) {
			p.record(fragment)
			return response, nil
		}
	}
	return "", fmt.Errorf("no canned response for prompt: %.80s", prompt)
}

func (p *fakeProvider) record(fragment string) {
	p.mu.Lock()
	p.calls = append(p.calls, fragment)
	p.mu.Unlock()
}

// countingProvider wraps another provider with enter/leave hooks around
// every Generate call.
type countingProvider struct {
	inner *fakeProvider
	enter func()
	leave func()
}

func (p *countingProvider) Generate(ctx context.Context, prompt string) (string, error) {
	p.enter()
	defer p.leave()
	return p.inner.Generate(ctx, prompt)
}

// fakeSource returns fixed posts and counts its calls.
type fakeSource struct {
	mu    sync.Mutex
	posts []types.RawPost
	err   error
	calls int
}

func (s *fakeSource) Search(ctx context.Context, communities, queries []string) ([]types.RawPost, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.posts, nil
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func somePosts() []types.RawPost {
	return []types.RawPost{
		{Title: "Invoicing is a pain", Body: "hours lost", Community: "r/Plumbing", Permalink: "/p1", Upvotes: 40},
		{Title: "Billing rant", Body: "fees everywhere", Community: "r/smallbusiness", Permalink: "/p2", Upvotes: 5},
	}
}
