package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"ideagauge/internal/research"
	"ideagauge/internal/store"
	"ideagauge/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

func newTestManager(t *testing.T, maxConcurrent int) (*Manager, *store.Store) {
	t.Helper()
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	mgr := NewManager(st, research.New(newFakeProvider(), nil), &fakeSource{posts: somePosts()}, maxConcurrent, nil)
	return mgr, st
}

func validTrigger() Trigger {
	return Trigger{
		IdeaDescription: "An invoicing tool for freelance plumbers",
		RefinedIdea: &types.RefinedIdea{
			OneLiner:       "Invoicing built for trade freelancers",
			TargetAudience: "freelance plumbers",
			Problem:        "generic invoicing tools ignore job-site workflows",
		},
	}
}

func TestManagerStartRunsToCompletion(t *testing.T) {
	mgr, st := newTestManager(t, 2)

	id, err := mgr.Start(validTrigger())
	require.NoError(t, err)
	require.NotEmpty(t, id)
	mgr.Wait()

	rec, err := st.LoadValidation(id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, rec.Status)
	assert.Equal(t, 100, rec.Progress)
	require.NotNil(t, rec.FinalScore)
}

func TestManagerStartGeneratesID(t *testing.T) {
	mgr, _ := newTestManager(t, 1)
	defer mgr.Wait()

	a, err := mgr.Start(validTrigger())
	require.NoError(t, err)
	b, err := mgr.Start(validTrigger())
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestManagerStartKeepsExplicitID(t *testing.T) {
	mgr, st := newTestManager(t, 1)

	trigger := validTrigger()
	trigger.ID = "my-run"
	id, err := mgr.Start(trigger)
	require.NoError(t, err)
	assert.Equal(t, "my-run", id)
	mgr.Wait()

	_, err = st.LoadValidation("my-run")
	assert.NoError(t, err)
}

func TestManagerStartRejectsIncompleteIdea(t *testing.T) {
	mgr, st := newTestManager(t, 1)

	tests := []struct {
		name    string
		refined *types.RefinedIdea
	}{
		{"nil refined idea", nil},
		{"missing audience", &types.RefinedIdea{OneLiner: "x", Problem: "y"}},
		{"missing problem", &types.RefinedIdea{OneLiner: "x", TargetAudience: "y"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger := validTrigger()
			trigger.ID = "rejected-run"
			trigger.RefinedIdea = tt.refined

			_, err := mgr.Start(trigger)
			var perr *PreconditionError
			require.ErrorAs(t, err, &perr)

			// Rejection happens before any record is written.
			_, err = st.LoadValidation("rejected-run")
			assert.ErrorIs(t, err, store.ErrNotFound)
		})
	}
}

func TestManagerFailedRunIsVisibleInStore(t *testing.T) {
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	provider := newFakeProvider()
	provider.failOn("market size", errors.New("upstream down"))
	mgr := NewManager(st, research.New(provider, nil), &fakeSource{posts: somePosts()}, 1, nil)

	id, err := mgr.Start(validTrigger())
	require.NoError(t, err)
	mgr.Wait()

	rec, err := st.LoadValidation(id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, rec.Status)
	assert.NotEmpty(t, rec.ErrorMessage)
}

func TestManagerBoundsConcurrency(t *testing.T) {
	st, err := store.New(t.TempDir())
	require.NoError(t, err)

	// Each running orchestrator holds at most one Generate call at a time,
	// so overlapping Generate calls count overlapping runs.
	var mu sync.Mutex
	active, peak := 0, 0
	provider := &countingProvider{inner: newFakeProvider(), enter: func() {
		mu.Lock()
		active++
		if active > peak {
			peak = active
		}
		mu.Unlock()
		time.Sleep(2 * time.Millisecond)
	}, leave: func() {
		mu.Lock()
		active--
		mu.Unlock()
	}}

	mgr := NewManager(st, research.New(provider, nil), &fakeSource{posts: somePosts()}, 2, nil)
	for i := 0; i < 6; i++ {
		trigger := validTrigger()
		trigger.ID = fmt.Sprintf("run-%d", i)
		_, err := mgr.Start(trigger)
		require.NoError(t, err)
	}
	mgr.Wait()

	assert.LessOrEqual(t, peak, 2)
	for i := 0; i < 6; i++ {
		rec, err := st.LoadValidation(fmt.Sprintf("run-%d", i))
		require.NoError(t, err)
		assert.Equal(t, types.StatusCompleted, rec.Status, "run-%d", i)
	}
}

func TestManagerProgress(t *testing.T) {
	mgr, _ := newTestManager(t, 1)

	id, err := mgr.Start(validTrigger())
	require.NoError(t, err)
	mgr.Wait()

	p, err := mgr.Progress(id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, p.Status)
	assert.Equal(t, 100, p.Progress)
	assert.NotNil(t, p.CompletedAt)

	_, err = mgr.Progress("no-such-run")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
