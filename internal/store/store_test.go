package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideagauge/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	s.retryDelay = 10 * time.Millisecond
	return s
}

func sampleRecord(id string) *types.ValidationRecord {
	return &types.ValidationRecord{
		ID:        id,
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Idea: types.Idea{
			Description: "An invoicing tool for freelance plumbers",
			Refined: &types.RefinedIdea{
				OneLiner:       "Invoicing built for trade freelancers",
				TargetAudience: "freelance plumbers",
				Problem:        "generic invoicing tools ignore job-site workflows",
			},
		},
		Status:   types.StatusPending,
		Progress: 0,
		ProcessingSteps: []types.StepRecord{
			{Index: 0, Title: "Extract keywords", TargetProgress: 10, Status: types.StepPending},
			{Index: 1, Title: "Search discussions", TargetProgress: 25, Status: types.StepPending},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	rec := sampleRecord("run-1")
	require.NoError(t, s.SaveValidation(rec))

	got, err := s.LoadValidation("run-1")
	require.NoError(t, err)
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadNotFound(t *testing.T) {
	s := newTestStore(t)
	start := time.Now()
	_, err := s.LoadValidation("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	// NotFound must be decided on the first attempt, without the retry delay.
	assert.Less(t, time.Since(start), s.retryDelay)
}

func TestLoadTransientFailure(t *testing.T) {
	s := newTestStore(t)
	path := s.validationPath("run-2")
	require.NoError(t, os.WriteFile(path, []byte(`{"id": "run-2", "stat`), 0644))

	_, err := s.LoadValidation("run-2")
	assert.ErrorIs(t, err, ErrTransient)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestLoadRecoversWhenWriteCompletes(t *testing.T) {
	s := newTestStore(t)
	rec := sampleRecord("run-3")
	path := s.validationPath("run-3")

	// Simulate a racing writer: truncated content now, full document shortly.
	require.NoError(t, os.WriteFile(path, []byte(`{"id": "run`), 0644))
	go func() {
		time.Sleep(15 * time.Millisecond)
		_ = s.SaveValidation(rec)
	}()

	got, err := s.LoadValidation("run-3")
	require.NoError(t, err)
	assert.Equal(t, "run-3", got.ID)
}

func TestLoadEmptyFileRetries(t *testing.T) {
	s := newTestStore(t)
	path := s.validationPath("run-4")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	_, err := s.LoadValidation("run-4")
	assert.ErrorIs(t, err, ErrTransient)
}

func TestUpdateShallowMerge(t *testing.T) {
	s := newTestStore(t)
	rec := sampleRecord("run-5")
	require.NoError(t, s.SaveValidation(rec))

	updated, err := s.UpdateValidation("run-5", map[string]any{
		"status":      string(types.StatusProcessing),
		"progress":    25,
		"currentStep": "Searching discussions",
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusProcessing, updated.Status)
	assert.Equal(t, 25, updated.Progress)
	assert.Equal(t, "Searching discussions", updated.CurrentStep)
	// Untouched fields survive the merge.
	assert.Equal(t, rec.Idea.Description, updated.Idea.Description)
	assert.Len(t, updated.ProcessingSteps, 2)

	reloaded, err := s.LoadValidation("run-5")
	require.NoError(t, err)
	assert.Equal(t, 25, reloaded.Progress)
}

func TestUpdateMissingRecord(t *testing.T) {
	s := newTestStore(t)
	_, err := s.UpdateValidation("nope", map[string]any{"progress": 10})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveValidation(sampleRecord("run-6")))

	entries, err := os.ReadDir(filepath.Join(s.root, validationsDir))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"run-1", "run-1"},
		{"a/b\\c", "a_b_c"},
		{"search:r/startups?q=x", "search_r_startups_q_x"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeKey(tt.in))
	}
}
