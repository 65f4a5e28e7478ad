package plane

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/planeissues/internal/model"
)

// fakeRefs is an in-memory ReferenceSource that counts fetches. When
// release is set, FetchStates signals started and blocks until release
// is closed. projectStarted and projectRelease do the same for
// FetchProject, which also gives up when its ctx is done.
type fakeRefs struct {
	stateCalls   atomic.Int32
	labelCalls   atomic.Int32
	projectCalls atomic.Int32

	statesErr  error
	projectErr error

	started chan struct{}
	release chan struct{}

	projectStarted chan struct{}
	projectRelease chan struct{}
}

func (f *fakeRefs) FetchStates(ctx context.Context) ([]model.WorkflowState, error) {
	f.stateCalls.Add(1)
	if f.release != nil {
		f.started <- struct{}{}
		<-f.release
	}
	if f.statesErr != nil {
		return nil, f.statesErr
	}
	return []model.WorkflowState{
		{ID: "st-1", Name: "Todo", Group: model.StateGroupUnstarted},
		{ID: "st-2", Name: "Done", Group: model.StateGroupCompleted},
	}, nil
}

func (f *fakeRefs) FetchLabels(ctx context.Context) ([]model.Label, error) {
	f.labelCalls.Add(1)
	return []model.Label{{ID: "lb-1", Name: "bug"}}, nil
}

func (f *fakeRefs) FetchProject(ctx context.Context) (model.ProjectIdentity, error) {
	f.projectCalls.Add(1)
	if f.projectRelease != nil {
		f.projectStarted <- struct{}{}
		select {
		case <-f.projectRelease:
		case <-ctx.Done():
			return model.ProjectIdentity{}, ctx.Err()
		}
	}
	if f.projectErr != nil {
		return model.ProjectIdentity{}, f.projectErr
	}
	return model.ProjectIdentity{ID: "proj-1", Identifier: "WEB", Name: "Website"}, nil
}

func newTestCache(src ReferenceSource) *ReferenceCache {
	return NewReferenceCache(src, slog.New(slog.DiscardHandler))
}

func TestReferenceCache_FetchesEachSlotOnce(t *testing.T) {
	src := &fakeRefs{}
	cache := newTestCache(src)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		states := cache.States(ctx)
		assert.Len(t, states, 2)
		assert.Equal(t, "Done", states["st-2"].Name)

		labels := cache.Labels(ctx)
		assert.Equal(t, "bug", labels["lb-1"].Name)

		project, err := cache.Project(ctx)
		require.NoError(t, err)
		assert.Equal(t, "WEB", project.Identifier)
	}

	assert.Equal(t, int32(1), src.stateCalls.Load())
	assert.Equal(t, int32(1), src.labelCalls.Load())
	assert.Equal(t, int32(1), src.projectCalls.Load())
}

func TestReferenceCache_FailureIsNotCached(t *testing.T) {
	src := &fakeRefs{statesErr: errors.New("plane is down")}
	cache := newTestCache(src)
	ctx := context.Background()

	states := cache.States(ctx)
	assert.NotNil(t, states)
	assert.Empty(t, states)

	src.statesErr = nil
	assert.Len(t, cache.States(ctx), 2)
	assert.Len(t, cache.States(ctx), 2)
	assert.Equal(t, int32(2), src.stateCalls.Load())
}

func TestReferenceCache_ProjectErrorPropagates(t *testing.T) {
	errDown := errors.New("plane is down")
	src := &fakeRefs{projectErr: errDown}
	cache := newTestCache(src)

	_, err := cache.Project(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errDown)

	src.projectErr = nil
	project, err := cache.Project(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "proj-1", project.ID)
	assert.Equal(t, int32(2), src.projectCalls.Load())
}

func TestReferenceCache_ConcurrentCallersShareOneFetch(t *testing.T) {
	src := &fakeRefs{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	cache := newTestCache(src)

	const callers = 10
	results := make([]map[string]model.WorkflowState, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = cache.States(context.Background())
		}()
	}

	<-src.started
	close(src.release)
	wg.Wait()

	assert.Equal(t, int32(1), src.stateCalls.Load())
	for _, states := range results {
		assert.Len(t, states, 2)
	}
}

func TestReferenceCache_Refresh(t *testing.T) {
	src := &fakeRefs{}
	cache := newTestCache(src)
	ctx := context.Background()

	cache.States(ctx)
	cache.Labels(ctx)
	_, err := cache.Project(ctx)
	require.NoError(t, err)

	cache.Refresh()

	cache.States(ctx)
	cache.Labels(ctx)
	_, err = cache.Project(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(2), src.stateCalls.Load())
	assert.Equal(t, int32(2), src.labelCalls.Load())
	assert.Equal(t, int32(2), src.projectCalls.Load())
}

func TestReferenceCache_RefreshDuringFetchIsNotUndone(t *testing.T) {
	src := &fakeRefs{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	cache := newTestCache(src)

	done := make(chan map[string]model.WorkflowState)
	go func() {
		done <- cache.States(context.Background())
	}()

	<-src.started
	cache.Refresh()
	close(src.release)

	// The caller that started the fetch still gets its result.
	assert.Len(t, <-done, 2)

	// The stale result was not stored, so the next call fetches again.
	src.release = nil
	assert.Len(t, cache.States(context.Background()), 2)
	assert.Equal(t, int32(2), src.stateCalls.Load())
}

func TestReferenceCache_CancelledCallerDoesNotFailOthers(t *testing.T) {
	src := &fakeRefs{
		projectStarted: make(chan struct{}, 1),
		projectRelease: make(chan struct{}),
	}
	cache := newTestCache(src)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := cache.Project(ctxA)
		errA <- err
	}()
	<-src.projectStarted

	type result struct {
		project model.ProjectIdentity
		err     error
	}
	doneB := make(chan result, 1)
	go func() {
		p, err := cache.Project(context.Background())
		doneB <- result{p, err}
	}()

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled caller kept waiting on the shared fetch")
	}

	close(src.projectRelease)
	select {
	case res := <-doneB:
		require.NoError(t, res.err)
		assert.Equal(t, "WEB", res.project.Identifier)
	case <-time.After(5 * time.Second):
		t.Fatal("second caller never got the project")
	}

	assert.Equal(t, int32(1), src.projectCalls.Load())

	p, err := cache.Project(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "WEB", p.Identifier, "the detached fetch populated the cache")
	assert.Equal(t, int32(1), src.projectCalls.Load())
}
