package plane

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/nhle/planeissues/internal/model"
)

// ReferenceSource loads the reference data of one project.
type ReferenceSource interface {
	FetchStates(ctx context.Context) ([]model.WorkflowState, error)
	FetchLabels(ctx context.Context) ([]model.Label, error)
	FetchProject(ctx context.Context) (model.ProjectIdentity, error)
}

const (
	slotStates  = "states"
	slotLabels  = "labels"
	slotProject = "project"
)

// ReferenceCache memoizes states, labels and project identity for one
// project. Each slot is fetched on first use and kept until Refresh.
// Concurrent callers of a cold slot share a single in-flight request.
// Returned maps are shared and must not be modified.
type ReferenceCache struct {
	src    ReferenceSource
	logger *slog.Logger
	group  singleflight.Group

	mu         sync.RWMutex
	generation uint64
	states     map[string]model.WorkflowState
	labels     map[string]model.Label
	project    *model.ProjectIdentity
}

// NewReferenceCache creates an empty cache backed by src.
func NewReferenceCache(src ReferenceSource, logger *slog.Logger) *ReferenceCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReferenceCache{src: src, logger: logger}
}

// States returns workflow states keyed by id. A failed fetch is logged,
// not cached, and yields an empty map.
func (c *ReferenceCache) States(ctx context.Context) map[string]model.WorkflowState {
	c.mu.RLock()
	cached := c.states
	c.mu.RUnlock()
	if cached != nil {
		return cached
	}

	v, err := c.shared(ctx, slotStates, func(ctx context.Context) (interface{}, error) {
		c.mu.RLock()
		cached, gen := c.states, c.generation
		c.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		list, err := c.src.FetchStates(ctx)
		if err != nil {
			return nil, err
		}
		states := make(map[string]model.WorkflowState, len(list))
		for _, s := range list {
			states[s.ID] = s
		}

		c.mu.Lock()
		if c.generation == gen {
			c.states = states
		}
		c.mu.Unlock()
		return states, nil
	})
	if err != nil {
		c.logger.Warn("fetching states failed", "error", err)
		return map[string]model.WorkflowState{}
	}
	return v.(map[string]model.WorkflowState)
}

// Labels returns project labels keyed by id. A failed fetch is logged,
// not cached, and yields an empty map.
func (c *ReferenceCache) Labels(ctx context.Context) map[string]model.Label {
	c.mu.RLock()
	cached := c.labels
	c.mu.RUnlock()
	if cached != nil {
		return cached
	}

	v, err := c.shared(ctx, slotLabels, func(ctx context.Context) (interface{}, error) {
		c.mu.RLock()
		cached, gen := c.labels, c.generation
		c.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		list, err := c.src.FetchLabels(ctx)
		if err != nil {
			return nil, err
		}
		labels := make(map[string]model.Label, len(list))
		for _, l := range list {
			labels[l.ID] = l
		}

		c.mu.Lock()
		if c.generation == gen {
			c.labels = labels
		}
		c.mu.Unlock()
		return labels, nil
	})
	if err != nil {
		c.logger.Warn("fetching labels failed", "error", err)
		return map[string]model.Label{}
	}
	return v.(map[string]model.Label)
}

// Project returns the project identity. Unlike states and labels a failed
// fetch is returned to the caller: formatted ids cannot be built without it.
func (c *ReferenceCache) Project(ctx context.Context) (model.ProjectIdentity, error) {
	c.mu.RLock()
	cached := c.project
	c.mu.RUnlock()
	if cached != nil {
		return *cached, nil
	}

	v, err := c.shared(ctx, slotProject, func(ctx context.Context) (interface{}, error) {
		c.mu.RLock()
		cached, gen := c.project, c.generation
		c.mu.RUnlock()
		if cached != nil {
			return *cached, nil
		}

		project, err := c.src.FetchProject(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.generation == gen {
			c.project = &project
		}
		c.mu.Unlock()
		return project, nil
	})
	if err != nil {
		c.logger.Error("fetching project failed", "error", err)
		return model.ProjectIdentity{}, fmt.Errorf("loading project identity: %w", err)
	}
	return v.(model.ProjectIdentity), nil
}

// shared runs fetch once for all concurrent callers of slot. The fetch is
// detached from the caller that started it and is bounded by the client
// timeout; each caller stops waiting when its own ctx is done.
func (c *ReferenceCache) shared(
	ctx context.Context,
	slot string,
	fetch func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(slot, func() (interface{}, error) {
		return fetch(detached)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Refresh drops every cached slot. Fetches already in flight complete for
// their callers but do not repopulate the cache.
func (c *ReferenceCache) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.states = nil
	c.labels = nil
	c.project = nil
}
