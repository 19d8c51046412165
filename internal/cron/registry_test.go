package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryStoresJobs(t *testing.T) {
	registry := NewRegistry(nil)
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	registry.Register(jobA)
	registry.Register(nil)
	registry.Register(jobB)

	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	assert.Same(t, jobA, jobs[0])
	assert.Same(t, jobB, jobs[1])

	// callers cannot mutate the internal slice
	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0])
}

func TestRegistryNames(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "courier-status-poll"}, &stubJob{name: "outbox-retention"})
	assert.Equal(t, []string{"courier-status-poll", "outbox-retention"}, registry.Names())
}
