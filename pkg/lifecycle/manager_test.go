package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomkit/loom/pkg/diagnostics"
)

type recorder struct {
	mu     *sync.Mutex
	events *[]string
	name   string
	failOn string
}

func (r *recorder) record(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.events = append(*r.events, r.name+":"+event)
}

func (r *recorder) PostConstruct(context.Context) error {
	if r.failOn == "post_construct" {
		return errors.New("boom")
	}
	r.record("post_construct")
	return nil
}

func (r *recorder) Startup(context.Context) error {
	if r.failOn == "startup" {
		return errors.New("boom")
	}
	r.record("startup")
	return nil
}

func (r *recorder) PreDestroy(context.Context) error {
	r.record("pre_destroy")
	return nil
}

func (r *recorder) Destroy(context.Context) error {
	r.record("destroy")
	return nil
}

func newRecorder(name string, mu *sync.Mutex, events *[]string) *recorder {
	return &recorder{mu: mu, events: events, name: name}
}

func TestManager_StartsInDependencyOrderAndShutsDownInReverseStartupOrder(t *testing.T) {
	var mu sync.Mutex
	var events []string

	a := newRecorder("A", &mu, &events)
	b := newRecorder("B", &mu, &events)
	c := newRecorder("C", &mu, &events)

	m := NewManager(Strict, nil)
	components := []Component{
		{Name: "A", Instance: a},
		{Name: "B", Instance: b, Dependencies: []string{"A"}},
		{Name: "C", Instance: c, Dependencies: []string{"B"}},
	}

	require.NoError(t, m.Start(context.Background(), components))
	assert.Equal(t, diagnostics.Running, m.State("A"))
	assert.Equal(t, diagnostics.Running, m.State("B"))
	assert.Equal(t, diagnostics.Running, m.State("C"))

	require.NoError(t, m.Shutdown(context.Background(), components))

	mu.Lock()
	got := append([]string{}, events...)
	mu.Unlock()

	expected := []string{
		"A:post_construct", "B:post_construct", "C:post_construct",
		"A:startup", "B:startup", "C:startup",
		"C:pre_destroy", "C:destroy",
		"B:pre_destroy", "B:destroy",
		"A:pre_destroy", "A:destroy",
	}
	assert.Equal(t, expected, got)
}

func TestManager_StrictModeAbortsOnFailure(t *testing.T) {
	var mu sync.Mutex
	var events []string

	a := newRecorder("A", &mu, &events)
	failing := &recorder{mu: &mu, events: &events, name: "B", failOn: "startup"}
	c := newRecorder("C", &mu, &events)

	m := NewManager(Strict, nil)
	components := []Component{
		{Name: "A", Instance: a},
		{Name: "B", Instance: failing, Dependencies: []string{"A"}},
		{Name: "C", Instance: c, Dependencies: []string{"B"}},
	}

	err := m.Start(context.Background(), components)
	require.Error(t, err)
	assert.Equal(t, diagnostics.Failed, m.State("B"))
	assert.Equal(t, diagnostics.Created, m.State("C"), "C's startup must never run once B fails under strict mode")
}

func TestManager_WarnModeContinuesPastFailure(t *testing.T) {
	var mu sync.Mutex
	var events []string

	a := newRecorder("A", &mu, &events)
	failing := &recorder{mu: &mu, events: &events, name: "B", failOn: "post_construct"}
	c := newRecorder("C", &mu, &events)

	m := NewManager(Warn, nil)
	components := []Component{
		{Name: "A", Instance: a},
		{Name: "B", Instance: failing, Dependencies: []string{"A"}},
		{Name: "C", Instance: c, Dependencies: []string{"B"}},
	}

	require.NoError(t, m.Start(context.Background(), components))
	assert.Equal(t, diagnostics.Failed, m.State("B"))
	assert.Equal(t, diagnostics.Running, m.State("A"))
}

func TestTopoSort_DetectsCycle(t *testing.T) {
	_, err := topoSort([]node{
		{name: "a", deps: []string{"b"}},
		{name: "b", deps: []string{"a"}},
	})
	require.Error(t, err)
}
