package container

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomkit/loom/pkg/definition"
	"github.com/loomkit/loom/pkg/reqcontext"
	"github.com/loomkit/loom/pkg/scope"
)

type counter struct{ n int32 }

func TestSingleton_ConstructedOnceUnderConcurrency(t *testing.T) {
	c := New(nil)
	var builds int32

	require.NoError(t, c.Register(definition.New("counter", func(definition.Container) (any, error) {
		atomic.AddInt32(&builds, 1)
		return &counter{}, nil
	}, definition.WithScope(scope.Singleton))))

	require.NoError(t, c.Refresh(context.Background()))

	const workers = 100
	var wg sync.WaitGroup
	results := make([]any, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Get(context.Background(), "counter")
			require.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&builds))
	first := results[0]
	for _, r := range results {
		assert.Same(t, first, r)
	}
}

func TestRequestScope_IsolatedAcrossRequests(t *testing.T) {
	c := New(nil)
	require.NoError(t, c.Register(definition.New("req-thing", func(definition.Container) (any, error) {
		return &counter{}, nil
	}, definition.WithScope(scope.Request))))
	require.NoError(t, c.Refresh(context.Background()))

	rc1 := reqcontext.New(nil)
	ctx1 := reqcontext.WithContext(context.Background(), rc1)
	v1, err := c.Get(ctx1, "req-thing")
	require.NoError(t, err)

	v1Again, err := c.Get(ctx1, "req-thing")
	require.NoError(t, err)
	assert.Same(t, v1, v1Again, "same request scope must return the same instance")

	rc2 := reqcontext.New(nil)
	ctx2 := reqcontext.WithContext(context.Background(), rc2)
	v2, err := c.Get(ctx2, "req-thing")
	require.NoError(t, err)
	assert.NotSame(t, v1, v2, "different request scopes must not share instances")
}

func TestRequestScope_NoActiveScopeFails(t *testing.T) {
	c := New(nil)
	require.NoError(t, c.Register(definition.New("req-thing", func(definition.Container) (any, error) {
		return &counter{}, nil
	}, definition.WithScope(scope.Request))))
	require.NoError(t, c.Refresh(context.Background()))

	_, err := c.Get(context.Background(), "req-thing")
	require.Error(t, err)
}

func TestPrototype_ConstructsFreshEveryTime(t *testing.T) {
	c := New(nil)
	require.NoError(t, c.Register(definition.New("proto", func(definition.Container) (any, error) {
		return &counter{}, nil
	}, definition.WithScope(scope.Prototype))))
	require.NoError(t, c.Refresh(context.Background()))

	a, err := c.Get(context.Background(), "proto")
	require.NoError(t, err)
	b, err := c.Get(context.Background(), "proto")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

func TestRegister_DuplicateNameRejected(t *testing.T) {
	c := New(nil)
	factory := func(definition.Container) (any, error) { return &counter{}, nil }
	require.NoError(t, c.Register(definition.New("dup", factory)))
	err := c.Register(definition.New("dup", factory))
	require.Error(t, err)
}

func TestRegister_RejectedOnceFrozen(t *testing.T) {
	c := New(nil)
	require.NoError(t, c.Refresh(context.Background()))
	err := c.Register(definition.New("late", func(definition.Container) (any, error) { return 1, nil }))
	require.Error(t, err)
}

func TestRefresh_UnknownDependencyFails(t *testing.T) {
	c := New(nil)
	require.NoError(t, c.Register(definition.New("a", func(definition.Container) (any, error) { return 1, nil },
		definition.WithDependencies("ghost"))))
	err := c.Refresh(context.Background())
	require.Error(t, err)
}

func TestRefresh_StaticCycleAmongEagerSingletonsDetected(t *testing.T) {
	c := New(nil)
	require.NoError(t, c.Register(definition.New("a", func(d definition.Container) (any, error) {
		return d.Get("b")
	}, definition.WithScope(scope.Singleton), definition.WithEager(true), definition.WithDependencies("b"))))
	require.NoError(t, c.Register(definition.New("b", func(d definition.Container) (any, error) {
		return d.Get("a")
	}, definition.WithScope(scope.Singleton), definition.WithEager(true), definition.WithDependencies("a"))))

	err := c.Refresh(context.Background())
	require.Error(t, err)
}

func TestGet_DynamicCycleDetectedAtResolution(t *testing.T) {
	c := New(nil)
	require.NoError(t, c.Register(definition.New("a", func(d definition.Container) (any, error) {
		return d.Get("b")
	})))
	require.NoError(t, c.Register(definition.New("b", func(d definition.Container) (any, error) {
		return d.Get("a")
	})))
	require.NoError(t, c.Refresh(context.Background()))

	_, err := c.Get(context.Background(), "a")
	require.Error(t, err)
}

func TestGet_DependencyNotFound(t *testing.T) {
	c := New(nil)
	require.NoError(t, c.Refresh(context.Background()))
	_, err := c.Get(context.Background(), "missing")
	require.Error(t, err)
	_, ok := c.TryGet(context.Background(), "missing")
	assert.False(t, ok)
}

func TestShutdown_IsIdempotent(t *testing.T) {
	c := New(nil)
	require.NoError(t, c.Refresh(context.Background()))
	require.NoError(t, c.Shutdown())
	c.Close()
	require.NoError(t, c.Shutdown())
}

func TestGet_RejectedBeforeRefresh(t *testing.T) {
	c := New(nil)
	_, err := c.Get(context.Background(), "anything")
	require.Error(t, err)
}

func TestEagerSingleton_ConstructedDuringRefreshInDependencyOrder(t *testing.T) {
	c := New(nil)
	var order []string
	var mu sync.Mutex
	record := func(name string) { mu.Lock(); order = append(order, name); mu.Unlock() }

	require.NoError(t, c.Register(definition.New("base", func(definition.Container) (any, error) {
		record("base")
		return &counter{}, nil
	}, definition.WithScope(scope.Singleton), definition.WithEager(true))))

	require.NoError(t, c.Register(definition.New("dependent", func(d definition.Container) (any, error) {
		record("dependent")
		return d.Get("base")
	}, definition.WithScope(scope.Singleton), definition.WithEager(true), definition.WithDependencies("base"))))

	require.NoError(t, c.Refresh(context.Background()))
	require.Equal(t, []string{"base", "dependent"}, order)
}

type widget struct{ id string }

type widgetConsumer struct {
	Primary *widget
}

func TestApplyInjection_ByTypeAmbiguityResolvedByAttributeName(t *testing.T) {
	widgetType := reflect.TypeOf(&widget{})

	c := New(nil)
	require.NoError(t, c.Register(definition.New("Primary", func(definition.Container) (any, error) {
		return &widget{id: "primary"}, nil
	}, definition.WithType(widgetType))))
	require.NoError(t, c.Register(definition.New("secondary", func(definition.Container) (any, error) {
		return &widget{id: "secondary"}, nil
	}, definition.WithType(widgetType))))

	require.NoError(t, c.Register(definition.New("consumer", func(definition.Container) (any, error) {
		return &widgetConsumer{}, nil
	}, definition.WithInjectionPoints(definition.InjectionPoint{
		AttributeName: "Primary",
		KeyKind:       definition.ByType,
		Type:          widgetType,
	}))))

	require.NoError(t, c.Refresh(context.Background()))
	v, err := c.Get(context.Background(), "consumer")
	require.NoError(t, err)
	got := v.(*widgetConsumer)
	require.NotNil(t, got.Primary)
	assert.Equal(t, "primary", got.Primary.id)
}
