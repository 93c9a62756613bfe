package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yukikurage/task-macro-sync/internal/models"
	"github.com/yukikurage/task-macro-sync/internal/reference"
	"github.com/yukikurage/task-macro-sync/internal/session"
)

var sandboxHome = reference.New("Sandbox", "WebHome")

func newTestGenerator(authz Authorizer, checker ReferenceChecker) *ReferenceGenerator {
	return NewReferenceGenerator(authz, checker, testTaskConfig(), zerolog.Nop())
}

func TestReferenceGenerator_SkipsTakenNames(t *testing.T) {
	checker := newTakenRefs("Sandbox.Task_0", "Sandbox.Task_1")
	g := newTestGenerator(allowAll(), checker)

	ref, err := g.Generate(context.Background(), sandboxHome)
	require.NoError(t, err)
	assert.Equal(t, "Sandbox.Task_2", ref.String())
}

func TestReferenceGenerator_HighWaterMark(t *testing.T) {
	checker := newTakenRefs()
	g := newTestGenerator(allowAll(), checker)
	ctx := context.Background()

	first, err := g.Generate(ctx, sandboxHome)
	require.NoError(t, err)
	second, err := g.Generate(ctx, sandboxHome)
	require.NoError(t, err)

	assert.Equal(t, "Sandbox.Task_0", first.String())
	assert.Equal(t, "Sandbox.Task_1", second.String(), "a name is not handed out twice even if nothing stored it")
	assert.Equal(t, 2, checker.calls, "probing starts at the mark")

	other, err := g.Generate(ctx, reference.New("Other.Sub", "Page"))
	require.NoError(t, err)
	assert.Equal(t, "Other.Sub.Task_0", other.String(), "marks are kept per space")
}

func TestReferenceGenerator_Fallback(t *testing.T) {
	authz := authzFunc(func(right models.Right, _ string, scope reference.Reference) bool {
		return right == models.RightEdit && scope.String() == "TaskManager"
	})
	g := newTestGenerator(authz, newTakenRefs())

	ref, err := g.Generate(session.WithActor(context.Background(), bob), sandboxHome)
	require.NoError(t, err)
	assert.Equal(t, "TaskManager.Task_0", ref.String())
}

func TestReferenceGenerator_NoNamespace(t *testing.T) {
	deny := authzFunc(func(models.Right, string, reference.Reference) bool { return false })
	g := newTestGenerator(deny, newTakenRefs())

	_, err := g.Generate(context.Background(), sandboxHome)
	assert.ErrorIs(t, err, ErrNoTaskNamespace)
}

func TestReferenceGenerator_CheckerError(t *testing.T) {
	checker := newTakenRefs()
	checker.err = errors.New("store down")
	g := newTestGenerator(allowAll(), checker)

	_, err := g.Generate(context.Background(), sandboxHome)
	require.Error(t, err)
	assert.ErrorIs(t, err, checker.err)

	checker.err = nil
	ref, err := g.Generate(context.Background(), sandboxHome)
	require.NoError(t, err)
	assert.Equal(t, "Sandbox.Task_0", ref.String(), "a failed probe does not move the mark")
}

func TestReferenceGenerator_Concurrent(t *testing.T) {
	g := newTestGenerator(allowAll(), newTakenRefs())

	const callers = 32
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		refs = make(map[string]bool)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ref, err := g.Generate(context.Background(), sandboxHome)
			assert.NoError(t, err)
			mu.Lock()
			refs[ref.String()] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, refs, callers)
}

func TestAnyExists(t *testing.T) {
	docs := newTakenRefs("Sandbox.Task_0")
	records := newTakenRefs("Sandbox.Task_1")
	checker := AnyExists(docs, records)
	ctx := context.Background()

	for ref, want := range map[string]bool{
		"Sandbox.Task_0": true,
		"Sandbox.Task_1": true,
		"Sandbox.Task_2": false,
	} {
		got, err := checker.Exists(ctx, reference.Parse(ref))
		require.NoError(t, err)
		assert.Equal(t, want, got, ref)
	}

	records.err = errors.New("boom")
	_, err := checker.Exists(ctx, reference.Parse("Sandbox.Task_2"))
	assert.Error(t, err)
}
