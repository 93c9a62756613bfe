package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yukikurage/task-macro-sync/internal/config"
	"github.com/yukikurage/task-macro-sync/internal/events"
	"github.com/yukikurage/task-macro-sync/internal/markup"
	"github.com/yukikurage/task-macro-sync/internal/models"
	"github.com/yukikurage/task-macro-sync/internal/reference"
	"github.com/yukikurage/task-macro-sync/internal/repository"
	"github.com/yukikurage/task-macro-sync/internal/session"
	"github.com/yukikurage/task-macro-sync/internal/testutil"
)

const (
	alice = "XWiki.Alice"
	bob   = "XWiki.Bob"
)

var fixedNow = time.Date(2024, 3, 1, 9, 30, 45, 0, time.UTC)

func testTaskConfig() config.TaskConfig {
	return config.TaskConfig{
		StorageDateFormat: "2006/01/02 15:04",
		DisplayDateFormat: "02 Jan 2006",
		Timezone:          "UTC",
		DefaultSyntax:     markup.SyntaxXWiki,
		FallbackSpace:     "TaskManager",
		NamePrefix:        "Task_",
	}
}

// newTestProcessor returns a processor with a fixed clock and predictable
// anchors.
func newTestProcessor() *BlockProcessor {
	p := NewBlockProcessor(testTaskConfig())
	p.clock = func() time.Time { return fixedNow }
	p.anchor = func(assignee string) (string, error) {
		return strings.ReplaceAll(assignee, ".", "-") + "-abcde", nil
	}
	return p
}

// authzFunc adapts a function to Authorizer.
type authzFunc func(right models.Right, actor string, scope reference.Reference) bool

func (f authzFunc) HasAccess(_ context.Context, right models.Right, actor string, scope reference.Reference) bool {
	return f(right, actor, scope)
}

func allowAll() Authorizer {
	return authzFunc(func(models.Right, string, reference.Reference) bool { return true })
}

// takenRefs is a ReferenceChecker over a fixed set of references.
type takenRefs struct {
	mu    sync.Mutex
	refs  map[string]bool
	err   error
	calls int
}

func newTakenRefs(refs ...string) *takenRefs {
	t := &takenRefs{refs: make(map[string]bool)}
	for _, r := range refs {
		t.refs[r] = true
	}
	return t
}

func (t *takenRefs) Exists(_ context.Context, ref reference.Reference) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	if t.err != nil {
		return false, t.err
	}
	return t.refs[ref.String()], nil
}

// maxSource returns the queued results of MaxNumber in order, repeating the
// last one.
type maxSource struct {
	mu      sync.Mutex
	results []maxResult
	calls   int
}

type maxResult struct {
	max int
	err error
}

func (m *maxSource) MaxNumber(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.results[min(m.calls, len(m.results)-1)]
	m.calls++
	return r.max, r.err
}

// harness wires every service on an in-memory database the way the app
// does, with a fixed clock.
type harness struct {
	db         *gorm.DB
	bus        *events.Bus
	taskRepo   *repository.GormTaskRepository
	perms      *PermissionService
	proc       *BlockProcessor
	docs       *DocumentService
	tasks      *TaskService
	generator  *ReferenceGenerator
	counter    *TaskCounter
	extractor  *TaskExtractor
	macroSync  *MacroSync
	recordSync *RecordSync
	ctx        context.Context
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	log := zerolog.Nop()
	db := testutil.NewDB(t)
	bus := events.New()

	h := &harness{db: db, bus: bus, ctx: session.WithActor(context.Background(), alice)}
	h.taskRepo = repository.NewTaskRepository(db)
	h.perms = NewPermissionService(repository.NewPermissionRepository(db), log)
	h.proc = newTestProcessor()
	h.docs = NewDocumentService(repository.NewDocumentRepository(db), bus, log)
	h.tasks = NewTaskService(h.taskRepo, h.perms, bus, h.proc, log)
	h.generator = NewReferenceGenerator(h.perms, AnyExists(h.docs, h.tasks), testTaskConfig(), log)
	h.counter = NewTaskCounter(h.taskRepo)
	h.extractor = NewTaskExtractor(h.generator, h.proc, log)
	h.macroSync = NewMacroSync(h.extractor, h.docs, h.tasks, h.taskRepo, h.perms, h.proc, log)
	h.recordSync = NewRecordSync(h.docs, h.counter, h.proc, log)

	bus.SubscribeDocumentSaving(h.macroSync.OnDocumentSaving)
	bus.SubscribeDocumentDeleting(h.tasks.OnDocumentDeleting)
	bus.SubscribeTaskSaving(h.recordSync.OnTaskSaving)
	bus.SubscribeTaskDeleting(h.recordSync.OnTaskDeleting)

	return h
}

func (h *harness) grant(t *testing.T, subject, scope string, role models.Role) {
	t.Helper()
	require.NoError(t, h.perms.Grant(context.Background(), subject, scope, role))
}

func (h *harness) as(actor string) context.Context {
	return session.WithActor(context.Background(), actor)
}

func (h *harness) record(t *testing.T, ref string) *models.Task {
	t.Helper()
	task, err := h.taskRepo.FindByReference(context.Background(), ref)
	require.NoError(t, err)
	return task
}

func (h *harness) countTasks(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(&models.Task{}).Count(&n).Error)
	return n
}

func (h *harness) content(t *testing.T, ref string) string {
	t.Helper()
	var doc models.Document
	require.NoError(t, h.db.Where("reference = ?", ref).First(&doc).Error)
	return doc.Content
}

func date(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}
