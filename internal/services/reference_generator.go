package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/yukikurage/task-macro-sync/internal/config"
	"github.com/yukikurage/task-macro-sync/internal/models"
	"github.com/yukikurage/task-macro-sync/internal/reference"
	"github.com/yukikurage/task-macro-sync/internal/session"
)

// ErrNoTaskNamespace is returned when the actor may not create tasks next to
// the document nor in the fallback space.
var ErrNoTaskNamespace = errors.New("no space available to create the task in")

// ReferenceChecker reports whether a reference is taken.
type ReferenceChecker interface {
	Exists(ctx context.Context, ref reference.Reference) (bool, error)
}

// ReferenceSource hands out references for new tasks.
type ReferenceSource interface {
	Generate(ctx context.Context, parent reference.Reference) (reference.Reference, error)
}

type anyExists []ReferenceChecker

// AnyExists combines checkers: a reference is taken when any of them has it.
func AnyExists(checkers ...ReferenceChecker) ReferenceChecker {
	return anyExists(checkers)
}

func (c anyExists) Exists(ctx context.Context, ref reference.Reference) (bool, error) {
	for _, checker := range c {
		exists, err := checker.Exists(ctx, ref)
		if err != nil || exists {
			return exists, err
		}
	}
	return false, nil
}

// ReferenceGenerator names new tasks Prefix0, Prefix1, ... inside a space.
// The next index to probe is kept per space and only grows, so a name is
// never handed out twice by the same process even if its document is
// deleted later.
type ReferenceGenerator struct {
	mu       sync.Mutex
	marks    map[string]int
	authz    Authorizer
	checker  ReferenceChecker
	fallback reference.Reference
	prefix   string
	log      zerolog.Logger
}

var _ ReferenceSource = (*ReferenceGenerator)(nil)

// NewReferenceGenerator creates a new ReferenceGenerator
func NewReferenceGenerator(authz Authorizer, checker ReferenceChecker, cfg config.TaskConfig, log zerolog.Logger) *ReferenceGenerator {
	return &ReferenceGenerator{
		marks:    make(map[string]int),
		authz:    authz,
		checker:  checker,
		fallback: reference.New(cfg.FallbackSpace, "").SpaceOf(),
		prefix:   cfg.NamePrefix,
		log:      log.With().Str("cmp", "reference-generator").Logger(),
	}
}

// Generate returns an unused reference for a task found in parent.
func (g *ReferenceGenerator) Generate(ctx context.Context, parent reference.Reference) (reference.Reference, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	space, err := g.namespace(ctx, parent)
	if err != nil {
		return reference.Reference{}, err
	}

	key := space.String()
	for i := g.marks[key]; ; i++ {
		candidate := space.Child(g.prefix + strconv.Itoa(i))
		exists, err := g.checker.Exists(ctx, candidate)
		if err != nil {
			return reference.Reference{}, fmt.Errorf("failed to check reference %s: %w", candidate, err)
		}
		if !exists {
			g.marks[key] = i + 1
			return candidate, nil
		}
	}
}

func (g *ReferenceGenerator) namespace(ctx context.Context, parent reference.Reference) (reference.Reference, error) {
	actor := session.Actor(ctx)

	preferred := parent.SpaceOf()
	if g.authz.HasAccess(ctx, models.RightEdit, actor, preferred) {
		return preferred, nil
	}
	if g.authz.HasAccess(ctx, models.RightEdit, actor, g.fallback) {
		g.log.Debug().Ctx(ctx).
			Str("preferred", preferred.String()).
			Str("fallback", g.fallback.String()).
			Msg("no edit right next to the document, using the fallback space")
		return g.fallback, nil
	}
	return reference.Reference{}, fmt.Errorf("%w: %s and %s", ErrNoTaskNamespace, preferred, g.fallback)
}
