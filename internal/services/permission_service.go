package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"github.com/yukikurage/task-macro-sync/internal/models"
	"github.com/yukikurage/task-macro-sync/internal/reference"
	"github.com/yukikurage/task-macro-sync/internal/repository"
)

var (
	ErrInvalidScope   = errors.New("invalid permission scope")
	ErrInvalidRole    = errors.New("invalid permission role")
	ErrSubjectMissing = errors.New("permission subject cannot be empty")
)

// Authorizer answers whether an actor holds a right on a reference.
type Authorizer interface {
	HasAccess(ctx context.Context, right models.Right, actor string, scope reference.Reference) bool
}

// PermissionService decides access from stored grants. A grant's scope is a
// doublestar pattern matched against the slash separated path of the
// reference, so "Sandbox/**" covers the Sandbox space and everything below it.
type PermissionService struct {
	permRepo repository.PermissionRepository
	log      zerolog.Logger
}

var _ Authorizer = (*PermissionService)(nil)

// NewPermissionService creates a new PermissionService.
func NewPermissionService(permRepo repository.PermissionRepository, log zerolog.Logger) *PermissionService {
	return &PermissionService{
		permRepo: permRepo,
		log:      log.With().Str("cmp", "permissions").Logger(),
	}
}

// Grant gives role to subject on every reference matching scope.
func (s *PermissionService) Grant(ctx context.Context, subject, scope string, role models.Role) error {
	if strings.TrimSpace(subject) == "" {
		return ErrSubjectMissing
	}
	if !doublestar.ValidatePattern(scope) {
		return fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}
	switch role {
	case models.RoleOwner, models.RoleEditor, models.RoleViewer:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	permission := &models.Permission{Subject: subject, Scope: scope, Role: role}
	if err := s.permRepo.Grant(ctx, permission); err != nil {
		return fmt.Errorf("failed to grant permission: %w", err)
	}
	return nil
}

// Revoke removes the grants of subject on scope.
func (s *PermissionService) Revoke(ctx context.Context, subject, scope string) error {
	if err := s.permRepo.Revoke(ctx, subject, scope); err != nil {
		return fmt.Errorf("failed to revoke permission: %w", err)
	}
	return nil
}

// HasAccess reports whether actor holds right on scope. Store failures deny.
func (s *PermissionService) HasAccess(ctx context.Context, right models.Right, actor string, scope reference.Reference) bool {
	subjects := []string{models.SubjectEveryone}
	if actor != "" {
		subjects = append(subjects, actor)
	}

	grants, err := s.permRepo.ListBySubjects(ctx, subjects)
	if err != nil {
		s.log.Error().Ctx(ctx).Err(err).
			Str("right", string(right)).
			Str("scope", scope.String()).
			Msg("failed to load permissions, denying access")
		return false
	}

	path := scope.Path()
	for _, grant := range grants {
		if grant.Role.Allows(right) && scopeMatches(grant.Scope, path) {
			return true
		}
	}
	return false
}

// scopeMatches matches path against pattern. A pattern ending in "/**" also
// covers its base path.
func scopeMatches(pattern, path string) bool {
	if base, ok := strings.CutSuffix(pattern, "/**"); ok && base == path {
		return true
	}
	matched, err := doublestar.Match(pattern, path)
	return err == nil && matched
}
