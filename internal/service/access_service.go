package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/lumenlms/lumen-api/internal/models"
	appErrors "github.com/lumenlms/lumen-api/pkg/errors"
)

type accessEdgeReader interface {
	FindAcceptedByKey(ctx context.Context, key models.ConnectionKey) (*models.Connection, error)
	FindAcceptedCollectionForCourse(ctx context.Context, userID, scopeID, courseID string) (string, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type collectionReader interface {
	FindByID(ctx context.Context, id string) (*models.Collection, error)
}

// AccessService resolves an actor's effective access level against a resource
// by walking direct and transitive accepted edges. ROOT means the actor's
// team owns the resource; SHARED means an accepted edge grants access without
// ownership. Results are cached and every edge mutation invalidates them.
type AccessService struct {
	edges       accessEdgeReader
	courses     courseReader
	collections collectionReader
	cache       *CacheService
	logger      *zap.Logger
}

// NewAccessService constructs the resolver.
func NewAccessService(edges accessEdgeReader, courses courseReader, collections collectionReader, cache *CacheService, logger *zap.Logger) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessService{edges: edges, courses: courses, collections: collections, cache: cache, logger: logger}
}

func accessCacheKey(actorKind models.EntityKind, actorID string, objectKind models.EntityKind, objectID, scopeID string) string {
	if scopeID == "" {
		scopeID = "-"
	}
	return fmt.Sprintf("access:%s:%s:%s:%s:%s", actorKind, actorID, objectKind, objectID, scopeID)
}

// ResolveUserCourse computes a learner's access to a course within the team
// scope: a direct accepted edge first, then any accepted collection edge whose
// collection currently links the course.
func (s *AccessService) ResolveUserCourse(ctx context.Context, userID, courseID, teamID string) (models.AccessDecision, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.AccessDecision{}, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return models.AccessDecision{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	key := accessCacheKey(models.KindUser, userID, models.KindCourse, courseID, teamID)
	var cached models.AccessDecision
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	decision := models.AccessDecision{Level: models.AccessNone}

	direct, err := s.edges.FindAcceptedByKey(ctx, models.ConnectionKey{
		SubjectKind: models.KindUser,
		SubjectID:   userID,
		ObjectKind:  models.KindCourse,
		ObjectID:    courseID,
		ScopeID:     teamID,
	})
	switch {
	case err == nil && direct != nil:
		decision.Level = models.AccessShared
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return models.AccessDecision{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve direct access")
	default:
		viaCollection, err := s.edges.FindAcceptedCollectionForCourse(ctx, userID, teamID, courseID)
		if err != nil {
			return models.AccessDecision{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve collection access")
		}
		if viaCollection != "" {
			decision.Level = models.AccessShared
			decision.ViaCollectionID = viaCollection
		}
	}

	if err := s.cache.Set(ctx, key, decision, 0); err != nil {
		s.logger.Warn("access cache set failed", zap.String("key", key), zap.Error(err))
	}
	return decision, nil
}

// ResolveTeamResource computes a team's access to a course or collection.
// Ownership wins as ROOT; an accepted team↔course sharing edge yields SHARED.
// The filter narrows the acceptable outcome: a caller asking specifically for
// ROOT must not be silently handed SHARED, and vice versa.
func (s *AccessService) ResolveTeamResource(ctx context.Context, teamID string, objectKind models.EntityKind, objectID string, filter models.AccessLevel) (models.AccessLevel, error) {
	ownerTeamID, err := s.resourceOwner(ctx, objectKind, objectID)
	if err != nil {
		return models.AccessNone, err
	}

	key := accessCacheKey(models.KindTeam, teamID, objectKind, objectID, "")
	var level models.AccessLevel
	if hit, err := s.cache.Get(ctx, key, &level); err != nil || !hit {
		level = models.AccessNone
		if ownerTeamID == teamID {
			level = models.AccessRoot
		} else if objectKind == models.KindCourse {
			share, err := s.edges.FindAcceptedByKey(ctx, models.ConnectionKey{
				SubjectKind: models.KindTeam,
				SubjectID:   teamID,
				ObjectKind:  models.KindCourse,
				ObjectID:    objectID,
			})
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return models.AccessNone, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve share access")
			}
			if share != nil && err == nil {
				level = models.AccessShared
			}
		}
		if err := s.cache.Set(ctx, key, level, 0); err != nil {
			s.logger.Warn("access cache set failed", zap.String("key", key), zap.Error(err))
		}
	}

	switch filter {
	case models.AccessRoot:
		if level != models.AccessRoot {
			return models.AccessNone, nil
		}
	case models.AccessShared:
		if level != models.AccessShared {
			return models.AccessNone, nil
		}
	}
	return level, nil
}

// RequireTeamAccess resolves and rejects with Forbidden when the team's level
// is below the required minimum. Shared access never escalates to mutation
// rights reserved for owners.
func (s *AccessService) RequireTeamAccess(ctx context.Context, teamID string, objectKind models.EntityKind, objectID string, minimum models.AccessLevel) error {
	level, err := s.ResolveTeamResource(ctx, teamID, objectKind, objectID, "")
	if err != nil {
		return err
	}
	if !level.Satisfies(minimum) {
		return appErrors.Clone(appErrors.ErrForbidden, "insufficient access to resource")
	}
	return nil
}

// InvalidateActor drops cached decisions for an actor.
func (s *AccessService) InvalidateActor(ctx context.Context, actorKind models.EntityKind, actorID string) {
	pattern := fmt.Sprintf("access:%s:%s:*", actorKind, actorID)
	if err := s.cache.Invalidate(ctx, pattern); err != nil {
		s.logger.Warn("access cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
	}
}

// InvalidateResource drops cached decisions for a resource.
func (s *AccessService) InvalidateResource(ctx context.Context, objectKind models.EntityKind, objectID string) {
	pattern := fmt.Sprintf("access:*:%s:%s:*", objectKind, objectID)
	if err := s.cache.Invalidate(ctx, pattern); err != nil {
		s.logger.Warn("access cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
	}
}

// InvalidateScope drops every cached decision scoped by a team. User edges
// into courses and collections carry the team as the trailing scope segment,
// so deleting a team must flush them even when the resource survives.
func (s *AccessService) InvalidateScope(ctx context.Context, scopeID string) {
	pattern := fmt.Sprintf("access:*:%s", scopeID)
	if err := s.cache.Invalidate(ctx, pattern); err != nil {
		s.logger.Warn("access cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
	}
}

func (s *AccessService) resourceOwner(ctx context.Context, objectKind models.EntityKind, objectID string) (string, error) {
	switch objectKind {
	case models.KindCourse:
		course, err := s.courses.FindByID(ctx, objectID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
		return course.TeamID, nil
	case models.KindCollection:
		collection, err := s.collections.FindByID(ctx, objectID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", appErrors.Clone(appErrors.ErrNotFound, "collection not found")
			}
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load collection")
		}
		return collection.TeamID, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "unsupported resource kind")
	}
}
