package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenlms/lumen-api/internal/models"
	appErrors "github.com/lumenlms/lumen-api/pkg/errors"
)

type collectionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Collection, error)
	Create(ctx context.Context, collection *models.Collection) error
	Update(ctx context.Context, collection *models.Collection) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.CollectionFilter) ([]models.Collection, int, error)
	LinkCourse(ctx context.Context, collectionID, courseID string) error
	UnlinkCourse(ctx context.Context, collectionID, courseID string) error
	ListCourses(ctx context.Context, collectionID string) ([]models.Course, error)
}

// CreateCollectionRequest creates a collection owned by the actor's team.
type CreateCollectionRequest struct {
	Name        string `json:"name" validate:"required,min=2"`
	Description string `json:"description"`
}

// UpdateCollectionRequest edits collection fields.
type UpdateCollectionRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=2"`
	Description *string `json:"description,omitempty"`
}

// CollectionService manages collections and their course membership. Linking
// a course requires the team to hold root or shared access to that course, so
// a team can bundle shared courses but never courses it cannot see.
type CollectionService struct {
	repo      collectionRepository
	access    connectionAccessResolver
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCollectionService constructs CollectionService.
func NewCollectionService(repo collectionRepository, access connectionAccessResolver, validate *validator.Validate, logger *zap.Logger) *CollectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CollectionService{repo: repo, access: access, validator: validate, logger: logger}
}

// Create creates a collection owned by the actor's team.
func (s *CollectionService) Create(ctx context.Context, actor models.Actor, req CreateCollectionRequest) (*models.Collection, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid collection payload")
	}
	if actor.TeamID == "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "creating a collection requires a team")
	}

	now := time.Now().UTC()
	collection := &models.Collection{
		ID:          uuid.NewString(),
		TeamID:      actor.TeamID,
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, collection); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create collection")
	}
	return collection, nil
}

// Get returns a collection visible to the actor's team.
func (s *CollectionService) Get(ctx context.Context, actor models.Actor, id string) (*models.Collection, error) {
	if err := s.access.RequireTeamAccess(ctx, actor.TeamID, models.KindCollection, id, models.AccessShared); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// Update edits a collection. Root access only.
func (s *CollectionService) Update(ctx context.Context, actor models.Actor, id string, req UpdateCollectionRequest) (*models.Collection, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid collection payload")
	}
	if err := s.access.RequireTeamAccess(ctx, actor.TeamID, models.KindCollection, id, models.AccessRoot); err != nil {
		return nil, err
	}

	collection, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		collection.Name = *req.Name
	}
	if req.Description != nil {
		collection.Description = *req.Description
	}
	collection.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, collection); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update collection")
	}
	s.access.InvalidateResource(ctx, models.KindCollection, id)
	return collection, nil
}

// Delete removes a collection. Root access only. Edges and links cascade in
// the database. Linked courses are captured first so their cached user
// decisions can be flushed; deleting the collection retracts any access that
// flowed through it, and a cached SHARED must not outlive the link.
func (s *CollectionService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if err := s.access.RequireTeamAccess(ctx, actor.TeamID, models.KindCollection, id, models.AccessRoot); err != nil {
		return err
	}
	courses, err := s.repo.ListCourses(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list collection courses")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete collection")
	}
	s.access.InvalidateResource(ctx, models.KindCollection, id)
	for _, course := range courses {
		s.access.InvalidateResource(ctx, models.KindCourse, course.ID)
	}
	return nil
}

// List returns collections with pagination. Non-superadmins see their team's
// collections only.
func (s *CollectionService) List(ctx context.Context, actor models.Actor, filter models.CollectionFilter) ([]models.Collection, *models.Pagination, error) {
	if actor.Role != models.RoleSuperAdmin {
		filter.TeamID = actor.TeamID
	}
	collections, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list collections")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return collections, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// LinkCourse adds a course to a collection. The actor's team needs root on
// the collection and at least shared access to the course. Linking widens
// what existing collection grants reach, so both caches are flushed.
func (s *CollectionService) LinkCourse(ctx context.Context, actor models.Actor, collectionID, courseID string) error {
	if err := s.access.RequireTeamAccess(ctx, actor.TeamID, models.KindCollection, collectionID, models.AccessRoot); err != nil {
		return err
	}
	if err := s.access.RequireTeamAccess(ctx, actor.TeamID, models.KindCourse, courseID, models.AccessShared); err != nil {
		return err
	}
	if err := s.repo.LinkCourse(ctx, collectionID, courseID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link course")
	}
	s.access.InvalidateResource(ctx, models.KindCollection, collectionID)
	s.access.InvalidateResource(ctx, models.KindCourse, courseID)
	return nil
}

// UnlinkCourse removes a course from a collection. Root on the collection.
func (s *CollectionService) UnlinkCourse(ctx context.Context, actor models.Actor, collectionID, courseID string) error {
	if err := s.access.RequireTeamAccess(ctx, actor.TeamID, models.KindCollection, collectionID, models.AccessRoot); err != nil {
		return err
	}
	if err := s.repo.UnlinkCourse(ctx, collectionID, courseID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unlink course")
	}
	s.access.InvalidateResource(ctx, models.KindCollection, collectionID)
	s.access.InvalidateResource(ctx, models.KindCourse, courseID)
	return nil
}

// ListCourses returns the courses linked into a collection.
func (s *CollectionService) ListCourses(ctx context.Context, actor models.Actor, collectionID string) ([]models.Course, error) {
	if err := s.access.RequireTeamAccess(ctx, actor.TeamID, models.KindCollection, collectionID, models.AccessShared); err != nil {
		return nil, err
	}
	courses, err := s.repo.ListCourses(ctx, collectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list collection courses")
	}
	return courses, nil
}

func (s *CollectionService) load(ctx context.Context, id string) (*models.Collection, error) {
	collection, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "collection not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load collection")
	}
	return collection, nil
}
