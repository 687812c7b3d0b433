package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenlms/lumen-api/internal/models"
	appErrors "github.com/lumenlms/lumen-api/pkg/errors"
)

type teamRepository interface {
	FindByID(ctx context.Context, id string) (*models.Team, error)
	Create(ctx context.Context, team *models.Team) error
	Update(ctx context.Context, team *models.Team) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.TeamFilter) ([]models.Team, int, error)
}

// CreateTeamRequest provisions a new tenant team.
type CreateTeamRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	Slug     string `json:"slug" validate:"required,min=2,lowercase"`
	Branding string `json:"branding"`
}

// UpdateTeamRequest edits team fields.
type UpdateTeamRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=2"`
	Branding *string `json:"branding,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}

// TeamService manages tenant teams. Team provisioning is a superadmin
// operation; team admins can edit their own team.
type TeamService struct {
	repo      teamRepository
	access    connectionAccessResolver
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeamService constructs TeamService.
func NewTeamService(repo teamRepository, access connectionAccessResolver, validate *validator.Validate, logger *zap.Logger) *TeamService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeamService{repo: repo, access: access, validator: validate, logger: logger}
}

// Create provisions a team. Superadmin only.
func (s *TeamService) Create(ctx context.Context, actor models.Actor, req CreateTeamRequest) (*models.Team, error) {
	if actor.Role != models.RoleSuperAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only superadmins may create teams")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid team payload")
	}

	now := time.Now().UTC()
	team := &models.Team{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Slug:      strings.ToLower(strings.TrimSpace(req.Slug)),
		Branding:  req.Branding,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, team); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create team")
	}
	return team, nil
}

// Get returns a team by ID.
func (s *TeamService) Get(ctx context.Context, id string) (*models.Team, error) {
	return s.load(ctx, id)
}

// Update edits a team. Superadmins edit any team; admins their own.
func (s *TeamService) Update(ctx context.Context, actor models.Actor, id string, req UpdateTeamRequest) (*models.Team, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid team payload")
	}
	if actor.Role != models.RoleSuperAdmin && actor.TeamID != id {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot edit another team")
	}

	team, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		team.Name = *req.Name
	}
	if req.Branding != nil {
		team.Branding = *req.Branding
	}
	if req.Active != nil {
		if actor.Role != models.RoleSuperAdmin {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only superadmins may change team status")
		}
		team.Active = *req.Active
	}
	team.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, team); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update team")
	}
	return team, nil
}

// Delete removes a team. Superadmin only. Owned courses, collections, and
// edges cascade in the database. Cached decisions mentioning the team as
// actor, object, or edge scope are all flushed; the bulk edge delete would
// otherwise leave user grants scoped by this team resolvable until TTL.
func (s *TeamService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if actor.Role != models.RoleSuperAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only superadmins may delete teams")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete team")
	}
	s.access.InvalidateActor(ctx, models.KindTeam, id)
	s.access.InvalidateResource(ctx, models.KindTeam, id)
	s.access.InvalidateScope(ctx, id)
	return nil
}

// List returns teams with pagination.
func (s *TeamService) List(ctx context.Context, filter models.TeamFilter) ([]models.Team, *models.Pagination, error) {
	teams, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teams")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return teams, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *TeamService) load(ctx context.Context, id string) (*models.Team, error) {
	team, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "team not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load team")
	}
	return team, nil
}
