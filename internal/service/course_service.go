package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenlms/lumen-api/internal/models"
	appErrors "github.com/lumenlms/lumen-api/pkg/errors"
	"github.com/lumenlms/lumen-api/pkg/export"
)

type courseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	ListAcceptedLearners(ctx context.Context, courseID string) ([]models.RosterEntry, error)
}

// CreateCourseRequest creates a course owned by the actor's team.
type CreateCourseRequest struct {
	Title       string `json:"title" validate:"required,min=2"`
	Description string `json:"description"`
	Published   bool   `json:"published"`
}

// UpdateCourseRequest edits course fields. Nil pointers leave the field alone.
type UpdateCourseRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=2"`
	Description *string `json:"description,omitempty"`
	Published   *bool   `json:"published,omitempty"`
}

// ExportFormat selects the roster export encoding.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult is a rendered export document.
type ExportResult struct {
	FileName    string
	ContentType string
	Content     []byte
}

// CourseService manages courses and their accepted-learner rosters.
type CourseService struct {
	repo      courseRepository
	access    connectionAccessResolver
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(repo courseRepository, access connectionAccessResolver, csv *export.CSVExporter, pdf *export.PDFExporter, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, access: access, csv: csv, pdf: pdf, validator: validate, logger: logger}
}

// Create creates a course owned by the actor's team.
func (s *CourseService) Create(ctx context.Context, actor models.Actor, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if actor.TeamID == "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "creating a course requires a team")
	}

	now := time.Now().UTC()
	course := &models.Course{
		ID:          uuid.NewString(),
		TeamID:      actor.TeamID,
		Title:       req.Title,
		Description: req.Description,
		Published:   req.Published,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return course, nil
}

// Get returns a course the actor's team can see at the shared level or above.
func (s *CourseService) Get(ctx context.Context, actor models.Actor, id string) (*models.Course, error) {
	if err := s.access.RequireTeamAccess(ctx, actor.TeamID, models.KindCourse, id, models.AccessShared); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// Update edits a course. Root access only.
func (s *CourseService) Update(ctx context.Context, actor models.Actor, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if err := s.access.RequireTeamAccess(ctx, actor.TeamID, models.KindCourse, id, models.AccessRoot); err != nil {
		return nil, err
	}

	course, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		course.Title = *req.Title
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Published != nil {
		course.Published = *req.Published
	}
	course.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	s.access.InvalidateResource(ctx, models.KindCourse, id)
	return course, nil
}

// Delete removes a course. Root access only. Connection edges and collection
// links referencing the course are removed by the database cascade.
func (s *CourseService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if err := s.access.RequireTeamAccess(ctx, actor.TeamID, models.KindCourse, id, models.AccessRoot); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	s.access.InvalidateResource(ctx, models.KindCourse, id)
	return nil
}

// List returns courses with pagination. Non-superadmins see their team's
// courses only.
func (s *CourseService) List(ctx context.Context, actor models.Actor, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	if actor.Role != models.RoleSuperAdmin {
		filter.TeamID = actor.TeamID
	}
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return courses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ExportRoster renders the accepted learners of a course as CSV or PDF.
// Root access only.
func (s *CourseService) ExportRoster(ctx context.Context, actor models.Actor, courseID string, format ExportFormat) (*ExportResult, error) {
	if err := s.access.RequireTeamAccess(ctx, actor.TeamID, models.KindCourse, courseID, models.AccessRoot); err != nil {
		return nil, err
	}

	course, err := s.load(ctx, courseID)
	if err != nil {
		return nil, err
	}

	roster, err := s.repo.ListAcceptedLearners(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	dataset := export.Dataset{
		Headers: []string{"Full Name", "Email", "Team", "Accepted At"},
		Rows:    make([]map[string]string, 0, len(roster)),
	}
	for _, entry := range roster {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Full Name":   entry.FullName,
			"Email":       entry.Email,
			"Team":        entry.TeamName,
			"Accepted At": entry.AcceptedAt.UTC().Format(time.RFC3339),
		})
	}

	switch format {
	case ExportFormatCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv roster")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("roster-%s.csv", courseID),
			ContentType: "text/csv",
			Content:     content,
		}, nil
	case ExportFormatPDF:
		content, err := s.pdf.Render(dataset, fmt.Sprintf("Roster: %s", course.Title))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf roster")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("roster-%s.pdf", courseID),
			ContentType: "application/pdf",
			Content:     content,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func (s *CourseService) load(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}
