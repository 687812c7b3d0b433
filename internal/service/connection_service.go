package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/lumenlms/lumen-api/internal/models"
	appErrors "github.com/lumenlms/lumen-api/pkg/errors"
)

type connectionRepository interface {
	Upsert(ctx context.Context, conn *models.Connection) (*models.Connection, bool, error)
	FindByID(ctx context.Context, id string) (*models.Connection, error)
	UpdateStatus(ctx context.Context, id string, status models.ConnectStatus) (bool, error)
	Delete(ctx context.Context, id string) error
	DeleteWithShareCascade(ctx context.Context, connectionID, recipientTeamID, courseID string) error
	List(ctx context.Context, filter models.ConnectionFilter) ([]models.ConnectionDetail, int, error)
}

type inviteeResolver interface {
	FindOrCreateByEmail(ctx context.Context, email string) (*models.User, error)
	ListTeamMemberEmails(ctx context.Context, teamID string, role models.UserRole) ([]string, error)
}

type teamReader interface {
	FindByID(ctx context.Context, id string) (*models.Team, error)
}

type courseFinder interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type collectionCourseLister interface {
	FindByID(ctx context.Context, id string) (*models.Collection, error)
	ListCourses(ctx context.Context, collectionID string) ([]models.Course, error)
}

type connectionAccessResolver interface {
	RequireTeamAccess(ctx context.Context, teamID string, objectKind models.EntityKind, objectID string, minimum models.AccessLevel) error
	InvalidateActor(ctx context.Context, actorKind models.EntityKind, actorID string)
	InvalidateResource(ctx context.Context, objectKind models.EntityKind, objectID string)
	InvalidateScope(ctx context.Context, scopeID string)
}

// InviteRequest invites a set of email addresses into a team, course, or
// collection. Unknown addresses become first-class user rows.
type InviteRequest struct {
	ObjectKind models.EntityKind `json:"object_kind" validate:"required,oneof=TEAM COURSE COLLECTION"`
	ObjectID   string            `json:"object_id" validate:"required"`
	Emails     []string          `json:"emails" validate:"required,min=1,dive,email"`
}

// RequestAccessRequest is a learner asking for access on their own behalf.
// TeamID is the learner team scoping course and collection requests.
type RequestAccessRequest struct {
	ObjectKind models.EntityKind `json:"object_kind" validate:"required,oneof=TEAM COURSE COLLECTION"`
	ObjectID   string            `json:"object_id" validate:"required"`
	TeamID     string            `json:"team_id,omitempty"`
}

// ShareCourseRequest offers a course to another team.
type ShareCourseRequest struct {
	CourseID        string `json:"course_id" validate:"required"`
	RecipientTeamID string `json:"recipient_team_id" validate:"required"`
}

// RespondRequest moves a pending edge to a terminal status.
type RespondRequest struct {
	Status models.ConnectStatus `json:"status" validate:"required,oneof=ACCEPTED REJECTED"`
}

// ConnectionServiceConfig carries connection policy knobs.
type ConnectionServiceConfig struct {
	// WelcomeTeamID names the open team whose join requests auto-accept.
	WelcomeTeamID string
}

// ConnectionService creates, answers, removes, and lists relationship edges.
// It authorizes itself through the access resolver before mutating and hands
// every created edge batch to the notification dispatcher.
type ConnectionService struct {
	repo        connectionRepository
	users       inviteeResolver
	teams       teamReader
	courses     courseFinder
	collections collectionCourseLister
	access      connectionAccessResolver
	dispatcher  NotificationDispatcher
	metrics     *MetricsService
	config      ConnectionServiceConfig
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewConnectionService constructs ConnectionService.
func NewConnectionService(repo connectionRepository, users inviteeResolver, teams teamReader, courses courseFinder, collections collectionCourseLister, access connectionAccessResolver, dispatcher NotificationDispatcher, metrics *MetricsService, cfg ConnectionServiceConfig, validate *validator.Validate, logger *zap.Logger) *ConnectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectionService{
		repo:        repo,
		users:       users,
		teams:       teams,
		courses:     courses,
		collections: collections,
		access:      access,
		dispatcher:  dispatcher,
		metrics:     metrics,
		config:      cfg,
		validator:   validate,
		logger:      logger,
	}
}

// Invite writes one invite edge per resolved recipient and dispatches one
// notification per unique recipient. An invite landing on a pending request
// merges to ACCEPTED; any other existing edge is left untouched.
func (s *ConnectionService) Invite(ctx context.Context, actor models.Actor, req InviteRequest) ([]models.Connection, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid invite payload")
	}

	team, scopeID, err := s.authorizeOwnerMutation(ctx, actor, req.ObjectKind, req.ObjectID)
	if err != nil {
		return nil, err
	}

	objectLabel, courses, err := s.describeObject(ctx, req.ObjectKind, req.ObjectID, team)
	if err != nil {
		return nil, err
	}

	edges := make([]models.Connection, 0, len(req.Emails))
	seen := make(map[string]bool, len(req.Emails))
	anyWritten := false
	for _, email := range req.Emails {
		normalized := strings.ToLower(strings.TrimSpace(email))
		if seen[normalized] {
			continue
		}
		seen[normalized] = true

		user, err := s.users.FindOrCreateByEmail(ctx, normalized)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve invite recipient")
		}

		stored, written, err := s.repo.Upsert(ctx, &models.Connection{
			SubjectKind:   models.KindUser,
			SubjectID:     user.ID,
			ObjectKind:    req.ObjectKind,
			ObjectID:      req.ObjectID,
			ScopeID:       scopeID,
			ConnectType:   models.ConnectTypeInvite,
			ConnectStatus: models.ConnectStatusPending,
		})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write invite edge")
		}
		s.metrics.RecordEdgeWrite("invite", upsertOutcome(stored, written))
		edges = append(edges, *stored)

		// A no-op against an existing edge changes nothing and must not
		// re-notify a recipient who already answered.
		if !written {
			continue
		}
		anyWritten = true
		s.access.InvalidateActor(ctx, models.KindUser, user.ID)
		s.dispatchInvite(ctx, normalized, objectLabel, courses, team)
	}
	if anyWritten {
		s.access.InvalidateResource(ctx, req.ObjectKind, req.ObjectID)
	}

	return edges, nil
}

// RequestAccess writes a request edge for the caller. Requests into the
// configured welcome team accept on creation instead of going pending.
func (s *ConnectionService) RequestAccess(ctx context.Context, actor models.Actor, req RequestAccessRequest) (*models.Connection, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}
	if actor.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "request requires an authenticated user")
	}

	scopeID := ""
	if req.ObjectKind == models.KindCourse || req.ObjectKind == models.KindCollection {
		if req.TeamID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "missing learner team scope")
		}
		scopeID = req.TeamID
	}

	ownerTeam, err := s.objectOwnerTeam(ctx, req.ObjectKind, req.ObjectID)
	if err != nil {
		return nil, err
	}

	status := models.ConnectStatusPending
	if req.ObjectKind == models.KindTeam && s.config.WelcomeTeamID != "" && req.ObjectID == s.config.WelcomeTeamID {
		status = models.ConnectStatusAccepted
	}

	stored, written, err := s.repo.Upsert(ctx, &models.Connection{
		SubjectKind:   models.KindUser,
		SubjectID:     actor.UserID,
		ObjectKind:    req.ObjectKind,
		ObjectID:      req.ObjectID,
		ScopeID:       scopeID,
		ConnectType:   models.ConnectTypeRequest,
		ConnectStatus: status,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write request edge")
	}
	s.metrics.RecordEdgeWrite("request", upsertOutcome(stored, written))

	s.access.InvalidateActor(ctx, models.KindUser, actor.UserID)
	if written && stored.ConnectStatus == models.ConnectStatusPending {
		s.notifyOwnerAdmins(ctx, ownerTeam, fmt.Sprintf("New access request for %s", s.objectNoun(req.ObjectKind)))
	}
	return stored, nil
}

// ShareCourse offers a course to another team as a pending team↔course edge.
func (s *ConnectionService) ShareCourse(ctx context.Context, actor models.Actor, req ShareCourseRequest) (*models.Connection, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid share payload")
	}
	if req.RecipientTeamID == actor.TeamID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot share a course with its own team")
	}

	if err := s.access.RequireTeamAccess(ctx, actor.TeamID, models.KindCourse, req.CourseID, models.AccessRoot); err != nil {
		return nil, err
	}

	recipient, err := s.teams.FindByID(ctx, req.RecipientTeamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "recipient team not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recipient team")
	}

	stored, written, err := s.repo.Upsert(ctx, &models.Connection{
		SubjectKind:   models.KindTeam,
		SubjectID:     req.RecipientTeamID,
		ObjectKind:    models.KindCourse,
		ObjectID:      req.CourseID,
		ConnectType:   models.ConnectTypeInvite,
		ConnectStatus: models.ConnectStatusPending,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write share edge")
	}
	s.metrics.RecordEdgeWrite("share", upsertOutcome(stored, written))

	s.access.InvalidateActor(ctx, models.KindTeam, req.RecipientTeamID)
	s.access.InvalidateResource(ctx, models.KindCourse, req.CourseID)
	if written {
		s.notifyOwnerAdmins(ctx, recipient, "A course has been shared with your team")
	}
	return stored, nil
}

// Respond moves a pending edge to ACCEPTED or REJECTED. Only the recipient
// side may answer: the invite target for invites, the object owner for
// requests. An already-terminal edge is returned unchanged.
func (s *ConnectionService) Respond(ctx context.Context, actor models.Actor, connectionID string, req RespondRequest) (*models.Connection, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid respond payload")
	}

	conn, err := s.loadConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeRespond(ctx, actor, conn); err != nil {
		return nil, err
	}

	if conn.Terminal() {
		return conn, nil
	}

	updated, err := s.repo.UpdateStatus(ctx, conn.ID, req.Status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update connection status")
	}
	if !updated {
		// Lost the race against another responder; surface the stored row.
		return s.loadConnection(ctx, connectionID)
	}

	s.access.InvalidateActor(ctx, conn.SubjectKind, conn.SubjectID)
	s.access.InvalidateResource(ctx, conn.ObjectKind, conn.ObjectID)
	return s.loadConnection(ctx, connectionID)
}

// Remove deletes an edge. Allowed for the subject removing itself or for a
// party with root access to the object. Removing a team↔course share also
// retracts the recipient team's collection links for that course.
func (s *ConnectionService) Remove(ctx context.Context, actor models.Actor, connectionID string) error {
	conn, err := s.loadConnection(ctx, connectionID)
	if err != nil {
		return err
	}

	if err := s.authorizeRemove(ctx, actor, conn); err != nil {
		return err
	}

	if conn.SubjectKind == models.KindTeam && conn.ObjectKind == models.KindCourse {
		if err := s.repo.DeleteWithShareCascade(ctx, conn.ID, conn.SubjectID, conn.ObjectID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove share")
		}
	} else if err := s.repo.Delete(ctx, conn.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove connection")
	}

	s.metrics.RecordEdgeWrite("remove", "written")
	s.access.InvalidateActor(ctx, conn.SubjectKind, conn.SubjectID)
	s.access.InvalidateResource(ctx, conn.ObjectKind, conn.ObjectID)
	return nil
}

// List returns edges visible to the actor with pagination metadata.
func (s *ConnectionService) List(ctx context.Context, actor models.Actor, filter models.ConnectionFilter) ([]models.ConnectionDetail, *models.Pagination, error) {
	if err := s.authorizeList(ctx, actor, filter); err != nil {
		return nil, nil, err
	}

	details, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list connections")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return details, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *ConnectionService) loadConnection(ctx context.Context, id string) (*models.Connection, error) {
	conn, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "connection not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load connection")
	}
	return conn, nil
}

// authorizeOwnerMutation checks that the actor's team holds root access to
// the invite object and returns the owning team plus the edge scope.
func (s *ConnectionService) authorizeOwnerMutation(ctx context.Context, actor models.Actor, objectKind models.EntityKind, objectID string) (*models.Team, string, error) {
	switch objectKind {
	case models.KindTeam:
		if actor.TeamID != objectID {
			return nil, "", appErrors.Clone(appErrors.ErrForbidden, "only the team itself may invite members")
		}
		team, err := s.teams.FindByID(ctx, objectID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, "", appErrors.Clone(appErrors.ErrNotFound, "team not found")
			}
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load team")
		}
		return team, "", nil
	case models.KindCourse, models.KindCollection:
		if err := s.access.RequireTeamAccess(ctx, actor.TeamID, objectKind, objectID, models.AccessRoot); err != nil {
			return nil, "", err
		}
		team, err := s.teams.FindByID(ctx, actor.TeamID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load team")
		}
		return team, actor.TeamID, nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported invite object")
	}
}

func (s *ConnectionService) authorizeRespond(ctx context.Context, actor models.Actor, conn *models.Connection) error {
	if conn.ConnectType == models.ConnectTypeInvite {
		// Invite target answers.
		switch conn.SubjectKind {
		case models.KindUser:
			if actor.UserID == conn.SubjectID {
				return nil
			}
		case models.KindTeam:
			if actor.TeamID == conn.SubjectID {
				return nil
			}
		}
		return appErrors.Clone(appErrors.ErrForbidden, "only the invited party may respond")
	}

	// Request: the object owner answers.
	if conn.ObjectKind == models.KindTeam {
		if actor.TeamID == conn.ObjectID {
			return nil
		}
		return appErrors.Clone(appErrors.ErrForbidden, "only the requested team may respond")
	}
	return s.access.RequireTeamAccess(ctx, actor.TeamID, conn.ObjectKind, conn.ObjectID, models.AccessRoot)
}

func (s *ConnectionService) authorizeRemove(ctx context.Context, actor models.Actor, conn *models.Connection) error {
	switch conn.SubjectKind {
	case models.KindUser:
		if actor.UserID == conn.SubjectID {
			return nil
		}
	case models.KindTeam:
		if actor.TeamID == conn.SubjectID {
			return nil
		}
	}
	if conn.ObjectKind == models.KindTeam {
		if actor.TeamID == conn.ObjectID {
			return nil
		}
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to remove this connection")
	}
	return s.access.RequireTeamAccess(ctx, actor.TeamID, conn.ObjectKind, conn.ObjectID, models.AccessRoot)
}

func (s *ConnectionService) authorizeList(ctx context.Context, actor models.Actor, filter models.ConnectionFilter) error {
	if actor.Role == models.RoleSuperAdmin {
		return nil
	}
	if filter.SubjectKind == models.KindUser && filter.SubjectID == actor.UserID && actor.UserID != "" {
		return nil
	}
	if filter.SubjectKind == models.KindTeam && filter.SubjectID == actor.TeamID && actor.TeamID != "" {
		return nil
	}
	if filter.ObjectKind == models.KindTeam && filter.ObjectID == actor.TeamID && actor.TeamID != "" {
		return nil
	}
	if filter.ObjectID != "" && (filter.ObjectKind == models.KindCourse || filter.ObjectKind == models.KindCollection) {
		return s.access.RequireTeamAccess(ctx, actor.TeamID, filter.ObjectKind, filter.ObjectID, models.AccessShared)
	}
	return appErrors.Clone(appErrors.ErrForbidden, "list must be scoped to your user, your team, or an accessible resource")
}

func (s *ConnectionService) objectOwnerTeam(ctx context.Context, objectKind models.EntityKind, objectID string) (*models.Team, error) {
	switch objectKind {
	case models.KindTeam:
		team, err := s.teams.FindByID(ctx, objectID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "team not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load team")
		}
		return team, nil
	case models.KindCourse, models.KindCollection:
		ownerID, err := s.resourceOwnerID(ctx, objectKind, objectID)
		if err != nil {
			return nil, err
		}
		team, err := s.teams.FindByID(ctx, ownerID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load owning team")
		}
		return team, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported request object")
	}
}

func (s *ConnectionService) resourceOwnerID(ctx context.Context, objectKind models.EntityKind, objectID string) (string, error) {
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
		return "", appErrors.Clone(appErrors.ErrValidation, "object has no owning team")
	}
}

func (s *ConnectionService) describeObject(ctx context.Context, objectKind models.EntityKind, objectID string, team *models.Team) (string, []models.Course, error) {
	switch objectKind {
	case models.KindTeam:
		if team != nil {
			return team.Name, nil, nil
		}
		return "team", nil, nil
	case models.KindCollection:
		collection, err := s.collections.FindByID(ctx, objectID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", nil, appErrors.Clone(appErrors.ErrNotFound, "collection not found")
			}
			return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load collection")
		}
		courses, err := s.collections.ListCourses(ctx, objectID)
		if err != nil {
			return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list collection courses")
		}
		return collection.Name, courses, nil
	case models.KindCourse:
		course, err := s.courses.FindByID(ctx, objectID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
		return course.Title, nil, nil
	default:
		return s.objectNoun(objectKind), nil, nil
	}
}

func (s *ConnectionService) objectNoun(kind models.EntityKind) string {
	switch kind {
	case models.KindTeam:
		return "team"
	case models.KindCourse:
		return "course"
	case models.KindCollection:
		return "collection"
	default:
		return strings.ToLower(string(kind))
	}
}

// dispatchInvite sends one message to a single recipient. A collection invite
// lists every course currently in the collection so the recipient gets one
// email, not one per course.
func (s *ConnectionService) dispatchInvite(ctx context.Context, email, objectLabel string, courses []models.Course, team *models.Team) {
	if s.dispatcher == nil {
		return
	}
	branding := ""
	sender := "the platform"
	if team != nil {
		branding = team.Branding
		sender = team.Name
	}
	content := fmt.Sprintf("%s has invited you to %q.", sender, objectLabel)
	if len(courses) > 0 {
		titles := make([]string, len(courses))
		for i, c := range courses {
			titles[i] = c.Title
		}
		content += " Included courses: " + strings.Join(titles, ", ") + "."
	}
	msg := models.NotificationMessage{
		Recipients: []string{email},
		Subject:    fmt.Sprintf("Invitation to %s", objectLabel),
		Content:    content,
		Branding:   branding,
	}
	if err := s.dispatcher.Dispatch(ctx, msg); err != nil {
		s.logger.Warn("invite notification dispatch failed", zap.String("recipient", email), zap.Error(err))
	}
}

func (s *ConnectionService) notifyOwnerAdmins(ctx context.Context, team *models.Team, subject string) {
	if s.dispatcher == nil || team == nil {
		return
	}
	admins, err := s.users.ListTeamMemberEmails(ctx, team.ID, models.RoleAdmin)
	if err != nil {
		s.logger.Warn("failed to resolve team admins for notification", zap.String("team_id", team.ID), zap.Error(err))
		return
	}
	if len(admins) == 0 {
		return
	}
	msg := models.NotificationMessage{
		Recipients: admins,
		Subject:    subject,
		Content:    fmt.Sprintf("%s: review it from the %s dashboard.", subject, team.Name),
		Branding:   team.Branding,
	}
	if err := s.dispatcher.Dispatch(ctx, msg); err != nil {
		s.logger.Warn("owner notification dispatch failed", zap.String("team_id", team.ID), zap.Error(err))
	}
}

func upsertOutcome(stored *models.Connection, written bool) string {
	if !written {
		return "noop"
	}
	if stored.ConnectType == models.ConnectTypeRequest && stored.ConnectStatus == models.ConnectStatusAccepted {
		return "merged"
	}
	return "written"
}
