package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlms/lumen-api/internal/models"
	appErrors "github.com/lumenlms/lumen-api/pkg/errors"
)

type mockConnectionRepo struct {
	edges    map[string]models.Connection
	seq      int
	cascades []string
	deleted  []string
}

func newMockConnectionRepo() *mockConnectionRepo {
	return &mockConnectionRepo{edges: make(map[string]models.Connection)}
}

func (m *mockConnectionRepo) seed(conn models.Connection) models.Connection {
	if conn.ID == "" {
		m.seq++
		conn.ID = fmt.Sprintf("conn-%d", m.seq)
	}
	m.edges[conn.ID] = conn
	return conn
}

func (m *mockConnectionRepo) findByKey(key models.ConnectionKey) (models.Connection, bool) {
	for _, conn := range m.edges {
		if conn.Key() == key {
			return conn, true
		}
	}
	return models.Connection{}, false
}

func (m *mockConnectionRepo) Upsert(ctx context.Context, conn *models.Connection) (*models.Connection, bool, error) {
	if existing, ok := m.findByKey(conn.Key()); ok {
		if existing.ConnectType == models.ConnectTypeRequest &&
			existing.ConnectStatus == models.ConnectStatusPending &&
			conn.ConnectType == models.ConnectTypeInvite {
			existing.ConnectStatus = models.ConnectStatusAccepted
			m.edges[existing.ID] = existing
			return &existing, true, nil
		}
		return &existing, false, nil
	}
	stored := m.seed(*conn)
	return &stored, true, nil
}

func (m *mockConnectionRepo) FindByID(ctx context.Context, id string) (*models.Connection, error) {
	if conn, ok := m.edges[id]; ok {
		return &conn, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockConnectionRepo) UpdateStatus(ctx context.Context, id string, status models.ConnectStatus) (bool, error) {
	conn, ok := m.edges[id]
	if !ok || conn.ConnectStatus != models.ConnectStatusPending {
		return false, nil
	}
	conn.ConnectStatus = status
	m.edges[id] = conn
	return true, nil
}

func (m *mockConnectionRepo) Delete(ctx context.Context, id string) error {
	delete(m.edges, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockConnectionRepo) DeleteWithShareCascade(ctx context.Context, connectionID, recipientTeamID, courseID string) error {
	delete(m.edges, connectionID)
	m.cascades = append(m.cascades, connectionID+"|"+recipientTeamID+"|"+courseID)
	return nil
}

func (m *mockConnectionRepo) List(ctx context.Context, filter models.ConnectionFilter) ([]models.ConnectionDetail, int, error) {
	var details []models.ConnectionDetail
	for _, conn := range m.edges {
		if filter.SubjectID != "" && conn.SubjectID != filter.SubjectID {
			continue
		}
		if filter.ObjectID != "" && conn.ObjectID != filter.ObjectID {
			continue
		}
		details = append(details, models.ConnectionDetail{Connection: conn})
	}
	return details, len(details), nil
}

type mockUserResolver struct {
	byEmail map[string]models.User
	admins  map[string][]string
	created []string
}

func (m *mockUserResolver) FindOrCreateByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.byEmail == nil {
		m.byEmail = make(map[string]models.User)
	}
	if user, ok := m.byEmail[email]; ok {
		return &user, nil
	}
	user := models.User{ID: "user-" + strings.Split(email, "@")[0], Email: email, Role: models.RoleLearner}
	m.byEmail[email] = user
	m.created = append(m.created, email)
	return &user, nil
}

func (m *mockUserResolver) ListTeamMemberEmails(ctx context.Context, teamID string, role models.UserRole) ([]string, error) {
	return m.admins[teamID], nil
}

type mockTeamReader struct {
	teams map[string]models.Team
}

func (m *mockTeamReader) FindByID(ctx context.Context, id string) (*models.Team, error) {
	if team, ok := m.teams[id]; ok {
		return &team, nil
	}
	return nil, sql.ErrNoRows
}

type mockCourseFinder struct {
	courses map[string]models.Course
}

func (m *mockCourseFinder) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if course, ok := m.courses[id]; ok {
		return &course, nil
	}
	return nil, sql.ErrNoRows
}

type mockCollectionLister struct {
	collections map[string]models.Collection
	contents    map[string][]models.Course
}

func (m *mockCollectionLister) FindByID(ctx context.Context, id string) (*models.Collection, error) {
	if coll, ok := m.collections[id]; ok {
		return &coll, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCollectionLister) ListCourses(ctx context.Context, collectionID string) ([]models.Course, error) {
	return m.contents[collectionID], nil
}

type mockAccess struct {
	owners        map[string]string
	shares        map[string]bool
	invalidations []string
}

func (m *mockAccess) key(kind models.EntityKind, id string) string {
	return string(kind) + ":" + id
}

func (m *mockAccess) RequireTeamAccess(ctx context.Context, teamID string, objectKind models.EntityKind, objectID string, minimum models.AccessLevel) error {
	owner, known := m.owners[m.key(objectKind, objectID)]
	if !known {
		return appErrors.Clone(appErrors.ErrNotFound, "resource not found")
	}
	level := models.AccessNone
	if owner == teamID {
		level = models.AccessRoot
	} else if m.shares[teamID+"|"+m.key(objectKind, objectID)] {
		level = models.AccessShared
	}
	if !level.Satisfies(minimum) {
		return appErrors.Clone(appErrors.ErrForbidden, "insufficient access to resource")
	}
	return nil
}

func (m *mockAccess) InvalidateActor(ctx context.Context, actorKind models.EntityKind, actorID string) {
	m.invalidations = append(m.invalidations, "actor:"+string(actorKind)+":"+actorID)
}

func (m *mockAccess) InvalidateResource(ctx context.Context, objectKind models.EntityKind, objectID string) {
	m.invalidations = append(m.invalidations, "resource:"+string(objectKind)+":"+objectID)
}

func (m *mockAccess) InvalidateScope(ctx context.Context, scopeID string) {
	m.invalidations = append(m.invalidations, "scope:"+scopeID)
}

type mockDispatcher struct {
	messages []models.NotificationMessage
}

func (m *mockDispatcher) Dispatch(ctx context.Context, msg models.NotificationMessage) error {
	m.messages = append(m.messages, msg)
	return nil
}

type connectionFixture struct {
	svc        *ConnectionService
	repo       *mockConnectionRepo
	users      *mockUserResolver
	access     *mockAccess
	dispatcher *mockDispatcher
}

func newConnectionFixture(cfg ConnectionServiceConfig) *connectionFixture {
	repo := newMockConnectionRepo()
	users := &mockUserResolver{
		byEmail: map[string]models.User{
			"known@example.com": {ID: "user-known", Email: "known@example.com", Role: models.RoleLearner},
		},
		admins: map[string][]string{
			"team-b": {"admin@team-b.example.com"},
			"team-a": {"admin@team-a.example.com"},
		},
	}
	teams := &mockTeamReader{teams: map[string]models.Team{
		"team-a":       {ID: "team-a", Name: "Team A", Branding: "team-a-brand"},
		"team-b":       {ID: "team-b", Name: "Team B"},
		"team-welcome": {ID: "team-welcome", Name: "Welcome"},
	}}
	courses := &mockCourseFinder{courses: map[string]models.Course{
		"course-1": {ID: "course-1", TeamID: "team-a", Title: "Intro"},
		"course-2": {ID: "course-2", TeamID: "team-a", Title: "Advanced"},
	}}
	collections := &mockCollectionLister{
		collections: map[string]models.Collection{
			"coll-1": {ID: "coll-1", TeamID: "team-a", Name: "Starter Pack"},
		},
		contents: map[string][]models.Course{
			"coll-1": {
				{ID: "course-1", Title: "Intro"},
				{ID: "course-2", Title: "Advanced"},
			},
		},
	}
	access := &mockAccess{
		owners: map[string]string{
			"COURSE:course-1":   "team-a",
			"COURSE:course-2":   "team-a",
			"COLLECTION:coll-1": "team-a",
		},
		shares: make(map[string]bool),
	}
	dispatcher := &mockDispatcher{}
	svc := NewConnectionService(repo, users, teams, courses, collections, access, dispatcher, nil, cfg, nil, nil)
	return &connectionFixture{svc: svc, repo: repo, users: users, access: access, dispatcher: dispatcher}
}

func adminActor() models.Actor {
	return models.Actor{UserID: "user-admin", TeamID: "team-a", Role: models.RoleAdmin}
}

func TestInviteCreatesEdgesAndResolvesUnknownEmails(t *testing.T) {
	f := newConnectionFixture(ConnectionServiceConfig{})

	edges, err := f.svc.Invite(context.Background(), adminActor(), InviteRequest{
		ObjectKind: models.KindCourse,
		ObjectID:   "course-1",
		Emails:     []string{"known@example.com", "new@example.com", "KNOWN@example.com"},
	})
	require.NoError(t, err)

	// The duplicate address collapses to one edge.
	require.Len(t, edges, 2)
	for _, edge := range edges {
		assert.Equal(t, models.KindUser, edge.SubjectKind)
		assert.Equal(t, models.ConnectTypeInvite, edge.ConnectType)
		assert.Equal(t, models.ConnectStatusPending, edge.ConnectStatus)
		assert.Equal(t, "team-a", edge.ScopeID)
	}
	assert.Equal(t, []string{"new@example.com"}, f.users.created)
	assert.Len(t, f.dispatcher.messages, 2)
}

func TestInviteToCollectionListsCoursesInOneMessage(t *testing.T) {
	f := newConnectionFixture(ConnectionServiceConfig{})

	_, err := f.svc.Invite(context.Background(), adminActor(), InviteRequest{
		ObjectKind: models.KindCollection,
		ObjectID:   "coll-1",
		Emails:     []string{"known@example.com"},
	})
	require.NoError(t, err)

	require.Len(t, f.dispatcher.messages, 1)
	msg := f.dispatcher.messages[0]
	assert.Contains(t, msg.Subject, "Starter Pack")
	assert.Contains(t, msg.Content, "Intro")
	assert.Contains(t, msg.Content, "Advanced")
	assert.Equal(t, "team-a-brand", msg.Branding)
}

func TestInviteRequiresRootOnObject(t *testing.T) {
	f := newConnectionFixture(ConnectionServiceConfig{})
	outsider := models.Actor{UserID: "user-x", TeamID: "team-b", Role: models.RoleAdmin}

	_, err := f.svc.Invite(context.Background(), outsider, InviteRequest{
		ObjectKind: models.KindCourse,
		ObjectID:   "course-1",
		Emails:     []string{"known@example.com"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestInviteMergesPendingRequest(t *testing.T) {
	f := newConnectionFixture(ConnectionServiceConfig{})
	f.repo.seed(models.Connection{
		SubjectKind: models.KindUser, SubjectID: "user-known",
		ObjectKind: models.KindCourse, ObjectID: "course-1",
		ScopeID:     "team-a",
		ConnectType: models.ConnectTypeRequest, ConnectStatus: models.ConnectStatusPending,
	})

	edges, err := f.svc.Invite(context.Background(), adminActor(), InviteRequest{
		ObjectKind: models.KindCourse,
		ObjectID:   "course-1",
		Emails:     []string{"known@example.com"},
	})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, models.ConnectTypeRequest, edges[0].ConnectType)
	assert.Equal(t, models.ConnectStatusAccepted, edges[0].ConnectStatus)
}

func TestInviteLeavesTerminalEdgeUntouched(t *testing.T) {
	f := newConnectionFixture(ConnectionServiceConfig{})
	seeded := f.repo.seed(models.Connection{
		SubjectKind: models.KindUser, SubjectID: "user-known",
		ObjectKind: models.KindCourse, ObjectID: "course-1",
		ScopeID:     "team-a",
		ConnectType: models.ConnectTypeRequest, ConnectStatus: models.ConnectStatusRejected,
	})

	edges, err := f.svc.Invite(context.Background(), adminActor(), InviteRequest{
		ObjectKind: models.KindCourse,
		ObjectID:   "course-1",
		Emails:     []string{"known@example.com"},
	})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, seeded.ID, edges[0].ID)
	assert.Equal(t, models.ConnectStatusRejected, edges[0].ConnectStatus)

	// The no-op write must stay quiet: no message, no cache churn.
	assert.Empty(t, f.dispatcher.messages)
	assert.Empty(t, f.access.invalidations)
}

func TestInviteDoesNotRenotifyAcceptedRecipient(t *testing.T) {
	f := newConnectionFixture(ConnectionServiceConfig{})
	f.repo.seed(models.Connection{
		SubjectKind: models.KindUser, SubjectID: "user-known",
		ObjectKind: models.KindCourse, ObjectID: "course-1",
		ScopeID:     "team-a",
		ConnectType: models.ConnectTypeInvite, ConnectStatus: models.ConnectStatusAccepted,
	})

	for i := 0; i < 2; i++ {
		edges, err := f.svc.Invite(context.Background(), adminActor(), InviteRequest{
			ObjectKind: models.KindCourse,
			ObjectID:   "course-1",
			Emails:     []string{"known@example.com"},
		})
		require.NoError(t, err)
		require.Len(t, edges, 1)
		assert.Equal(t, models.ConnectStatusAccepted, edges[0].ConnectStatus)
	}
	assert.Empty(t, f.dispatcher.messages)
}

func TestRequestAccessPendingByDefault(t *testing.T) {
	f := newConnectionFixture(ConnectionServiceConfig{WelcomeTeamID: "team-welcome"})
	actor := models.Actor{UserID: "user-1", TeamID: "team-b", Role: models.RoleLearner}

	edge, err := f.svc.RequestAccess(context.Background(), actor, RequestAccessRequest{
		ObjectKind: models.KindTeam,
		ObjectID:   "team-a",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ConnectStatusPending, edge.ConnectStatus)
	assert.Equal(t, models.ConnectTypeRequest, edge.ConnectType)
	assert.Empty(t, edge.ScopeID)

	// Pending requests notify the owning team's admins.
	require.Len(t, f.dispatcher.messages, 1)
	assert.Equal(t, []string{"admin@team-a.example.com"}, f.dispatcher.messages[0].Recipients)
}

func TestRequestAccessWelcomeTeamAutoAccepts(t *testing.T) {
	f := newConnectionFixture(ConnectionServiceConfig{WelcomeTeamID: "team-welcome"})
	actor := models.Actor{UserID: "user-1", Role: models.RoleLearner}

	edge, err := f.svc.RequestAccess(context.Background(), actor, RequestAccessRequest{
		ObjectKind: models.KindTeam,
		ObjectID:   "team-welcome",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ConnectStatusAccepted, edge.ConnectStatus)
	// Auto-accepted joins skip the admin notification.
	assert.Empty(t, f.dispatcher.messages)
}

func TestRequestCourseAccessNeedsTeamScope(t *testing.T) {
	f := newConnectionFixture(ConnectionServiceConfig{})
	actor := models.Actor{UserID: "user-1", Role: models.RoleLearner}

	_, err := f.svc.RequestAccess(context.Background(), actor, RequestAccessRequest{
		ObjectKind: models.KindCourse,
		ObjectID:   "course-1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	edge, err := f.svc.RequestAccess(context.Background(), actor, RequestAccessRequest{
		ObjectKind: models.KindCourse,
		ObjectID:   "course-1",
		TeamID:     "team-b",
	})
	require.NoError(t, err)
	assert.Equal(t, "team-b", edge.ScopeID)
}

func TestShareCourseRejectsSelfShare(t *testing.T) {
	f := newConnectionFixture(ConnectionServiceConfig{})

	_, err := f.svc.ShareCourse(context.Background(), adminActor(), ShareCourseRequest{
		CourseID:        "course-1",
		RecipientTeamID: "team-a",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestShareCourseCreatesPendingTeamEdge(t *testing.T) {
	f := newConnectionFixture(ConnectionServiceConfig{})

	edge, err := f.svc.ShareCourse(context.Background(), adminActor(), ShareCourseRequest{
		CourseID:        "course-1",
		RecipientTeamID: "team-b",
	})
	require.NoError(t, err)
	assert.Equal(t, models.KindTeam, edge.SubjectKind)
	assert.Equal(t, "team-b", edge.SubjectID)
	assert.Equal(t, models.ConnectStatusPending, edge.ConnectStatus)
	assert.Empty(t, edge.ScopeID)

	require.Len(t, f.dispatcher.messages, 1)
	assert.Equal(t, []string{"admin@team-b.example.com"}, f.dispatcher.messages[0].Recipients)
}

func TestRespondOnlyRecipientSide(t *testing.T) {
	f := newConnectionFixture(ConnectionServiceConfig{})
	invite := f.repo.seed(models.Connection{
		SubjectKind: models.KindUser, SubjectID: "user-known",
		ObjectKind: models.KindCourse, ObjectID: "course-1",
		ScopeID:     "team-a",
		ConnectType: models.ConnectTypeInvite, ConnectStatus: models.ConnectStatusPending,
	})

	// The inviting admin cannot answer their own invite.
	_, err := f.svc.Respond(context.Background(), adminActor(), invite.ID, RespondRequest{Status: models.ConnectStatusAccepted})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	// The invited user can.
	invitee := models.Actor{UserID: "user-known", Role: models.RoleLearner}
	edge, err := f.svc.Respond(context.Background(), invitee, invite.ID, RespondRequest{Status: models.ConnectStatusAccepted})
	require.NoError(t, err)
	assert.Equal(t, models.ConnectStatusAccepted, edge.ConnectStatus)
}

func TestRespondRequestAnsweredByOwner(t *testing.T) {
	f := newConnectionFixture(ConnectionServiceConfig{})
	request := f.repo.seed(models.Connection{
		SubjectKind: models.KindUser, SubjectID: "user-1",
		ObjectKind: models.KindCourse, ObjectID: "course-1",
		ScopeID:     "team-b",
		ConnectType: models.ConnectTypeRequest, ConnectStatus: models.ConnectStatusPending,
	})

	// The requester cannot accept their own request.
	requester := models.Actor{UserID: "user-1", TeamID: "team-b", Role: models.RoleLearner}
	_, err := f.svc.Respond(context.Background(), requester, request.ID, RespondRequest{Status: models.ConnectStatusAccepted})
	require.Error(t, err)

	edge, err := f.svc.Respond(context.Background(), adminActor(), request.ID, RespondRequest{Status: models.ConnectStatusRejected})
	require.NoError(t, err)
	assert.Equal(t, models.ConnectStatusRejected, edge.ConnectStatus)
}

func TestRespondTerminalEdgeIsNoOp(t *testing.T) {
	f := newConnectionFixture(ConnectionServiceConfig{})
	accepted := f.repo.seed(models.Connection{
		SubjectKind: models.KindUser, SubjectID: "user-known",
		ObjectKind: models.KindCourse, ObjectID: "course-1",
		ScopeID:     "team-a",
		ConnectType: models.ConnectTypeInvite, ConnectStatus: models.ConnectStatusAccepted,
	})

	invitee := models.Actor{UserID: "user-known", Role: models.RoleLearner}
	edge, err := f.svc.Respond(context.Background(), invitee, accepted.ID, RespondRequest{Status: models.ConnectStatusRejected})
	require.NoError(t, err)
	assert.Equal(t, models.ConnectStatusAccepted, edge.ConnectStatus)
}

func TestRemoveShareCascadesRecipientLinks(t *testing.T) {
	f := newConnectionFixture(ConnectionServiceConfig{})
	share := f.repo.seed(models.Connection{
		SubjectKind: models.KindTeam, SubjectID: "team-b",
		ObjectKind: models.KindCourse, ObjectID: "course-1",
		ConnectType: models.ConnectTypeInvite, ConnectStatus: models.ConnectStatusAccepted,
	})

	require.NoError(t, f.svc.Remove(context.Background(), adminActor(), share.ID))
	require.Len(t, f.repo.cascades, 1)
	assert.Equal(t, share.ID+"|team-b|course-1", f.repo.cascades[0])
}

func TestRemoveSubjectCanRemoveItself(t *testing.T) {
	f := newConnectionFixture(ConnectionServiceConfig{})
	membership := f.repo.seed(models.Connection{
		SubjectKind: models.KindUser, SubjectID: "user-known",
		ObjectKind: models.KindTeam, ObjectID: "team-a",
		ConnectType: models.ConnectTypeRequest, ConnectStatus: models.ConnectStatusAccepted,
	})

	stranger := models.Actor{UserID: "user-x", TeamID: "team-b", Role: models.RoleLearner}
	err := f.svc.Remove(context.Background(), stranger, membership.ID)
	require.Error(t, err)

	member := models.Actor{UserID: "user-known", Role: models.RoleLearner}
	require.NoError(t, f.svc.Remove(context.Background(), member, membership.ID))
	assert.Contains(t, f.repo.deleted, membership.ID)
}

func TestListScopedToCaller(t *testing.T) {
	f := newConnectionFixture(ConnectionServiceConfig{})
	f.repo.seed(models.Connection{
		SubjectKind: models.KindUser, SubjectID: "user-1",
		ObjectKind: models.KindTeam, ObjectID: "team-a",
		ConnectType: models.ConnectTypeRequest, ConnectStatus: models.ConnectStatusPending,
	})

	learner := models.Actor{UserID: "user-1", Role: models.RoleLearner}
	details, pagination, err := f.svc.List(context.Background(), learner, models.ConnectionFilter{
		SubjectKind: models.KindUser, SubjectID: "user-1",
	})
	require.NoError(t, err)
	assert.Len(t, details, 1)
	assert.Equal(t, 1, pagination.TotalCount)

	// Listing someone else's edges is rejected.
	_, _, err = f.svc.List(context.Background(), learner, models.ConnectionFilter{
		SubjectKind: models.KindUser, SubjectID: "user-2",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestListSuperAdminUnscoped(t *testing.T) {
	f := newConnectionFixture(ConnectionServiceConfig{})
	f.repo.seed(models.Connection{
		SubjectKind: models.KindUser, SubjectID: "user-1",
		ObjectKind: models.KindTeam, ObjectID: "team-a",
		ConnectType: models.ConnectTypeRequest, ConnectStatus: models.ConnectStatusPending,
	})

	super := models.Actor{UserID: "root", Role: models.RoleSuperAdmin}
	details, _, err := f.svc.List(context.Background(), super, models.ConnectionFilter{})
	require.NoError(t, err)
	assert.Len(t, details, 1)
}
