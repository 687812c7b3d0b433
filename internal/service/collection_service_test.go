package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumenlms/lumen-api/internal/models"
	appErrors "github.com/lumenlms/lumen-api/pkg/errors"
)

type mockCollectionRepo struct {
	collections map[string]*models.Collection
	links       map[string][]string
	courses     map[string]models.Course
	deleted     []string
}

func newMockCollectionRepo() *mockCollectionRepo {
	return &mockCollectionRepo{
		collections: make(map[string]*models.Collection),
		links:       make(map[string][]string),
		courses:     make(map[string]models.Course),
	}
}

func (m *mockCollectionRepo) FindByID(ctx context.Context, id string) (*models.Collection, error) {
	coll, ok := m.collections[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *coll
	return &copied, nil
}

func (m *mockCollectionRepo) Create(ctx context.Context, collection *models.Collection) error {
	m.collections[collection.ID] = collection
	return nil
}

func (m *mockCollectionRepo) Update(ctx context.Context, collection *models.Collection) error {
	m.collections[collection.ID] = collection
	return nil
}

func (m *mockCollectionRepo) Delete(ctx context.Context, id string) error {
	delete(m.collections, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockCollectionRepo) List(ctx context.Context, filter models.CollectionFilter) ([]models.Collection, int, error) {
	var out []models.Collection
	for _, coll := range m.collections {
		if filter.TeamID != "" && coll.TeamID != filter.TeamID {
			continue
		}
		out = append(out, *coll)
	}
	return out, len(out), nil
}

func (m *mockCollectionRepo) LinkCourse(ctx context.Context, collectionID, courseID string) error {
	for _, existing := range m.links[collectionID] {
		if existing == courseID {
			return nil
		}
	}
	m.links[collectionID] = append(m.links[collectionID], courseID)
	return nil
}

func (m *mockCollectionRepo) UnlinkCourse(ctx context.Context, collectionID, courseID string) error {
	kept := m.links[collectionID][:0]
	for _, existing := range m.links[collectionID] {
		if existing != courseID {
			kept = append(kept, existing)
		}
	}
	m.links[collectionID] = kept
	return nil
}

func (m *mockCollectionRepo) ListCourses(ctx context.Context, collectionID string) ([]models.Course, error) {
	var out []models.Course
	for _, courseID := range m.links[collectionID] {
		if course, ok := m.courses[courseID]; ok {
			out = append(out, course)
		}
	}
	return out, nil
}

func newCollectionFixture() (*CollectionService, *mockCollectionRepo, *mockAccess) {
	repo := newMockCollectionRepo()
	repo.collections["coll-1"] = &models.Collection{ID: "coll-1", TeamID: "team-a", Name: "Starter Pack"}
	repo.courses["course-own"] = models.Course{ID: "course-own", TeamID: "team-a", Title: "Intro"}
	repo.courses["course-shared"] = models.Course{ID: "course-shared", TeamID: "team-b", Title: "Advanced"}

	access := &mockAccess{
		owners: map[string]string{
			"COLLECTION:coll-1":    "team-a",
			"COURSE:course-own":    "team-a",
			"COURSE:course-shared": "team-b",
		},
		shares: map[string]bool{},
	}
	svc := NewCollectionService(repo, access, validator.New(), zap.NewNop())
	return svc, repo, access
}

func TestCollectionLinkOwnCourse(t *testing.T) {
	svc, repo, access := newCollectionFixture()
	actor := models.Actor{UserID: "u1", TeamID: "team-a", Role: models.RoleAdmin}

	require.NoError(t, svc.LinkCourse(context.Background(), actor, "coll-1", "course-own"))
	assert.Equal(t, []string{"course-own"}, repo.links["coll-1"])
	assert.Contains(t, access.invalidations, "resource:COLLECTION:coll-1")
	assert.Contains(t, access.invalidations, "resource:COURSE:course-own")
}

func TestCollectionLinkSharedCourse(t *testing.T) {
	svc, repo, access := newCollectionFixture()
	actor := models.Actor{UserID: "u1", TeamID: "team-a", Role: models.RoleAdmin}

	// Without an accepted share team-a cannot see team-b's course.
	err := svc.LinkCourse(context.Background(), actor, "coll-1", "course-shared")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.links["coll-1"])

	access.shares["team-a|COURSE:course-shared"] = true
	require.NoError(t, svc.LinkCourse(context.Background(), actor, "coll-1", "course-shared"))
	assert.Equal(t, []string{"course-shared"}, repo.links["coll-1"])
}

func TestCollectionLinkRequiresRootOnCollection(t *testing.T) {
	svc, _, access := newCollectionFixture()
	outsider := models.Actor{UserID: "u2", TeamID: "team-b", Role: models.RoleAdmin}
	access.shares["team-b|COLLECTION:coll-1"] = true

	// Shared visibility on the collection is not enough to edit its membership.
	err := svc.LinkCourse(context.Background(), outsider, "coll-1", "course-shared")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCollectionUnlinkCourseFlushesAccess(t *testing.T) {
	svc, repo, access := newCollectionFixture()
	actor := models.Actor{UserID: "u1", TeamID: "team-a", Role: models.RoleAdmin}
	repo.links["coll-1"] = []string{"course-own"}

	require.NoError(t, svc.UnlinkCourse(context.Background(), actor, "coll-1", "course-own"))
	assert.Empty(t, repo.links["coll-1"])
	assert.Contains(t, access.invalidations, "resource:COURSE:course-own")
}

func TestCollectionDeleteFlushesLinkedCourseAccess(t *testing.T) {
	svc, repo, access := newCollectionFixture()
	actor := models.Actor{UserID: "u1", TeamID: "team-a", Role: models.RoleAdmin}
	repo.links["coll-1"] = []string{"course-own", "course-shared"}

	require.NoError(t, svc.Delete(context.Background(), actor, "coll-1"))
	assert.Equal(t, []string{"coll-1"}, repo.deleted)

	// User decisions for the courses are cached under the course key, not
	// the collection key, so each linked course must be flushed too or a
	// learner keeps transitive access until the entry expires.
	assert.Contains(t, access.invalidations, "resource:COLLECTION:coll-1")
	assert.Contains(t, access.invalidations, "resource:COURSE:course-own")
	assert.Contains(t, access.invalidations, "resource:COURSE:course-shared")
}

func TestCollectionCreateRequiresTeam(t *testing.T) {
	svc, _, _ := newCollectionFixture()

	_, err := svc.Create(context.Background(), models.Actor{UserID: "u1", Role: models.RoleAdmin}, CreateCollectionRequest{Name: "Orphan"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	coll, err := svc.Create(context.Background(), models.Actor{UserID: "u1", TeamID: "team-a", Role: models.RoleAdmin}, CreateCollectionRequest{Name: "Bundle"})
	require.NoError(t, err)
	assert.Equal(t, "team-a", coll.TeamID)
}

func TestCollectionListScopedToTeam(t *testing.T) {
	svc, repo, _ := newCollectionFixture()
	repo.collections["coll-b"] = &models.Collection{ID: "coll-b", TeamID: "team-b", Name: "Other"}

	collections, page, err := svc.List(context.Background(), models.Actor{UserID: "u1", TeamID: "team-a", Role: models.RoleAdmin}, models.CollectionFilter{})
	require.NoError(t, err)
	require.Len(t, collections, 1)
	assert.Equal(t, "coll-1", collections[0].ID)
	assert.Equal(t, 1, page.TotalCount)

	collections, _, err = svc.List(context.Background(), models.Actor{UserID: "root", Role: models.RoleSuperAdmin}, models.CollectionFilter{})
	require.NoError(t, err)
	assert.Len(t, collections, 2)
}

func TestCollectionGetNeedsVisibility(t *testing.T) {
	svc, _, access := newCollectionFixture()
	outsider := models.Actor{UserID: "u2", TeamID: "team-b", Role: models.RoleLearner}

	_, err := svc.Get(context.Background(), outsider, "coll-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	access.shares["team-b|COLLECTION:coll-1"] = true
	coll, err := svc.Get(context.Background(), outsider, "coll-1")
	require.NoError(t, err)
	assert.Equal(t, "Starter Pack", coll.Name)
}
