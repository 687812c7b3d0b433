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

type mockTeamRepo struct {
	teams   map[string]*models.Team
	deleted []string
}

func (m *mockTeamRepo) FindByID(ctx context.Context, id string) (*models.Team, error) {
	team, ok := m.teams[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *team
	return &copied, nil
}

func (m *mockTeamRepo) Create(ctx context.Context, team *models.Team) error {
	m.teams[team.ID] = team
	return nil
}

func (m *mockTeamRepo) Update(ctx context.Context, team *models.Team) error {
	m.teams[team.ID] = team
	return nil
}

func (m *mockTeamRepo) Delete(ctx context.Context, id string) error {
	delete(m.teams, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockTeamRepo) List(ctx context.Context, filter models.TeamFilter) ([]models.Team, int, error) {
	var out []models.Team
	for _, team := range m.teams {
		out = append(out, *team)
	}
	return out, len(out), nil
}

func newTeamFixture() (*TeamService, *mockTeamRepo, *mockAccess) {
	repo := &mockTeamRepo{teams: map[string]*models.Team{
		"team-a": {ID: "team-a", Name: "Team A", Slug: "team-a", Active: true},
	}}
	access := &mockAccess{owners: map[string]string{}, shares: map[string]bool{}}
	svc := NewTeamService(repo, access, validator.New(), zap.NewNop())
	return svc, repo, access
}

func TestTeamDeleteSuperAdminOnly(t *testing.T) {
	svc, repo, _ := newTeamFixture()

	err := svc.Delete(context.Background(), models.Actor{UserID: "u1", TeamID: "team-a", Role: models.RoleAdmin}, "team-a")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}

func TestTeamDeleteFlushesScopedDecisions(t *testing.T) {
	svc, repo, access := newTeamFixture()

	require.NoError(t, svc.Delete(context.Background(), models.Actor{UserID: "root", Role: models.RoleSuperAdmin}, "team-a"))
	assert.Equal(t, []string{"team-a"}, repo.deleted)

	// The bulk edge delete retracts access the team granted or scoped, so
	// the cache flush has to cover all three key shapes the team appears in.
	assert.Contains(t, access.invalidations, "actor:TEAM:team-a")
	assert.Contains(t, access.invalidations, "resource:TEAM:team-a")
	assert.Contains(t, access.invalidations, "scope:team-a")
}

func TestTeamUpdateOwnTeamOnly(t *testing.T) {
	svc, _, _ := newTeamFixture()
	name := "Renamed"

	_, err := svc.Update(context.Background(), models.Actor{UserID: "u2", TeamID: "team-b", Role: models.RoleAdmin}, "team-a", UpdateTeamRequest{Name: &name})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	team, err := svc.Update(context.Background(), models.Actor{UserID: "u1", TeamID: "team-a", Role: models.RoleAdmin}, "team-a", UpdateTeamRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", team.Name)
}
