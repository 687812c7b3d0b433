package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lumenlms/lumen-api/internal/models"
)

// TeamRepository handles persistence of tenant teams.
type TeamRepository struct {
	db *sqlx.DB
}

// NewTeamRepository constructs the repository.
func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

// FindByID returns a team by identifier.
func (r *TeamRepository) FindByID(ctx context.Context, id string) (*models.Team, error) {
	const query = `SELECT id, name, slug, branding, active, created_at, updated_at FROM teams WHERE id = $1`
	var team models.Team
	if err := r.db.GetContext(ctx, &team, query, id); err != nil {
		return nil, err
	}
	return &team, nil
}

// Create persists a new team.
func (r *TeamRepository) Create(ctx context.Context, team *models.Team) error {
	if team.ID == "" {
		team.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	team.CreatedAt = now
	team.UpdatedAt = now
	const query = `INSERT INTO teams (id, name, slug, branding, active, created_at, updated_at)
VALUES (:id, :name, :slug, :branding, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, team); err != nil {
		return fmt.Errorf("create team: %w", err)
	}
	return nil
}

// Update modifies team display fields.
func (r *TeamRepository) Update(ctx context.Context, team *models.Team) error {
	team.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teams SET name = :name, branding = :branding, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, team); err != nil {
		return fmt.Errorf("update team: %w", err)
	}
	return nil
}

// Delete removes a team. Courses and collections cascade at the schema level;
// edges touching the team, its resources, or using it as scope are removed in
// the same transaction since the polymorphic edge table carries no foreign keys.
func (r *TeamRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete team: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const edges = `DELETE FROM connections
WHERE (subject_kind = 'TEAM' AND subject_id = $1)
   OR (object_kind = 'TEAM' AND object_id = $1)
   OR scope_id = $1
   OR (object_kind = 'COURSE' AND object_id IN (SELECT id FROM courses WHERE team_id = $1))
   OR (object_kind = 'COLLECTION' AND object_id IN (SELECT id FROM collections WHERE team_id = $1))`
	if _, err := tx.ExecContext(ctx, edges, id); err != nil {
		return fmt.Errorf("delete team edges: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete team: %w", err)
	}
	return tx.Commit()
}

// List returns teams with total count.
func (r *TeamRepository) List(ctx context.Context, filter models.TeamFilter) ([]models.Team, int, error) {
	baseQuery := `FROM teams WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(slug) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"name": true, "slug": true, "created_at": true}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT id, name, slug, branding, active, created_at, updated_at
%s ORDER BY %s %s LIMIT %d OFFSET %d`, baseQuery, sortBy, sortOrder, pageSize, offset)

	var teams []models.Team
	if err := r.db.SelectContext(ctx, &teams, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teams: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count teams: %w", err)
	}
	return teams, total, nil
}
