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

// CollectionRepository handles persistence of collections and their course links.
type CollectionRepository struct {
	db *sqlx.DB
}

// NewCollectionRepository constructs the repository.
func NewCollectionRepository(db *sqlx.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

// FindByID returns a collection by identifier.
func (r *CollectionRepository) FindByID(ctx context.Context, id string) (*models.Collection, error) {
	const query = `SELECT id, team_id, name, description, created_at, updated_at FROM collections WHERE id = $1`
	var collection models.Collection
	if err := r.db.GetContext(ctx, &collection, query, id); err != nil {
		return nil, err
	}
	return &collection, nil
}

// Create persists a new collection.
func (r *CollectionRepository) Create(ctx context.Context, collection *models.Collection) error {
	if collection.ID == "" {
		collection.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	collection.CreatedAt = now
	collection.UpdatedAt = now
	const query = `INSERT INTO collections (id, team_id, name, description, created_at, updated_at)
VALUES (:id, :team_id, :name, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, collection); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

// Update modifies collection display fields.
func (r *CollectionRepository) Update(ctx context.Context, collection *models.Collection) error {
	collection.UpdatedAt = time.Now().UTC()
	const query = `UPDATE collections SET name = :name, description = :description, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, collection); err != nil {
		return fmt.Errorf("update collection: %w", err)
	}
	return nil
}

// Delete removes a collection and every edge that references it. Course links
// cascade at the schema level; the polymorphic edge rows cannot.
func (r *CollectionRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete collection: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM connections WHERE object_kind = 'COLLECTION' AND object_id = $1`, id); err != nil {
		return fmt.Errorf("delete collection edges: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return tx.Commit()
}

// List returns collections with total count.
func (r *CollectionRepository) List(ctx context.Context, filter models.CollectionFilter) ([]models.Collection, int, error) {
	baseQuery := `FROM collections WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.TeamID != "" {
		conditions = append(conditions, fmt.Sprintf("team_id = $%d", len(args)+1))
		args = append(args, filter.TeamID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"name": true, "created_at": true, "updated_at": true}
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

	query := fmt.Sprintf(`SELECT id, team_id, name, description, created_at, updated_at
%s ORDER BY %s %s LIMIT %d OFFSET %d`, baseQuery, sortBy, sortOrder, pageSize, offset)

	var collections []models.Collection
	if err := r.db.SelectContext(ctx, &collections, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list collections: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count collections: %w", err)
	}
	return collections, total, nil
}

// LinkCourse adds a course to a collection. Re-linking is a no-op.
func (r *CollectionRepository) LinkCourse(ctx context.Context, collectionID, courseID string) error {
	const query = `INSERT INTO collection_courses (collection_id, course_id, created_at)
VALUES ($1, $2, $3) ON CONFLICT (collection_id, course_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, collectionID, courseID, time.Now().UTC()); err != nil {
		return fmt.Errorf("link course to collection: %w", err)
	}
	return nil
}

// UnlinkCourse removes a course from a collection. Access inherited through
// the collection ends with the row; unlinking an absent pair is a no-op.
func (r *CollectionRepository) UnlinkCourse(ctx context.Context, collectionID, courseID string) error {
	const query = `DELETE FROM collection_courses WHERE collection_id = $1 AND course_id = $2`
	if _, err := r.db.ExecContext(ctx, query, collectionID, courseID); err != nil {
		return fmt.Errorf("unlink course from collection: %w", err)
	}
	return nil
}

// ListCourses returns the courses currently linked into a collection.
func (r *CollectionRepository) ListCourses(ctx context.Context, collectionID string) ([]models.Course, error) {
	const query = `SELECT c.id, c.team_id, c.title, c.description, c.published, c.created_at, c.updated_at
FROM courses c
JOIN collection_courses cc ON cc.course_id = c.id
WHERE cc.collection_id = $1
ORDER BY c.title ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, collectionID); err != nil {
		return nil, fmt.Errorf("list collection courses: %w", err)
	}
	return courses, nil
}
