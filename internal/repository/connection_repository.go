package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lumenlms/lumen-api/internal/models"
)

const connectionColumns = `id, subject_kind, subject_id, object_kind, object_id, scope_id, connect_type, connect_status, created_at, updated_at`

// ConnectionRepository is the edge store: it persists relationship edges and
// the collection membership rows the cascade acts on.
type ConnectionRepository struct {
	db *sqlx.DB
}

// NewConnectionRepository constructs the repository.
func NewConnectionRepository(db *sqlx.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

// Upsert writes an edge at its natural key. When a row already exists, the
// only permitted overwrite is the merge rule: a pending request hit by an
// incoming invite flips to ACCEPTED (type stays as recorded). Every other
// conflict leaves the stored row untouched. The WHERE clause on the conflict
// arm makes the database arbitrate concurrent creates, so there is no
// read-then-write window.
//
// The returned bool is false when the write was a no-op against an existing
// edge; the returned connection is then the stored row.
func (r *ConnectionRepository) Upsert(ctx context.Context, conn *models.Connection) (*models.Connection, bool, error) {
	if conn.ID == "" {
		conn.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	query := fmt.Sprintf(`INSERT INTO connections (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
ON CONFLICT (subject_kind, subject_id, object_kind, object_id, scope_id)
DO UPDATE SET connect_status = 'ACCEPTED', updated_at = EXCLUDED.updated_at
WHERE connections.connect_type = 'REQUEST'
  AND connections.connect_status = 'PENDING'
  AND EXCLUDED.connect_type = 'INVITE'
RETURNING %s`, connectionColumns, connectionColumns)

	var stored models.Connection
	err := r.db.GetContext(ctx, &stored, query,
		conn.ID, conn.SubjectKind, conn.SubjectID, conn.ObjectKind, conn.ObjectID,
		conn.ScopeID, conn.ConnectType, conn.ConnectStatus, now)
	if err == nil {
		return &stored, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("upsert connection: %w", err)
	}

	// Conflict arm rejected the write; the existing edge stands.
	existing, err := r.FindByKey(ctx, conn.Key())
	if err != nil {
		return nil, false, fmt.Errorf("load existing connection: %w", err)
	}
	return existing, false, nil
}

// FindByID returns an edge by identifier.
func (r *ConnectionRepository) FindByID(ctx context.Context, id string) (*models.Connection, error) {
	query := fmt.Sprintf(`SELECT %s FROM connections WHERE id = $1`, connectionColumns)
	var conn models.Connection
	if err := r.db.GetContext(ctx, &conn, query, id); err != nil {
		return nil, err
	}
	return &conn, nil
}

// FindByKey returns the edge at a natural key.
func (r *ConnectionRepository) FindByKey(ctx context.Context, key models.ConnectionKey) (*models.Connection, error) {
	query := fmt.Sprintf(`SELECT %s FROM connections
WHERE subject_kind = $1 AND subject_id = $2 AND object_kind = $3 AND object_id = $4 AND scope_id = $5`, connectionColumns)
	var conn models.Connection
	if err := r.db.GetContext(ctx, &conn, query, key.SubjectKind, key.SubjectID, key.ObjectKind, key.ObjectID, key.ScopeID); err != nil {
		return nil, err
	}
	return &conn, nil
}

// FindAcceptedByKey returns the edge at a natural key only when accepted.
func (r *ConnectionRepository) FindAcceptedByKey(ctx context.Context, key models.ConnectionKey) (*models.Connection, error) {
	query := fmt.Sprintf(`SELECT %s FROM connections
WHERE subject_kind = $1 AND subject_id = $2 AND object_kind = $3 AND object_id = $4 AND scope_id = $5
  AND connect_status = 'ACCEPTED'`, connectionColumns)
	var conn models.Connection
	if err := r.db.GetContext(ctx, &conn, query, key.SubjectKind, key.SubjectID, key.ObjectKind, key.ObjectID, key.ScopeID); err != nil {
		return nil, err
	}
	return &conn, nil
}

// UpdateStatus moves a pending edge to a terminal status. It returns false
// when the edge was no longer pending, which callers treat as a benign no-op;
// the condition also makes a second concurrent response lose silently.
func (r *ConnectionRepository) UpdateStatus(ctx context.Context, id string, status models.ConnectStatus) (bool, error) {
	const query = `UPDATE connections SET connect_status = $2, updated_at = $3 WHERE id = $1 AND connect_status = 'PENDING'`
	res, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("update connection status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update connection status: %w", err)
	}
	return affected > 0, nil
}

// Delete removes an edge with no cascade.
func (r *ConnectionRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM connections WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}
	return nil
}

// DeleteWithShareCascade removes a team↔course sharing edge and, in the same
// transaction, every collection↔course link the revoked recipient team made
// possible through it. Links owned by the granting team or any third team are
// untouched: the subquery scopes strictly by collection ownership. Deleting
// already-absent rows is a no-op, so a retry after a crash converges.
func (r *ConnectionRepository) DeleteWithShareCascade(ctx context.Context, connectionID, recipientTeamID, courseID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cascade delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM connections WHERE id = $1`, connectionID); err != nil {
		return fmt.Errorf("delete share connection: %w", err)
	}

	const cascade = `DELETE FROM collection_courses
WHERE course_id = $2
  AND collection_id IN (SELECT id FROM collections WHERE team_id = $1)`
	if _, err := tx.ExecContext(ctx, cascade, recipientTeamID, courseID); err != nil {
		return fmt.Errorf("cascade collection links: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cascade delete: %w", err)
	}
	return nil
}

// List returns edges matching the filter together with display labels.
func (r *ConnectionRepository) List(ctx context.Context, filter models.ConnectionFilter) ([]models.ConnectionDetail, int, error) {
	base := `FROM connections c
LEFT JOIN users u ON c.subject_kind = 'USER' AND u.id = c.subject_id
LEFT JOIN teams st ON c.subject_kind = 'TEAM' AND st.id = c.subject_id
LEFT JOIN teams ot ON c.object_kind = 'TEAM' AND ot.id = c.object_id
LEFT JOIN courses co ON c.object_kind = 'COURSE' AND co.id = c.object_id
LEFT JOIN collections cl ON c.object_kind = 'COLLECTION' AND cl.id = c.object_id`

	var conditions []string
	var args []interface{}

	if filter.SubjectKind != "" {
		conditions = append(conditions, fmt.Sprintf("c.subject_kind = $%d", len(args)+1))
		args = append(args, filter.SubjectKind)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("c.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.ObjectKind != "" {
		conditions = append(conditions, fmt.Sprintf("c.object_kind = $%d", len(args)+1))
		args = append(args, filter.ObjectKind)
	}
	if filter.ObjectID != "" {
		conditions = append(conditions, fmt.Sprintf("c.object_id = $%d", len(args)+1))
		args = append(args, filter.ObjectID)
	}
	if filter.ScopeID != "" {
		conditions = append(conditions, fmt.Sprintf("c.scope_id = $%d", len(args)+1))
		args = append(args, filter.ScopeID)
	}
	if filter.ConnectType != "" {
		conditions = append(conditions, fmt.Sprintf("c.connect_type = $%d", len(args)+1))
		args = append(args, filter.ConnectType)
	}
	if filter.ConnectStatus != "" {
		conditions = append(conditions, fmt.Sprintf("c.connect_status = $%d", len(args)+1))
		args = append(args, filter.ConnectStatus)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at": "c.created_at",
		"updated_at": "c.updated_at",
		"status":     "c.connect_status",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "c.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT c.id, c.subject_kind, c.subject_id, c.object_kind, c.object_id, c.scope_id,
        c.connect_type, c.connect_status, c.created_at, c.updated_at,
        COALESCE(u.full_name, st.name, '') AS subject_label,
        COALESCE(ot.name, co.title, cl.name, '') AS object_label
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var details []models.ConnectionDetail
	if err := r.db.SelectContext(ctx, &details, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list connections: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count connections: %w", err)
	}
	return details, total, nil
}

// FindAcceptedCollectionForCourse returns the id of any collection the user
// holds an accepted edge into (within the scope team) that currently links
// the course. Empty string means no transitive path exists.
func (r *ConnectionRepository) FindAcceptedCollectionForCourse(ctx context.Context, userID, scopeID, courseID string) (string, error) {
	const query = `SELECT c.object_id FROM connections c
JOIN collection_courses cc ON cc.collection_id = c.object_id
WHERE c.subject_kind = 'USER' AND c.subject_id = $1
  AND c.object_kind = 'COLLECTION' AND c.scope_id = $2
  AND c.connect_status = 'ACCEPTED' AND cc.course_id = $3
LIMIT 1`
	var collectionID string
	if err := r.db.GetContext(ctx, &collectionID, query, userID, scopeID, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("find collection path: %w", err)
	}
	return collectionID, nil
}
