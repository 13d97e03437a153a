package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"samadhan/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const grievanceColumns = `id,title,description,category,sentiment,priority,status,submitted_by,contact_number,location,COALESCE(summary,''),assigned_to,action_taken,created_at,updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGrievance(row rowScanner) (domain.Grievance, error) {
	var g domain.Grievance
	var assignedTo, actionTaken sql.NullString
	err := row.Scan(&g.ID, &g.Title, &g.Description, &g.Category, &g.Sentiment, &g.Priority, &g.Status,
		&g.SubmittedBy, &g.ContactNumber, &g.Location, &g.Summary, &assignedTo, &actionTaken, &g.CreatedAt, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return g, ErrNotFound
	}
	if err != nil {
		return g, err
	}
	if assignedTo.Valid {
		g.AssignedTo = &assignedTo.String
	}
	if actionTaken.Valid {
		g.ActionTaken = &actionTaken.String
	}
	return g, nil
}

func (r Repo) InsertGrievance(ctx context.Context, tx *sql.Tx, g domain.Grievance) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO grievances(id,title,description,category,sentiment,priority,status,submitted_by,contact_number,location,summary,assigned_to,action_taken,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		g.ID, g.Title, g.Description, g.Category, g.Sentiment, g.Priority, g.Status,
		g.SubmittedBy, g.ContactNumber, g.Location, nullable(g.Summary), g.AssignedTo, g.ActionTaken, g.CreatedAt, g.UpdatedAt)
	return err
}

func (r Repo) UpdateGrievance(ctx context.Context, tx *sql.Tx, g domain.Grievance) error {
	res, err := tx.ExecContext(ctx, `UPDATE grievances SET category=?,sentiment=?,priority=?,status=?,summary=?,assigned_to=?,action_taken=?,updated_at=? WHERE id=?`,
		g.Category, g.Sentiment, g.Priority, g.Status, nullable(g.Summary), g.AssignedTo, g.ActionTaken, g.UpdatedAt, g.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetGrievance(ctx context.Context, id string) (domain.Grievance, error) {
	return scanGrievance(r.DB.QueryRowContext(ctx, `SELECT `+grievanceColumns+` FROM grievances WHERE id=?`, id))
}

// GrievanceFilters narrows and paginates listings. Cursor pagination
// follows (created_at, id) descending, matching the list ordering.
type GrievanceFilters struct {
	Status          string
	Category        string
	Priority        string
	SubmittedBy     string
	AssignedTo      string
	Limit           int
	CursorCreatedAt string
	CursorID        string
}

func (r Repo) ListGrievances(ctx context.Context, f GrievanceFilters) ([]domain.Grievance, error) {
	var clauses []string
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.Category != "" {
		clauses = append(clauses, "category=?")
		args = append(args, f.Category)
	}
	if f.Priority != "" {
		clauses = append(clauses, "priority=?")
		args = append(args, f.Priority)
	}
	if f.SubmittedBy != "" {
		clauses = append(clauses, "submitted_by=?")
		args = append(args, f.SubmittedBy)
	}
	if f.AssignedTo != "" {
		clauses = append(clauses, "assigned_to=?")
		args = append(args, f.AssignedTo)
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	query := `SELECT ` + grievanceColumns + ` FROM grievances`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	return r.queryGrievances(ctx, query, args...)
}

// AllGrievances returns the entire collection for aggregation.
func (r Repo) AllGrievances(ctx context.Context) ([]domain.Grievance, error) {
	return r.queryGrievances(ctx, `SELECT `+grievanceColumns+` FROM grievances ORDER BY created_at DESC, id DESC`)
}

// SimilarGrievances returns other grievances routed to the same
// department, newest first.
func (r Repo) SimilarGrievances(ctx context.Context, category domain.Department, excludeID string, limit int) ([]domain.Grievance, error) {
	query := `SELECT ` + grievanceColumns + ` FROM grievances WHERE category=? AND id<>? ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	return r.queryGrievances(ctx, query, category, excludeID)
}

func (r Repo) queryGrievances(ctx context.Context, query string, args ...any) ([]domain.Grievance, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Grievance
	for rows.Next() {
		g, err := scanGrievance(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, g)
	}
	return res, rows.Err()
}

// CountGrievancesByStatus returns exact per-status counts.
func (r Repo) CountGrievancesByStatus(ctx context.Context) (map[domain.Status]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, COUNT(*) FROM grievances GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[domain.Status]int, len(domain.Statuses))
	for _, s := range domain.Statuses {
		counts[s] = 0
	}
	for rows.Next() {
		var status domain.Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// LatestEvents returns the newest events, optionally filtered.
func (r Repo) LatestEvents(ctx context.Context, limit int, evtType, entityKind, entityID string) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if entityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, entityKind)
	}
	if entityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, entityID)
	}
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events WHERE %s ORDER BY id DESC LIMIT %d`,
		strings.Join(clauses, " AND "), limit)
	return r.queryEvents(ctx, query, args...)
}

// EventsAfter returns events with id greater than cursor, oldest first.
// The webhook dispatcher uses this to stream the log in order.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events WHERE id > ? ORDER BY id ASC LIMIT %d`, limit)
	return r.queryEvents(ctx, query, cursor)
}

// LatestEventID returns the newest event id, or 0 on an empty log.
func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	var id sql.NullInt64
	if err := r.DB.QueryRowContext(ctx, `SELECT MAX(id) FROM events`).Scan(&id); err != nil {
		return 0, err
	}
	return id.Int64, nil
}

func (r Repo) queryEvents(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
