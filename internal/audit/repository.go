package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const maxPageSize = 100

// Repository handles audit_logs PostgreSQL operations.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert persists a single audit log entry.
func (r *Repository) Insert(ctx context.Context, log *AuditLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}

	details := log.Details
	if len(details) == 0 {
		details = json.RawMessage(`{}`)
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs (id, owner_user_id, event_type, severity, resource_type, resource_id, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		log.ID, log.OwnerUserID, log.EventType, log.Severity, log.ResourceType, log.ResourceID, []byte(details), log.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting audit log: %w", err)
	}
	return nil
}

// ListByOwner returns paginated audit logs for an owner with optional filters.
func (r *Repository) ListByOwner(ctx context.Context, ownerUserID uuid.UUID, params ListParams) ([]AuditLog, int64, error) {
	q := buildListQuery(ownerUserID, params)

	var totalCount int64
	if err := r.pool.QueryRow(ctx, q.count, q.args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("counting audit logs: %w", err)
	}

	rows, err := r.pool.Query(ctx, q.data, q.dataArgs()...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying audit logs: %w", err)
	}
	defer rows.Close()

	logs := []AuditLog{}
	for rows.Next() {
		var l AuditLog
		var details []byte
		if err := rows.Scan(&l.ID, &l.OwnerUserID, &l.EventType, &l.Severity,
			&l.ResourceType, &l.ResourceID, &details, &l.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning audit log: %w", err)
		}
		l.Details = details
		logs = append(logs, l)
	}

	return logs, totalCount, rows.Err()
}

type listQuery struct {
	count  string
	data   string
	args   []any
	limit  int
	offset int
}

func (q listQuery) dataArgs() []any {
	return append(append([]any{}, q.args...), q.limit, q.offset)
}

// buildListQuery renders the filtered count and page queries. Out of range
// page values fall back to the defaults.
func buildListQuery(ownerUserID uuid.UUID, params ListParams) listQuery {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		params.PageSize = 20
	}

	conditions := []string{"owner_user_id = $1"}
	args := []any{ownerUserID}

	add := func(clause string, v any) {
		args = append(args, v)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}
	if params.EventType != "" {
		add("event_type = $%d", params.EventType)
	}
	if params.Severity != "" {
		add("severity = $%d", params.Severity)
	}
	if params.From != nil {
		add("created_at >= $%d", *params.From)
	}
	if params.To != nil {
		add("created_at <= $%d", *params.To)
	}

	where := strings.Join(conditions, " AND ")
	n := len(args)
	return listQuery{
		count: "SELECT COUNT(*) FROM audit_logs WHERE " + where,
		data: fmt.Sprintf(
			`SELECT id, owner_user_id, event_type, severity, COALESCE(resource_type, ''), resource_id, details, created_at
			 FROM audit_logs WHERE %s
			 ORDER BY created_at DESC
			 LIMIT $%d OFFSET $%d`, where, n+1, n+2),
		args:   args,
		limit:  params.PageSize,
		offset: (params.Page - 1) * params.PageSize,
	}
}
