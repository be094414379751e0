package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditChangeType enumerates recorded event changes.
type AuditChangeType string

const (
	AuditChangeCreated          AuditChangeType = "created"
	AuditChangeFieldsUpdated    AuditChangeType = "fields_updated"
	AuditChangeDeleted          AuditChangeType = "deleted"
	AuditChangeParticipantAdded AuditChangeType = "participant_added"
	AuditChangeParticipantLeft  AuditChangeType = "participant_removed"
	AuditChangeRosterPruned     AuditChangeType = "roster_pruned"
)

// EventAudit is a single audit trail entry for an event.
type EventAudit struct {
	ID         string
	EventID    string
	ActorID    *string
	ChangeType AuditChangeType
	OldValue   map[string]any
	NewValue   map[string]any
	CreatedAt  time.Time
}

// AuditRepository records event lifecycle and roster changes.
type AuditRepository interface {
	Create(ctx context.Context, entry *EventAudit) error
	ListByEvent(ctx context.Context, eventID string, limit, offset int) ([]EventAudit, error)
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository builds the repository.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Create(ctx context.Context, entry *EventAudit) error {
	const query = `
        INSERT INTO event_audit (event_id, actor_id, change_type, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.EventID,
		entry.ActorID,
		entry.ChangeType,
		entry.OldValue,
		entry.NewValue,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *auditRepository) ListByEvent(ctx context.Context, eventID string, limit, offset int) ([]EventAudit, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, event_id, actor_id, change_type, old_value, new_value, created_at
        FROM event_audit WHERE event_id=$1
        ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, eventID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []EventAudit
	for rows.Next() {
		var entry EventAudit
		if err := rows.Scan(
			&entry.ID,
			&entry.EventID,
			&entry.ActorID,
			&entry.ChangeType,
			&entry.OldValue,
			&entry.NewValue,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
