package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/event-service/internal/domain"
)

// ErrVersionConflict signals that a conditional write lost against a
// concurrent update. Callers re-fetch and retry.
var ErrVersionConflict = errors.New("event version conflict")

// EventPatch carries a partial update. Nil fields are left untouched;
// presence is decided by the request payload, not by zero values.
type EventPatch struct {
	ImgURL      *string
	Title       *string
	Description *string
	Date        *int64
}

// IsEmpty reports whether the patch carries no fields.
func (p EventPatch) IsEmpty() bool {
	return p.ImgURL == nil && p.Title == nil && p.Description == nil && p.Date == nil
}

// EventRepository encapsulates event persistence. All writes against an
// existing record are conditional on the version read by the caller.
type EventRepository interface {
	Create(ctx context.Context, event *domain.Event) error
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	List(ctx context.Context) ([]domain.Event, error)
	ListByParticipant(ctx context.Context, userID string) ([]domain.Event, error)
	UpdateFields(ctx context.Context, id string, version int64, patch EventPatch) (*domain.Event, error)
	ReplaceParticipants(ctx context.Context, id string, version int64, participants []string) (*domain.Event, error)
	Delete(ctx context.Context, id string) error
}

type eventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository returns a Postgres-backed implementation.
func NewEventRepository(pool *pgxpool.Pool) EventRepository {
	return &eventRepository{pool: pool}
}

const eventColumns = `id, img_url, title, description, event_date, host_user_id, participants, version, created_at, updated_at`

func (r *eventRepository) Create(ctx context.Context, event *domain.Event) error {
	const query = `
        INSERT INTO events (img_url, title, description, event_date, host_user_id, participants)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, version, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		event.ImgURL,
		event.Title,
		event.Description,
		event.Date,
		event.Host,
		event.Participants,
	).Scan(&event.ID, &event.Version, &event.CreatedAt, &event.UpdatedAt)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events WHERE id=$1`, eventColumns)
	var event domain.Event
	if err := scanEvent(r.pool.QueryRow(ctx, query, id), &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) List(ctx context.Context) ([]domain.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events ORDER BY created_at`, eventColumns)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (r *eventRepository) ListByParticipant(ctx context.Context, userID string) ([]domain.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events WHERE $1 = ANY(participants) ORDER BY created_at`, eventColumns)
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (r *eventRepository) UpdateFields(ctx context.Context, id string, version int64, patch EventPatch) (*domain.Event, error) {
	sets := []string{}
	args := []any{}

	if patch.ImgURL != nil {
		args = append(args, *patch.ImgURL)
		sets = append(sets, fmt.Sprintf("img_url=$%d", len(args)))
	}
	if patch.Title != nil {
		args = append(args, *patch.Title)
		sets = append(sets, fmt.Sprintf("title=$%d", len(args)))
	}
	if patch.Description != nil {
		args = append(args, *patch.Description)
		sets = append(sets, fmt.Sprintf("description=$%d", len(args)))
	}
	if patch.Date != nil {
		args = append(args, *patch.Date)
		sets = append(sets, fmt.Sprintf("event_date=$%d", len(args)))
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	sets = append(sets, "version=version+1", "updated_at=NOW()")

	args = append(args, id)
	idArg := len(args)
	args = append(args, version)
	versionArg := len(args)

	query := fmt.Sprintf(`UPDATE events SET %s WHERE id=$%d AND version=$%d RETURNING %s`,
		strings.Join(sets, ", "), idArg, versionArg, eventColumns)

	var event domain.Event
	if err := scanEvent(r.pool.QueryRow(ctx, query, args...), &event); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.conditionalMiss(ctx, id)
		}
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) ReplaceParticipants(ctx context.Context, id string, version int64, participants []string) (*domain.Event, error) {
	query := fmt.Sprintf(`
        UPDATE events SET participants=$1, version=version+1, updated_at=NOW()
        WHERE id=$2 AND version=$3
        RETURNING %s`, eventColumns)
	var event domain.Event
	if err := scanEvent(r.pool.QueryRow(ctx, query, participants, id, version), &event); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.conditionalMiss(ctx, id)
		}
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// conditionalMiss distinguishes a stale version from a missing record.
func (r *eventRepository) conditionalMiss(ctx context.Context, id string) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrVersionConflict
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner, event *domain.Event) error {
	return row.Scan(
		&event.ID,
		&event.ImgURL,
		&event.Title,
		&event.Description,
		&event.Date,
		&event.Host,
		&event.Participants,
		&event.Version,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
}

func scanEvents(rows pgx.Rows) ([]domain.Event, error) {
	var result []domain.Event
	for rows.Next() {
		var event domain.Event
		if err := scanEvent(rows, &event); err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}
