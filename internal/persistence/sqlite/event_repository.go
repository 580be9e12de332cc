package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/campus-portal/internal/persistence"
)

// EventRepository implements persistence.EventRepository using SQLite.
type EventRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewEventRepository creates a new SQLite event repository.
func NewEventRepository(pool *ConnectionPool) *EventRepository {
	return &EventRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
	}
}

const eventColumns = `id, title, description, location, organizer, start_at, end_at,
	recurrence_rule, published_at, created_at, updated_at`

// CreateEvent inserts a new event.
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" || event.Title == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.pool.DB().ExecContext(ctx, `INSERT INTO events (`+eventColumns+`) VALUES (`+placeholders(11)+`)`,
		event.ID, event.Title, event.Description, event.Location, string(event.Organizer),
		formatTime(event.Start), formatTime(event.End), event.RecurrenceRule,
		formatNullableTime(event.PublishedAt), formatTime(event.CreatedAt), formatTime(event.UpdatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// GetEvent retrieves an event by ID.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	if id == "" {
		return persistence.Event{}, persistence.ErrNotFound
	}
	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	event, err := scanEvent(row)
	if err != nil {
		return persistence.Event{}, r.mapper.MapError(err)
	}
	return event, nil
}

// UpdateEvent writes every mutable field of an event.
func (r *EventRepository) UpdateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" || event.Title == "" {
		return persistence.ErrConstraintViolation
	}
	result, err := r.pool.DB().ExecContext(ctx, `UPDATE events SET
			title = ?, description = ?, location = ?, organizer = ?, start_at = ?, end_at = ?,
			recurrence_rule = ?, published_at = ?, updated_at = ?
		WHERE id = ?`,
		event.Title, event.Description, event.Location, string(event.Organizer),
		formatTime(event.Start), formatTime(event.End), event.RecurrenceRule,
		formatNullableTime(event.PublishedAt), formatTime(event.UpdatedAt),
		event.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return checkAffected(ctx, r.pool.DB(), r.mapper, result, "events", event.ID)
}

// ListEvents returns events matching filter ordered by start time.
func (r *EventRepository) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Organizer != "" {
		conditions = append(conditions, `organizer = ?`)
		args = append(args, string(filter.Organizer))
	}
	if filter.PublishedOnly {
		conditions = append(conditions, `published_at IS NOT NULL`)
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, ` AND `)
	}
	query += ` ORDER BY start_at ASC, id ASC`

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var out []persistence.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// DeleteEvent removes an event.
func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return checkAffected(ctx, r.pool.DB(), r.mapper, result, "events", id)
}

func scanEvent(row rowScanner) (persistence.Event, error) {
	var (
		event                persistence.Event
		organizer            string
		start, end           string
		publishedAt          sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(
		&event.ID, &event.Title, &event.Description, &event.Location, &organizer,
		&start, &end, &event.RecurrenceRule, &publishedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return persistence.Event{}, err
	}
	event.Organizer = persistence.Organizer(organizer)

	if event.Start, err = parseTime(start); err != nil {
		return persistence.Event{}, err
	}
	if event.End, err = parseTime(end); err != nil {
		return persistence.Event{}, err
	}
	if event.PublishedAt, err = parseNullableTime(publishedAt); err != nil {
		return persistence.Event{}, err
	}
	if event.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Event{}, err
	}
	if event.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Event{}, err
	}
	return event, nil
}
