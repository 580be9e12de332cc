package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/campus-portal/internal/persistence"
	"github.com/example/campus-portal/internal/scholarship"
)

// RecipientRepository implements persistence.RecipientRepository using SQLite.
type RecipientRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewRecipientRepository creates a new SQLite scholarship recipient repository.
func NewRecipientRepository(pool *ConnectionPool) *RecipientRepository {
	return &RecipientRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
	}
}

const recipientColumns = `id, student_id, student_name, email, scholarship_id, scholarship_name,
	status, renewal_status, academic_year, semester, previous_recipient_id, expires_at,
	created_at, updated_at`

// CreateRecipient inserts a recipient. A second renewal of the same previous
// record for the same period violates the unique index and maps to ErrDuplicate.
func (r *RecipientRepository) CreateRecipient(ctx context.Context, recipient scholarship.Recipient) error {
	if recipient.ID == "" {
		return persistence.ErrConstraintViolation
	}
	var previous sql.NullString
	if recipient.PreviousRecipientID != nil {
		previous = sql.NullString{String: *recipient.PreviousRecipientID, Valid: true}
	}
	_, err := r.pool.DB().ExecContext(ctx, `INSERT INTO scholarship_recipients (`+recipientColumns+`)
		VALUES (`+placeholders(14)+`)`,
		recipient.ID, recipient.StudentID, recipient.StudentName, recipient.Email,
		recipient.ScholarshipID, recipient.ScholarshipName,
		string(recipient.Status), string(recipient.RenewalStatus),
		recipient.Period.AcademicYear, string(recipient.Period.Semester),
		previous, formatNullableTime(recipient.ExpiresAt),
		formatTime(recipient.CreatedAt), formatTime(recipient.UpdatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// GetRecipient retrieves a recipient by ID.
func (r *RecipientRepository) GetRecipient(ctx context.Context, id string) (scholarship.Recipient, error) {
	if id == "" {
		return scholarship.Recipient{}, persistence.ErrNotFound
	}
	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+recipientColumns+` FROM scholarship_recipients WHERE id = ?`, id)
	recipient, err := scanRecipient(row)
	if err != nil {
		return scholarship.Recipient{}, r.mapper.MapError(err)
	}
	return recipient, nil
}

// ListRecipients returns recipients matching filter.
func (r *RecipientRepository) ListRecipients(ctx context.Context, filter persistence.RecipientFilter) ([]scholarship.Recipient, error) {
	var (
		conditions []string
		args       []any
	)
	if len(filter.Statuses) > 0 {
		conditions = append(conditions, `status IN (`+placeholders(len(filter.Statuses))+`)`)
		for _, s := range filter.Statuses {
			args = append(args, string(s))
		}
	}
	if filter.Period != nil {
		conditions = append(conditions, `academic_year = ? AND semester = ?`)
		args = append(args, filter.Period.AcademicYear, string(filter.Period.Semester))
	}
	if filter.ScholarshipID != "" {
		conditions = append(conditions, `scholarship_id = ?`)
		args = append(args, filter.ScholarshipID)
	}
	if filter.Renewals {
		conditions = append(conditions, `previous_recipient_id IS NOT NULL`)
	}

	query := `SELECT ` + recipientColumns + ` FROM scholarship_recipients`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, ` AND `)
	}
	query += ` ORDER BY student_name ASC, id ASC`

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var out []scholarship.Recipient
	for rows.Next() {
		recipient, err := scanRecipient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, recipient)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scholarship recipients: %w", err)
	}
	return out, nil
}

// UpdateRecipient writes the mutable fields of a recipient.
func (r *RecipientRepository) UpdateRecipient(ctx context.Context, recipient scholarship.Recipient) error {
	return updateRecipient(ctx, r.pool.DB(), r.mapper, recipient, "")
}

// SaveDecision writes a decided renewal and its previous record together.
// The renewal must still be pending; ErrConflict is returned when another
// decision was saved first.
func (r *RecipientRepository) SaveDecision(ctx context.Context, renewal, previous scholarship.Recipient) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := updateRecipient(ctx, tx, r.mapper, renewal, scholarship.RenewalPending); err != nil {
			return err
		}
		return updateRecipient(ctx, tx, r.mapper, previous, "")
	})
}

// FindRenewal returns the renewal filed for previousID in period.
func (r *RecipientRepository) FindRenewal(ctx context.Context, previousID string, period scholarship.Period) (scholarship.Recipient, error) {
	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+recipientColumns+` FROM scholarship_recipients
		WHERE previous_recipient_id = ? AND academic_year = ? AND semester = ?`,
		previousID, period.AcademicYear, string(period.Semester))
	recipient, err := scanRecipient(row)
	if err != nil {
		return scholarship.Recipient{}, r.mapper.MapError(err)
	}
	return recipient, nil
}

// updateRecipient writes recipient. A non-empty expected status restricts the
// write to a row whose stored renewal_status still matches it.
func updateRecipient(ctx context.Context, q querier, mapper *ErrorMapper, recipient scholarship.Recipient, expected scholarship.RenewalStatus) error {
	query := `UPDATE scholarship_recipients SET
			student_name = ?, email = ?, scholarship_name = ?, status = ?, renewal_status = ?,
			expires_at = ?, updated_at = ?
		WHERE id = ?`
	args := []any{
		recipient.StudentName, recipient.Email, recipient.ScholarshipName,
		string(recipient.Status), string(recipient.RenewalStatus),
		formatNullableTime(recipient.ExpiresAt), formatTime(recipient.UpdatedAt),
		recipient.ID,
	}
	if expected != "" {
		query += ` AND renewal_status = ?`
		args = append(args, string(expected))
	}
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return mapper.MapError(err)
	}
	return checkAffected(ctx, q, mapper, result, "scholarship_recipients", recipient.ID)
}

func scanRecipient(row rowScanner) (scholarship.Recipient, error) {
	var (
		rec                       scholarship.Recipient
		status, renewal, semester string
		previous, expiresAt       sql.NullString
		createdAt, updatedAt      string
	)
	err := row.Scan(
		&rec.ID, &rec.StudentID, &rec.StudentName, &rec.Email, &rec.ScholarshipID, &rec.ScholarshipName,
		&status, &renewal, &rec.Period.AcademicYear, &semester, &previous, &expiresAt,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return scholarship.Recipient{}, err
	}

	rec.Status = scholarship.Status(status)
	rec.RenewalStatus = scholarship.RenewalStatus(renewal)
	rec.Period.Semester = scholarship.Semester(semester)
	if previous.Valid {
		id := previous.String
		rec.PreviousRecipientID = &id
	}
	if rec.ExpiresAt, err = parseNullableTime(expiresAt); err != nil {
		return scholarship.Recipient{}, err
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return scholarship.Recipient{}, err
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return scholarship.Recipient{}, err
	}
	return rec, nil
}
