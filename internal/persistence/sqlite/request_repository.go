package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/campus-portal/internal/docrequest"
	"github.com/example/campus-portal/internal/persistence"
)

// RequestRepository implements persistence.DocumentRequestRepository using SQLite.
type RequestRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewRequestRepository creates a new SQLite document request repository.
func NewRequestRepository(pool *ConnectionPool) *RequestRepository {
	return &RequestRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
	}
}

const requestColumns = `id, request_number, requester_id, requester_name, email, phone,
	document_type, processing_type, quantity, purpose, amount, status, payment_method,
	payment_deadline, paid_at, processed_at, ready_at, released_at, released_to,
	release_id_type, release_id_digest, cancelled_at, cancel_reason, created_at, updated_at, version`

// CreateRequest inserts the request and its pending payment in one transaction.
func (r *RequestRepository) CreateRequest(ctx context.Context, req docrequest.Request, payment docrequest.Payment) error {
	if req.ID == "" || req.RequestNumber == "" {
		return persistence.ErrConstraintViolation
	}
	if payment.RequestID != req.ID {
		return fmt.Errorf("%w: payment belongs to %q", persistence.ErrConstraintViolation, payment.RequestID)
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO document_requests (`+requestColumns+`)
			VALUES (`+placeholders(26)+`)`, requestArgs(req)...)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return insertPayment(ctx, tx, r.mapper, payment)
	})
}

// GetRequest retrieves a request by ID.
func (r *RequestRepository) GetRequest(ctx context.Context, id string) (docrequest.Request, error) {
	if id == "" {
		return docrequest.Request{}, persistence.ErrNotFound
	}
	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+requestColumns+` FROM document_requests WHERE id = ?`, id)
	req, err := scanRequest(row)
	if err != nil {
		return docrequest.Request{}, r.mapper.MapError(err)
	}
	return req, nil
}

// ListRequests returns requests matching filter ordered by creation time.
func (r *RequestRepository) ListRequests(ctx context.Context, filter persistence.RequestFilter) ([]docrequest.Request, error) {
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
	if filter.RequesterID != "" {
		conditions = append(conditions, `requester_id = ?`)
		args = append(args, filter.RequesterID)
	}
	if filter.DeadlineBefore != nil {
		conditions = append(conditions, `payment_deadline < ?`)
		args = append(args, formatTime(*filter.DeadlineBefore))
	}

	query := `SELECT ` + requestColumns + ` FROM document_requests`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, ` AND `)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var out []docrequest.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document requests: %w", err)
	}
	return out, nil
}

// UpdateRequest writes req when the stored status still equals expected and
// the stored version is the one req was derived from.
func (r *RequestRepository) UpdateRequest(ctx context.Context, req docrequest.Request, expected docrequest.Status) error {
	return updateRequest(ctx, r.pool.DB(), r.mapper, req, expected)
}

// SaveEdit writes an edited unpaid request and the new amount of its pending
// payment in one transaction.
func (r *RequestRepository) SaveEdit(ctx context.Context, req docrequest.Request) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := updateRequest(ctx, tx, r.mapper, req, docrequest.StatusPendingPayment); err != nil {
			return err
		}
		return updatePendingAmount(ctx, tx, r.mapper, req.ID, req.Amount)
	})
}

// DeleteRequest removes the request when its status is one of allowed.
// Its payments are removed by the foreign key cascade.
func (r *RequestRepository) DeleteRequest(ctx context.Context, id string, allowed []docrequest.Status) error {
	if len(allowed) == 0 {
		return persistence.ErrConflict
	}
	args := []any{id}
	for _, s := range allowed {
		args = append(args, string(s))
	}
	result, err := r.pool.DB().ExecContext(ctx,
		`DELETE FROM document_requests WHERE id = ? AND status IN (`+placeholders(len(allowed))+`)`, args...)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return checkAffected(ctx, r.pool.DB(), r.mapper, result, "document_requests", id)
}

func updateRequest(ctx context.Context, q querier, mapper *ErrorMapper, req docrequest.Request, expected docrequest.Status) error {
	result, err := q.ExecContext(ctx, `UPDATE document_requests SET
			requester_name = ?, email = ?, phone = ?, document_type = ?, processing_type = ?,
			quantity = ?, purpose = ?, amount = ?, status = ?, payment_method = ?,
			payment_deadline = ?, paid_at = ?, processed_at = ?, ready_at = ?, released_at = ?,
			released_to = ?, release_id_type = ?, release_id_digest = ?, cancelled_at = ?,
			cancel_reason = ?, updated_at = ?, version = ?
		WHERE id = ? AND status = ? AND version = ?`,
		req.RequesterName, req.Email, req.Phone, string(req.DocumentType), string(req.ProcessingType),
		req.Quantity, req.Purpose, req.Amount, string(req.Status), string(req.PaymentMethod),
		formatTime(req.PaymentDeadline), formatNullableTime(req.PaidAt), formatNullableTime(req.ProcessedAt),
		formatNullableTime(req.ReadyAt), formatNullableTime(req.ReleasedAt),
		req.ReleasedTo, req.ReleaseIDType, req.ReleaseIDDigest, formatNullableTime(req.CancelledAt),
		req.CancelReason, formatTime(req.UpdatedAt), req.Version,
		req.ID, string(expected), req.Version-1,
	)
	if err != nil {
		return mapper.MapError(err)
	}
	return checkAffected(ctx, q, mapper, result, "document_requests", req.ID)
}

func requestArgs(req docrequest.Request) []any {
	return []any{
		req.ID, req.RequestNumber, req.RequesterID, req.RequesterName, req.Email, req.Phone,
		string(req.DocumentType), string(req.ProcessingType), req.Quantity, req.Purpose, req.Amount,
		string(req.Status), string(req.PaymentMethod),
		formatTime(req.PaymentDeadline), formatNullableTime(req.PaidAt), formatNullableTime(req.ProcessedAt),
		formatNullableTime(req.ReadyAt), formatNullableTime(req.ReleasedAt), req.ReleasedTo,
		req.ReleaseIDType, req.ReleaseIDDigest, formatNullableTime(req.CancelledAt), req.CancelReason,
		formatTime(req.CreatedAt), formatTime(req.UpdatedAt), req.Version,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (docrequest.Request, error) {
	var (
		req                                          docrequest.Request
		documentType, processingType, status, method string
		deadline, createdAt, updatedAt               string
		paidAt, processedAt, readyAt, releasedAt     sql.NullString
		cancelledAt                                  sql.NullString
	)
	err := row.Scan(
		&req.ID, &req.RequestNumber, &req.RequesterID, &req.RequesterName, &req.Email, &req.Phone,
		&documentType, &processingType, &req.Quantity, &req.Purpose, &req.Amount, &status, &method,
		&deadline, &paidAt, &processedAt, &readyAt, &releasedAt, &req.ReleasedTo,
		&req.ReleaseIDType, &req.ReleaseIDDigest, &cancelledAt, &req.CancelReason, &createdAt, &updatedAt,
		&req.Version,
	)
	if err != nil {
		return docrequest.Request{}, err
	}

	req.DocumentType = docrequest.DocumentType(documentType)
	req.ProcessingType = docrequest.ProcessingType(processingType)
	req.Status = docrequest.Status(status)
	req.PaymentMethod = docrequest.PaymentMethod(method)

	if req.PaymentDeadline, err = parseTime(deadline); err != nil {
		return docrequest.Request{}, err
	}
	if req.CreatedAt, err = parseTime(createdAt); err != nil {
		return docrequest.Request{}, err
	}
	if req.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return docrequest.Request{}, err
	}
	for _, field := range []struct {
		dst **time.Time
		src sql.NullString
	}{
		{&req.PaidAt, paidAt},
		{&req.ProcessedAt, processedAt},
		{&req.ReadyAt, readyAt},
		{&req.ReleasedAt, releasedAt},
		{&req.CancelledAt, cancelledAt},
	} {
		if *field.dst, err = parseNullableTime(field.src); err != nil {
			return docrequest.Request{}, err
		}
	}
	return req, nil
}
