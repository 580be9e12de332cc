package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/campus-portal/internal/docrequest"
	"github.com/example/campus-portal/internal/persistence"
)

// PaymentRepository implements persistence.PaymentRepository using SQLite.
type PaymentRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewPaymentRepository creates a new SQLite payment repository.
func NewPaymentRepository(pool *ConnectionPool) *PaymentRepository {
	return &PaymentRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

const paymentColumns = `id, request_id, method, reference, intent_id, amount, status, created_at, completed_at`

// CreatePayment inserts a payment record.
func (r *PaymentRepository) CreatePayment(ctx context.Context, payment docrequest.Payment) error {
	return insertPayment(ctx, r.pool.DB(), r.mapper, payment)
}

// GetPaymentByReference looks up a cash payment by its reference.
func (r *PaymentRepository) GetPaymentByReference(ctx context.Context, reference string) (docrequest.Payment, error) {
	if reference == "" {
		return docrequest.Payment{}, persistence.ErrNotFound
	}
	return r.getPayment(ctx, `reference = ?`, reference)
}

// GetPaymentByIntent looks up a digital payment by the gateway intent ID.
func (r *PaymentRepository) GetPaymentByIntent(ctx context.Context, intentID string) (docrequest.Payment, error) {
	if intentID == "" {
		return docrequest.Payment{}, persistence.ErrNotFound
	}
	return r.getPayment(ctx, `intent_id = ?`, intentID)
}

// ListPaymentsForRequest returns every payment recorded for a request.
func (r *PaymentRepository) ListPaymentsForRequest(ctx context.Context, requestID string) ([]docrequest.Payment, error) {
	rows, err := r.pool.DB().QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE request_id = ? ORDER BY created_at ASC, id ASC`, requestID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var out []docrequest.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return out, nil
}

// updatePendingAmount sets the amount of the request's pending payment.
func updatePendingAmount(ctx context.Context, q querier, mapper *ErrorMapper, requestID string, amount int64) error {
	result, err := q.ExecContext(ctx,
		`UPDATE payments SET amount = ? WHERE request_id = ? AND status = ?`,
		amount, requestID, string(docrequest.PaymentPending))
	if err != nil {
		return mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// AttachIntent records intentID on a pending digital payment.
func (r *PaymentRepository) AttachIntent(ctx context.Context, paymentID, intentID string) error {
	result, err := r.pool.DB().ExecContext(ctx,
		`UPDATE payments SET intent_id = ? WHERE id = ? AND method = ? AND status = ?`,
		intentID, paymentID, string(docrequest.PaymentDigital), string(docrequest.PaymentPending))
	if err != nil {
		return r.mapper.MapError(err)
	}
	return checkAffected(ctx, r.pool.DB(), r.mapper, result, "payments", paymentID)
}

// CompletePayment marks the payment completed and writes the paid request in
// one transaction. Both writes are conditional on the pending states, so a
// concurrent confirmation makes exactly one caller succeed.
func (r *PaymentRepository) CompletePayment(ctx context.Context, paymentID string, completedAt time.Time, req docrequest.Request) error {
	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			result, err := tx.ExecContext(ctx,
				`UPDATE payments SET status = ?, completed_at = ? WHERE id = ? AND status = ?`,
				string(docrequest.PaymentCompleted), formatTime(completedAt), paymentID, string(docrequest.PaymentPending))
			if err != nil {
				return r.mapper.MapError(err)
			}
			if err := checkAffected(ctx, tx, r.mapper, result, "payments", paymentID); err != nil {
				return err
			}
			return updateRequest(ctx, tx, r.mapper, req, docrequest.StatusPendingPayment)
		})
	})
}

func (r *PaymentRepository) getPayment(ctx context.Context, where string, arg any) (docrequest.Payment, error) {
	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE `+where, arg)
	p, err := scanPayment(row)
	if err != nil {
		return docrequest.Payment{}, r.mapper.MapError(err)
	}
	return p, nil
}

func insertPayment(ctx context.Context, q querier, mapper *ErrorMapper, p docrequest.Payment) error {
	if p.ID == "" || p.RequestID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := q.ExecContext(ctx, `INSERT INTO payments (`+paymentColumns+`) VALUES (`+placeholders(9)+`)`,
		p.ID, p.RequestID, string(p.Method), nullableString(p.Reference), nullableString(p.IntentID),
		p.Amount, string(p.Status), formatTime(p.CreatedAt), formatNullableTime(p.CompletedAt),
	)
	if err != nil {
		return mapper.MapError(err)
	}
	return nil
}

func scanPayment(row rowScanner) (docrequest.Payment, error) {
	var (
		p                   docrequest.Payment
		method, status      string
		reference, intentID sql.NullString
		createdAt           string
		completedAt         sql.NullString
	)
	if err := row.Scan(&p.ID, &p.RequestID, &method, &reference, &intentID, &p.Amount, &status, &createdAt, &completedAt); err != nil {
		return docrequest.Payment{}, err
	}
	p.Method = docrequest.PaymentMethod(method)
	p.Status = docrequest.PaymentStatus(status)
	p.Reference = reference.String
	p.IntentID = intentID.String

	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return docrequest.Payment{}, err
	}
	if p.CompletedAt, err = parseNullableTime(completedAt); err != nil {
		return docrequest.Payment{}, err
	}
	return p, nil
}
