package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/campus-portal/internal/persistence"
	"github.com/example/campus-portal/internal/scholarship"
)

// ScholarshipDeps captures dependencies for constructing a ScholarshipService.
type ScholarshipDeps struct {
	Recipients  persistence.RecipientRepository
	Notifier    Notifier
	Location    *time.Location
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// ScholarshipService manages scholarship renewals.
type ScholarshipService struct {
	recipients  persistence.RecipientRepository
	notifier    Notifier
	location    *time.Location
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewScholarshipService constructs the service with the provided dependencies.
func NewScholarshipService(deps ScholarshipDeps) *ScholarshipService {
	s := &ScholarshipService{
		recipients:  deps.Recipients,
		notifier:    deps.Notifier,
		location:    deps.Location,
		idGenerator: deps.IDGenerator,
		now:         deps.Now,
		logger:      defaultLogger(deps.Logger),
	}
	if s.notifier == nil {
		s.notifier = discardNotifier{}
	}
	if s.location == nil {
		s.location = time.UTC
	}
	if s.idGenerator == nil {
		s.idGenerator = func() string { return "" }
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *ScholarshipService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ScholarshipService", operation, attrs...)
}

// GetEligibleScholars returns active recipients with no renewal filed for target.
func (s *ScholarshipService) GetEligibleScholars(ctx context.Context, target scholarship.Period) ([]scholarship.Recipient, error) {
	if err := target.Validate(); err != nil {
		return nil, periodError(err)
	}

	active, err := s.recipients.ListRecipients(ctx, persistence.RecipientFilter{
		Statuses: []scholarship.Status{scholarship.StatusActive},
	})
	if err != nil {
		return nil, mapRecipientRepoError(err)
	}
	existing, err := s.recipients.ListRecipients(ctx, persistence.RecipientFilter{
		Period:   &target,
		Renewals: true,
	})
	if err != nil {
		return nil, mapRecipientRepoError(err)
	}
	return scholarship.Eligible(active, existing, target), nil
}

// GetScholarsNeedingRenewal returns active recipients expiring within
// withinDays days.
func (s *ScholarshipService) GetScholarsNeedingRenewal(ctx context.Context, withinDays int) ([]scholarship.Recipient, error) {
	if withinDays < 0 {
		return nil, fieldError("within_days", "must not be negative")
	}
	active, err := s.recipients.ListRecipients(ctx, persistence.RecipientFilter{
		Statuses: []scholarship.Status{scholarship.StatusActive},
	})
	if err != nil {
		return nil, mapRecipientRepoError(err)
	}
	return scholarship.NeedsRenewal(active, s.now(), withinDays, s.location), nil
}

// CreateRenewalApplication files a pending renewal of previousID for target.
func (s *ScholarshipService) CreateRenewalApplication(ctx context.Context, principal Principal, previousID string, target scholarship.Period) (renewal scholarship.Recipient, err error) {
	logger := s.loggerWith(ctx, "CreateRenewalApplication", "previous_id", previousID, "period", target.String(), "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create renewal application", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "renewal application created", "renewal_id", renewal.ID)
	}()

	if !principal.IsStaff {
		err = ErrUnauthorized
		return
	}
	renewal, err = s.createRenewal(ctx, previousID, target)
	return
}

// BulkCreateRenewals files renewals for every id. A failure for one id is
// recorded and the remaining ids are still processed.
func (s *ScholarshipService) BulkCreateRenewals(ctx context.Context, principal Principal, ids []string, target scholarship.Period) (result BulkResult, err error) {
	logger := s.loggerWith(ctx, "BulkCreateRenewals", "count", len(ids), "period", target.String(), "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "bulk renewal failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "bulk renewal finished", "succeeded", result.Succeeded(), "failed", result.Failed())
	}()

	if !principal.IsStaff {
		err = ErrUnauthorized
		return
	}
	if vErr := target.Validate(); vErr != nil {
		err = periodError(vErr)
		return
	}

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if ctxErr := ctx.Err(); ctxErr != nil {
			result.Failures = append(result.Failures, BulkFailure{ID: id, Err: ctxErr})
			continue
		}
		renewal, createErr := s.createRenewal(ctx, id, target)
		if createErr != nil {
			result.Failures = append(result.Failures, BulkFailure{ID: id, Err: createErr})
			continue
		}
		result.Created = append(result.Created, renewal)
	}
	return
}

// ApproveRenewal activates a pending renewal and expires the award it renews.
func (s *ScholarshipService) ApproveRenewal(ctx context.Context, principal Principal, renewalID string) (scholarship.Recipient, error) {
	return s.decide(ctx, principal, renewalID, true)
}

// RejectRenewal rejects a pending renewal. The previous award is left active.
func (s *ScholarshipService) RejectRenewal(ctx context.Context, principal Principal, renewalID string) (scholarship.Recipient, error) {
	return s.decide(ctx, principal, renewalID, false)
}

// SendRenewalReminders emails every recipient expiring within withinDays
// days and returns how many emails were sent.
func (s *ScholarshipService) SendRenewalReminders(ctx context.Context, withinDays int) (sent int, err error) {
	logger := s.loggerWith(ctx, "SendRenewalReminders", "within_days", withinDays)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "renewal reminders failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "renewal reminders sent", "sent", sent)
	}()

	var due []scholarship.Recipient
	due, err = s.GetScholarsNeedingRenewal(ctx, withinDays)
	if err != nil {
		return
	}
	for _, r := range due {
		if r.Email == "" {
			continue
		}
		expires, _ := scholarship.EffectiveExpiration(r, s.location)
		body := fmt.Sprintf("Hi %s, your %s scholarship for %s expires on %s. Submit your renewal requirements before then.",
			r.StudentName, r.ScholarshipName, r.Period, expires.In(s.location).Format("Jan 2, 2006"))
		if s.notifier.SendEmail(ctx, r.Email, "Scholarship renewal reminder", body) {
			sent++
			continue
		}
		logger.WarnContext(ctx, "renewal reminder not delivered", "recipient_id", r.ID)
	}
	return
}

func (s *ScholarshipService) createRenewal(ctx context.Context, previousID string, target scholarship.Period) (scholarship.Recipient, error) {
	if previousID == "" {
		return scholarship.Recipient{}, fieldError("previous_recipient_id", "is required")
	}
	if err := target.Validate(); err != nil {
		return scholarship.Recipient{}, periodError(err)
	}

	prev, err := s.recipients.GetRecipient(ctx, previousID)
	if err != nil {
		return scholarship.Recipient{}, mapRecipientRepoError(err)
	}

	_, err = s.recipients.FindRenewal(ctx, previousID, target)
	switch {
	case err == nil:
		return scholarship.Recipient{}, &DuplicateResourceError{Resource: "renewal", Key: previousID + " " + target.String()}
	case !errors.Is(err, persistence.ErrNotFound):
		return scholarship.Recipient{}, mapRecipientRepoError(err)
	}

	renewal, err := scholarship.NewRenewal(prev, target, s.idGenerator(), s.now())
	if err != nil {
		return scholarship.Recipient{}, err
	}
	if err := s.recipients.CreateRecipient(ctx, renewal); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			return scholarship.Recipient{}, &DuplicateResourceError{Resource: "renewal", Key: previousID + " " + target.String()}
		}
		return scholarship.Recipient{}, mapRecipientRepoError(err)
	}
	return renewal, nil
}

func (s *ScholarshipService) decide(ctx context.Context, principal Principal, renewalID string, approve bool) (renewal scholarship.Recipient, err error) {
	logger := s.loggerWith(ctx, "DecideRenewal", "renewal_id", renewalID, "approve", approve, "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to decide renewal", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "renewal decided", "renewal_status", renewal.RenewalStatus)
	}()

	if !principal.IsStaff {
		err = ErrUnauthorized
		return
	}

	var pending scholarship.Recipient
	pending, err = s.recipients.GetRecipient(ctx, renewalID)
	if err != nil {
		err = mapRecipientRepoError(err)
		return
	}
	if pending.PreviousRecipientID == nil {
		err = fmt.Errorf("%w: %s is not a renewal", scholarship.ErrNotEligible, renewalID)
		return
	}

	var previous scholarship.Recipient
	previous, err = s.recipients.GetRecipient(ctx, *pending.PreviousRecipientID)
	if err != nil {
		err = mapRecipientRepoError(err)
		return
	}

	var updatedPrevious scholarship.Recipient
	renewal, updatedPrevious, err = scholarship.DecideRenewal(pending, previous, approve, s.now())
	if err != nil {
		return
	}
	if err = s.recipients.SaveDecision(ctx, renewal, updatedPrevious); err != nil {
		if errors.Is(err, persistence.ErrConflict) {
			err = fmt.Errorf("%w: %s was decided concurrently", scholarship.ErrAlreadyDecided, renewalID)
			renewal = scholarship.Recipient{}
			return
		}
		err = mapRecipientRepoError(err)
		renewal = scholarship.Recipient{}
		return
	}

	if renewal.Email != "" {
		subject, body := "Scholarship renewal approved", fmt.Sprintf("Your %s scholarship was renewed for %s.", renewal.ScholarshipName, renewal.Period)
		if !approve {
			subject, body = "Scholarship renewal not approved", fmt.Sprintf("Your %s scholarship renewal for %s was not approved.", renewal.ScholarshipName, renewal.Period)
		}
		if !s.notifier.SendEmail(ctx, renewal.Email, subject, body) {
			logger.WarnContext(ctx, "renewal decision email not delivered")
		}
	}
	return
}

func periodError(err error) error {
	if errors.Is(err, scholarship.ErrInvalidPeriod) {
		return fieldError("period", err.Error())
	}
	return err
}

func mapRecipientRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		return ErrNotFound
	}
	return err
}
