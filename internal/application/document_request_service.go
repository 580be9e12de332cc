package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/campus-portal/internal/docrequest"
	"github.com/example/campus-portal/internal/documents"
	"github.com/example/campus-portal/internal/persistence"
)

// DocumentRenderer renders a request's document.
type DocumentRenderer interface {
	Render(req docrequest.Request, issuedAt time.Time) ([]byte, error)
}

// DocumentRequestDeps captures dependencies for constructing a DocumentRequestService.
type DocumentRequestDeps struct {
	Requests    persistence.DocumentRequestRepository
	Payments    persistence.PaymentRepository
	Notifier    Notifier
	Renderer    DocumentRenderer
	StaffEmails []string
	Location    *time.Location
	IDGenerator func() string

	// SuffixGenerator supplies the random part of request numbers and cash
	// payment references.
	SuffixGenerator func() string
	Now             func() time.Time
	Logger          *slog.Logger
}

// DocumentRequestService runs the registrar document request workflow.
type DocumentRequestService struct {
	requests    persistence.DocumentRequestRepository
	payments    persistence.PaymentRepository
	notifier    Notifier
	renderer    DocumentRenderer
	staffEmails []string
	location    *time.Location
	idGenerator func() string
	suffix      func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewDocumentRequestService constructs the service with the provided dependencies.
func NewDocumentRequestService(deps DocumentRequestDeps) *DocumentRequestService {
	s := &DocumentRequestService{
		requests:    deps.Requests,
		payments:    deps.Payments,
		notifier:    deps.Notifier,
		renderer:    deps.Renderer,
		staffEmails: deps.StaffEmails,
		location:    deps.Location,
		idGenerator: deps.IDGenerator,
		suffix:      deps.SuffixGenerator,
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
	if s.suffix == nil {
		s.suffix = s.idGenerator
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *DocumentRequestService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "DocumentRequestService", operation, attrs...)
}

// Create validates input and stores a new request awaiting payment together
// with its pending payment record.
func (s *DocumentRequestService) Create(ctx context.Context, input CreateDocumentRequestInput) (req docrequest.Request, err error) {
	logger := s.loggerWith(ctx, "Create", "requester_id", input.RequesterID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create document request", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "document request created", "request_id", req.ID, "request_number", req.RequestNumber)
	}()

	if vErr := validateStruct(input); vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	local := now.In(s.location)
	var number string
	err = retryOnDuplicate(ctx, func(attempt int) error {
		suffix := s.suffix()
		number = docrequest.FormatRequestNumber(local, sequenceFromSuffix(suffix))

		candidate, buildErr := docrequest.New(docrequest.Request{
			ID:             s.idGenerator(),
			RequestNumber:  number,
			RequesterID:    strings.TrimSpace(input.RequesterID),
			RequesterName:  strings.TrimSpace(input.RequesterName),
			Email:          strings.TrimSpace(input.Email),
			Phone:          strings.TrimSpace(input.Phone),
			DocumentType:   input.DocumentType,
			ProcessingType: input.ProcessingType,
			Quantity:       input.Quantity,
			Purpose:        strings.TrimSpace(input.Purpose),
			PaymentMethod:  input.PaymentMethod,
		}, now)
		if buildErr != nil {
			return fieldError("processing_type", buildErr.Error())
		}

		payment := docrequest.Payment{
			ID:        s.idGenerator(),
			RequestID: candidate.ID,
			Method:    input.PaymentMethod,
			Amount:    candidate.Amount,
			Status:    docrequest.PaymentPending,
			CreatedAt: now,
		}
		if payment.Method == docrequest.PaymentCash {
			payment.Reference = docrequest.FormatPaymentReference(local, suffix)
		}

		if attempt > 0 {
			logger.WarnContext(ctx, "regenerating request number after collision", "attempt", attempt+1)
		}
		if createErr := s.requests.CreateRequest(ctx, candidate, payment); createErr != nil {
			return createErr
		}
		req = candidate
		return nil
	})
	if err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			err = &DuplicateResourceError{Resource: "document request", Key: number}
			return
		}
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			err = mapRequestRepoError(err)
		}
		return
	}

	reference := s.paymentInstructions(ctx, req)
	s.notifyRequester(ctx, req, "Document request received",
		fmt.Sprintf("Your request %s for %s was received. Amount due: PHP %d. %s Pay before %s or the request expires.",
			req.RequestNumber, documentLabel(req.DocumentType), req.Amount, reference, s.formatTime(req.PaymentDeadline)))
	s.notifyStaff(ctx, "New document request "+req.RequestNumber,
		fmt.Sprintf("%s requested %d x %s (%s).", req.RequesterName, req.Quantity, documentLabel(req.DocumentType), req.ProcessingType))
	return
}

// Get returns a request with its payment deadline evaluated. A request found
// past its deadline is moved to payment_expired; persisting that is best-effort.
func (s *DocumentRequestService) Get(ctx context.Context, id string) (docrequest.Request, error) {
	req, err := s.requests.GetRequest(ctx, id)
	if err != nil {
		return docrequest.Request{}, mapRequestRepoError(err)
	}
	if docrequest.EffectiveStatus(req, s.now()) == req.Status {
		return req, nil
	}

	expired, err := s.expire(ctx, req)
	if errors.Is(err, persistence.ErrConflict) {
		current, getErr := s.requests.GetRequest(ctx, id)
		if getErr != nil {
			return docrequest.Request{}, mapRequestRepoError(getErr)
		}
		current.Status = docrequest.EffectiveStatus(current, s.now())
		return current, nil
	}
	if err != nil {
		s.loggerWith(ctx, "Get", "request_id", id).WarnContext(ctx, "failed to persist payment expiry", "error", err)
		expired.Status = docrequest.StatusPaymentExpired
	}
	return expired, nil
}

// List returns requests matching filter with statuses evaluated at the
// current time. Filtering on payment_expired includes unpaid requests whose
// deadline has passed but which the sweep has not reached yet.
func (s *DocumentRequestService) List(ctx context.Context, filter persistence.RequestFilter) ([]docrequest.Request, error) {
	wanted := make(map[docrequest.Status]bool, len(filter.Statuses))
	for _, status := range filter.Statuses {
		wanted[status] = true
	}
	query := filter
	if wanted[docrequest.StatusPaymentExpired] && !wanted[docrequest.StatusPendingPayment] {
		query.Statuses = append(append([]docrequest.Status(nil), filter.Statuses...), docrequest.StatusPendingPayment)
	}

	stored, err := s.requests.ListRequests(ctx, query)
	if err != nil {
		return nil, mapRequestRepoError(err)
	}

	now := s.now()
	out := make([]docrequest.Request, 0, len(stored))
	for _, req := range stored {
		req.Status = docrequest.EffectiveStatus(req, now)
		if len(wanted) > 0 && !wanted[req.Status] {
			continue
		}
		out = append(out, req)
	}
	return out, nil
}

// Edit changes the document details of an unpaid request and recomputes
// the amount due.
func (s *DocumentRequestService) Edit(ctx context.Context, principal Principal, id string, input EditDocumentRequestInput) (req docrequest.Request, err error) {
	logger := s.loggerWith(ctx, "Edit", "request_id", id, "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to edit document request", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "document request edited", "amount", req.Amount)
	}()

	if vErr := validateStruct(input); vErr.HasErrors() {
		err = vErr
		return
	}

	var existing docrequest.Request
	existing, err = s.load(ctx, principal, id)
	if err != nil {
		return
	}

	var edited docrequest.Request
	edited, err = docrequest.Apply(existing, docrequest.ActionEdit, s.now())
	if err != nil {
		return
	}
	edited.DocumentType = input.DocumentType
	edited.ProcessingType = input.ProcessingType
	edited.Quantity = input.Quantity
	edited.Purpose = strings.TrimSpace(input.Purpose)
	edited.Amount, err = docrequest.ComputeAmount(edited.ProcessingType, edited.Quantity)
	if err != nil {
		err = fieldError("processing_type", err.Error())
		return
	}

	err = s.requests.SaveEdit(ctx, edited)
	if errors.Is(err, persistence.ErrConflict) {
		err = s.conflictError(ctx, edited.ID, docrequest.ActionEdit)
		return
	}
	if err != nil {
		err = mapRequestRepoError(err)
		return
	}
	req = edited
	return
}

// ConfirmCashPayment settles the cash payment identified by reference.
func (s *DocumentRequestService) ConfirmCashPayment(ctx context.Context, principal Principal, reference string) (req docrequest.Request, err error) {
	reference = strings.TrimSpace(reference)
	logger := s.loggerWith(ctx, "ConfirmCashPayment", "reference", reference, "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to confirm cash payment", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "cash payment confirmed", "request_id", req.ID)
	}()

	if !principal.IsStaff {
		err = ErrUnauthorized
		return
	}
	if refErr := docrequest.ValidateReference(docrequest.PaymentCash, reference); refErr != nil {
		err = fieldError("reference", "must look like PAY-YYYYMMDD-XXXXXXXX")
		return
	}

	var payment docrequest.Payment
	payment, err = s.payments.GetPaymentByReference(ctx, reference)
	if err != nil {
		err = mapRequestRepoError(err)
		return
	}
	req, err = s.confirm(ctx, payment)
	return
}

// AttachPaymentIntent records the gateway intent created for a digital payment.
func (s *DocumentRequestService) AttachPaymentIntent(ctx context.Context, requestID, intentID string) (err error) {
	intentID = strings.TrimSpace(intentID)
	logger := s.loggerWith(ctx, "AttachPaymentIntent", "request_id", requestID, "intent_id", intentID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to attach payment intent", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "payment intent attached")
	}()

	if refErr := docrequest.ValidateReference(docrequest.PaymentDigital, intentID); refErr != nil {
		err = fieldError("payment_intent_id", "must be a gateway payment intent id")
		return
	}

	var req docrequest.Request
	req, err = s.Get(ctx, requestID)
	if err != nil {
		return
	}
	if _, err = docrequest.Transition(req.Status, docrequest.ActionConfirmPayment); err != nil {
		return
	}
	if req.PaymentMethod != docrequest.PaymentDigital {
		err = fieldError("payment_method", "request is not paid digitally")
		return
	}

	var payments []docrequest.Payment
	payments, err = s.payments.ListPaymentsForRequest(ctx, requestID)
	if err != nil {
		err = mapRequestRepoError(err)
		return
	}
	for _, p := range payments {
		if p.Method != docrequest.PaymentDigital || p.Status != docrequest.PaymentPending {
			continue
		}
		if p.IntentID == intentID {
			return nil
		}
		err = s.payments.AttachIntent(ctx, p.ID, intentID)
		if errors.Is(err, persistence.ErrDuplicate) {
			err = &DuplicateResourceError{Resource: "payment intent", Key: intentID}
			return
		}
		if err != nil {
			err = mapRequestRepoError(err)
		}
		return
	}
	err = ErrNotFound
	return
}

// HandleGatewayEvent applies a payment gateway webhook delivery. Redelivered
// success events for an already settled intent are acknowledged without
// applying the payment again.
func (s *DocumentRequestService) HandleGatewayEvent(ctx context.Context, event GatewayEvent) (outcome GatewayOutcome, err error) {
	logger := s.loggerWith(ctx, "HandleGatewayEvent", "event_type", event.EventType, "intent_id", event.PaymentIntentID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to handle gateway event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "gateway event handled", "outcome", outcome)
	}()

	if vErr := validateStruct(event); vErr.HasErrors() {
		err = vErr
		return
	}
	if event.EventType != GatewayEventSucceeded || !strings.EqualFold(event.Status, GatewayStatusSucceeded) {
		outcome = GatewayIgnored
		return
	}

	var payment docrequest.Payment
	payment, err = s.payments.GetPaymentByIntent(ctx, event.PaymentIntentID)
	if err != nil {
		err = mapRequestRepoError(err)
		return
	}
	if payment.Status == docrequest.PaymentCompleted {
		outcome = GatewayDuplicate
		return
	}

	_, err = s.confirm(ctx, payment)
	if errors.Is(err, ErrPaymentAlreadyCompleted) {
		outcome, err = GatewayDuplicate, nil
		return
	}
	if err != nil {
		return
	}
	outcome = GatewayApplied
	return
}

// BeginProcessing moves a paid request into processing.
func (s *DocumentRequestService) BeginProcessing(ctx context.Context, principal Principal, id string) (docrequest.Request, error) {
	return s.staffTransition(ctx, principal, id, docrequest.ActionBeginProcessing, nil)
}

// MarkReady marks a processed request ready for pickup.
func (s *DocumentRequestService) MarkReady(ctx context.Context, principal Principal, id string) (docrequest.Request, error) {
	return s.staffTransition(ctx, principal, id, docrequest.ActionMarkReady, nil)
}

// Release hands the document over and records who received it. The ID
// number is stored only as a digest.
func (s *DocumentRequestService) Release(ctx context.Context, principal Principal, id string, input ReleaseInput) (docrequest.Request, error) {
	if vErr := validateStruct(input); vErr.HasErrors() {
		return docrequest.Request{}, vErr
	}
	digest, err := DigestIdentityNumber(input.IDNumber, DefaultArgon2idParams)
	if err != nil {
		return docrequest.Request{}, fmt.Errorf("digest identity number: %w", err)
	}
	return s.staffTransition(ctx, principal, id, docrequest.ActionRelease, func(req *docrequest.Request) {
		req.ReleasedTo = strings.TrimSpace(input.ReceivedBy)
		req.ReleaseIDType = strings.TrimSpace(input.IDType)
		req.ReleaseIDDigest = digest
	})
}

// Cancel withdraws a request. Requesters may cancel their own unpaid
// requests; staff may also cancel paid requests that have not been released.
func (s *DocumentRequestService) Cancel(ctx context.Context, principal Principal, id, reason string) (req docrequest.Request, err error) {
	logger := s.loggerWith(ctx, "Cancel", "request_id", id, "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel document request", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "document request cancelled")
	}()

	var existing docrequest.Request
	existing, err = s.load(ctx, principal, id)
	if err != nil {
		return
	}
	status := docrequest.EffectiveStatus(existing, s.now())
	if !docrequest.CanCancel(status, principal.IsStaff) && docrequest.CanCancel(status, true) {
		err = ErrUnauthorized
		return
	}

	req, err = s.advance(ctx, existing, docrequest.ActionCancel, func(r *docrequest.Request) {
		r.CancelReason = strings.TrimSpace(reason)
	})
	return
}

// Delete removes a request that is unpaid, expired or cancelled.
func (s *DocumentRequestService) Delete(ctx context.Context, principal Principal, id string) (err error) {
	logger := s.loggerWith(ctx, "Delete", "request_id", id, "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete document request", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "document request deleted")
	}()

	var existing docrequest.Request
	existing, err = s.load(ctx, principal, id)
	if err != nil {
		return
	}
	status := docrequest.EffectiveStatus(existing, s.now())
	if _, err = docrequest.Transition(status, docrequest.ActionDelete); err != nil {
		return
	}

	deletable := []docrequest.Status{docrequest.StatusPendingPayment, docrequest.StatusPaymentExpired, docrequest.StatusCancelled}
	err = s.requests.DeleteRequest(ctx, id, deletable)
	if errors.Is(err, persistence.ErrConflict) {
		err = s.conflictError(ctx, id, docrequest.ActionDelete)
		return
	}
	if err != nil {
		err = mapRequestRepoError(err)
	}
	return
}

// GenerateDocument renders the requested document once processing has started.
func (s *DocumentRequestService) GenerateDocument(ctx context.Context, principal Principal, id string) (out []byte, err error) {
	logger := s.loggerWith(ctx, "GenerateDocument", "request_id", id, "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to generate document", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "document generated", "bytes", len(out))
	}()

	if !principal.IsStaff {
		err = ErrUnauthorized
		return
	}
	if s.renderer == nil {
		err = fmt.Errorf("document renderer not configured")
		return
	}

	var req docrequest.Request
	req, err = s.Get(ctx, id)
	if err != nil {
		return
	}
	if err = docrequest.CheckGenerate(req.Status); err != nil {
		return
	}
	out, err = s.renderer.Render(req, s.now())
	if err != nil && !errors.Is(err, documents.ErrUnknownDocumentType) {
		err = fmt.Errorf("render document: %w", err)
	}
	return
}

// ExpireOverdue moves every unpaid request past its deadline to
// payment_expired and returns how many were expired.
func (s *DocumentRequestService) ExpireOverdue(ctx context.Context) (expired int, err error) {
	logger := s.loggerWith(ctx, "ExpireOverdue")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "payment expiry sweep failed", "error", err, "expired", expired)
			return
		}
		logger.InfoContext(ctx, "payment expiry sweep finished", "expired", expired)
	}()

	now := s.now()
	var overdue []docrequest.Request
	overdue, err = s.requests.ListRequests(ctx, persistence.RequestFilter{
		Statuses:       []docrequest.Status{docrequest.StatusPendingPayment},
		DeadlineBefore: &now,
	})
	if err != nil {
		err = mapRequestRepoError(err)
		return
	}

	for _, req := range overdue {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
			return
		}
		if _, expireErr := s.expire(ctx, req); expireErr != nil {
			if !errors.Is(expireErr, persistence.ErrConflict) && !IsInvalidTransition(expireErr) {
				logger.WarnContext(ctx, "failed to expire request", "request_id", req.ID, "error", expireErr)
			}
			continue
		}
		expired++
	}
	return
}

// confirm settles payment and marks its request paid.
func (s *DocumentRequestService) confirm(ctx context.Context, payment docrequest.Payment) (docrequest.Request, error) {
	if payment.Status == docrequest.PaymentCompleted {
		return docrequest.Request{}, ErrPaymentAlreadyCompleted
	}

	req, err := s.requests.GetRequest(ctx, payment.RequestID)
	if err != nil {
		return docrequest.Request{}, mapRequestRepoError(err)
	}

	now := s.now()
	paid, err := docrequest.Apply(req, docrequest.ActionConfirmPayment, now)
	if err != nil {
		return req, err
	}

	err = s.payments.CompletePayment(ctx, payment.ID, now, paid)
	if errors.Is(err, persistence.ErrConflict) {
		if current, getErr := s.reloadPayment(ctx, payment); getErr == nil && current.Status == docrequest.PaymentCompleted {
			return docrequest.Request{}, ErrPaymentAlreadyCompleted
		}
		return docrequest.Request{}, s.conflictError(ctx, req.ID, docrequest.ActionConfirmPayment)
	}
	if err != nil {
		return docrequest.Request{}, mapRequestRepoError(err)
	}

	s.notifyTransition(ctx, paid)
	s.notifyStaff(ctx, "Payment received for "+paid.RequestNumber,
		fmt.Sprintf("PHP %d received via %s for %s.", payment.Amount, payment.Method, paid.RequestNumber))
	return paid, nil
}

func (s *DocumentRequestService) reloadPayment(ctx context.Context, payment docrequest.Payment) (docrequest.Payment, error) {
	if payment.Method == docrequest.PaymentCash {
		return s.payments.GetPaymentByReference(ctx, payment.Reference)
	}
	return s.payments.GetPaymentByIntent(ctx, payment.IntentID)
}

func (s *DocumentRequestService) staffTransition(ctx context.Context, principal Principal, id string, action docrequest.Action, mutate func(*docrequest.Request)) (req docrequest.Request, err error) {
	logger := s.loggerWith(ctx, string(action), "request_id", id, "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "document request action failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "document request updated", "status", req.Status)
	}()

	if !principal.IsStaff {
		err = ErrUnauthorized
		return
	}
	var existing docrequest.Request
	existing, err = s.requests.GetRequest(ctx, id)
	if err != nil {
		err = mapRequestRepoError(err)
		return
	}
	req, err = s.advance(ctx, existing, action, mutate)
	return
}

// advance applies action, persists it conditionally on the stored status and
// notifies the requester.
func (s *DocumentRequestService) advance(ctx context.Context, existing docrequest.Request, action docrequest.Action, mutate func(*docrequest.Request)) (docrequest.Request, error) {
	next, err := docrequest.Apply(existing, action, s.now())
	if err != nil {
		return existing, err
	}
	if mutate != nil {
		mutate(&next)
	}
	if err := s.save(ctx, next, existing.Status, action); err != nil {
		return existing, err
	}
	s.notifyTransition(ctx, next)
	return next, nil
}

func (s *DocumentRequestService) save(ctx context.Context, req docrequest.Request, expected docrequest.Status, action docrequest.Action) error {
	err := s.requests.UpdateRequest(ctx, req, expected)
	if errors.Is(err, persistence.ErrConflict) {
		return s.conflictError(ctx, req.ID, action)
	}
	return mapRequestRepoError(err)
}

func (s *DocumentRequestService) expire(ctx context.Context, req docrequest.Request) (docrequest.Request, error) {
	expired, err := docrequest.Apply(req, docrequest.ActionExpire, s.now())
	if err != nil {
		return req, err
	}
	if err := s.requests.UpdateRequest(ctx, expired, docrequest.StatusPendingPayment); err != nil {
		return expired, err
	}
	s.notifyTransition(ctx, expired)
	return expired, nil
}

// conflictError reloads a request that changed underneath a write and
// reports the action as illegal from its current status.
func (s *DocumentRequestService) conflictError(ctx context.Context, id string, action docrequest.Action) error {
	current, err := s.requests.GetRequest(ctx, id)
	if err != nil {
		return mapRequestRepoError(err)
	}
	return &docrequest.InvalidTransitionError{
		From:   docrequest.EffectiveStatus(current, s.now()),
		Action: action,
		Reason: "request was updated concurrently",
	}
}

// load fetches a request the principal may act on. Requests owned by other
// students are reported as not found.
func (s *DocumentRequestService) load(ctx context.Context, principal Principal, id string) (docrequest.Request, error) {
	req, err := s.requests.GetRequest(ctx, id)
	if err != nil {
		return docrequest.Request{}, mapRequestRepoError(err)
	}
	if !principal.IsStaff && req.RequesterID != principal.UserID {
		return docrequest.Request{}, ErrNotFound
	}
	return req, nil
}

var statusMessages = map[docrequest.Status]struct {
	subject string
	text    string
}{
	docrequest.StatusPaid:           {"Payment confirmed", "Payment for %s was received. We will start processing your %s."},
	docrequest.StatusProcessing:     {"Request in process", "Your request %s is now being processed (%s)."},
	docrequest.StatusReadyForPickup: {"Ready for pickup", "Your %[2]s for request %[1]s is ready for pickup at the Registrar. Bring a valid ID."},
	docrequest.StatusReleased:       {"Document released", "Your %[2]s for request %[1]s has been released."},
	docrequest.StatusCancelled:      {"Request cancelled", "Your request %s for %s has been cancelled."},
	docrequest.StatusPaymentExpired: {"Payment deadline passed", "Your request %s for %s expired because payment was not received within 48 hours."},
}

func (s *DocumentRequestService) notifyTransition(ctx context.Context, req docrequest.Request) {
	msg, ok := statusMessages[req.Status]
	if !ok {
		return
	}
	text := fmt.Sprintf(msg.text, req.RequestNumber, documentLabel(req.DocumentType))
	if req.Status == docrequest.StatusCancelled && req.CancelReason != "" {
		text += " Reason: " + req.CancelReason
	}
	s.notifyRequester(ctx, req, msg.subject, text)
}

// notifyRequester sends one SMS and one email. Failures are logged only.
func (s *DocumentRequestService) notifyRequester(ctx context.Context, req docrequest.Request, subject, text string) {
	logger := s.loggerWith(ctx, "notify", "request_id", req.ID, "status", req.Status)
	if req.Phone != "" && !s.notifier.SendSMS(ctx, req.Phone, text) {
		logger.WarnContext(ctx, "sms notification not delivered")
	}
	if req.Email != "" && !s.notifier.SendEmail(ctx, req.Email, subject, text) {
		logger.WarnContext(ctx, "email notification not delivered")
	}
}

func (s *DocumentRequestService) notifyStaff(ctx context.Context, subject, body string) {
	if len(s.staffEmails) == 0 {
		return
	}
	if sent := s.notifier.SendBulkEmail(ctx, s.staffEmails, subject, body); sent < len(s.staffEmails) {
		s.loggerWith(ctx, "notifyStaff").WarnContext(ctx, "staff notification partially delivered", "sent", sent, "recipients", len(s.staffEmails))
	}
}

func (s *DocumentRequestService) paymentInstructions(ctx context.Context, req docrequest.Request) string {
	if req.PaymentMethod != docrequest.PaymentCash {
		return "Complete the online payment from the portal."
	}
	payments, err := s.payments.ListPaymentsForRequest(ctx, req.ID)
	if err != nil || len(payments) == 0 {
		return "Pay at the cashier."
	}
	return "Pay at the cashier using reference " + payments[0].Reference + "."
}

func (s *DocumentRequestService) formatTime(t time.Time) string {
	return t.In(s.location).Format("Jan 2, 2006 3:04 PM")
}

func documentLabel(t docrequest.DocumentType) string {
	return strings.ReplaceAll(string(t), "_", " ")
}

func mapRequestRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		return fieldError("request", "violates a data constraint")
	}
	return err
}
