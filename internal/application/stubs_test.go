package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/campus-portal/internal/docrequest"
	"github.com/example/campus-portal/internal/persistence"
	"github.com/example/campus-portal/internal/scholarship"
)

var testNow = time.Date(2024, time.August, 12, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock { return &testClock{now: testNow} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// requestStoreStub keeps requests and payments in memory and enforces the
// same status and version guards as the SQLite repositories.
type requestStoreStub struct {
	mu       sync.Mutex
	requests map[string]docrequest.Request
	payments map[string]docrequest.Payment

	createErrs  []error
	createCalls int
	updateErr   error
	listErr     error

	// beforeComplete runs once, outside the lock, ahead of the next CompletePayment.
	beforeComplete func()
}

func newRequestStoreStub() *requestStoreStub {
	return &requestStoreStub{
		requests: make(map[string]docrequest.Request),
		payments: make(map[string]docrequest.Payment),
	}
}

func (s *requestStoreStub) CreateRequest(ctx context.Context, req docrequest.Request, payment docrequest.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if len(s.createErrs) > 0 {
		err := s.createErrs[0]
		s.createErrs = s.createErrs[1:]
		if err != nil {
			return err
		}
	}
	for _, existing := range s.requests {
		if existing.RequestNumber == req.RequestNumber {
			return persistence.ErrDuplicate
		}
	}
	s.requests[req.ID] = req
	s.payments[payment.ID] = payment
	return nil
}

func (s *requestStoreStub) GetRequest(ctx context.Context, id string) (docrequest.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return docrequest.Request{}, persistence.ErrNotFound
	}
	return req, nil
}

func (s *requestStoreStub) ListRequests(ctx context.Context, filter persistence.RequestFilter) ([]docrequest.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []docrequest.Request
	for _, req := range s.requests {
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, req.Status) {
			continue
		}
		if filter.RequesterID != "" && req.RequesterID != filter.RequesterID {
			continue
		}
		if filter.DeadlineBefore != nil && req.PaymentDeadline.After(*filter.DeadlineBefore) {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *requestStoreStub) UpdateRequest(ctx context.Context, req docrequest.Request, expected docrequest.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	stored, ok := s.requests[req.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	if stored.Status != expected || stored.Version != req.Version-1 {
		return persistence.ErrConflict
	}
	s.requests[req.ID] = req
	return nil
}

func (s *requestStoreStub) SaveEdit(ctx context.Context, req docrequest.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	stored, ok := s.requests[req.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	if stored.Status != docrequest.StatusPendingPayment || stored.Version != req.Version-1 {
		return persistence.ErrConflict
	}
	for id, p := range s.payments {
		if p.RequestID == req.ID && p.Status == docrequest.PaymentPending {
			p.Amount = req.Amount
			s.payments[id] = p
			s.requests[req.ID] = req
			return nil
		}
	}
	return persistence.ErrNotFound
}

func (s *requestStoreStub) DeleteRequest(ctx context.Context, id string, allowed []docrequest.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.requests[id]
	if !ok {
		return persistence.ErrNotFound
	}
	if !containsStatus(allowed, stored.Status) {
		return persistence.ErrConflict
	}
	delete(s.requests, id)
	return nil
}

func (s *requestStoreStub) CreatePayment(ctx context.Context, payment docrequest.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[payment.ID] = payment
	return nil
}

func (s *requestStoreStub) GetPaymentByReference(ctx context.Context, reference string) (docrequest.Payment, error) {
	return s.findPayment(func(p docrequest.Payment) bool { return p.Reference == reference })
}

func (s *requestStoreStub) GetPaymentByIntent(ctx context.Context, intentID string) (docrequest.Payment, error) {
	return s.findPayment(func(p docrequest.Payment) bool { return p.IntentID == intentID })
}

func (s *requestStoreStub) findPayment(match func(docrequest.Payment) bool) (docrequest.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if match(p) {
			return p, nil
		}
	}
	return docrequest.Payment{}, persistence.ErrNotFound
}

func (s *requestStoreStub) ListPaymentsForRequest(ctx context.Context, requestID string) ([]docrequest.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []docrequest.Payment
	for _, p := range s.payments {
		if p.RequestID == requestID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *requestStoreStub) AttachIntent(ctx context.Context, paymentID, intentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.payments {
		if id != paymentID && p.IntentID == intentID {
			return persistence.ErrDuplicate
		}
	}
	p, ok := s.payments[paymentID]
	if !ok || p.Status != docrequest.PaymentPending {
		return persistence.ErrNotFound
	}
	p.IntentID = intentID
	s.payments[paymentID] = p
	return nil
}

func (s *requestStoreStub) CompletePayment(ctx context.Context, paymentID string, completedAt time.Time, req docrequest.Request) error {
	if hook := s.beforeComplete; hook != nil {
		s.beforeComplete = nil
		hook()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[paymentID]
	if !ok {
		return persistence.ErrNotFound
	}
	if p.Status != docrequest.PaymentPending {
		return persistence.ErrConflict
	}
	if stored := s.requests[req.ID]; stored.Status != docrequest.StatusPendingPayment || stored.Version != req.Version-1 {
		return persistence.ErrConflict
	}
	p.Status = docrequest.PaymentCompleted
	p.CompletedAt = &completedAt
	s.payments[paymentID] = p
	s.requests[req.ID] = req
	return nil
}

func (s *requestStoreStub) request(id string) docrequest.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[id]
}

func (s *requestStoreStub) paymentFor(requestID string) docrequest.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.RequestID == requestID {
			return p
		}
	}
	return docrequest.Payment{}
}

func containsStatus(statuses []docrequest.Status, status docrequest.Status) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type sentMessage struct {
	to      string
	subject string
	body    string
}

type notifierStub struct {
	mu     sync.Mutex
	fail   bool
	sms    []sentMessage
	emails []sentMessage
	bulk   []sentMessage
}

func (n *notifierStub) SendSMS(ctx context.Context, to, text string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return false
	}
	n.sms = append(n.sms, sentMessage{to: to, body: text})
	return true
}

func (n *notifierStub) SendEmail(ctx context.Context, to, subject, body string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return false
	}
	n.emails = append(n.emails, sentMessage{to: to, subject: subject, body: body})
	return true
}

func (n *notifierStub) SendBulkEmail(ctx context.Context, to []string, subject, body string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return 0
	}
	for _, addr := range to {
		n.bulk = append(n.bulk, sentMessage{to: addr, subject: subject, body: body})
	}
	return len(to)
}

func (n *notifierStub) counts() (sms, emails, bulk int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sms), len(n.emails), len(n.bulk)
}

type recipientRepoStub struct {
	mu         sync.Mutex
	recipients map[string]scholarship.Recipient
	createErr  error
	findErr    error
	saveErr    error
	saved      int

	// beforeSave runs once, outside the lock, ahead of the next SaveDecision.
	beforeSave func()
}

func newRecipientRepoStub(recipients ...scholarship.Recipient) *recipientRepoStub {
	r := &recipientRepoStub{recipients: make(map[string]scholarship.Recipient)}
	for _, rec := range recipients {
		r.recipients[rec.ID] = rec
	}
	return r
}

func (r *recipientRepoStub) CreateRecipient(ctx context.Context, recipient scholarship.Recipient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.recipients[recipient.ID] = recipient
	return nil
}

func (r *recipientRepoStub) GetRecipient(ctx context.Context, id string) (scholarship.Recipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recipients[id]
	if !ok {
		return scholarship.Recipient{}, persistence.ErrNotFound
	}
	return rec, nil
}

func (r *recipientRepoStub) ListRecipients(ctx context.Context, filter persistence.RecipientFilter) ([]scholarship.Recipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []scholarship.Recipient
	for _, rec := range r.recipients {
		if len(filter.Statuses) > 0 {
			matched := false
			for _, s := range filter.Statuses {
				matched = matched || rec.Status == s
			}
			if !matched {
				continue
			}
		}
		if filter.Period != nil && rec.Period != *filter.Period {
			continue
		}
		if filter.Renewals && rec.PreviousRecipientID == nil {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *recipientRepoStub) UpdateRecipient(ctx context.Context, recipient scholarship.Recipient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.recipients[recipient.ID]; !ok {
		return persistence.ErrNotFound
	}
	r.recipients[recipient.ID] = recipient
	return nil
}

func (r *recipientRepoStub) SaveDecision(ctx context.Context, renewal, previous scholarship.Recipient) error {
	if hook := r.beforeSave; hook != nil {
		r.beforeSave = nil
		hook()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	if stored, ok := r.recipients[renewal.ID]; ok && stored.RenewalStatus != scholarship.RenewalPending {
		return persistence.ErrConflict
	}
	r.recipients[renewal.ID] = renewal
	r.recipients[previous.ID] = previous
	r.saved++
	return nil
}

func (r *recipientRepoStub) FindRenewal(ctx context.Context, previousID string, period scholarship.Period) (scholarship.Recipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return scholarship.Recipient{}, r.findErr
	}
	for _, rec := range r.recipients {
		if rec.PreviousRecipientID != nil && *rec.PreviousRecipientID == previousID && rec.Period == period {
			return rec, nil
		}
	}
	return scholarship.Recipient{}, persistence.ErrNotFound
}

type eventRepoStub struct {
	mu        sync.Mutex
	events    map[string]persistence.Event
	createErr error
	deleted   []string
}

func newEventRepoStub(events ...persistence.Event) *eventRepoStub {
	r := &eventRepoStub{events: make(map[string]persistence.Event)}
	for _, e := range events {
		r.events[e.ID] = e
	}
	return r
}

func (r *eventRepoStub) CreateEvent(ctx context.Context, event persistence.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.events[event.ID] = event
	return nil
}

func (r *eventRepoStub) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return persistence.Event{}, persistence.ErrNotFound
	}
	return e, nil
}

func (r *eventRepoStub) UpdateEvent(ctx context.Context, event persistence.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[event.ID]; !ok {
		return persistence.ErrNotFound
	}
	r.events[event.ID] = event
	return nil
}

func (r *eventRepoStub) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []persistence.Event
	for _, e := range r.events {
		if filter.Organizer != "" && e.Organizer != filter.Organizer {
			continue
		}
		if filter.PublishedOnly && e.PublishedAt == nil {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (r *eventRepoStub) DeleteEvent(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.events, id)
	r.deleted = append(r.deleted, id)
	return nil
}
