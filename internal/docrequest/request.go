package docrequest

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DocumentType identifies a registrar document.
type DocumentType string

const (
	DocumentTranscript              DocumentType = "transcript_of_records"
	DocumentCertificateOfEnrollment DocumentType = "certificate_of_enrollment"
	DocumentCertificateOfGrades     DocumentType = "certificate_of_grades"
	DocumentGoodMoral               DocumentType = "good_moral_certificate"
	DocumentHonorableDismissal      DocumentType = "honorable_dismissal"
	DocumentDiplomaCopy             DocumentType = "diploma_copy"
)

// DocumentTypes lists every document the registrar issues.
var DocumentTypes = []DocumentType{
	DocumentTranscript,
	DocumentCertificateOfEnrollment,
	DocumentCertificateOfGrades,
	DocumentGoodMoral,
	DocumentHonorableDismissal,
	DocumentDiplomaCopy,
}

// Valid reports whether t is a known document type.
func (t DocumentType) Valid() bool {
	for _, known := range DocumentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ProcessingType selects the turnaround and therefore the unit price.
type ProcessingType string

const (
	ProcessingRegular ProcessingType = "regular"
	ProcessingRush    ProcessingType = "rush"
)

var unitPrices = map[ProcessingType]int64{
	ProcessingRegular: 50,
	ProcessingRush:    150,
}

// ErrUnknownProcessingType is returned when pricing an unsupported processing type.
var ErrUnknownProcessingType = errors.New("docrequest: unknown processing type")

// UnitPrice returns the per-copy fee for the processing type.
func UnitPrice(processing ProcessingType) (int64, error) {
	price, ok := unitPrices[processing]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownProcessingType, string(processing))
	}
	return price, nil
}

// ComputeAmount derives the amount due. It is the only source of Request.Amount.
func ComputeAmount(processing ProcessingType, quantity int) (int64, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("docrequest: quantity must be positive, got %d", quantity)
	}
	price, err := UnitPrice(processing)
	if err != nil {
		return 0, err
	}
	return price * int64(quantity), nil
}

// Request is a registrar document request.
type Request struct {
	ID              string
	RequestNumber   string
	RequesterID     string
	RequesterName   string
	Email           string
	Phone           string
	DocumentType    DocumentType
	ProcessingType  ProcessingType
	Quantity        int
	Purpose         string
	Amount          int64
	Status          Status
	PaymentMethod   PaymentMethod
	PaymentDeadline time.Time
	PaidAt          *time.Time
	ProcessedAt     *time.Time
	ReadyAt         *time.Time
	ReleasedAt      *time.Time
	ReleasedTo      string
	ReleaseIDType   string
	ReleaseIDDigest string
	CancelledAt     *time.Time
	CancelReason    string
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// Version counts stored revisions. Apply returns the next one and storage
	// only accepts a write over the revision before it.
	Version int64
}

// New builds a pending request with its deadline and amount derived.
func New(req Request, createdAt time.Time) (Request, error) {
	amount, err := ComputeAmount(req.ProcessingType, req.Quantity)
	if err != nil {
		return Request{}, err
	}
	req.Amount = amount
	req.Status = StatusPendingPayment
	req.PaymentDeadline = createdAt.Add(PaymentWindow)
	req.CreatedAt = createdAt
	req.UpdatedAt = createdAt
	req.Version = 1
	return req, nil
}

// PaymentMethod is how a request is paid.
type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "cash"
	PaymentDigital PaymentMethod = "digital"
)

// PaymentStatus tracks whether a payment has been settled.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
)

// Payment is the settlement record for a request. Cash payments are keyed by
// Reference, digital ones by the gateway's IntentID.
type Payment struct {
	ID          string
	RequestID   string
	Method      PaymentMethod
	Reference   string
	IntentID    string
	Amount      int64
	Status      PaymentStatus
	CreatedAt   time.Time
	CompletedAt *time.Time
}

var (
	requestNumberPattern = regexp.MustCompile(`^REQ-\d{8}-\d{4}$`)
	cashReferencePattern = regexp.MustCompile(`^PAY-\d{8}-[0-9A-F]{8}$`)
	intentIDPattern      = regexp.MustCompile(`^pi_[A-Za-z0-9_]+$`)
)

// FormatRequestNumber renders REQ-YYYYMMDD-NNNN.
func FormatRequestNumber(t time.Time, seq int) string {
	return fmt.Sprintf("REQ-%s-%04d", t.Format("20060102"), seq%10000)
}

// ValidRequestNumber reports whether s has the request number format.
func ValidRequestNumber(s string) bool {
	return requestNumberPattern.MatchString(s)
}

// FormatPaymentReference renders a cash reference PAY-YYYYMMDD-XXXXXXXX from
// the first eight hex digits of suffix.
func FormatPaymentReference(t time.Time, suffix string) string {
	cleaned := strings.ToUpper(strings.ReplaceAll(suffix, "-", ""))
	for len(cleaned) < 8 {
		cleaned += "0"
	}
	return fmt.Sprintf("PAY-%s-%s", t.Format("20060102"), cleaned[:8])
}

// ErrInvalidReference is returned for a reference that does not match its method's format.
var ErrInvalidReference = errors.New("docrequest: invalid payment reference")

// ValidateReference checks ref against the single format allowed for method.
func ValidateReference(method PaymentMethod, ref string) error {
	switch method {
	case PaymentCash:
		if cashReferencePattern.MatchString(ref) {
			return nil
		}
	case PaymentDigital:
		if intentIDPattern.MatchString(ref) {
			return nil
		}
	}
	return fmt.Errorf("%w: %q for %s payment", ErrInvalidReference, ref, method)
}
