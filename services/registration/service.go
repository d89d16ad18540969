package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"wushuacademy_go/models"
)

// numberAttempts bounds registration-number regeneration on collision.
const numberAttempts = 5

// StatusEvent is handed to the Notifier after a status change commits. It
// carries everything needed to compose a message; delivery details stay out
// of the core.
type StatusEvent struct {
	RegistrationID     uint            `json:"registration_id"`
	RegistrationNumber string          `json:"registration_number"`
	RecipientEmail     string          `json:"recipient_email"`
	RecipientName      string          `json:"recipient_name"`
	EventType          string          `json:"event_type"` // approved | rejected
	Amount             decimal.Decimal `json:"amount"`
	Reason             string          `json:"reason,omitempty"`
}

// Notifier delivers a status notification. Failure is non-fatal to the
// already-committed status change and is surfaced to the caller instead.
type Notifier interface {
	NotifyStatus(ctx context.Context, ev StatusEvent) error
}

// Service implements the registration lifecycle on top of an injected Store.
// It is request-scoped and stateless between calls.
type Service struct {
	store Store

	// test seams; production values set by NewService
	newNumber func(time.Time) string
	now       func() time.Time
}

func NewService(store Store) *Service {
	return &Service{
		store:     store,
		newNumber: NewRegistrationNumber,
		now:       time.Now,
	}
}

// Submit validates a public submission and persists it with a fresh
// registration number. Partially-valid payloads are never persisted. Number
// collisions retry generation inside the store's uniqueness domain; an
// exhausted budget fails the whole submission.
func (s *Service) Submit(ctx context.Context, req *SubmitRequest) (*models.Registration, error) {
	nr, verr := Validate(req)
	if verr != nil {
		return nil, verr
	}

	for attempt := 1; attempt <= numberAttempts; attempt++ {
		reg := nr.toModel()
		reg.RegistrationNumber = s.newNumber(s.now())

		err := s.store.Create(ctx, reg)
		if err == nil {
			return reg, nil
		}
		if !errors.Is(err, ErrDuplicateNumber) {
			return nil, err
		}
		logrus.WithFields(logrus.Fields{
			"registration_number": reg.RegistrationNumber,
			"attempt":             attempt,
		}).Warn("registration number collision, regenerating")
	}

	return nil, fmt.Errorf("%w (%d attempts)", ErrNumbersExhausted, numberAttempts)
}

// Get returns one registration or ErrNotFound.
func (s *Service) Get(ctx context.Context, id uint) (*models.Registration, error) {
	return s.store.GetByID(ctx, id)
}

// List returns registrations newest first with the total count.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]models.Registration, int64, error) {
	return s.store.List(ctx, opts)
}

// UpdateStatus applies an admin decision. It returns the store outcome plus
// the notification event to dispatch, which is nil for no-op re-applies.
// The event is returned rather than dispatched here so the caller can run
// delivery strictly after this method's write has committed.
func (s *Service) UpdateStatus(ctx context.Context, id uint, requested, reason string) (*StatusUpdate, *StatusEvent, error) {
	if !models.IsValidPaymentStatus(requested) {
		return nil, nil, &ValidationError{Fields: []FieldError{{Field: "payment_status", Reason: ReasonFormat}}}
	}

	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	tr, err := PlanTransition(current.PaymentStatus, requested)
	if err != nil {
		return nil, nil, err
	}
	if tr.NoOp {
		return &StatusUpdate{Changed: false, Previous: current.PaymentStatus, Registration: current}, nil, nil
	}

	invoiceNumber := ""
	if tr.AssignInvoice && current.InvoiceNumber == "" {
		invoiceNumber = "INV-" + current.RegistrationNumber
	}

	upd, err := s.store.UpdateStatus(ctx, id, current.PaymentStatus, requested, invoiceNumber)
	if err != nil {
		if errors.Is(err, ErrStaleStatus) {
			// The concurrent winner moved the row first; treat the loser
			// like any other unreachable transition.
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
		}
		return nil, nil, err
	}
	if !upd.Changed {
		// Concurrent writer already applied the same status; idempotent.
		return upd, nil, nil
	}

	var ev *StatusEvent
	if tr.Notify {
		ev = &StatusEvent{
			RegistrationID:     upd.Registration.ID,
			RegistrationNumber: upd.Registration.RegistrationNumber,
			RecipientEmail:     upd.Registration.Email,
			RecipientName:      upd.Registration.NameEn,
			EventType:          requested,
			Amount:             upd.Registration.PaymentAmount,
			Reason:             reason,
		}
	}
	return upd, ev, nil
}

// Delete hard-deletes a registration. Deleting an already-gone id reports
// deleted=false without an error.
func (s *Service) Delete(ctx context.Context, id uint) (bool, error) {
	return s.store.Delete(ctx, id)
}
