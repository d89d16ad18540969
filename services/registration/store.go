package registration

import (
	"context"

	"wushuacademy_go/models"
)

// ListOptions controls admin listing. A zero Limit lists everything, newest
// first, matching the legacy API; pagination is opt-in.
type ListOptions struct {
	Page          int
	Limit         int
	PaymentStatus string
}

// StatusUpdate reports the outcome of a status write. Changed=false with a
// nil error is a same-status no-op, which the store reports distinctly from
// not-found so callers can suppress duplicate notifications.
type StatusUpdate struct {
	Changed      bool
	Previous     string
	Registration *models.Registration
}

// Store is the persistence contract for registrations. Implementations must
// enforce the unique index on registration_number (surfacing
// ErrDuplicateNumber) and make UpdateStatus an atomic compare-and-set on the
// current status (surfacing ErrStaleStatus to a losing writer).
type Store interface {
	// Create persists a fully-validated registration and assigns ID,
	// CreatedAt and UpdatedAt.
	Create(ctx context.Context, reg *models.Registration) error

	// GetByID returns ErrNotFound for an unknown id.
	GetByID(ctx context.Context, id uint) (*models.Registration, error)

	// List returns registrations ordered by created_at desc plus the total
	// row count for the applied filter.
	List(ctx context.Context, opts ListOptions) ([]models.Registration, int64, error)

	// UpdateStatus moves id from expected to next in one atomic write,
	// setting invoiceNumber when non-empty and the row has none. It returns
	// ErrNotFound if the row is gone, a Changed=false update if the row
	// already carries next, and ErrStaleStatus if the row moved elsewhere.
	UpdateStatus(ctx context.Context, id uint, expected, next, invoiceNumber string) (*StatusUpdate, error)

	// Delete hard-deletes and reports whether a row was actually removed.
	Delete(ctx context.Context, id uint) (bool, error)
}
