package registration

import (
	"fmt"

	"wushuacademy_go/models"
)

// Transition describes a validated status change and the side effects the
// caller must run after it commits.
type Transition struct {
	From string
	To   string

	// NoOp marks a same-status re-apply: a successful update with zero
	// side effects. Notifications are not re-sent.
	NoOp bool

	// Notify means a status notification event should be dispatched once
	// the store update commits.
	Notify bool

	// AssignInvoice means approval should assign an invoice number if the
	// record does not carry one yet.
	AssignInvoice bool
}

// PlanTransition validates moving from the current persisted status to the
// requested one. Both values must already be members of the status enum;
// unknown requested values are a validation failure handled before this.
//
// Allowed moves: pending -> approved, pending -> rejected, and re-applying
// the current status (no-op). Anything else, including reversing an
// approved or rejected decision, fails with ErrInvalidTransition.
func PlanTransition(current, requested string) (Transition, error) {
	t := Transition{From: current, To: requested}

	if current == requested {
		t.NoOp = true
		return t, nil
	}

	if current != models.PaymentPending {
		return Transition{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, requested)
	}

	t.Notify = true
	t.AssignInvoice = requested == models.PaymentApproved
	return t, nil
}
