// Package lifecycle moves orders between statuses. Each transition is
// checked against the locked current status inside one transaction.
package lifecycle

import "github.com/matheusmosca/order-inventory-core/internal/domain"

// transitions lists the legal targets of every status.
var transitions = map[domain.Status][]domain.Status{
	domain.StatusPending:    {domain.StatusProcessing, domain.StatusCancelled},
	domain.StatusProcessing: {domain.StatusShipped, domain.StatusCancelled},
	domain.StatusShipped:    {domain.StatusCompleted, domain.StatusCancelled},
	domain.StatusCompleted:  {},
	domain.StatusCancelled:  {},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to domain.Status) bool {
	for _, target := range transitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// Allowed returns the statuses reachable from from in one step.
func Allowed(from domain.Status) []domain.Status {
	targets := transitions[from]
	out := make([]domain.Status, len(targets))
	copy(out, targets)
	return out
}

// restocksOnCancel reports whether cancelling from s returns stock. Shipped
// goods have left the store and are not restocked.
func restocksOnCancel(s domain.Status) bool {
	return s == domain.StatusPending || s == domain.StatusProcessing
}
