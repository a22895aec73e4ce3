package domain

import (
	"errors"
	"time"

	"github.com/utafrali/returns-service/internal/settings"
)

// ErrNotYetShipped signals that an order has nothing to return yet: either
// checkout never completed or no inventory unit has shipped. Distinct from
// the return-window failure so callers can surface a different message.
var ErrNotYetShipped = errors.New("order has no shipped inventory units")

// PastWindowError signals that the order's return window has closed. It
// carries the operator-configured message verbatim as the user-visible
// reason.
type PastWindowError struct {
	Message string
}

func (e *PastWindowError) Error() string {
	return e.Message
}

// CanRequestReturn decides whether the order may still request a return.
// The order must be complete and have at least one shipped unit; beyond
// that, the request fails only when the order's age strictly exceeds the
// configured window, so an order exactly at the boundary still qualifies.
func CanRequestReturn(o *Order, now time.Time, s settings.Settings) error {
	if !o.IsComplete() || len(o.ShippedUnits()) == 0 {
		return ErrNotYetShipped
	}

	maxAge := time.Duration(s.MaxOrderAgeInDays) * 24 * time.Hour
	if now.Sub(*o.CompletedAt) > maxAge {
		return &PastWindowError{Message: s.PastReturnWindowText}
	}
	return nil
}

// AuthorizedPastExpiration reports whether the authorization has sat in the
// authorized state longer than the configured maximum. Any other state is
// never expired, regardless of age. The repository exposes the same
// predicate as a set query for the expiry sweeper.
func AuthorizedPastExpiration(ra *ReturnAuthorization, now time.Time, s settings.Settings) bool {
	if ra.State != RAStateAuthorized {
		return false
	}
	maxAge := time.Duration(s.MaxAuthorizedAgeInDays) * 24 * time.Hour
	return now.Sub(ra.CreatedAt) > maxAge
}
