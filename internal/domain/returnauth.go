package domain

import (
	"fmt"
	"time"
)

// Return authorization state constants.
const (
	RAStatePending    = "pending"
	RAStateAuthorized = "authorized"
	RAStateReceived   = "received"
	RAStateCanceled   = "canceled"
)

// ReasonOther is the sentinel reason that accepts a free-text explanation.
const ReasonOther = "Other"

// Effect is a side-effect intent produced by a state transition. The
// orchestration layer executes effects exactly once per actual transition,
// so notifications can never fire twice for the same authorization.
type Effect string

// EffectNotifyAuthorized asks the orchestrator to dispatch the
// customer-facing "return authorized" notification.
const EffectNotifyAuthorized Effect = "notify_authorized"

// ReturnAuthorization grants permission to return specific inventory units
// of an order. Amount is computed once at creation and never recomputed.
type ReturnAuthorization struct {
	ID        string       `json:"id"`
	Number    string       `json:"number"`
	OrderID   string       `json:"order_id"`
	Reason    string       `json:"reason"`
	Amount    int64        `json:"amount"`
	State     string       `json:"state"`
	Units     []ReturnUnit `json:"units"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// ReturnUnit records one inventory unit covered by a return authorization,
// with the prorated amount it contributes.
type ReturnUnit struct {
	InventoryUnitID string `json:"inventory_unit_id"`
	LineItemID      string `json:"line_item_id"`
	VariantID       string `json:"variant_id"`
	Amount          int64  `json:"amount"`
}

// ValidRAStates returns all valid return authorization states.
func ValidRAStates() []string {
	return []string{RAStatePending, RAStateAuthorized, RAStateReceived, RAStateCanceled}
}

// raTransitions defines which state transitions are valid.
var raTransitions = map[string][]string{
	RAStatePending:    {RAStateAuthorized, RAStateCanceled},
	RAStateAuthorized: {RAStateReceived, RAStateCanceled},
	RAStateReceived:   {},
	RAStateCanceled:   {},
}

// TransitionTo moves the authorization to the target state and returns the
// side-effect intents the transition produced. Entering the authorized
// state yields EffectNotifyAuthorized; no other target produces effects.
// Re-applying the current state is rejected, so an effect can only be
// produced by a fresh transition.
func (ra *ReturnAuthorization) TransitionTo(target string) ([]Effect, error) {
	allowed, ok := raTransitions[ra.State]
	if !ok {
		return nil, fmt.Errorf("unknown return authorization state %q", ra.State)
	}
	permitted := false
	for _, s := range allowed {
		if s == target {
			permitted = true
			break
		}
	}
	if !permitted {
		return nil, fmt.Errorf("cannot transition return authorization from %q to %q", ra.State, target)
	}

	ra.State = target

	if target == RAStateAuthorized {
		return []Effect{EffectNotifyAuthorized}, nil
	}
	return nil, nil
}

// NormalizeReason resolves the persisted reason from the selected reason
// and an optional free-text explanation. The explanation is only honored
// for the "Other" sentinel; any other reason discards it.
func NormalizeReason(reason, explanation string) string {
	if reason == ReasonOther && explanation != "" {
		return ReasonOther + ": " + explanation
	}
	return reason
}

// CoveredUnitIDs returns the inventory unit IDs this authorization covers.
func (ra *ReturnAuthorization) CoveredUnitIDs() []string {
	ids := make([]string, len(ra.Units))
	for i, u := range ra.Units {
		ids[i] = u.InventoryUnitID
	}
	return ids
}
