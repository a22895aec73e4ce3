package settings

import (
	"context"
	"sync"
)

// Settings is the runtime-mutable returns configuration. It is operational
// configuration, not per-request data: a request may observe a value from
// just before or just after a concurrent override, which is accepted.
type Settings struct {
	MaxOrderAgeInDays      int      `json:"max_order_age_in_days" validate:"required,gte=1"`
	MaxAuthorizedAgeInDays int      `json:"max_authorized_age_in_days" validate:"required,gte=1"`
	PastReturnWindowText   string   `json:"past_return_window_text" validate:"required"`
	SuccessText            string   `json:"success_text" validate:"required"`
	IntroText              string   `json:"intro_text" validate:"required"`
	Reasons                []string `json:"reasons" validate:"required,min=1"`
}

// Default returns the platform's stock returns settings.
func Default() Settings {
	return Settings{
		MaxOrderAgeInDays:      90,
		MaxAuthorizedAgeInDays: 30,
		PastReturnWindowText:   "This order is beyond the allowed return window.",
		SuccessText:            "Thank you for submitting your return request. We will get back to you soon.",
		IntroText:              "This text is customizable via the configuration page.",
		Reasons: []string{
			"Arrived Too Late",
			"Bought 2 Kept 1",
			"Changed Mind",
			"Defective Item",
			"Didn't Fit",
			"Disliked",
			"Not as Pictured",
			"Wrong Item",
			"Other",
		},
	}
}

// HasReason reports whether the given reason is one of the selectable ones.
func (s Settings) HasReason(reason string) bool {
	for _, r := range s.Reasons {
		if r == reason {
			return true
		}
	}
	return false
}

// Store provides read and override access to the returns settings. Reads
// happen on every eligibility check; writes come from the admin surface.
type Store interface {
	Get(ctx context.Context) (Settings, error)
	Update(ctx context.Context, s Settings) error
}

// MemoryStore is an in-process Store guarded by a mutex. It is the default
// when no Redis is configured, and the store of choice in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	settings Settings
}

// NewMemoryStore creates a MemoryStore seeded with the given settings.
func NewMemoryStore(s Settings) *MemoryStore {
	return &MemoryStore{settings: s}
}

// Get returns the current settings snapshot.
func (m *MemoryStore) Get(_ context.Context) (Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings, nil
}

// Update replaces the settings.
func (m *MemoryStore) Update(_ context.Context, s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = s
	return nil
}
