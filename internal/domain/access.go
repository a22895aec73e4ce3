package domain

import (
	"crypto/subtle"
	"errors"
)

// ErrAccessDenied signals that the caller may not act on the order. It
// never carries detail: handlers redirect to the public search entry point
// rather than revealing whether the order exists.
var ErrAccessDenied = errors.New("access to order denied")

// Caller identifies who is asking: a logged-in user (from the JWT), an
// anonymous token holder (from the token query parameter), both, or
// neither.
type Caller struct {
	UserID string
	Token  string
}

// Authorize reports whether the caller may view or act on the order:
// either the caller is the order's owner, or presents the order's exact
// access token. Token comparison is constant-time and whole-string; a
// token differing by a single trailing character fails. The same check
// gates the request form, the submission, and the label pages, always
// against the order's token.
func Authorize(o *Order, c Caller) bool {
	if c.UserID != "" && o.UserID != "" && c.UserID == o.UserID {
		return true
	}
	if c.Token != "" && subtle.ConstantTimeCompare([]byte(c.Token), []byte(o.Token)) == 1 {
		return true
	}
	return false
}
