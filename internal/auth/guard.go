package auth

import (
	"time"

	"github.com/iliyamo/parking-lot-admin/internal/utils"
)

// Guard resolves a raw session credential to the lot it is bound to.
type Guard struct {
	secret string
	now    func() time.Time
}

// NewGuard returns a Guard that verifies sessions signed with secret.
func NewGuard(secret string) *Guard {
	return &Guard{secret: secret, now: time.Now}
}

// WithClock replaces the verification clock.
func (g *Guard) WithClock(now func() time.Time) *Guard {
	g.now = now
	return g
}

// Authorize returns the lot ID bound to raw. Signature, algorithm and
// expiry failures all collapse into ErrInvalidCredential; the cause is
// never exposed to the caller.
func (g *Guard) Authorize(raw string) (string, error) {
	if raw == "" {
		return "", ErrMissingCredential
	}
	claims, err := utils.ParseAccessToken(g.secret, raw, g.now)
	if err != nil {
		return "", ErrInvalidCredential
	}
	return claims.Subject, nil
}
