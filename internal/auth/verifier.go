package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/parking-lot-admin/internal/model"
	"github.com/iliyamo/parking-lot-admin/internal/repository"
	"github.com/iliyamo/parking-lot-admin/internal/utils"
)

// AdminDirectory is the admin store the verifier depends on.
// *repository.AdminRepo satisfies it.
type AdminDirectory interface {
	GetByUsername(ctx context.Context, username string) (model.Admin, error)
	Create(ctx context.Context, a *model.Admin) error
	UpdateSecret(ctx context.Context, lotID, hash string) error
}

// Session is an issued credential and the identity it is bound to.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	LotID     string    `json:"location_id"`
	Username  string    `json:"user_name"`
}

// Verifier checks admin secrets and issues sessions.
type Verifier struct {
	admins     AdminDirectory
	secret     string
	ttl        time.Duration
	bcryptCost int
	now        func() time.Time
}

// NewVerifier returns a Verifier that signs sessions with secret and makes
// them valid for ttl.
func NewVerifier(admins AdminDirectory, secret string, ttl time.Duration, bcryptCost int) *Verifier {
	return &Verifier{admins: admins, secret: secret, ttl: ttl, bcryptCost: bcryptCost, now: time.Now}
}

// WithClock replaces the issuing clock. Tests use it to pin time.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.now = now
	return v
}

// Authenticate looks up username (exact, case-sensitive) and compares
// secret against the stored bcrypt hash.
func (v *Verifier) Authenticate(ctx context.Context, username, secret string) (Session, error) {
	if username == "" || secret == "" {
		return Session{}, ErrMissingCredential
	}
	a, err := v.admins.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrAdminNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("authenticate: %w", err)
	}
	// PAD SPACE collations match "alice " to "alice".
	if a.UserName != username {
		return Session{}, ErrAdminNotFound
	}
	if !utils.VerifyPassword(a.PasswordHash, secret) {
		return Session{}, ErrInvalidCredential
	}
	return v.issue(a)
}

// Register creates a new admin identity with a fresh lot ID and returns a
// session for it. The lot profile itself is created separately.
func (v *Verifier) Register(ctx context.Context, username, secret string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || secret == "" {
		return Session{}, ErrMissingCredential
	}
	hash, err := utils.HashPassword(secret, v.bcryptCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash secret: %w", err)
	}
	a := model.Admin{LotID: uuid.NewString(), UserName: username, PasswordHash: hash}
	if err := v.admins.Create(ctx, &a); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return Session{}, ErrUsernameTaken
		}
		return Session{}, fmt.Errorf("register: %w", err)
	}
	return v.issue(a)
}

// ChangeSecret re-hashes secret and stores it for lotID. Sessions issued
// before the change stay valid until they expire.
func (v *Verifier) ChangeSecret(ctx context.Context, lotID, secret string) error {
	if secret == "" {
		return ErrMissingCredential
	}
	hash, err := utils.HashPassword(secret, v.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash secret: %w", err)
	}
	if err := v.admins.UpdateSecret(ctx, lotID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAdminNotFound
		}
		return fmt.Errorf("change secret: %w", err)
	}
	return nil
}

func (v *Verifier) issue(a model.Admin) (Session, error) {
	tok, err := utils.NewAccessToken(v.secret, a.LotID, a.UserName, v.ttl, v.now())
	if err != nil {
		return Session{}, fmt.Errorf("sign session: %w", err)
	}
	return Session{Token: tok.Token, ExpiresAt: tok.Exp, LotID: a.LotID, Username: a.UserName}, nil
}
