package utils // package utils provides helper functions for token creation and hashing

import (
    "errors" // sentinel for claims without a subject
    "fmt"    // error formatting for unexpected algorithms
    "time"   // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// AccessToken represents a signed session credential along with its
// expiry.  The Token field contains the JWT string sent back in the
// Authorization header on every guarded call.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// SessionClaims is the payload of a session credential.  Subject carries
// the lot ID the session is bound to; Username is informational only and
// never used for authorization.
type SessionClaims struct {
    Username string `json:"username,omitempty"`
    jwt.RegisteredClaims
}

// ErrNoSubject is returned when a structurally valid token has no lot ID.
var ErrNoSubject = errors.New("token has no subject")

// NewAccessToken builds and signs an HS256 JWT bound to lotID.  now is the
// issuing instant and ttl the session lifetime; the token carries sub,
// username, iat and exp.
func NewAccessToken(secret, lotID, username string, ttl time.Duration, now time.Time) (AccessToken, error) {
    now = now.UTC()
    exp := now.Add(ttl)
    claims := SessionClaims{
        Username: username,
        RegisteredClaims: jwt.RegisteredClaims{
            Subject:   lotID,
            IssuedAt:  jwt.NewNumericDate(now),
            ExpiresAt: jwt.NewNumericDate(exp),
        },
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies raw against secret and returns its claims.
// Only HMAC signatures are accepted.  Expiry is checked against the
// supplied clock rather than the wall clock so callers can pin time.
func ParseAccessToken(secret, raw string, now func() time.Time) (SessionClaims, error) {
    var claims SessionClaims
    tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
        // Type assert the signing method to HMAC; reject others.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
        }
        return []byte(secret), nil
    },
        jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
        jwt.WithExpirationRequired(),
        jwt.WithTimeFunc(now),
    )
    if err != nil {
        return SessionClaims{}, err
    }
    if !tok.Valid {
        return SessionClaims{}, jwt.ErrTokenInvalidClaims
    }
    if claims.Subject == "" {
        return SessionClaims{}, ErrNoSubject
    }
    return claims, nil
}
