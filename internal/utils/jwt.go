package utils // package utils provides helpers for token creation and password hashing

import (
    "crypto/rand"   // secure random bytes for refresh tokens
    "crypto/sha256" // refresh tokens are stored hashed
    "encoding/hex"
    "errors"
    "strconv"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any access token that fails to parse,
// carries a foreign signing method, has expired or lacks a subject.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the claims carried by an access token. The subject is the
// decimal user id; Role is DINER or ADMIN.
type Claims struct {
    Role string `json:"role"`
    jwt.RegisteredClaims
}

// UserID returns the subject as a user id.
func (c *Claims) UserID() (uint64, error) {
    id, err := strconv.ParseUint(c.Subject, 10, 64)
    if err != nil || id == 0 {
        return 0, ErrInvalidToken
    }
    return id, nil
}

// AccessToken is a signed JWT together with its expiry.
type AccessToken struct {
    Token string
    Exp   time.Time
}

// RefreshToken is a long-lived opaque token. Only HashRefreshRaw(Raw) is
// persisted.
type RefreshToken struct {
    Raw string
    Exp time.Time
}

// NewAccessToken signs an HS256 access token for a user.
func NewAccessToken(secret string, userID uint64, role string, ttlMin int) (AccessToken, error) {
    now := time.Now().UTC()
    exp := now.Add(time.Duration(ttlMin) * time.Minute)
    claims := Claims{
        Role: role,
        RegisteredClaims: jwt.RegisteredClaims{
            Subject:   strconv.FormatUint(userID, 10),
            IssuedAt:  jwt.NewNumericDate(now),
            ExpiresAt: jwt.NewNumericDate(exp),
        },
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies raw against secret and returns its claims.
func ParseAccessToken(secret, raw string) (*Claims, error) {
    claims := &Claims{}
    tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
        return []byte(secret), nil
    }, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
    if err != nil || !tok.Valid {
        return nil, ErrInvalidToken
    }
    if _, err := claims.UserID(); err != nil {
        return nil, err
    }
    return claims, nil
}

// NewRefreshToken returns a random 96-character token valid for ttlDays.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
    raw, err := randomHex(48)
    if err != nil {
        return RefreshToken{}, err
    }
    return RefreshToken{
        Raw: raw,
        Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
    }, nil
}

// HashRefreshRaw returns the hex SHA-256 of a raw refresh token.
func HashRefreshRaw(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
    buf := make([]byte, n)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return hex.EncodeToString(buf), nil
}
