package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/eventribe/eventribe/internal/apperror"
)

// Claims is the fixed-shape payload of a session token. Claims mirror the
// user record at issuance time and go stale until an explicit refresh
// (post-login, post-profile-update). They are trusted only after the
// signature validates against the server secret.
type Claims struct {
	jwt.RegisteredClaims
	UserID    int64  `json:"uid"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	IsAdmin   bool   `json:"is_admin"`
}

// Name returns the display name carried by the claims.
func (c *Claims) Name() string {
	return c.FirstName + " " + c.LastName
}

// TokenCodec signs and parses session tokens (HS256). One instance is
// shared by the auth service (minting) and the gate middleware (verifying).
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenCodec creates a codec signing with the given secret. Tokens
// expire after ttl.
func NewTokenCodec(secret string, ttl time.Duration) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), ttl: ttl}
}

// Mint issues a signed token carrying the user's identity claims.
func (tc *TokenCodec) Mint(user *User) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tc.ttl)),
		},
		UserID:    user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		IsAdmin:   user.IsAdmin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tc.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a raw token string. Returns the claims on
// success, or an unauthorized error for any signature, format, or expiry
// problem -- callers treat all of those identically.
func (tc *TokenCodec) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return tc.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperror.NewUnauthorized("session expired or invalid")
	}
	return claims, nil
}
