// Package auth issues and checks the tokens picker surfaces present to the
// local daemon.
//
// WHY AUTHENTICATE A LOCALHOST DAEMON?
// The daemon listens on 127.0.0.1, but any web page the user visits can send
// requests to localhost. Without a token, a malicious page could read the
// snippet library or push text into the user's focused app. Each surface
// (the browser extension, the overlay, the terminal picker) is given a token
// once, out of band, and sends it on every request.
//
// WHY JWT?
// The daemon stays stateless: it doesn't store issued tokens, it only checks
// the signature with TOKEN_SECRET. Rotating the secret revokes every token.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"overlay","iss":"snippet-picker","exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "snippet-picker"

// DefaultTokenTTL is how long a surface token lasts when no duration is given.
const DefaultTokenTTL = 365 * 24 * time.Hour

// TokenService signs and validates surface tokens.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// NewTokenService creates a TokenService with the given secret.
// Example: TOKEN_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: token secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret), now: time.Now}, nil
}

// claims is the JWT payload. "sub" names the surface the token was issued to.
type claims struct {
	jwt.RegisteredClaims
}

// Issue creates a token for surface valid for ttl (DefaultTokenTTL if ttl <= 0).
func (s *TokenService) Issue(surface string, ttl time.Duration) (string, error) {
	if surface == "" {
		return "", errors.New("auth: surface name is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := s.now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   surface,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies a token and returns the surface it was issued to.
//
// ALGORITHM CONFUSION ATTACK:
// Without pinning the algorithm, a token signed with "none" might be
// accepted. jwt.WithValidMethods prevents this.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}
	return c.Subject, nil
}
