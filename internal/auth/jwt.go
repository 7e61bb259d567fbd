// Package auth implements the authentication and authorization core:
// password hashing, access tokens, and the access guard that turns a bearer
// token into an account and checks ownership.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. POST /users/login with email + password
//  2. The account service verifies the password against the stored hash
//  3. The TokenService issues a signed JWT whose subject is the account id
//  4. The client sends it back as "Authorization: Bearer <token>"
//  5. RequireAuth asks the Guard to resolve the token to an account and puts
//     the account in the request context
//  6. Every update/delete calls Authorize(current, targetID) before touching
//     the store
//
// WHY JWT?
// JWT (JSON Web Token) is stateless: the server doesn't store sessions. The
// signature proves the payload (subject, expiry) was issued by us, and it can
// be checked without a DB lookup. The flip side is that a token stays valid
// until it expires; there is no revocation list.
//
// JWT STRUCTURE (three base64url parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"iss":"keep-bouncing-back","sub":"42","iat":...,"exp":...,"jti":"..."}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

const (
	DefaultIssuer   = "keep-bouncing-back"
	DefaultTokenTTL = 60 * time.Minute
)

// TokenConfig is fixed for the lifetime of the process.
type TokenConfig struct {
	Secret    string
	Algorithm string // HS256, HS384 or HS512; empty means HS256
	TTL       time.Duration
	Issuer    string
}

// Token is a signed access token and its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Claims is the decoded payload of a valid token.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string // jti, for log correlation only
}

// TokenService issues and decodes HMAC-signed JWTs.
type TokenService struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	ttl    time.Duration
	issuer string
}

// NewTokenService validates cfg and returns a ready TokenService.
//
// The secret should be at least 32 bytes of random data in production:
//
//	SECRET_KEY=$(openssl rand -hex 32)
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.Secret) < 16 {
		return nil, errors.New("auth: token secret must be at least 16 characters")
	}

	alg := cfg.Algorithm
	if alg == "" {
		alg = "HS256"
	}
	// Only HMAC algorithms: the same secret signs and verifies. An asymmetric
	// or "none" algorithm here would be a misconfiguration.
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("auth: unsupported token algorithm %q (want HS256, HS384 or HS512)", cfg.Algorithm)
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = DefaultIssuer
	}

	return &TokenService{
		secret: []byte(cfg.Secret),
		method: method,
		ttl:    ttl,
		issuer: issuer,
	}, nil
}

// TTL is the lifetime of tokens returned by Issue.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for subject with the configured TTL.
func (s *TokenService) Issue(subject string) (Token, error) {
	return s.IssueWithTTL(subject, s.ttl)
}

// IssueWithTTL signs a token that expires ttl from now. A ttl of zero or less
// produces a token that is already expired.
func (s *TokenService) IssueWithTTL(subject string, ttl time.Duration) (Token, error) {
	now := time.Now().UTC()
	expiresAt := jwt.NewNumericDate(now.Add(ttl))

	c := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: expiresAt,
		ID:        xid.New().String(),
	}

	signed, err := jwt.NewWithClaims(s.method, c).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("auth: signing token: %w", err)
	}

	return Token{Value: signed, ExpiresAt: expiresAt.Time}, nil
}

// Decode verifies tokenStr and returns its claims.
//
// It returns false for anything other than a well-formed token signed by this
// service, with the configured algorithm and issuer, that has not expired.
// Callers only need valid/invalid; the library's error detail is dropped.
//
// ALGORITHM CONFUSION ATTACK:
// Without pinning the algorithm, an attacker could send a token with
// "alg":"none" or a different HMAC size. jwt.WithValidMethods rejects those
// before the key is even looked at.
func (s *TokenService) Decode(tokenStr string) (Claims, bool) {
	if tokenStr == "" {
		return Claims{}, false
	}

	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return Claims{}, false
	}

	claims := Claims{Subject: c.Subject, ID: c.ID}
	if c.IssuedAt != nil {
		claims.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		claims.ExpiresAt = c.ExpiresAt.Time
	}
	return claims, true
}
