package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoVerificationKey = errors.New("auth: no key configured for token algorithm")
	ErrMissingSubject    = errors.New("auth: token has no subject")
)

// Claims are the identity fields the service reads from an access token.
type Claims struct {
	Subject string
	Email   string
}

// Verifier checks HS256 tokens against a shared secret and RS256 tokens
// against a JWKS provider. Either may be absent.
type Verifier struct {
	secret []byte
	jwks   *Provider
}

func NewVerifier(secret string, jwks *Provider) *Verifier {
	return &Verifier{secret: []byte(secret), jwks: jwks}
}

func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodHMAC:
			if len(v.secret) == 0 {
				return nil, ErrNoVerificationKey
			}
			return v.secret, nil
		case *jwt.SigningMethodRSA:
			if v.jwks == nil {
				return nil, ErrNoVerificationKey
			}
			return v.jwks.KeyFunc(ctx)(token)
		}
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("auth: invalid claims")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrMissingSubject
	}
	email, _ := claims["email"].(string)
	return &Claims{Subject: sub, Email: email}, nil
}

// IssueHS256 signs a short-lived token. Used by local tooling and tests.
func IssueHS256(secret, subject, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   subject,
		"email": email,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}
