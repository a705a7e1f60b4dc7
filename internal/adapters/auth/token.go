package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"invoicedesk/internal/domain"
)

type jwtClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

type jwtIssuer struct {
	secret []byte
}

// NewJWTIssuer returns a TokenIssuer that signs JWTs with HS256 using the
// given secret. Tokens are normally issued by the auth service; this issuer
// exists to mint verifier-compatible tokens in tests and local tooling.
func NewJWTIssuer(secret string) domain.TokenIssuer {
	return &jwtIssuer{secret: []byte(secret)}
}

func (i *jwtIssuer) Issue(userID, email string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
		Email: email,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

type jwtVerifier struct {
	secret []byte
}

// NewJWTVerifier returns a TokenVerifier for HS256 tokens signed with the same secret.
func NewJWTVerifier(secret string) domain.TokenVerifier {
	return &jwtVerifier{secret: []byte(secret)}
}

func (v *jwtVerifier) Verify(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwtClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", fmt.Errorf("invalid token claims")
	}
	return claims.Subject, nil
}
