package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleOperator is the only role accepted by admin endpoints
const RoleOperator = "operator"

const defaultTokenTTL = time.Hour

var (
	ErrNoSecret     = errors.New("operator secret is not configured")
	ErrInvalidToken = errors.New("invalid operator token")
)

// JWTClaims represents the claims in an operator token
type JWTClaims struct {
	Operator string `json:"operator"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and validates HS256 operator tokens
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an issuer. An empty secret yields an issuer that
// rejects everything.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Enabled reports whether a secret is configured
func (i *Issuer) Enabled() bool {
	return len(i.secret) > 0
}

// GenerateOperatorToken generates a token for the named operator
func (i *Issuer) GenerateOperatorToken(operator string) (string, time.Time, error) {
	if !i.Enabled() {
		return "", time.Time{}, ErrNoSecret
	}

	issuedAt := i.now()
	expiresAt := issuedAt.Add(i.ttl)
	claims := &JWTClaims{
		Operator: operator,
		Role:     RoleOperator,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken validates an operator token and returns the claims
func (i *Issuer) ValidateToken(tokenString string) (*JWTClaims, error) {
	if !i.Enabled() {
		return nil, ErrNoSecret
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.Role != RoleOperator {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
