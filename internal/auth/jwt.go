package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// OperatorClaim names the claim carrying the operator the token was issued to.
const OperatorClaim = "operator"

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidClaims = errors.New("invalid claims")
	ErrNoSecret      = errors.New("jwt secret is not configured")
)

// Issuer mints and verifies HS256 bearer tokens for the board API.
type Issuer struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, expiry time.Duration) *Issuer {
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), expiry: expiry, now: time.Now}
}

func (i *Issuer) Generate(operator string) (string, error) {
	if len(i.secret) == 0 {
		return "", ErrNoSecret
	}
	now := i.now()
	claims := jwt.MapClaims{
		OperatorClaim: operator,
		"iat":         jwt.NewNumericDate(now),
		"exp":         jwt.NewNumericDate(now.Add(i.expiry)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Parse verifies the token and returns the operator it was issued to.
func (i *Issuer) Parse(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidClaims
	}
	operator, ok := claims[OperatorClaim].(string)
	if !ok || operator == "" {
		return "", ErrInvalidClaims
	}
	return operator, nil
}
