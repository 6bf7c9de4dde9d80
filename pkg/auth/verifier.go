package auth

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const bearerPrefix = "Bearer "

var (
	ErrUnauthenticated = errors.New("missing authorization header")
	ErrMalformed       = errors.New("invalid authorization header")
	ErrExpired         = errors.New("token expired")
	ErrInvalid         = errors.New("invalid token")
)

// Identity is the caller material extracted from a verified bearer token.
// It lives for one request only.
type Identity struct {
	Subject string
	Token   string
	Claims  jwt.MapClaims
}

// Verifier checks HS256 bearer tokens against a shared secret. Only the
// subject claim is consulted; the audience is never validated.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Verify validates the raw Authorization header value.
func (v *Verifier) Verify(rawHeader string) (Identity, error) {
	if rawHeader == "" {
		return Identity{}, ErrUnauthenticated
	}
	if !strings.HasPrefix(rawHeader, bearerPrefix) {
		return Identity{}, ErrMalformed
	}

	tokenStr := strings.TrimSpace(strings.TrimPrefix(rawHeader, bearerPrefix))
	if tokenStr == "" {
		return Identity{}, ErrMalformed
	}

	claims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpired
		}
		return Identity{}, ErrInvalid
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Identity{}, ErrInvalid
	}

	return Identity{Subject: sub, Token: tokenStr, Claims: claims}, nil
}

// IsAuthError reports whether err is one of the verifier's failures.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthenticated) ||
		errors.Is(err, ErrMalformed) ||
		errors.Is(err, ErrExpired) ||
		errors.Is(err, ErrInvalid)
}
