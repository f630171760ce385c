// Package auth validates the shared bearer credential that gates the archive API.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const bearerPrefix = "Bearer "

// ErrUnauthenticated is returned for a missing, malformed, or mismatching credential.
// Callers must not distinguish between those cases.
var ErrUnauthenticated = errors.New("unauthenticated")

// Principal marks a request that passed the guard. It carries no identity.
type Principal struct{}

// Verifier checks a bearer token extracted from the Authorization header.
type Verifier interface {
	Verify(token string) (Principal, error)
}

// TokenFromHeader strips the "Bearer " prefix from a raw Authorization header value.
func TokenFromHeader(header string) (string, error) {
	token, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok {
		return "", ErrUnauthenticated
	}
	return token, nil
}

// StaticVerifier accepts exactly one configured secret.
type StaticVerifier struct {
	secret []byte
}

// NewStaticVerifier creates a verifier comparing tokens to secret.
func NewStaticVerifier(secret string) *StaticVerifier {
	return &StaticVerifier{secret: []byte(secret)}
}

// Verify reports whether token equals the configured secret.
func (v *StaticVerifier) Verify(token string) (Principal, error) {
	if len(v.secret) == 0 || subtle.ConstantTimeCompare([]byte(token), v.secret) != 1 {
		return Principal{}, ErrUnauthenticated
	}
	return Principal{}, nil
}

// JWTVerifier accepts HS256 tokens signed with the configured secret.
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewJWTVerifier creates a verifier for HS256 tokens signed with secret.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Verify checks the signature and the standard time claims of token.
func (v *JWTVerifier) Verify(token string) (Principal, error) {
	parsed, err := v.parser.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Principal{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return Principal{}, nil
}
