// ABOUTME: JWT token issuing and verification for tutor users
// ABOUTME: Uses HS256 signing with configurable secret; carries user ID and tier

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// TokenVerifier defines the interface for token verification
type TokenVerifier interface {
	ParseSessionContext(tokenString string) (SessionContext, error)
}

// JWTVerifier implements TokenVerifier using HS256 signed JWTs
type JWTVerifier struct {
	secret []byte
	now    func() time.Time
}

// NewJWTVerifier creates a new JWT verifier with the given secret
func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{secret: secret, now: time.Now}
}

func (v *JWTVerifier) parse(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Verify validates the token and extracts the user ID from the "sub" claim
func (v *JWTVerifier) Verify(tokenString string) (userID string, err error) {
	sc, err := v.ParseSessionContext(tokenString)
	if err != nil {
		return "", err
	}
	return sc.UserID, nil
}

// ParseSessionContext validates the token and builds the SessionContext it describes.
func (v *JWTVerifier) ParseSessionContext(tokenString string) (SessionContext, error) {
	claims, err := v.parse(tokenString)
	if err != nil {
		return SessionContext{}, err
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return SessionContext{}, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	tier := TierVisitor
	if name, ok := claims["tier"].(string); ok && name != "" {
		tier, err = ParseTier(name)
		if err != nil {
			return SessionContext{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}

	return NewSessionContext(sub, tier), nil
}

// Generate creates a new JWT token for the given user and tier with expiration
func (v *JWTVerifier) Generate(userID string, tier Tier, expiresIn time.Duration) (string, error) {
	now := v.now()
	claims := jwt.MapClaims{
		"sub":  userID,
		"tier": tier.String(),
		"iat":  now.Unix(),
		"exp":  now.Add(expiresIn).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

var _ TokenVerifier = (*JWTVerifier)(nil)
