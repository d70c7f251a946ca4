package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/qpaper-service/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "qpaper-service"

type Claims struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Avatar string `json:"avatar,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier checks HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTVerifier(secret string, ttl time.Duration) *JWTVerifier {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &JWTVerifier{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for identity. Used by development tooling and tests;
// production tokens come from the identity provider.
func (v *JWTVerifier) Issue(identity Identity) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email:  identity.Email,
		Name:   identity.Name,
		Role:   string(identity.Role),
		Avatar: identity.Avatar,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Subject,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func (v *JWTVerifier) Verify(_ context.Context, tokenStr string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Email == "" {
		return nil, fmt.Errorf("%w: token carries no email", ErrInvalidToken)
	}

	role := models.UserRole(claims.Role)
	if !role.Valid() {
		role = models.RoleFaculty
	}
	return &Identity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Avatar:  claims.Avatar,
		Role:    role,
	}, nil
}
