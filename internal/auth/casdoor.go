package auth

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/qpaper-service/internal/models"
	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
)

// casdoorParser is the part of the Casdoor client the verifier needs.
type casdoorParser interface {
	ParseJwtToken(token string) (*casdoorsdk.Claims, error)
}

// CasdoorVerifier checks tokens issued by a Casdoor instance against its
// certificate.
type CasdoorVerifier struct {
	client casdoorParser
}

type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Certificate  string
	Organization string
	Application  string
}

func NewCasdoorVerifier(cfg CasdoorConfig) *CasdoorVerifier {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Certificate,
		cfg.Organization,
		cfg.Application,
	)
	return &CasdoorVerifier{client: client}
}

func (v *CasdoorVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	claims, err := v.client.ParseJwtToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("%w: casdoor user %s has no email", ErrInvalidToken, claims.Name)
	}

	name := claims.DisplayName
	if name == "" {
		name = claims.Name
	}
	role := models.RoleFaculty
	if claims.IsAdmin {
		role = models.RoleAdmin
	}
	return &Identity{
		Subject: claims.Id,
		Email:   claims.Email,
		Name:    name,
		Avatar:  claims.Avatar,
		Role:    role,
	}, nil
}
