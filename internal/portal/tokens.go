package portal

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"kidgate/internal/platform/middleware"
	"kidgate/pkg/domain"
	dErrors "kidgate/pkg/errors"
)

const issuer = "kidgate"

// Claims scope a portal session to one responsible adult.
type Claims struct {
	ResponsibleID string `json:"responsible_id"`
	jwt.RegisteredClaims
}

// TokenService mints and validates the HS256 tokens handed out after a
// successful identity lookup. It satisfies middleware.PortalValidator.
type TokenService struct {
	signingKey []byte
	ttl        time.Duration
}

func NewTokenService(signingKey string, ttl time.Duration) *TokenService {
	return &TokenService{signingKey: []byte(signingKey), ttl: ttl}
}

func (s *TokenService) Generate(responsibleID domain.AdultID) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ResponsibleID: responsibleID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    issuer,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

func (s *TokenService) ValidateToken(tokenString string) (*middleware.PortalClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "portal token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid portal token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid portal token")
	}
	responsibleID, err := domain.ParseAdultID(claims.ResponsibleID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid portal token")
	}
	return &middleware.PortalClaims{ResponsibleID: responsibleID}, nil
}
