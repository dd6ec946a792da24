package services

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/requestdata"
	"github.com/tomoya0245/sa-chat/internal/types"
	"github.com/tomoya0245/sa-chat/internal/utils"
)

// AuthService verifies bearer tokens minted by the external identity
// provider and surfaces the principal (stable user id, display name,
// role) on the request context. Token issuance lives elsewhere.
type AuthService interface {
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type authService struct {
	log       *logger.Logger
	secretKey []byte
}

func NewAuthService(log *logger.Logger) AuthService {
	secret := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	return &authService{
		log:       log.With("service", "AuthService"),
		secretKey: []byte(secret),
	}
}

type principalClaims struct {
	DisplayName string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	Role        string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func (s *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	var claims principalClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		return ctx, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return ctx, fmt.Errorf("invalid token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("token subject is not a user id: %w", err)
	}

	displayName := claims.DisplayName
	if displayName == "" {
		displayName = claims.Email
	}
	role := claims.Role
	if role == "" {
		role = types.RoleStudent
	}

	return requestdata.WithRequestData(ctx, &requestdata.RequestData{
		TokenString: tokenString,
		UserID:      userID,
		DisplayName: displayName,
		Role:        role,
	}), nil
}
