package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tomoya0245/sa-chat/internal/apperr"
	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/repos"
	"github.com/tomoya0245/sa-chat/internal/types"
)

type ProfileService interface {
	// DisplayName resolves what to show for an SA: the saved profile
	// name when present, otherwise the fallback from the identity token.
	DisplayName(ctx context.Context, userID uuid.UUID, fallback string) string
	Update(ctx context.Context, userID uuid.UUID, displayName string) (*types.SAProfile, error)
	Get(ctx context.Context, userID uuid.UUID) (*types.SAProfile, error)
}

type profileService struct {
	log      *logger.Logger
	profiles repos.SAProfileRepo
}

func NewProfileService(baseLog *logger.Logger, profileRepo repos.SAProfileRepo) ProfileService {
	return &profileService{
		log:      baseLog.With("service", "ProfileService"),
		profiles: profileRepo,
	}
}

func (s *profileService) DisplayName(ctx context.Context, userID uuid.UUID, fallback string) string {
	profile, err := s.profiles.Get(ctx, nil, userID)
	if err != nil || profile == nil || profile.DisplayName == "" {
		return fallback
	}
	return profile.DisplayName
}

func (s *profileService) Update(ctx context.Context, userID uuid.UUID, displayName string) (*types.SAProfile, error) {
	displayName = strings.TrimSpace(displayName)
	if userID == uuid.Nil || displayName == "" {
		return nil, fmt.Errorf("%w: display name is required", apperr.ErrInvalidArgument)
	}
	row, err := s.profiles.Upsert(ctx, nil, userID, displayName)
	if err != nil {
		return nil, fmt.Errorf("save display name: %w", err)
	}
	return row, nil
}

func (s *profileService) Get(ctx context.Context, userID uuid.UUID) (*types.SAProfile, error) {
	return s.profiles.Get(ctx, nil, userID)
}
