package services

import (
	"context"
	"fmt"

	"github.com/tomoya0245/sa-chat/internal/apperr"
	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/repos"
	"github.com/tomoya0245/sa-chat/internal/types"
)

type PinService interface {
	// Toggle pins the thread when unpinned and unpins it when pinned.
	// Both directions are idempotent; the returned pin is nil after an
	// unpin.
	Toggle(ctx context.Context, courseCode, clientToken string) (*types.ThreadPin, error)
	ListByCourse(ctx context.Context, courseCode string) ([]*types.ThreadPin, error)
}

type pinService struct {
	log    *logger.Logger
	pins   repos.ThreadPinRepo
	notify ChangeNotifier
}

func NewPinService(baseLog *logger.Logger, pinRepo repos.ThreadPinRepo, notify ChangeNotifier) PinService {
	return &pinService{
		log:    baseLog.With("service", "PinService"),
		pins:   pinRepo,
		notify: notify,
	}
}

func (s *pinService) Toggle(ctx context.Context, courseCode, clientToken string) (*types.ThreadPin, error) {
	if courseCode == "" || clientToken == "" {
		return nil, fmt.Errorf("%w: course and thread are required", apperr.ErrInvalidArgument)
	}

	existing, err := s.pins.Get(ctx, nil, courseCode, clientToken)
	if err != nil {
		return nil, fmt.Errorf("read pin: %w", err)
	}
	if existing != nil {
		removed, err := s.pins.Unpin(ctx, nil, courseCode, clientToken)
		if err != nil {
			return nil, fmt.Errorf("unpin thread %s/%s: %w", courseCode, clientToken, err)
		}
		if removed {
			s.notify.PinDeleted(ctx, existing)
		}
		return nil, nil
	}

	pin, err := s.pins.Pin(ctx, nil, courseCode, clientToken)
	if err != nil {
		return nil, fmt.Errorf("pin thread %s/%s: %w", courseCode, clientToken, err)
	}
	s.notify.PinInserted(ctx, pin)
	return pin, nil
}

func (s *pinService) ListByCourse(ctx context.Context, courseCode string) ([]*types.ThreadPin, error) {
	return s.pins.ListByCourse(ctx, nil, courseCode)
}
