package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomoya0245/sa-chat/internal/apperr"
	"github.com/tomoya0245/sa-chat/internal/livemerge"
	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/repos"
	"github.com/tomoya0245/sa-chat/internal/types"
)

type CallService interface {
	Create(ctx context.Context, courseCode, clientToken string, studentUserID uuid.UUID, seatText string) (*types.Call, error)
	ListUnhandled(ctx context.Context, courseCode string) ([]*types.Call, error)
	// Groups returns the groomed queue: one entry per thread with
	// unhandled calls, newest call first.
	Groups(ctx context.Context, courseCode string) ([]livemerge.CallGroup, error)
	// MarkHandled closes every unhandled call for the thread at once:
	// the SA has now addressed this student, whatever they called
	// about. A thread with nothing unhandled is a no-op success.
	MarkHandled(ctx context.Context, courseCode, clientToken string) (int64, error)
}

type callService struct {
	log    *logger.Logger
	calls  repos.CallRepo
	notify ChangeNotifier
}

func NewCallService(baseLog *logger.Logger, callRepo repos.CallRepo, notify ChangeNotifier) CallService {
	return &callService{
		log:    baseLog.With("service", "CallService"),
		calls:  callRepo,
		notify: notify,
	}
}

func (s *callService) Create(ctx context.Context, courseCode, clientToken string, studentUserID uuid.UUID, seatText string) (*types.Call, error) {
	if courseCode == "" || clientToken == "" {
		return nil, fmt.Errorf("%w: course and thread are required", apperr.ErrInvalidArgument)
	}
	call := &types.Call{
		ID:          uuid.New(),
		CourseCode:  courseCode,
		ClientToken: clientToken,
		CreatedAt:   time.Now().UTC(),
	}
	if studentUserID != uuid.Nil {
		call.StudentUserID = &studentUserID
	}
	if seat := strings.TrimSpace(seatText); seat != "" {
		call.SeatText = &seat
	}
	created, err := s.calls.Create(ctx, nil, call)
	if err != nil {
		return nil, fmt.Errorf("create call for %s/%s: %w", courseCode, clientToken, err)
	}
	s.notify.CallInserted(ctx, created)
	return created, nil
}

func (s *callService) ListUnhandled(ctx context.Context, courseCode string) ([]*types.Call, error) {
	return s.calls.ListUnhandled(ctx, nil, courseCode)
}

func (s *callService) Groups(ctx context.Context, courseCode string) ([]livemerge.CallGroup, error) {
	rows, err := s.calls.ListUnhandled(ctx, nil, courseCode)
	if err != nil {
		return nil, err
	}
	return livemerge.GroupCalls(rows), nil
}

func (s *callService) MarkHandled(ctx context.Context, courseCode, clientToken string) (int64, error) {
	now := time.Now().UTC()
	closed, rows, err := s.calls.MarkHandled(ctx, nil, courseCode, clientToken, now)
	if err != nil {
		return 0, fmt.Errorf("mark calls handled for %s/%s: %w", courseCode, clientToken, err)
	}
	for _, call := range rows {
		s.notify.CallUpdated(ctx, call)
	}
	if closed > 0 {
		s.log.Info("calls handled", "course", courseCode, "token", clientToken, "count", closed)
	}
	return closed, nil
}
