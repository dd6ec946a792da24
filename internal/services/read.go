package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tomoya0245/sa-chat/internal/apperr"
	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/repos"
	"github.com/tomoya0245/sa-chat/internal/types"
)

type ReadService interface {
	// MarkRead advances the (thread, role) cursor to max(current, at);
	// stale timestamps never regress it.
	MarkRead(ctx context.Context, courseCode, clientToken, readerRole string, at time.Time) (*types.ThreadRead, error)
	Get(ctx context.Context, courseCode, clientToken, readerRole string) (*types.ThreadRead, error)
	ListByCourseRole(ctx context.Context, courseCode, readerRole string) ([]*types.ThreadRead, error)
	// UnreadCount counts counterpart-authored messages strictly newer
	// than the viewer role's own cursor for the thread.
	UnreadCount(ctx context.Context, courseCode, clientToken, viewerRole string) (int64, error)
}

type readService struct {
	log      *logger.Logger
	reads    repos.ThreadReadRepo
	messages repos.MessageRepo
	notify   ChangeNotifier
}

func NewReadService(baseLog *logger.Logger, readRepo repos.ThreadReadRepo, messageRepo repos.MessageRepo, notify ChangeNotifier) ReadService {
	return &readService{
		log:      baseLog.With("service", "ReadService"),
		reads:    readRepo,
		messages: messageRepo,
		notify:   notify,
	}
}

func validReaderRole(role string) bool {
	return role == types.ReaderRoleStudent || role == types.ReaderRoleSA
}

func counterpartRole(viewerRole string) string {
	if viewerRole == types.ReaderRoleStudent {
		return types.RoleSA
	}
	return types.RoleStudent
}

func (s *readService) MarkRead(ctx context.Context, courseCode, clientToken, readerRole string, at time.Time) (*types.ThreadRead, error) {
	if courseCode == "" || clientToken == "" {
		return nil, fmt.Errorf("%w: course and thread are required", apperr.ErrInvalidArgument)
	}
	if !validReaderRole(readerRole) {
		return nil, fmt.Errorf("%w: unknown reader role %q", apperr.ErrInvalidArgument, readerRole)
	}
	row, err := s.reads.Advance(ctx, nil, courseCode, clientToken, readerRole, at)
	if err != nil {
		return nil, fmt.Errorf("advance read cursor: %w", err)
	}
	s.notify.ReadUpserted(ctx, row)
	return row, nil
}

func (s *readService) Get(ctx context.Context, courseCode, clientToken, readerRole string) (*types.ThreadRead, error) {
	return s.reads.Get(ctx, nil, courseCode, clientToken, readerRole)
}

func (s *readService) ListByCourseRole(ctx context.Context, courseCode, readerRole string) ([]*types.ThreadRead, error) {
	return s.reads.ListByCourseRole(ctx, nil, courseCode, readerRole)
}

func (s *readService) UnreadCount(ctx context.Context, courseCode, clientToken, viewerRole string) (int64, error) {
	if !validReaderRole(viewerRole) {
		return 0, fmt.Errorf("%w: unknown reader role %q", apperr.ErrInvalidArgument, viewerRole)
	}
	cursor, err := s.reads.Get(ctx, nil, courseCode, clientToken, viewerRole)
	if err != nil {
		return 0, err
	}

	var after *time.Time
	if cursor != nil {
		after = &cursor.LastReadAt
	}
	count, err := s.messages.CountSince(ctx, nil, courseCode, clientToken, counterpartRole(viewerRole), after)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}
