package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomoya0245/sa-chat/internal/apperr"
	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/repos"
	"github.com/tomoya0245/sa-chat/internal/types"
)

// LockService is the per-thread state machine Unowned -> Owned(sa) ->
// Unowned. The check-and-set is the unique-index insert in the repo; a
// read-then-write would race between competing SAs.
type LockService interface {
	// Claim takes ownership of the thread for the SA. Re-claiming an
	// already owned thread is a no-op success; claiming another SA's
	// thread fails with *apperr.LockConflictError naming the owner.
	Claim(ctx context.Context, courseCode, clientToken string, saUserID uuid.UUID, saName string) (*types.ThreadLock, error)
	// Release drops ownership. Releasing an unowned thread succeeds
	// as a no-op; releasing someone else's lock is a conflict.
	Release(ctx context.Context, courseCode, clientToken string, saUserID uuid.UUID) error
	Get(ctx context.Context, courseCode, clientToken string) (*types.ThreadLock, error)
	ListByCourse(ctx context.Context, courseCode string) ([]*types.ThreadLock, error)
}

type lockService struct {
	log    *logger.Logger
	locks  repos.ThreadLockRepo
	notify ChangeNotifier
}

func NewLockService(baseLog *logger.Logger, lockRepo repos.ThreadLockRepo, notify ChangeNotifier) LockService {
	return &lockService{
		log:    baseLog.With("service", "LockService"),
		locks:  lockRepo,
		notify: notify,
	}
}

func (s *lockService) Claim(ctx context.Context, courseCode, clientToken string, saUserID uuid.UUID, saName string) (*types.ThreadLock, error) {
	if courseCode == "" || clientToken == "" || saUserID == uuid.Nil {
		return nil, fmt.Errorf("%w: course, thread and SA are required", apperr.ErrInvalidArgument)
	}

	lock := &types.ThreadLock{
		ID:          uuid.New(),
		CourseCode:  courseCode,
		ClientToken: clientToken,
		SAUserID:    saUserID,
		SAName:      saName,
		LockedAt:    time.Now().UTC(),
	}
	// Two attempts: the second covers a holder releasing between a
	// lost insert and the follow-up read.
	for attempt := 0; attempt < 2; attempt++ {
		won, err := s.locks.TryClaim(ctx, nil, lock)
		if err != nil {
			return nil, fmt.Errorf("claim thread %s/%s: %w", courseCode, clientToken, err)
		}
		if won {
			s.notify.LockInserted(ctx, lock)
			s.log.Info("thread claimed", "course", courseCode, "token", clientToken, "sa", saUserID)
			return lock, nil
		}

		// Lost the insert: someone holds the thread. Idempotent when
		// the holder is the caller, a named conflict otherwise.
		current, err := s.locks.Get(ctx, nil, courseCode, clientToken)
		if err != nil {
			return nil, fmt.Errorf("read current lock: %w", err)
		}
		if current == nil {
			// Holder released between our insert and read.
			continue
		}
		if current.SAUserID == saUserID {
			return current, nil
		}
		return nil, &apperr.LockConflictError{OwnerID: current.SAUserID, OwnerName: current.SAName}
	}
	return nil, fmt.Errorf("%w: thread %s/%s lock is contended", apperr.ErrConflict, courseCode, clientToken)
}

func (s *lockService) Release(ctx context.Context, courseCode, clientToken string, saUserID uuid.UUID) error {
	current, err := s.locks.Get(ctx, nil, courseCode, clientToken)
	if err != nil {
		return fmt.Errorf("read current lock: %w", err)
	}
	if current == nil {
		return nil
	}
	if current.SAUserID != saUserID {
		return &apperr.LockConflictError{OwnerID: current.SAUserID, OwnerName: current.SAName}
	}
	deleted, err := s.locks.DeleteOwned(ctx, nil, courseCode, clientToken, saUserID)
	if err != nil {
		return fmt.Errorf("release thread %s/%s: %w", courseCode, clientToken, err)
	}
	if deleted {
		s.notify.LockDeleted(ctx, current)
		s.log.Info("thread released", "course", courseCode, "token", clientToken, "sa", saUserID)
	}
	return nil
}

func (s *lockService) Get(ctx context.Context, courseCode, clientToken string) (*types.ThreadLock, error) {
	return s.locks.Get(ctx, nil, courseCode, clientToken)
}

func (s *lockService) ListByCourse(ctx context.Context, courseCode string) ([]*types.ThreadLock, error) {
	return s.locks.ListByCourse(ctx, nil, courseCode)
}
