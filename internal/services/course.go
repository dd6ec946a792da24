package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tomoya0245/sa-chat/internal/apperr"
	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/repos"
	"github.com/tomoya0245/sa-chat/internal/types"
)

type CourseService interface {
	Create(ctx context.Context, code, title string, timeSlot, room *string) (*types.Course, error)
	Get(ctx context.Context, code string) (*types.Course, error)
	List(ctx context.Context) ([]*types.Course, error)
	// Delete removes the course and everything scoped to it. Locks and
	// reads have no FK to the course and are cleared explicitly before
	// the course row; messages, calls, pins and aliases cascade.
	Delete(ctx context.Context, code string) error
}

type courseService struct {
	db      *gorm.DB
	log     *logger.Logger
	courses repos.CourseRepo
	locks   repos.ThreadLockRepo
	reads   repos.ThreadReadRepo
	notify  ChangeNotifier
}

func NewCourseService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	lockRepo repos.ThreadLockRepo,
	readRepo repos.ThreadReadRepo,
	notify ChangeNotifier,
) CourseService {
	return &courseService{
		db:      db,
		log:     baseLog.With("service", "CourseService"),
		courses: courseRepo,
		locks:   lockRepo,
		reads:   readRepo,
		notify:  notify,
	}
}

func (s *courseService) Create(ctx context.Context, code, title string, timeSlot, room *string) (*types.Course, error) {
	code = strings.TrimSpace(code)
	title = strings.TrimSpace(title)
	if code == "" || title == "" {
		return nil, fmt.Errorf("%w: course code and title are required", apperr.ErrInvalidArgument)
	}
	course := &types.Course{
		Code:     code,
		Title:    title,
		TimeSlot: timeSlot,
		Room:     room,
	}
	created, err := s.courses.Create(ctx, nil, course)
	if err != nil {
		return nil, fmt.Errorf("create course %q: %w", code, err)
	}
	s.log.Info("course created", "code", code)
	return created, nil
}

func (s *courseService) Get(ctx context.Context, code string) (*types.Course, error) {
	return s.courses.GetByCode(ctx, nil, code)
}

func (s *courseService) List(ctx context.Context) ([]*types.Course, error) {
	return s.courses.List(ctx, nil)
}

func (s *courseService) Delete(ctx context.Context, code string) error {
	if _, err := s.courses.GetByCode(ctx, nil, code); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.locks.DeleteByCourse(ctx, tx, code); err != nil {
			return fmt.Errorf("clear thread locks: %w", err)
		}
		if err := s.reads.DeleteByCourse(ctx, tx, code); err != nil {
			return fmt.Errorf("clear thread reads: %w", err)
		}
		if err := s.courses.Delete(ctx, tx, code); err != nil {
			return fmt.Errorf("delete course row: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete course %q: %w", code, err)
	}
	s.notify.CourseDeleted(ctx, code)
	s.log.Info("course deleted", "code", code)
	return nil
}
