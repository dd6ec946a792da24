package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomoya0245/sa-chat/internal/apperr"
	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/repos"
	"github.com/tomoya0245/sa-chat/internal/types"
)

// AttachmentUpload is an incoming file to attach to a message.
type AttachmentUpload struct {
	Name        string
	ContentType string
	Data        io.Reader
}

type SendStudentInput struct {
	CourseCode    string
	ClientToken   string
	StudentUserID uuid.UUID
	Body          string
	Attachment    *AttachmentUpload
	ParentID      *uuid.UUID
}

type SendSAInput struct {
	CourseCode  string
	ClientToken string
	SAUserID    uuid.UUID
	SAName      string
	Body        string
	Attachment  *AttachmentUpload
	ParentID    *uuid.UUID
}

type MessageService interface {
	SendAsStudent(ctx context.Context, in SendStudentInput) (*types.Message, error)
	// SendAsSA rejects the send when another SA owns the thread, even
	// if the caller's interface failed to disable composition.
	SendAsSA(ctx context.Context, in SendSAInput) (*types.Message, error)
	ListByCourse(ctx context.Context, courseCode string) ([]*types.Message, error)
	ListByThread(ctx context.Context, courseCode, clientToken string) ([]*types.Message, error)
}

type messageService struct {
	log      *logger.Logger
	messages repos.MessageRepo
	locks    repos.ThreadLockRepo
	profiles repos.SAProfileRepo
	bucket   BucketService
	notify   ChangeNotifier
}

func NewMessageService(
	baseLog *logger.Logger,
	messageRepo repos.MessageRepo,
	lockRepo repos.ThreadLockRepo,
	profileRepo repos.SAProfileRepo,
	bucket BucketService,
	notify ChangeNotifier,
) MessageService {
	return &messageService{
		log:      baseLog.With("service", "MessageService"),
		messages: messageRepo,
		locks:    lockRepo,
		profiles: profileRepo,
		bucket:   bucket,
		notify:   notify,
	}
}

func (s *messageService) SendAsStudent(ctx context.Context, in SendStudentInput) (*types.Message, error) {
	body := strings.TrimSpace(in.Body)
	if in.CourseCode == "" || in.ClientToken == "" || in.StudentUserID == uuid.Nil {
		return nil, fmt.Errorf("%w: course, thread and student are required", apperr.ErrInvalidArgument)
	}
	if body == "" && in.Attachment == nil {
		return nil, fmt.Errorf("%w: message needs a body or an attachment", apperr.ErrInvalidArgument)
	}

	msg := &types.Message{
		ID:            uuid.New(),
		CourseCode:    in.CourseCode,
		ClientToken:   in.ClientToken,
		StudentUserID: &in.StudentUserID,
		Role:          types.RoleStudent,
		Body:          body,
	}
	if err := s.attach(ctx, msg, in.Attachment); err != nil {
		return nil, err
	}
	if err := s.linkParent(ctx, msg, in.ParentID); err != nil {
		return nil, err
	}

	created, err := s.messages.Create(ctx, nil, msg)
	if err != nil {
		return nil, fmt.Errorf("persist student message: %w", err)
	}
	s.notify.MessageInserted(ctx, created)
	return created, nil
}

func (s *messageService) SendAsSA(ctx context.Context, in SendSAInput) (*types.Message, error) {
	body := strings.TrimSpace(in.Body)
	if in.CourseCode == "" || in.ClientToken == "" || in.SAUserID == uuid.Nil {
		return nil, fmt.Errorf("%w: course, thread and SA are required", apperr.ErrInvalidArgument)
	}
	if body == "" && in.Attachment == nil {
		return nil, fmt.Errorf("%w: message needs a body or an attachment", apperr.ErrInvalidArgument)
	}

	// Ownership check at the point of send, not only in the UI.
	lock, err := s.locks.Get(ctx, nil, in.CourseCode, in.ClientToken)
	if err != nil {
		return nil, fmt.Errorf("read thread lock: %w", err)
	}
	if lock != nil && lock.SAUserID != in.SAUserID {
		return nil, &apperr.LockConflictError{OwnerID: lock.SAUserID, OwnerName: lock.SAName}
	}

	// Attribution snapshot: prefer the saved profile name, fall back
	// to whatever the identity token carried.
	displayName := in.SAName
	if profile, err := s.profiles.Get(ctx, nil, in.SAUserID); err == nil && profile != nil && profile.DisplayName != "" {
		displayName = profile.DisplayName
	}

	msg := &types.Message{
		ID:            uuid.New(),
		CourseCode:    in.CourseCode,
		ClientToken:   in.ClientToken,
		Role:          types.RoleSA,
		Body:          body,
		SAUserID:      &in.SAUserID,
		SADisplayName: &displayName,
	}

	// Replies keep pointing at the student behind the thread.
	studentID, err := s.messages.ThreadStudentUserID(ctx, nil, in.CourseCode, in.ClientToken)
	if err != nil {
		return nil, fmt.Errorf("resolve thread student: %w", err)
	}
	msg.StudentUserID = studentID

	if err := s.attach(ctx, msg, in.Attachment); err != nil {
		return nil, err
	}
	if err := s.linkParent(ctx, msg, in.ParentID); err != nil {
		return nil, err
	}

	created, err := s.messages.Create(ctx, nil, msg)
	if err != nil {
		return nil, fmt.Errorf("persist SA message: %w", err)
	}
	s.notify.MessageInserted(ctx, created)
	return created, nil
}

// attach uploads the file and records its URL, declared type and
// original name on the message. Upload failure aborts the send.
func (s *messageService) attach(ctx context.Context, msg *types.Message, upload *AttachmentUpload) error {
	if upload == nil {
		return nil
	}
	if s.bucket == nil {
		return fmt.Errorf("attachment storage not configured")
	}
	ext := strings.TrimPrefix(path.Ext(upload.Name), ".")
	if ext == "" {
		ext = "bin"
	}
	key := fmt.Sprintf("%s/%s/%d.%s", msg.CourseCode, msg.ClientToken, time.Now().UnixNano(), ext)
	if err := s.bucket.UploadFile(ctx, key, upload.Data); err != nil {
		return fmt.Errorf("upload attachment: %w", err)
	}
	url := s.bucket.GetPublicURL(key)
	msg.AttachmentURL = &url
	if upload.ContentType != "" {
		contentType := upload.ContentType
		msg.AttachmentType = &contentType
	}
	if upload.Name != "" {
		name := upload.Name
		msg.AttachmentName = &name
	}
	return nil
}

// linkParent validates a reply-to reference: the parent must exist and
// live in the same thread.
func (s *messageService) linkParent(ctx context.Context, msg *types.Message, parentID *uuid.UUID) error {
	if parentID == nil || *parentID == uuid.Nil {
		return nil
	}
	parent, err := s.messages.GetByID(ctx, nil, *parentID)
	if err != nil {
		return fmt.Errorf("resolve reply target: %w", err)
	}
	if parent.CourseCode != msg.CourseCode || parent.ClientToken != msg.ClientToken {
		return fmt.Errorf("%w: reply target belongs to another thread", apperr.ErrInvalidArgument)
	}
	msg.ParentMessageID = &parent.ID
	return nil
}

func (s *messageService) ListByCourse(ctx context.Context, courseCode string) ([]*types.Message, error) {
	return s.messages.ListByCourse(ctx, nil, courseCode)
}

func (s *messageService) ListByThread(ctx context.Context, courseCode, clientToken string) ([]*types.Message, error) {
	return s.messages.ListByThread(ctx, nil, courseCode, clientToken)
}
