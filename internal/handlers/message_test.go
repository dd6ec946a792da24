package handlers

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/requestdata"
	"github.com/tomoya0245/sa-chat/internal/services"
	"github.com/tomoya0245/sa-chat/internal/types"
	"github.com/tomoya0245/sa-chat/internal/utils"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

type fakeMessageService struct {
	services.MessageService
	threads map[string][]*types.Message
}

func (f *fakeMessageService) ListByThread(ctx context.Context, courseCode, clientToken string) ([]*types.Message, error) {
	return f.threads[clientToken], nil
}

type recordedMark struct {
	clientToken string
	readerRole  string
	at          time.Time
}

type fakeReadService struct {
	services.ReadService
	marks []recordedMark
}

func (f *fakeReadService) MarkRead(ctx context.Context, courseCode, clientToken, readerRole string, at time.Time) (*types.ThreadRead, error) {
	f.marks = append(f.marks, recordedMark{clientToken, readerRole, at})
	return &types.ThreadRead{ID: uuid.New(), CourseCode: courseCode, ClientToken: clientToken, ReaderRole: readerRole, LastReadAt: at}, nil
}

func viewerContext(t *testing.T, rd *requestdata.RequestData, params gin.Params) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest("GET", "/", nil)
	c.Request = req.WithContext(requestdata.WithRequestData(req.Context(), rd))
	c.Params = params
	return c, w
}

func TestOwnThreadAdvancesStudentCursorToObservedTail(t *testing.T) {
	student := uuid.New()
	token := utils.ClientToken(student, "cs101")
	tail := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	msgs := &fakeMessageService{threads: map[string][]*types.Message{
		token: {
			{ID: uuid.New(), CourseCode: "cs101", ClientToken: token, Role: types.RoleStudent, Body: "q", CreatedAt: tail.Add(-time.Minute)},
			{ID: uuid.New(), CourseCode: "cs101", ClientToken: token, Role: types.RoleSA, Body: "a", CreatedAt: tail},
		},
	}}
	reads := &fakeReadService{}
	h := NewMessageHandler(testLogger(t), msgs, reads)

	c, w := viewerContext(t, &requestdata.RequestData{UserID: student, Role: types.RoleStudent},
		gin.Params{{Key: "code", Value: "cs101"}})
	h.GetOwnThread(c)

	if w.Code != 200 {
		t.Fatalf("status %d", w.Code)
	}
	if len(reads.marks) != 1 {
		t.Fatalf("expected 1 cursor advance, got %d", len(reads.marks))
	}
	mark := reads.marks[0]
	if mark.readerRole != types.ReaderRoleStudent || mark.clientToken != token {
		t.Fatalf("cursor advanced for %s/%s", mark.clientToken, mark.readerRole)
	}
	// The cursor lands on the newest message the client actually got,
	// not the wall clock, so a reply committed after the list query
	// stays unread.
	if !mark.at.Equal(tail) {
		t.Fatalf("student cursor advanced to %v, want observed tail %v", mark.at, tail)
	}
}

func TestOwnThreadEmptyWritesNoStudentCursor(t *testing.T) {
	student := uuid.New()
	msgs := &fakeMessageService{threads: map[string][]*types.Message{}}
	reads := &fakeReadService{}
	h := NewMessageHandler(testLogger(t), msgs, reads)

	c, w := viewerContext(t, &requestdata.RequestData{UserID: student, Role: types.RoleStudent},
		gin.Params{{Key: "code", Value: "cs101"}})
	h.GetOwnThread(c)

	if w.Code != 200 {
		t.Fatalf("status %d", w.Code)
	}
	if len(reads.marks) != 0 {
		t.Fatalf("empty thread wrote a cursor: %+v", reads.marks)
	}
}

func TestThreadViewAdvancesSACursorOnOpen(t *testing.T) {
	msgs := &fakeMessageService{threads: map[string][]*types.Message{}}
	reads := &fakeReadService{}
	h := NewMessageHandler(testLogger(t), msgs, reads)

	before := time.Now().UTC()
	c, w := viewerContext(t, &requestdata.RequestData{UserID: uuid.New(), DisplayName: "Sam", Role: types.RoleSA},
		gin.Params{{Key: "code", Value: "cs101"}, {Key: "token", Value: "tok-a"}})
	h.ListThreadMessages(c)

	if w.Code != 200 {
		t.Fatalf("status %d", w.Code)
	}
	if len(reads.marks) != 1 {
		t.Fatalf("expected 1 cursor advance, got %d", len(reads.marks))
	}
	mark := reads.marks[0]
	if mark.readerRole != types.ReaderRoleSA || mark.clientToken != "tok-a" {
		t.Fatalf("cursor advanced for %s/%s", mark.clientToken, mark.readerRole)
	}
	// Opening a thread counts as reading it even when empty.
	if mark.at.Before(before) {
		t.Fatalf("SA cursor %v predates the open at %v", mark.at, before)
	}
}
