package livemerge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/repos"
	"github.com/tomoya0245/sa-chat/internal/sse"
	"github.com/tomoya0245/sa-chat/internal/types"
)

// The fakes embed the repo interfaces and override only the list
// methods the snapshotter calls.

type fakeMessageRepo struct {
	repos.MessageRepo
	mu   sync.Mutex
	rows []*types.Message
}

func (f *fakeMessageRepo) ListByCourse(ctx context.Context, tx *gorm.DB, courseCode string) ([]*types.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*types.Message(nil), f.rows...), nil
}

type fakeCallRepo struct {
	repos.CallRepo
	rows []*types.Call
}

func (f *fakeCallRepo) ListUnhandled(ctx context.Context, tx *gorm.DB, courseCode string) ([]*types.Call, error) {
	return f.rows, nil
}

type fakeLockRepo struct {
	repos.ThreadLockRepo
	rows []*types.ThreadLock
}

func (f *fakeLockRepo) ListByCourse(ctx context.Context, tx *gorm.DB, courseCode string) ([]*types.ThreadLock, error) {
	return f.rows, nil
}

type fakeReadRepo struct {
	repos.ThreadReadRepo
	rows []*types.ThreadRead
}

func (f *fakeReadRepo) ListByCourse(ctx context.Context, tx *gorm.DB, courseCode string) ([]*types.ThreadRead, error) {
	return f.rows, nil
}

type fakePinRepo struct {
	repos.ThreadPinRepo
	rows []*types.ThreadPin
}

func (f *fakePinRepo) ListByCourse(ctx context.Context, tx *gorm.DB, courseCode string) ([]*types.ThreadPin, error) {
	return f.rows, nil
}

type fakeAliasRepo struct {
	repos.StudentAliasRepo
	rows []*types.StudentAlias
}

func (f *fakeAliasRepo) ListByCourse(ctx context.Context, tx *gorm.DB, courseCode string) ([]*types.StudentAlias, error) {
	return f.rows, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func newTestSession(t *testing.T, messages *fakeMessageRepo) (*ViewerSession, *sse.SSEHub) {
	t.Helper()
	log := testLogger(t)
	hub := sse.NewSSEHub(log)
	snap := NewSnapshotter(messages, &fakeCallRepo{}, &fakeLockRepo{}, &fakeReadRepo{}, &fakePinRepo{}, &fakeAliasRepo{})
	session, err := NewViewerSession(context.Background(), hub, snap, log, uuid.New(), "cs101")
	if err != nil {
		t.Fatalf("NewViewerSession: %v", err)
	}
	t.Cleanup(session.Close)
	return session, hub
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestSessionSnapshotThenEvents(t *testing.T) {
	snapshotMsg := msgAt("tok-a", types.RoleStudent, 0)
	messages := &fakeMessageRepo{rows: []*types.Message{snapshotMsg}}
	session, hub := newTestSession(t, messages)

	if got := len(session.View().Messages()); got != 1 {
		t.Fatalf("expected snapshot message in view, got %d", got)
	}

	live := msgAt("tok-a", types.RoleSA, time.Minute)
	hub.Broadcast(sse.SSEMessage{
		Channel: sse.CourseChannel("cs101"),
		Event:   sse.SSEEventMessageInserted,
		Data:    live,
	})
	waitFor(t, func() bool { return len(session.View().Messages()) == 2 })
}

func TestSessionDuplicateDeliveryIsIdempotent(t *testing.T) {
	snapshotMsg := msgAt("tok-a", types.RoleStudent, 0)
	messages := &fakeMessageRepo{rows: []*types.Message{snapshotMsg}}
	session, hub := newTestSession(t, messages)

	// The row from the snapshot arrives again over the feed, plus one
	// genuinely new row.
	hub.Broadcast(sse.SSEMessage{
		Channel: sse.CourseChannel("cs101"),
		Event:   sse.SSEEventMessageInserted,
		Data:    snapshotMsg,
	})
	live := msgAt("tok-a", types.RoleSA, time.Minute)
	hub.Broadcast(sse.SSEMessage{
		Channel: sse.CourseChannel("cs101"),
		Event:   sse.SSEEventMessageInserted,
		Data:    live,
	})

	waitFor(t, func() bool { return len(session.View().Messages()) == 2 })
	time.Sleep(20 * time.Millisecond)
	if got := len(session.View().Messages()); got != 2 {
		t.Fatalf("duplicate delivery changed the view: %d messages", got)
	}
}

func TestSessionResyncPicksUpMissedRows(t *testing.T) {
	messages := &fakeMessageRepo{}
	session, _ := newTestSession(t, messages)

	if got := len(session.View().Messages()); got != 0 {
		t.Fatalf("expected empty view, got %d messages", got)
	}

	// A row committed while the feed was down; only a re-snapshot can
	// recover it.
	messages.mu.Lock()
	messages.rows = append(messages.rows, msgAt("tok-a", types.RoleStudent, 0))
	messages.mu.Unlock()

	if err := session.Resync(context.Background()); err != nil {
		t.Fatalf("Resync: %v", err)
	}
	if got := len(session.View().Messages()); got != 1 {
		t.Fatalf("expected 1 message after resync, got %d", got)
	}
}

func TestSessionIgnoresOtherCourses(t *testing.T) {
	messages := &fakeMessageRepo{}
	session, hub := newTestSession(t, messages)

	hub.Broadcast(sse.SSEMessage{
		Channel: sse.CourseChannel("other"),
		Event:   sse.SSEEventMessageInserted,
		Data:    msgAt("tok-a", types.RoleStudent, 0),
	})
	time.Sleep(20 * time.Millisecond)
	if got := len(session.View().Messages()); got != 0 {
		t.Fatalf("expected no cross-course leakage, got %d messages", got)
	}
}
