package livemerge

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tomoya0245/sa-chat/internal/sse"
	"github.com/tomoya0245/sa-chat/internal/types"
)

func TestDecodeChangeTypedPayload(t *testing.T) {
	msg := msgAt("tok-a", types.RoleStudent, 0)
	change, ok := DecodeChange(sse.SSEMessage{
		Channel: sse.CourseChannel("cs101"),
		Event:   sse.SSEEventMessageInserted,
		Data:    msg,
	})
	if !ok {
		t.Fatal("expected decode to succeed")
	}
	if change.Op != OpInsert || change.Message == nil || change.Message.ID != msg.ID {
		t.Fatalf("unexpected change: %+v", change)
	}
}

// Events relayed through the bus arrive as generic JSON, not typed
// rows; decoding must handle both shapes identically.
func TestDecodeChangeGenericJSONPayload(t *testing.T) {
	lock := &types.ThreadLock{
		ID:          uuid.New(),
		CourseCode:  "cs101",
		ClientToken: "tok-a",
		SAUserID:    uuid.New(),
		SAName:      "Sam",
		LockedAt:    time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}
	raw, err := json.Marshal(lock)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	change, ok := DecodeChange(sse.SSEMessage{
		Channel: sse.CourseChannel("cs101"),
		Event:   sse.SSEEventLockDeleted,
		Data:    generic,
	})
	if !ok {
		t.Fatal("expected decode to succeed")
	}
	if change.Op != OpDelete || change.Lock == nil || change.Lock.ClientToken != "tok-a" || change.Lock.SAUserID != lock.SAUserID {
		t.Fatalf("unexpected change: %+v", change)
	}
}

func TestDecodeChangeCourseDeleted(t *testing.T) {
	change, ok := DecodeChange(sse.SSEMessage{
		Channel: sse.CourseChannel("cs101"),
		Event:   sse.SSEEventCourseDeleted,
	})
	if !ok || !change.CourseDeleted {
		t.Fatalf("expected course-deleted change, got %+v (ok=%v)", change, ok)
	}
}

func TestDecodeChangeRejectsUnknownAndEmpty(t *testing.T) {
	if _, ok := DecodeChange(sse.SSEMessage{Event: "SomethingElse"}); ok {
		t.Fatal("expected unknown event to be rejected")
	}
	if _, ok := DecodeChange(sse.SSEMessage{Event: sse.SSEEventMessageInserted, Data: nil}); ok {
		t.Fatal("expected missing payload to be rejected")
	}
}
