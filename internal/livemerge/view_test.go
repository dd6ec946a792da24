package livemerge

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tomoya0245/sa-chat/internal/types"
)

var testBase = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func msgAt(token string, role string, offset time.Duration) *types.Message {
	return &types.Message{
		ID:          uuid.New(),
		CourseCode:  "cs101",
		ClientToken: token,
		Role:        role,
		Body:        "hello",
		CreatedAt:   testBase.Add(offset),
	}
}

func callAt(token, seat string, offset time.Duration) *types.Call {
	var seatText *string
	if seat != "" {
		seatText = &seat
	}
	return &types.Call{
		ID:          uuid.New(),
		CourseCode:  "cs101",
		ClientToken: token,
		SeatText:    seatText,
		CreatedAt:   testBase.Add(offset),
	}
}

func TestViewInsertDeduplicatesByID(t *testing.T) {
	v := NewCourseView("cs101")
	m := msgAt("tok-a", types.RoleStudent, 0)
	v.ReplaceAll([]*types.Message{m}, nil, nil, nil, nil, nil)

	// The same row arrives again over the feed after the snapshot.
	v.Apply(Change{Op: OpInsert, Message: m})
	v.Apply(Change{Op: OpInsert, Message: msgAt("tok-a", types.RoleStudent, time.Second)})

	if got := len(v.Messages()); got != 2 {
		t.Fatalf("expected 2 messages after duplicate insert, got %d", got)
	}
}

func TestViewCallUpdateForUnseenRowIsIgnored(t *testing.T) {
	v := NewCourseView("cs101")
	stale := callAt("tok-a", "", 0)

	// An update for a call the snapshot never contained must not
	// resurrect it.
	v.Apply(Change{Op: OpUpdate, Call: stale})

	if got := len(v.CallGroups()); got != 0 {
		t.Fatalf("expected no call groups, got %d", got)
	}
}

func TestViewCallHandledUpdateRemoves(t *testing.T) {
	v := NewCourseView("cs101")
	open := callAt("tok-a", "", 0)
	v.ReplaceAll(nil, []*types.Call{open}, nil, nil, nil, nil)

	handled := *open
	at := testBase.Add(time.Minute)
	handled.HandledAt = &at
	v.Apply(Change{Op: OpUpdate, Call: &handled})

	if got := len(v.CallGroups()); got != 0 {
		t.Fatalf("expected handled call removed from queue, got %d groups", got)
	}
}

func TestViewCallAfterHandledStartsFreshGroup(t *testing.T) {
	v := NewCourseView("cs101")
	first := callAt("tok-a", "", 0)
	second := callAt("tok-a", "", time.Minute)
	v.Apply(Change{Op: OpInsert, Call: first})
	v.Apply(Change{Op: OpInsert, Call: second})

	handledFirst := *first
	handledSecond := *second
	at := testBase.Add(2 * time.Minute)
	handledFirst.HandledAt = &at
	handledSecond.HandledAt = &at
	v.Apply(Change{Op: OpUpdate, Call: &handledFirst})
	v.Apply(Change{Op: OpUpdate, Call: &handledSecond})
	if got := len(v.CallGroups()); got != 0 {
		t.Fatalf("expected empty queue after handling, got %d groups", got)
	}

	// The student calls again after their thread was cleared; the
	// handled history must not leak into the new group's count.
	v.Apply(Change{Op: OpInsert, Call: callAt("tok-a", "", 3*time.Minute)})

	groups := v.CallGroups()
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if groups[0].ClientToken != "tok-a" || groups[0].Count != 1 {
		t.Fatalf("expected fresh tok-a group of 1, got %+v", groups[0])
	}
}

func TestViewLockDeleteClearsSingleton(t *testing.T) {
	v := NewCourseView("cs101")
	lock := &types.ThreadLock{ID: uuid.New(), CourseCode: "cs101", ClientToken: "tok-a", SAUserID: uuid.New(), SAName: "Sam", LockedAt: testBase}
	v.Apply(Change{Op: OpInsert, Lock: lock})
	if v.Lock("tok-a") == nil {
		t.Fatal("expected lock present after insert")
	}
	v.Apply(Change{Op: OpDelete, Lock: lock})
	if v.Lock("tok-a") != nil {
		t.Fatal("expected lock cleared after delete")
	}
}

func TestViewReadCursorNeverMovesBackwards(t *testing.T) {
	v := NewCourseView("cs101")
	newer := &types.ThreadRead{CourseCode: "cs101", ClientToken: "tok-a", ReaderRole: types.ReaderRoleSA, LastReadAt: testBase.Add(time.Hour)}
	older := &types.ThreadRead{CourseCode: "cs101", ClientToken: "tok-a", ReaderRole: types.ReaderRoleSA, LastReadAt: testBase}

	v.Apply(Change{Op: OpUpdate, Read: newer})
	v.Apply(Change{Op: OpUpdate, Read: older})

	got := v.Cursor("tok-a", types.ReaderRoleSA)
	if got == nil || !got.LastReadAt.Equal(newer.LastReadAt) {
		t.Fatalf("expected cursor to keep newer timestamp, got %+v", got)
	}
}

func TestViewAliasFirstWins(t *testing.T) {
	v := NewCourseView("cs101")
	v.Apply(Change{Op: OpInsert, Alias: &types.StudentAlias{CourseCode: "cs101", ClientToken: "tok-a", AliasNumber: 3}})
	v.Apply(Change{Op: OpInsert, Alias: &types.StudentAlias{CourseCode: "cs101", ClientToken: "tok-a", AliasNumber: 9}})

	if n, ok := v.Alias("tok-a"); !ok || n != 3 {
		t.Fatalf("expected alias 3 to stick, got %d (ok=%v)", n, ok)
	}
}

func TestViewMessagesOrderedByTimeThenID(t *testing.T) {
	v := NewCourseView("cs101")
	a := msgAt("tok-a", types.RoleStudent, 2*time.Second)
	b := msgAt("tok-a", types.RoleSA, time.Second)
	c := msgAt("tok-b", types.RoleStudent, 3*time.Second)
	v.ReplaceAll([]*types.Message{a, b, c}, nil, nil, nil, nil, nil)

	got := v.Messages()
	if len(got) != 3 || got[0].ID != b.ID || got[1].ID != a.ID || got[2].ID != c.ID {
		t.Fatalf("unexpected message order: %v", []uuid.UUID{got[0].ID, got[1].ID, got[2].ID})
	}

	// Equal timestamps fall back to id order, so the result is stable
	// across snapshots.
	d := msgAt("tok-a", types.RoleStudent, 5*time.Second)
	e := msgAt("tok-a", types.RoleStudent, 5*time.Second)
	v.Apply(Change{Op: OpInsert, Message: d})
	v.Apply(Change{Op: OpInsert, Message: e})
	first := v.Messages()
	second := v.Messages()
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatal("message order is not deterministic")
		}
	}
}

func TestViewUnreadCount(t *testing.T) {
	v := NewCourseView("cs101")
	v.ReplaceAll([]*types.Message{
		msgAt("tok-a", types.RoleStudent, 0),
		msgAt("tok-a", types.RoleStudent, time.Minute),
		msgAt("tok-a", types.RoleSA, 2*time.Minute),
		msgAt("tok-b", types.RoleStudent, time.Minute),
	}, nil, nil, []*types.ThreadRead{
		{CourseCode: "cs101", ClientToken: "tok-a", ReaderRole: types.ReaderRoleSA, LastReadAt: testBase.Add(30 * time.Second)},
	}, nil, nil)

	// SA read up to t+30s: one student message at t+60s is unread; the
	// SA's own message never counts.
	if got := v.UnreadCount("tok-a", types.ReaderRoleSA); got != 1 {
		t.Fatalf("SA unread = %d, want 1", got)
	}
	// Student has no cursor: the one SA reply counts.
	if got := v.UnreadCount("tok-a", types.ReaderRoleStudent); got != 1 {
		t.Fatalf("student unread = %d, want 1", got)
	}
	// No cursor for tok-b either; both student messages there are the
	// student's own.
	if got := v.UnreadCount("tok-b", types.ReaderRoleStudent); got != 0 {
		t.Fatalf("tok-b student unread = %d, want 0", got)
	}
}

func TestViewThreadsPinnedFirst(t *testing.T) {
	v := NewCourseView("cs101")
	v.ReplaceAll([]*types.Message{
		msgAt("tok-x", types.RoleStudent, 0),
		msgAt("tok-y", types.RoleStudent, time.Minute),
		msgAt("tok-z", types.RoleStudent, 2*time.Minute),
		msgAt("tok-w", types.RoleStudent, 3*time.Minute),
	}, nil, nil, nil, []*types.ThreadPin{
		{CourseCode: "cs101", ClientToken: "tok-x", PinnedAt: testBase.Add(time.Hour)},
		{CourseCode: "cs101", ClientToken: "tok-z", PinnedAt: testBase.Add(2 * time.Hour)},
	}, nil)

	got := v.Threads()
	want := []string{"tok-z", "tok-x", "tok-w", "tok-y"}
	if len(got) != len(want) {
		t.Fatalf("threads = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("threads = %v, want %v", got, want)
		}
	}
}

func TestViewThreadsIncludeCallOnlyThreadsLast(t *testing.T) {
	v := NewCourseView("cs101")
	v.ReplaceAll([]*types.Message{
		msgAt("tok-a", types.RoleStudent, time.Minute),
	}, []*types.Call{
		callAt("tok-b", "row 4", 0),
	}, nil, nil, nil, nil)

	got := v.Threads()
	if len(got) != 2 || got[0] != "tok-a" || got[1] != "tok-b" {
		t.Fatalf("threads = %v, want [tok-a tok-b]", got)
	}
}

func TestViewCourseDeletedClearsEverything(t *testing.T) {
	v := NewCourseView("cs101")
	v.ReplaceAll([]*types.Message{msgAt("tok-a", types.RoleStudent, 0)},
		[]*types.Call{callAt("tok-a", "", 0)}, nil, nil, nil, nil)

	v.Apply(Change{Op: OpDelete, CourseDeleted: true})

	if !v.Deleted() {
		t.Fatal("expected view marked deleted")
	}
	if len(v.Messages()) != 0 || len(v.CallGroups()) != 0 {
		t.Fatal("expected all state cleared after course deletion")
	}
}

func TestViewReplaceAllDropsHandledCalls(t *testing.T) {
	v := NewCourseView("cs101")
	open := callAt("tok-a", "", 0)
	closed := callAt("tok-b", "", time.Second)
	at := testBase.Add(time.Minute)
	closed.HandledAt = &at

	v.ReplaceAll(nil, []*types.Call{open, closed}, nil, nil, nil, nil)

	groups := v.CallGroups()
	if len(groups) != 1 || groups[0].ClientToken != "tok-a" {
		t.Fatalf("expected only the open call, got %+v", groups)
	}
}
