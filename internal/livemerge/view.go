package livemerge

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomoya0245/sa-chat/internal/types"
)

type readKey struct {
	token string
	role  string
}

// CourseView is one viewer's merged state for a course. All mutation
// funnels through ReplaceAll (snapshot swap) and Apply (event fold);
// accessors sort on the way out so map iteration order never leaks.
type CourseView struct {
	mu         sync.RWMutex
	courseCode string
	deleted    bool

	messages map[uuid.UUID]*types.Message
	calls    map[uuid.UUID]*types.Call
	locks    map[string]*types.ThreadLock
	pins     map[string]*types.ThreadPin
	reads    map[readKey]*types.ThreadRead
	aliases  map[string]int
}

func NewCourseView(courseCode string) *CourseView {
	return &CourseView{
		courseCode: courseCode,
		messages:   make(map[uuid.UUID]*types.Message),
		calls:      make(map[uuid.UUID]*types.Call),
		locks:      make(map[string]*types.ThreadLock),
		pins:       make(map[string]*types.ThreadPin),
		reads:      make(map[readKey]*types.ThreadRead),
		aliases:    make(map[string]int),
	}
}

func (v *CourseView) CourseCode() string { return v.courseCode }

func (v *CourseView) Deleted() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.deleted
}

// ReplaceAll swaps in a freshly read snapshot. Callers assemble the
// complete set of collections first, so a failed read never clobbers
// prior state halfway.
func (v *CourseView) ReplaceAll(
	messages []*types.Message,
	calls []*types.Call,
	locks []*types.ThreadLock,
	reads []*types.ThreadRead,
	pins []*types.ThreadPin,
	aliases []*types.StudentAlias,
) {
	msgMap := make(map[uuid.UUID]*types.Message, len(messages))
	for _, m := range messages {
		msgMap[m.ID] = m
	}
	callMap := make(map[uuid.UUID]*types.Call, len(calls))
	for _, c := range calls {
		if c.HandledAt == nil {
			callMap[c.ID] = c
		}
	}
	lockMap := make(map[string]*types.ThreadLock, len(locks))
	for _, l := range locks {
		lockMap[l.ClientToken] = l
	}
	readMap := make(map[readKey]*types.ThreadRead, len(reads))
	for _, r := range reads {
		readMap[readKey{token: r.ClientToken, role: r.ReaderRole}] = r
	}
	pinMap := make(map[string]*types.ThreadPin, len(pins))
	for _, p := range pins {
		pinMap[p.ClientToken] = p
	}
	aliasMap := make(map[string]int, len(aliases))
	for _, a := range aliases {
		aliasMap[a.ClientToken] = a.AliasNumber
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.messages = msgMap
	v.calls = callMap
	v.locks = lockMap
	v.reads = readMap
	v.pins = pinMap
	v.aliases = aliasMap
}

// Apply folds one change into the view. Inserts dedupe by id (events
// may repeat rows the snapshot already carried), updates only replace
// rows the view has seen, deletes clear the row or singleton.
func (v *CourseView) Apply(ch Change) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch {
	case ch.CourseDeleted:
		v.deleted = true
		v.messages = make(map[uuid.UUID]*types.Message)
		v.calls = make(map[uuid.UUID]*types.Call)
		v.locks = make(map[string]*types.ThreadLock)
		v.pins = make(map[string]*types.ThreadPin)
		v.reads = make(map[readKey]*types.ThreadRead)
		v.aliases = make(map[string]int)

	case ch.Message != nil:
		if ch.Op == OpInsert {
			if _, dup := v.messages[ch.Message.ID]; !dup {
				v.messages[ch.Message.ID] = ch.Message
			}
		}

	case ch.Call != nil:
		switch ch.Op {
		case OpInsert:
			if ch.Call.HandledAt != nil {
				return
			}
			if _, dup := v.calls[ch.Call.ID]; !dup {
				v.calls[ch.Call.ID] = ch.Call
			}
		case OpUpdate:
			if _, seen := v.calls[ch.Call.ID]; !seen {
				return
			}
			if ch.Call.HandledAt != nil {
				delete(v.calls, ch.Call.ID)
				return
			}
			v.calls[ch.Call.ID] = ch.Call
		case OpDelete:
			delete(v.calls, ch.Call.ID)
		}

	case ch.Lock != nil:
		switch ch.Op {
		case OpInsert, OpUpdate:
			v.locks[ch.Lock.ClientToken] = ch.Lock
		case OpDelete:
			delete(v.locks, ch.Lock.ClientToken)
		}

	case ch.Read != nil:
		key := readKey{token: ch.Read.ClientToken, role: ch.Read.ReaderRole}
		if current, ok := v.reads[key]; ok && current.LastReadAt.After(ch.Read.LastReadAt) {
			return
		}
		v.reads[key] = ch.Read

	case ch.Pin != nil:
		switch ch.Op {
		case OpInsert, OpUpdate:
			v.pins[ch.Pin.ClientToken] = ch.Pin
		case OpDelete:
			delete(v.pins, ch.Pin.ClientToken)
		}

	case ch.Alias != nil:
		// Aliases are immutable once assigned; the first row wins.
		if _, ok := v.aliases[ch.Alias.ClientToken]; !ok {
			v.aliases[ch.Alias.ClientToken] = ch.Alias.AliasNumber
		}
	}
}

func lessMessage(a, b *types.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

// Messages returns every message of the course in display order:
// creation time ascending, id as the stable tiebreak.
func (v *CourseView) Messages() []*types.Message {
	v.mu.RLock()
	out := make([]*types.Message, 0, len(v.messages))
	for _, m := range v.messages {
		out = append(out, m)
	}
	v.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return lessMessage(out[i], out[j]) })
	return out
}

// ThreadMessages returns one thread's messages in display order.
func (v *CourseView) ThreadMessages(clientToken string) []*types.Message {
	v.mu.RLock()
	out := make([]*types.Message, 0)
	for _, m := range v.messages {
		if m.ClientToken == clientToken {
			out = append(out, m)
		}
	}
	v.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return lessMessage(out[i], out[j]) })
	return out
}

// CallGroups returns the unhandled call queue, most recent first.
func (v *CourseView) CallGroups() []CallGroup {
	v.mu.RLock()
	calls := make([]*types.Call, 0, len(v.calls))
	for _, c := range v.calls {
		calls = append(calls, c)
	}
	v.mu.RUnlock()
	return GroupCalls(calls)
}

func (v *CourseView) Lock(clientToken string) *types.ThreadLock {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.locks[clientToken]
}

func (v *CourseView) Pin(clientToken string) *types.ThreadPin {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.pins[clientToken]
}

func (v *CourseView) Alias(clientToken string) (int, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	n, ok := v.aliases[clientToken]
	return n, ok
}

func (v *CourseView) Cursor(clientToken, role string) *types.ThreadRead {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.reads[readKey{token: clientToken, role: role}]
}

// UnreadCount counts counterpart-authored messages in the thread with
// a timestamp strictly after the viewer role's own cursor.
func (v *CourseView) UnreadCount(clientToken, viewerRole string) int {
	counterpart := types.RoleStudent
	if viewerRole == types.ReaderRoleStudent {
		counterpart = types.RoleSA
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	var cursorAt time.Time
	if cursor, ok := v.reads[readKey{token: clientToken, role: viewerRole}]; ok {
		cursorAt = cursor.LastReadAt
	}
	count := 0
	for _, m := range v.messages {
		if m.ClientToken != clientToken || m.Role != counterpart {
			continue
		}
		if m.CreatedAt.After(cursorAt) {
			count++
		}
	}
	return count
}

// Threads lists the course's thread tokens for display: pinned threads
// first by pin time descending, then the rest by latest message time
// descending; threads that have calls but no messages yet sort last
// within their group.
func (v *CourseView) Threads() []string {
	v.mu.RLock()

	lastMsg := make(map[string]time.Time)
	tokens := make(map[string]bool)
	for _, m := range v.messages {
		tokens[m.ClientToken] = true
		if m.CreatedAt.After(lastMsg[m.ClientToken]) {
			lastMsg[m.ClientToken] = m.CreatedAt
		}
	}
	for _, c := range v.calls {
		tokens[c.ClientToken] = true
	}

	var pinned, normal []string
	pinnedAt := make(map[string]time.Time, len(v.pins))
	for token := range tokens {
		if pin, ok := v.pins[token]; ok {
			pinned = append(pinned, token)
			pinnedAt[token] = pin.PinnedAt
		} else {
			normal = append(normal, token)
		}
	}
	v.mu.RUnlock()

	sort.SliceStable(pinned, func(i, j int) bool {
		a, b := pinnedAt[pinned[i]], pinnedAt[pinned[j]]
		if !a.Equal(b) {
			return a.After(b)
		}
		return pinned[i] < pinned[j]
	})
	sort.SliceStable(normal, func(i, j int) bool {
		a, aOK := lastMsg[normal[i]]
		b, bOK := lastMsg[normal[j]]
		if aOK != bOK {
			return aOK
		}
		if !a.Equal(b) {
			return a.After(b)
		}
		return normal[i] < normal[j]
	})

	return append(pinned, normal...)
}
