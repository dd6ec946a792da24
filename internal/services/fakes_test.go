package services

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/repos"
	"github.com/tomoya0245/sa-chat/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

// recordingNotifier counts emitted events per kind so tests can assert
// what went onto the change feed without a hub or a bus.
type recordingNotifier struct {
	mu     sync.Mutex
	counts map[string]int
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{counts: make(map[string]int)}
}

func (n *recordingNotifier) bump(kind string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.counts[kind]++
}

func (n *recordingNotifier) count(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.counts[kind]
}

func (n *recordingNotifier) MessageInserted(ctx context.Context, msg *types.Message) { n.bump("message") }
func (n *recordingNotifier) CallInserted(ctx context.Context, call *types.Call) { n.bump("call") }
func (n *recordingNotifier) CallUpdated(ctx context.Context, call *types.Call) { n.bump("call_updated") }
func (n *recordingNotifier) LockInserted(ctx context.Context, lock *types.ThreadLock) { n.bump("lock") }
func (n *recordingNotifier) LockDeleted(ctx context.Context, lock *types.ThreadLock) { n.bump("lock_deleted") }
func (n *recordingNotifier) ReadUpserted(ctx context.Context, read *types.ThreadRead) { n.bump("read") }
func (n *recordingNotifier) PinInserted(ctx context.Context, pin *types.ThreadPin) { n.bump("pin") }
func (n *recordingNotifier) PinDeleted(ctx context.Context, pin *types.ThreadPin) { n.bump("pin_deleted") }
func (n *recordingNotifier) AliasInserted(ctx context.Context, a *types.StudentAlias) { n.bump("alias") }
func (n *recordingNotifier) CourseDeleted(ctx context.Context, courseCode string) { n.bump("course_deleted") }

// memAliasRepo mimics the dual unique indexes of student_aliases: a row
// conflicting on token or number is silently skipped.
type memAliasRepo struct {
	repos.StudentAliasRepo
	mu   sync.Mutex
	rows []*types.StudentAlias
}

func (m *memAliasRepo) ListByCourse(ctx context.Context, tx *gorm.DB, courseCode string) ([]*types.StudentAlias, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*types.StudentAlias, 0, len(m.rows))
	for _, row := range m.rows {
		if row.CourseCode == courseCode {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AliasNumber < out[j].AliasNumber })
	return out, nil
}

func (m *memAliasRepo) InsertIgnore(ctx context.Context, tx *gorm.DB, rows []*types.StudentAlias) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var affected int64
	for _, row := range rows {
		conflict := false
		for _, have := range m.rows {
			if have.CourseCode != row.CourseCode {
				continue
			}
			if have.ClientToken == row.ClientToken || have.AliasNumber == row.AliasNumber {
				conflict = true
				break
			}
		}
		if conflict {
			continue
		}
		m.rows = append(m.rows, row)
		affected++
	}
	return affected, nil
}

// memLockRepo mimics the unique thread index backing TryClaim.
type memLockRepo struct {
	repos.ThreadLockRepo
	mu   sync.Mutex
	rows map[string]*types.ThreadLock
}

func newMemLockRepo() *memLockRepo {
	return &memLockRepo{rows: make(map[string]*types.ThreadLock)}
}

func lockKey(courseCode, clientToken string) string {
	return courseCode + "/" + clientToken
}

func (m *memLockRepo) TryClaim(ctx context.Context, tx *gorm.DB, lock *types.ThreadLock) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := lockKey(lock.CourseCode, lock.ClientToken)
	if _, held := m.rows[key]; held {
		return false, nil
	}
	m.rows[key] = lock
	return true, nil
}

func (m *memLockRepo) Get(ctx context.Context, tx *gorm.DB, courseCode, clientToken string) (*types.ThreadLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[lockKey(courseCode, clientToken)], nil
}

func (m *memLockRepo) DeleteOwned(ctx context.Context, tx *gorm.DB, courseCode, clientToken string, saUserID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := lockKey(courseCode, clientToken)
	if have, held := m.rows[key]; held && have.SAUserID == saUserID {
		delete(m.rows, key)
		return true, nil
	}
	return false, nil
}
