// Package livemerge reconciles an initial snapshot of a course's
// collections with the live change feed into one consistent in-memory
// view per viewer. Every incoming notification is folded into keyed
// maps; display order is a separate sort pass over the map values.
package livemerge

import (
	"encoding/json"

	"github.com/tomoya0245/sa-chat/internal/sse"
	"github.com/tomoya0245/sa-chat/internal/types"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change is one tagged change-feed notification. Exactly one row
// pointer is set, matching the table the event came from; delete
// events carry the prior row.
type Change struct {
	Op Op

	Message *types.Message
	Call    *types.Call
	Lock    *types.ThreadLock
	Read    *types.ThreadRead
	Pin     *types.ThreadPin
	Alias   *types.StudentAlias

	CourseDeleted bool
}

// DecodeChange maps a feed message onto a Change. Payloads arrive
// either as typed rows (hub-local delivery) or as generic JSON maps
// (after a trip through the bus); both decode the same way.
func DecodeChange(msg sse.SSEMessage) (Change, bool) {
	switch msg.Event {
	case sse.SSEEventMessageInserted:
		var row types.Message
		if !decodeRow(msg.Data, &row) {
			return Change{}, false
		}
		return Change{Op: OpInsert, Message: &row}, true
	case sse.SSEEventCallInserted:
		var row types.Call
		if !decodeRow(msg.Data, &row) {
			return Change{}, false
		}
		return Change{Op: OpInsert, Call: &row}, true
	case sse.SSEEventCallUpdated:
		var row types.Call
		if !decodeRow(msg.Data, &row) {
			return Change{}, false
		}
		return Change{Op: OpUpdate, Call: &row}, true
	case sse.SSEEventLockInserted:
		var row types.ThreadLock
		if !decodeRow(msg.Data, &row) {
			return Change{}, false
		}
		return Change{Op: OpInsert, Lock: &row}, true
	case sse.SSEEventLockUpdated:
		var row types.ThreadLock
		if !decodeRow(msg.Data, &row) {
			return Change{}, false
		}
		return Change{Op: OpUpdate, Lock: &row}, true
	case sse.SSEEventLockDeleted:
		var row types.ThreadLock
		if !decodeRow(msg.Data, &row) {
			return Change{}, false
		}
		return Change{Op: OpDelete, Lock: &row}, true
	case sse.SSEEventReadUpserted:
		var row types.ThreadRead
		if !decodeRow(msg.Data, &row) {
			return Change{}, false
		}
		return Change{Op: OpUpdate, Read: &row}, true
	case sse.SSEEventPinInserted:
		var row types.ThreadPin
		if !decodeRow(msg.Data, &row) {
			return Change{}, false
		}
		return Change{Op: OpInsert, Pin: &row}, true
	case sse.SSEEventPinDeleted:
		var row types.ThreadPin
		if !decodeRow(msg.Data, &row) {
			return Change{}, false
		}
		return Change{Op: OpDelete, Pin: &row}, true
	case sse.SSEEventAliasInserted:
		var row types.StudentAlias
		if !decodeRow(msg.Data, &row) {
			return Change{}, false
		}
		return Change{Op: OpInsert, Alias: &row}, true
	case sse.SSEEventCourseDeleted:
		return Change{Op: OpDelete, CourseDeleted: true}, true
	default:
		return Change{}, false
	}
}

func decodeRow(data any, dst any) bool {
	if data == nil {
		return false
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}
