package services

import (
	"context"

	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/sse"
	"github.com/tomoya0245/sa-chat/internal/types"
)

// ChangeNotifier publishes a committed row write to the course's
// change feed. Local viewers get it through the hub; other instances
// through the bus forwarder. Notification failures are logged, never
// propagated: the write already committed and viewers reconcile on
// their next snapshot.
type ChangeNotifier interface {
	MessageInserted(ctx context.Context, msg *types.Message)
	CallInserted(ctx context.Context, call *types.Call)
	CallUpdated(ctx context.Context, call *types.Call)
	LockInserted(ctx context.Context, lock *types.ThreadLock)
	LockDeleted(ctx context.Context, lock *types.ThreadLock)
	ReadUpserted(ctx context.Context, read *types.ThreadRead)
	PinInserted(ctx context.Context, pin *types.ThreadPin)
	PinDeleted(ctx context.Context, pin *types.ThreadPin)
	AliasInserted(ctx context.Context, alias *types.StudentAlias)
	CourseDeleted(ctx context.Context, courseCode string)
}

type changeNotifier struct {
	log *logger.Logger
	hub *sse.SSEHub
	bus SSEBus
}

func NewChangeNotifier(log *logger.Logger, hub *sse.SSEHub, bus SSEBus) ChangeNotifier {
	return &changeNotifier{
		log: log.With("service", "ChangeNotifier"),
		hub: hub,
		bus: bus,
	}
}

func (n *changeNotifier) emit(ctx context.Context, courseCode string, event sse.SSEEvent, data any) {
	msg := sse.SSEMessage{
		Channel: sse.CourseChannel(courseCode),
		Event:   event,
		Data:    data,
	}
	if n.bus != nil {
		// The forwarder loops it back into the local hub too.
		if err := n.bus.Publish(ctx, msg); err != nil {
			n.log.Warn("bus publish failed, broadcasting locally only", "event", event, "error", err)
			n.hub.Broadcast(msg)
		}
		return
	}
	n.hub.Broadcast(msg)
}

func (n *changeNotifier) MessageInserted(ctx context.Context, msg *types.Message) {
	n.emit(ctx, msg.CourseCode, sse.SSEEventMessageInserted, msg)
}

func (n *changeNotifier) CallInserted(ctx context.Context, call *types.Call) {
	n.emit(ctx, call.CourseCode, sse.SSEEventCallInserted, call)
}

func (n *changeNotifier) CallUpdated(ctx context.Context, call *types.Call) {
	n.emit(ctx, call.CourseCode, sse.SSEEventCallUpdated, call)
}

func (n *changeNotifier) LockInserted(ctx context.Context, lock *types.ThreadLock) {
	n.emit(ctx, lock.CourseCode, sse.SSEEventLockInserted, lock)
}

func (n *changeNotifier) LockDeleted(ctx context.Context, lock *types.ThreadLock) {
	n.emit(ctx, lock.CourseCode, sse.SSEEventLockDeleted, lock)
}

func (n *changeNotifier) ReadUpserted(ctx context.Context, read *types.ThreadRead) {
	n.emit(ctx, read.CourseCode, sse.SSEEventReadUpserted, read)
}

func (n *changeNotifier) PinInserted(ctx context.Context, pin *types.ThreadPin) {
	n.emit(ctx, pin.CourseCode, sse.SSEEventPinInserted, pin)
}

func (n *changeNotifier) PinDeleted(ctx context.Context, pin *types.ThreadPin) {
	n.emit(ctx, pin.CourseCode, sse.SSEEventPinDeleted, pin)
}

func (n *changeNotifier) AliasInserted(ctx context.Context, alias *types.StudentAlias) {
	n.emit(ctx, alias.CourseCode, sse.SSEEventAliasInserted, alias)
}

func (n *changeNotifier) CourseDeleted(ctx context.Context, courseCode string) {
	n.emit(ctx, courseCode, sse.SSEEventCourseDeleted, map[string]string{"code": courseCode})
}
