package livemerge

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/sse"
)

// ViewerSession keeps one viewer's CourseView current. It subscribes
// to the course channel BEFORE taking the snapshot, so every event in
// the window between the two is either already in the snapshot or
// folded in afterwards; nothing slips through the gap.
type ViewerSession struct {
	view   *CourseView
	client *sse.SSEClient
	hub    *sse.SSEHub
	snap   *Snapshotter
	log    *logger.Logger

	stop    chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
}

func NewViewerSession(
	ctx context.Context,
	hub *sse.SSEHub,
	snap *Snapshotter,
	baseLog *logger.Logger,
	userID uuid.UUID,
	courseCode string,
) (*ViewerSession, error) {
	s := &ViewerSession{
		view:   NewCourseView(courseCode),
		client: hub.NewSSEClient(userID),
		hub:    hub,
		snap:   snap,
		log:    baseLog.With("component", "ViewerSession", "courseCode", courseCode),
		stop:   make(chan struct{}),
	}

	hub.AddChannel(s.client, sse.CourseChannel(courseCode))
	if err := snap.Load(ctx, s.view); err != nil {
		hub.CloseClient(s.client)
		return nil, err
	}

	s.wg.Add(1)
	go s.run()
	return s, nil
}

func (s *ViewerSession) View() *CourseView { return s.view }

func (s *ViewerSession) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stop:
			return
		case msg, open := <-s.client.Outbound:
			if !open {
				return
			}
			change, ok := DecodeChange(msg)
			if !ok {
				s.log.Debug("Skipping undecodable change event", "event", msg.Event)
				continue
			}
			s.view.Apply(change)
		}
	}
}

// Resync re-reads the snapshot into the live view. Call after a feed
// gap (dropped events, reconnect after transport loss); the
// subscription stays up throughout, so the same no-gap argument as at
// session start applies.
func (s *ViewerSession) Resync(ctx context.Context) error {
	return s.snap.Load(ctx, s.view)
}

// Close tears down the subscription and waits for the fold loop.
func (s *ViewerSession) Close() {
	s.stopped.Do(func() {
		s.hub.CloseClient(s.client)
		close(s.stop)
	})
	s.wg.Wait()
}
