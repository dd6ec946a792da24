package livemerge

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/tomoya0245/sa-chat/internal/repos"
	"github.com/tomoya0245/sa-chat/internal/types"
)

// Snapshotter reads a full course snapshot from the store. The reads
// run concurrently; the result is only handed to the view when every
// collection loaded, so a partial failure leaves the view untouched.
type Snapshotter struct {
	messages repos.MessageRepo
	calls    repos.CallRepo
	locks    repos.ThreadLockRepo
	reads    repos.ThreadReadRepo
	pins     repos.ThreadPinRepo
	aliases  repos.StudentAliasRepo
}

func NewSnapshotter(
	messages repos.MessageRepo,
	calls repos.CallRepo,
	locks repos.ThreadLockRepo,
	reads repos.ThreadReadRepo,
	pins repos.ThreadPinRepo,
	aliases repos.StudentAliasRepo,
) *Snapshotter {
	return &Snapshotter{
		messages: messages,
		calls:    calls,
		locks:    locks,
		reads:    reads,
		pins:     pins,
		aliases:  aliases,
	}
}

// Load fills the view with the current persisted state of its course.
func (s *Snapshotter) Load(ctx context.Context, view *CourseView) error {
	code := view.CourseCode()

	var (
		messages []*types.Message
		calls    []*types.Call
		locks    []*types.ThreadLock
		reads    []*types.ThreadRead
		pins     []*types.ThreadPin
		aliases  []*types.StudentAlias
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		messages, err = s.messages.ListByCourse(gctx, nil, code)
		return err
	})
	g.Go(func() error {
		var err error
		calls, err = s.calls.ListUnhandled(gctx, nil, code)
		return err
	})
	g.Go(func() error {
		var err error
		locks, err = s.locks.ListByCourse(gctx, nil, code)
		return err
	})
	g.Go(func() error {
		var err error
		reads, err = s.reads.ListByCourse(gctx, nil, code)
		return err
	})
	g.Go(func() error {
		var err error
		pins, err = s.pins.ListByCourse(gctx, nil, code)
		return err
	})
	g.Go(func() error {
		var err error
		aliases, err = s.aliases.ListByCourse(gctx, nil, code)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("loading course snapshot for %s: %w", code, err)
	}

	view.ReplaceAll(messages, calls, locks, reads, pins, aliases)
	return nil
}
