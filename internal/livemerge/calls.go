package livemerge

import (
	"sort"
	"time"

	"github.com/tomoya0245/sa-chat/internal/types"
)

// CallGroup is the groomed queue entry for one thread: how many times
// the student called, when they last did, and the distinct seat hints
// they left.
type CallGroup struct {
	ClientToken string    `json:"client_token"`
	Count       int       `json:"count"`
	LatestAt    time.Time `json:"latest_at"`
	SeatNotes   []string  `json:"seat_notes"`
}

// GroupCalls folds unhandled calls into per-thread groups ordered by
// most recent call first. Seat hints keep first-appearance order and
// drop duplicates.
func GroupCalls(calls []*types.Call) []CallGroup {
	byToken := make(map[string]*CallGroup)
	var order []string

	sorted := make([]*types.Call, 0, len(calls))
	for _, c := range calls {
		if c == nil || c.HandledAt != nil {
			continue
		}
		sorted = append(sorted, c)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})

	for _, c := range sorted {
		group, ok := byToken[c.ClientToken]
		if !ok {
			group = &CallGroup{ClientToken: c.ClientToken}
			byToken[c.ClientToken] = group
			order = append(order, c.ClientToken)
		}
		group.Count++
		if c.CreatedAt.After(group.LatestAt) {
			group.LatestAt = c.CreatedAt
		}
		if c.SeatText != nil && *c.SeatText != "" {
			seen := false
			for _, note := range group.SeatNotes {
				if note == *c.SeatText {
					seen = true
					break
				}
			}
			if !seen {
				group.SeatNotes = append(group.SeatNotes, *c.SeatText)
			}
		}
	}

	groups := make([]CallGroup, 0, len(order))
	for _, token := range order {
		groups = append(groups, *byToken[token])
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].LatestAt.After(groups[j].LatestAt)
	})
	return groups
}
