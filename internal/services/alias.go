package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/repos"
	"github.com/tomoya0245/sa-chat/internal/types"
)

// AliasService assigns each active thread its anonymous display number:
// max existing number + 1, + 2, ... over the not-yet-numbered tokens in
// sorted order. Two viewers running this concurrently may compute the
// same next slot; the unique indexes on (course, token) and (course,
// number) make the first committed write win, and the loser reconciles
// by re-reading.
type AliasService interface {
	EnsureAliases(ctx context.Context, courseCode string, activeTokens []string) (map[string]int, error)
	ListByCourse(ctx context.Context, courseCode string) ([]*types.StudentAlias, error)
}

type aliasService struct {
	log     *logger.Logger
	aliases repos.StudentAliasRepo
	notify  ChangeNotifier
}

func NewAliasService(baseLog *logger.Logger, aliasRepo repos.StudentAliasRepo, notify ChangeNotifier) AliasService {
	return &aliasService{
		log:     baseLog.With("service", "AliasService"),
		aliases: aliasRepo,
		notify:  notify,
	}
}

func (s *aliasService) EnsureAliases(ctx context.Context, courseCode string, activeTokens []string) (map[string]int, error) {
	existing, err := s.aliases.ListByCourse(ctx, nil, courseCode)
	if err != nil {
		return nil, fmt.Errorf("load aliases for %q: %w", courseCode, err)
	}

	assigned := make(map[string]int, len(existing))
	max := 0
	for _, row := range existing {
		assigned[row.ClientToken] = row.AliasNumber
		if row.AliasNumber > max {
			max = row.AliasNumber
		}
	}

	var missing []string
	seen := make(map[string]bool, len(activeTokens))
	for _, token := range activeTokens {
		if token == "" || seen[token] {
			continue
		}
		seen[token] = true
		if _, ok := assigned[token]; !ok {
			missing = append(missing, token)
		}
	}
	if len(missing) == 0 {
		return assigned, nil
	}
	sort.Strings(missing)

	inserts := make([]*types.StudentAlias, 0, len(missing))
	for _, token := range missing {
		max++
		assigned[token] = max
		inserts = append(inserts, &types.StudentAlias{
			ID:          uuid.New(),
			CourseCode:  courseCode,
			ClientToken: token,
			AliasNumber: max,
		})
	}

	landed, err := s.aliases.InsertIgnore(ctx, nil, inserts)
	if err != nil {
		return nil, fmt.Errorf("persist aliases for %q: %w", courseCode, err)
	}
	if landed == int64(len(inserts)) {
		for _, row := range inserts {
			s.notify.AliasInserted(ctx, row)
		}
		return assigned, nil
	}

	// Some insert lost a race: drop our optimistic numbers and adopt
	// whatever actually committed.
	s.log.Debug("alias allocation raced, re-reading", "course", courseCode, "attempted", len(inserts), "landed", landed)
	authoritative, err := s.aliases.ListByCourse(ctx, nil, courseCode)
	if err != nil {
		return nil, fmt.Errorf("reload aliases for %q: %w", courseCode, err)
	}
	result := make(map[string]int, len(authoritative))
	for _, row := range authoritative {
		result[row.ClientToken] = row.AliasNumber
	}
	for _, row := range inserts {
		if result[row.ClientToken] == row.AliasNumber {
			s.notify.AliasInserted(ctx, row)
		}
	}
	return result, nil
}

func (s *aliasService) ListByCourse(ctx context.Context, courseCode string) ([]*types.StudentAlias, error) {
	return s.aliases.ListByCourse(ctx, nil, courseCode)
}
