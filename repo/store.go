package repo

import (
	"DonorBot/model"
	"context"
	"sort"
)

// ScreeningStore persists finished screenings. It is the eligibility
// consumer handed to every question-flow engine.
type ScreeningStore interface {
	Consume(ctx context.Context, s model.Screening) error
	ReadScreening(ctx context.Context, id string) (*model.Screening, error)
	ListScreenings(ctx context.Context, userID int64, limit int) ([]model.Screening, error)
	Close() error
}

// sortNewestFirst orders screenings by completion time, most recent first,
// and trims the list to limit when limit > 0.
func sortNewestFirst(list []model.Screening, limit int) []model.Screening {
	sort.Slice(list, func(i, j int) bool {
		return list[i].CompletedAt.After(list[j].CompletedAt)
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list
}
