package usecase

import (
	"sort"
	"time"

	"NewsPublisher/internal/domain"
)

// Score rates freshness as 100 / (age in hours + 1). Items from the future are
// clamped to age zero and items without a publish time score 0.
func Score(item domain.ContentItem, now time.Time) float64 {
	if item.PublishedAt.IsZero() {
		return 0
	}
	age := now.Sub(item.PublishedAt).Hours()
	if age < 0 {
		age = 0
	}
	return 100 / (age + 1)
}

// Rank scores every item and sorts them by descending score. The sort is stable,
// so equal scores keep the order the source returned them in.
func Rank(items []domain.ContentItem, now time.Time) []domain.ScoredItem {
	scored := make([]domain.ScoredItem, 0, len(items))
	for _, item := range items {
		scored = append(scored, domain.ScoredItem{Item: item, Score: Score(item, now)})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// TopK returns at most k leading entries of ranked.
func TopK(ranked []domain.ScoredItem, k int) []domain.ScoredItem {
	if k < 0 {
		k = 0
	}
	if len(ranked) > k {
		return ranked[:k]
	}
	return ranked
}
