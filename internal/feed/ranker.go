// Package feed orders a viewer's post working set for the home timeline.
package feed

import (
	"sort"
	"time"
)

// Item is anything the ranker can score.
type Item interface {
	RankAuthor() uint
	RankCreatedAt() time.Time
	RankLikes() int
}

// Weights are the constants of the scoring function.
type Weights struct {
	// RecencyHours is both the window and the maximum of the recency term.
	RecencyHours float64
	// Affinity is the flat bonus for posts by followed authors.
	Affinity float64
	// PerLike is added once per like.
	PerLike float64
}

// DefaultWeights returns 100h recency, +200 affinity and +5 per like.
func DefaultWeights() Weights {
	return Weights{RecencyHours: 100, Affinity: 200, PerLike: 5}
}

// Viewer is the person the feed is ranked for.
type Viewer struct {
	ID        uint
	Following map[uint]struct{}
}

// NewViewer builds a viewer from a list of followed user ids.
func NewViewer(id uint, following []uint) Viewer {
	set := make(map[uint]struct{}, len(following))
	for _, f := range following {
		set[f] = struct{}{}
	}
	return Viewer{ID: id, Following: set}
}

// Follows reports whether the viewer follows author. A nil set follows nobody.
func (v Viewer) Follows(author uint) bool {
	_, ok := v.Following[author]
	return ok
}

// Score computes a single item's score at now. A zero creation time counts
// as now, and so does a creation time in the future: the recency term is
// capped at RecencyHours, where the bare max(0, 100-age) formula would let
// a clock-skewed post score above 100 and outrank everything.
func (w Weights) Score(v Viewer, item Item, now time.Time) float64 {
	age := 0.0
	if created := item.RankCreatedAt(); !created.IsZero() {
		age = now.Sub(created).Hours()
		if age < 0 {
			age = 0
		}
	}

	score := w.RecencyHours - age
	if score < 0 {
		score = 0
	}
	if v.Follows(item.RankAuthor()) {
		score += w.Affinity
	}
	return score + w.PerLike*float64(item.RankLikes())
}

// Rank returns items ordered by descending score. Equal scores keep their
// input order. The input slice is not modified.
func Rank[T Item](w Weights, v Viewer, items []T, now time.Time) []T {
	type scored struct {
		item  T
		score float64
	}

	ranked := make([]scored, len(items))
	for i, item := range items {
		ranked[i] = scored{item: item, score: w.Score(v, item, now)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	out := make([]T, len(ranked))
	for i, s := range ranked {
		out[i] = s.item
	}
	return out
}
