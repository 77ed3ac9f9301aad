package places

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"travel-planner/internal/geocoding"
)

// ScorePOI rates how well a keyword-search result matches the query.
// Higher is better.
func ScorePOI(query string, c geocoding.Candidate) float64 {
	q := strings.TrimSpace(query)
	name := c.Name

	var s float64
	if name == q {
		s += 100
	}
	if strings.Contains(name, q) {
		s += 60
	}
	if utf8.RuneCountInString(name) >= 2 && strings.Contains(q, name) {
		s += 20
	}
	if strings.Contains(c.Address, q) {
		s += 15
	}
	if c.Type != "" {
		s += 5
	}
	if c.Tel != "" {
		s += 2
	}
	if c.Weight > 0 {
		s += math.Min(10, c.Weight/10)
	}
	if c.Rating > 0 {
		s += math.Min(10, c.Rating)
	}
	return s
}

type scoredCandidate struct {
	candidate geocoding.Candidate
	score     float64
}

// RankPOIs returns candidates sorted by descending score, keeping upstream
// order between equal scores.
func RankPOIs(query string, candidates []geocoding.Candidate) []geocoding.Candidate {
	ranked := make([]scoredCandidate, len(candidates))
	for i, c := range candidates {
		ranked[i] = scoredCandidate{candidate: c, score: ScorePOI(query, c)}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].score > ranked[b].score
	})

	out := make([]geocoding.Candidate, len(ranked))
	for i, r := range ranked {
		out[i] = r.candidate
	}
	return out
}

// ScoreTip rates an autocomplete suggestion
func ScoreTip(query string, t geocoding.Tip) float64 {
	q := strings.TrimSpace(query)

	var s float64
	if t.Name == q {
		s += 100
	}
	if strings.Contains(t.Name, q) {
		s += 60
	}
	if strings.Contains(t.District+t.Address, q) {
		s += 15
	}
	if t.Location != nil {
		s += 3
	}
	return s
}

// RankTips sorts tips by descending score, stable
func RankTips(query string, tips []geocoding.Tip) {
	sort.SliceStable(tips, func(a, b int) bool {
		return ScoreTip(query, tips[a]) > ScoreTip(query, tips[b])
	})
}
