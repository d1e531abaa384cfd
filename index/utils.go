package index

import (
	"math"
	"reflect"
	"sort"
)

// CosineDistance is 1 minus cosine similarity, clamped to [0, 2]. Vectors of
// different length or zero norm are maximally uninformative at distance 1.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 1
	}

	d := 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))

	return math.Min(2, math.Max(0, d))
}

// MatchesFilter reports whether metadata carries every filter entry. Numbers
// compare by value regardless of their Go type.
func MatchesFilter(metadata, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := metadata[k]
		if !ok {
			return false
		}

		wf, wok := number(want)
		gf, gok := number(got)
		if wok && gok {
			if wf != gf {
				return false
			}
			continue
		}

		if !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// SortMatches orders by ascending distance, ties by ID.
func SortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ID < matches[j].ID
	})
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
