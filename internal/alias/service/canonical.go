package service

import (
	"strings"

	"alias-service/internal/alias/model"
)

type nameCount struct {
	count     int
	firstSeen int // position within the cluster's member list
}

// SelectCanonical elects the display name of one cluster.
//
// Names are counted over all members. A name held by a non-target member wins
// first (highest count, ties to the first such member encountered); without
// one, the most frequent name overall wins (ties to the earliest first-seen).
// Blank names never win. ok is false when no usable name exists.
func SelectCanonical(records []model.ProductRecord, members []int, targetStore string) (name string, ok bool) {
	counts := make(map[string]*nameCount, len(members))
	for pos, i := range members {
		n := records[i].Name
		if c, seen := counts[n]; seen {
			c.count++
			continue
		}
		counts[n] = &nameCount{count: 1, firstSeen: pos}
	}

	// 1) не-целевые магазины
	best := -1
	for _, i := range members {
		r := records[i]
		if r.Store == targetStore || isBlank(r.Name) {
			continue
		}
		if c := counts[r.Name].count; c > best {
			best = c
			name = r.Name
		}
	}
	if best > 0 {
		return name, true
	}

	// 2) самое частое имя по всем участникам
	bestFirst := 0
	for n, c := range counts {
		if isBlank(n) {
			continue
		}
		if c.count > best || (c.count == best && c.firstSeen < bestFirst) {
			best = c.count
			bestFirst = c.firstSeen
			name = n
		}
	}
	return name, best > 0
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }

// clusterConfidence returns the confidence written for a cluster's targets.
func clusterConfidence(sets []map[string]struct{}, members []int, opt model.Options) float64 {
	if opt.ConfidenceMode != model.ConfidenceSimilarity || len(members) < 2 {
		return opt.Confidence
	}
	sum, pairs := 0.0, 0
	for a := 0; a < len(members); a++ {
		for b := a + 1; b < len(members); b++ {
			sum += setSimilarity(sets[members[a]], sets[members[b]])
			pairs++
		}
	}
	return sum / float64(pairs)
}
