package service

import "sort"

// tokenIndex is an inverted index token -> record indices (ascending).
// Only pairs sharing a token can reach a positive Jaccard score.
type tokenIndex struct {
	inv map[string][]int
}

func buildTokenIndex(sets []map[string]struct{}) *tokenIndex {
	idx := &tokenIndex{inv: make(map[string][]int)}
	for i, set := range sets {
		for t := range set {
			idx.inv[t] = append(idx.inv[t], i)
		}
	}
	return idx
}

// candidates returns indices j > i sharing at least one token with sets[i],
// sorted so pairs are visited in the same order as the brute-force loop.
func (idx *tokenIndex) candidates(i int, set map[string]struct{}) []int {
	if len(set) == 0 {
		return nil
	}
	seen := make(map[int]struct{})
	for t := range set {
		postings := idx.inv[t]
		// postings are ascending: skip everything <= i
		k := sort.SearchInts(postings, i+1)
		for _, j := range postings[k:] {
			seen[j] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for j := range seen {
		out = append(out, j)
	}
	sort.Ints(out)
	return out
}
