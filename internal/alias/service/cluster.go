package service

import (
	"context"
	"sync"

	"alias-service/internal/alias/model"
)

// BuildClusters compares every pair i < j and unions those with
// similarity >= threshold. O(N²): meant for offline batches.
func BuildClusters(ctx context.Context, tokens [][]string, threshold float64, workers int) ([]model.Cluster, error) {
	sets := toSets(tokens)
	match := func(i int) []int {
		var out []int
		for j := i + 1; j < len(sets); j++ {
			if setSimilarity(sets[i], sets[j]) >= threshold {
				out = append(out, j)
			}
		}
		return out
	}
	return cluster(ctx, len(sets), workers, match)
}

// BuildClustersIndexed produces the same partition (and the same roots) as
// BuildClusters by scoring only pairs that share a token. With threshold <= 0
// every pair qualifies, so it falls back to the full scan.
func BuildClustersIndexed(ctx context.Context, tokens [][]string, threshold float64, workers int) ([]model.Cluster, error) {
	if threshold <= 0 {
		return BuildClusters(ctx, tokens, threshold, workers)
	}
	sets := toSets(tokens)
	idx := buildTokenIndex(sets)
	match := func(i int) []int {
		var out []int
		for _, j := range idx.candidates(i, sets[i]) {
			if setSimilarity(sets[i], sets[j]) >= threshold {
				out = append(out, j)
			}
		}
		return out
	}
	return cluster(ctx, len(sets), workers, match)
}

func toSets(tokens [][]string) []map[string]struct{} {
	sets := make([]map[string]struct{}, len(tokens))
	for i, t := range tokens {
		sets[i] = tokenSet(t)
	}
	return sets
}

// cluster scores rows (possibly in parallel), then applies unions on one
// goroutine in row order so the forest does not depend on scheduling.
func cluster(ctx context.Context, n, workers int, match func(i int) []int) ([]model.Cluster, error) {
	matches, err := scoreRows(ctx, n, workers, match)
	if err != nil {
		return nil, err
	}

	uf := NewUnionFind(n)
	for i, js := range matches {
		for _, j := range js {
			uf.Union(i, j)
		}
	}
	return groupClusters(uf), nil
}

func scoreRows(ctx context.Context, n, workers int, match func(i int) []int) ([][]int, error) {
	matches := make([][]int, n)
	if workers <= 1 || n < 2 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			matches[i] = match(i)
		}
		return matches, nil
	}
	if workers > n {
		workers = n
	}

	rows := make(chan int, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range rows {
				// each row owns its slot, no lock needed
				matches[i] = match(i)
			}
		}()
	}

	var err error
feed:
	for i := 0; i < n; i++ {
		if err = ctx.Err(); err != nil {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case rows <- i:
		}
	}
	close(rows)
	wg.Wait()
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// groupClusters maps each root to its members in input order; clusters are
// ordered by their first member.
func groupClusters(uf *UnionFind) []model.Cluster {
	pos := make(map[int]int)
	var out []model.Cluster
	for i := 0; i < uf.Len(); i++ {
		root := uf.Find(i)
		p, ok := pos[root]
		if !ok {
			p = len(out)
			pos[root] = p
			out = append(out, model.Cluster{Root: root})
		}
		out[p].Members = append(out[p].Members, i)
	}
	return out
}
