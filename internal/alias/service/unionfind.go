package service

// UnionFind is a disjoint-set forest over record indices, scoped to one run.
type UnionFind struct {
	parent []int
}

func NewUnionFind(n int) *UnionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &UnionFind{parent: p}
}

// Find returns the root of a and compresses the path behind it.
func (u *UnionFind) Find(a int) int {
	root := a
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[a] != root {
		next := u.parent[a]
		u.parent[a] = root
		a = next
	}
	return root
}

// Union attaches b's root under a's root.
func (u *UnionFind) Union(a, b int) {
	pa, pb := u.Find(a), u.Find(b)
	if pa != pb {
		u.parent[pb] = pa
	}
}

func (u *UnionFind) Len() int { return len(u.parent) }
