// Package dedup collapses duplicate feedback drawn from overlapping sources and queries.
package dedup

import "FeedbackScanner/internal/domain"

// DefaultThreshold is the shingle Jaccard similarity at which two texts are
// treated as the same post.
const DefaultThreshold = 0.8

// Deduplicator keeps one representative per duplicate group.
type Deduplicator struct {
	threshold float64
}

// New builds a deduplicator; thresholds outside (0, 1] fall back to DefaultThreshold.
func New(threshold float64) *Deduplicator {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Deduplicator{threshold: threshold}
}

// Threshold returns the similarity threshold in use.
func (d *Deduplicator) Threshold() float64 {
	return d.threshold
}

// Deduplicate returns at most one item per duplicate group, in input order.
// Two items are duplicates when they share (source, sourceId) or their
// normalized content is similar; groups are closed transitively. Groups that
// touch any of the known items are dropped entirely. The representative is
// the item with the highest engagement score, then the earliest fetchedAt,
// then the earliest input position.
func (d *Deduplicator) Deduplicate(items, known []domain.FeedbackItem) []domain.FeedbackItem {
	if len(items) == 0 {
		return []domain.FeedbackItem{}
	}

	// Nodes 0..len(items)-1 are inputs, the rest are known items.
	all := make([]domain.FeedbackItem, 0, len(items)+len(known))
	all = append(all, items...)
	all = append(all, known...)

	fps := make([]Fingerprint, len(all))
	for i := range all {
		fps[i] = NewFingerprint(all[i].Content)
	}

	sets := newUnionFind(len(all))
	byKey := make(map[string]int, len(all))
	for i := range all {
		key := all[i].Key()
		if first, ok := byKey[key]; ok {
			sets.union(first, i)
			continue
		}
		byKey[key] = i
	}

	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(all); j++ {
			if sets.find(i) == sets.find(j) {
				continue
			}
			if Similar(fps[i], fps[j], d.threshold) {
				sets.union(i, j)
			}
		}
	}

	knownRoots := make(map[int]struct{}, len(known))
	for j := len(items); j < len(all); j++ {
		knownRoots[sets.find(j)] = struct{}{}
	}

	best := make(map[int]int, len(items))
	for i := range items {
		root := sets.find(i)
		if _, isKnown := knownRoots[root]; isKnown {
			continue
		}
		cur, ok := best[root]
		if !ok || better(items[i], items[cur]) {
			best[root] = i
		}
	}

	out := make([]domain.FeedbackItem, 0, len(best))
	for i := range items {
		if rep, ok := best[sets.find(i)]; ok && rep == i {
			out = append(out, items[i])
		}
	}
	return out
}

// better reports whether a should represent its group instead of b.
// Ties on both keys keep b, the earlier input.
func better(a, b domain.FeedbackItem) bool {
	if a.EngagementScore != b.EngagementScore {
		return a.EngagementScore > b.EngagementScore
	}
	return a.FetchedAt.Before(b.FetchedAt)
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

// union keeps the smaller index as root so roots do not depend on call order.
func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}
