// Package rpt builds forests of random projection trees. Trees are stored as
// flat arrays indexed by node id; children are always numbered before their
// parent, so the root is the last node.
package rpt

import (
	"math/rand"

	"github.com/bits-and-blooms/bitset"
	"github.com/patrikhermansson/rann/core"
)

// epsilon is the float32 machine epsilon. Margins below it are ties.
const epsilon = 1.1920929e-07

// Children holds the ids of the two subtrees of an internal node.
// Both are -1 at leaves.
type Children struct {
	Left, Right int
}

// Tree is a random projection tree in arena form. For node i exactly one of
// Children[i] (internal) or Indices[i] (leaf) is meaningful.
type Tree struct {
	Hyperplanes [][]float32 // splitting hyperplane per node, nil at leaves
	Offsets     []float32   // hyperplane offset per node, -Inf at leaves
	Children    []Children  // subtree ids per node, {-1, -1} at leaves
	Indices     [][]int     // point indices per node, nil at internal nodes
	LeafSize    int         // size of the largest leaf
	NumLeaves   int         // number of leaves
}

// NumNodes returns the number of nodes in the tree.
func (t *Tree) NumNodes() int { return len(t.Children) }

// Root returns the id of the root node.
func (t *Tree) Root() int { return len(t.Children) - 1 }

// IsLeaf reports whether node is a leaf.
func (t *Tree) IsLeaf(node int) bool { return t.Children[node].Left < 0 }

// Leaves returns the point indices of every leaf in node order.
func (t *Tree) Leaves() [][]int {
	leaves := make([][]int, 0, t.NumLeaves)
	for node := range t.Children {
		if t.IsLeaf(node) {
			leaves = append(leaves, t.Indices[node])
		}
	}
	return leaves
}

// treeBuilder accumulates the arena of a single tree.
type treeBuilder struct {
	data    [][]float32
	ops     core.SpatialOps
	angular bool
	leaf    int
	rnd     *rand.Rand
	tree    *Tree
}

// MakeTree builds a single tree over all points in data.
func MakeTree(data [][]float32, ops core.SpatialOps, cfg ForestConfig, rnd *rand.Rand) *Tree {
	cfg = cfg.withDefaults()
	b := &treeBuilder{
		data:    data,
		ops:     ops,
		angular: cfg.Angular,
		leaf:    cfg.LeafSize,
		rnd:     rnd,
		tree:    &Tree{},
	}
	indices := make([]int, len(data))
	for i := range indices {
		indices[i] = i
	}
	b.build(indices, cfg.MaxDepth)
	return b.tree
}

// build adds the subtree for indices and returns its node id.
func (b *treeBuilder) build(indices []int, depth int) int {
	if len(indices) <= b.leaf || depth <= 0 {
		return b.addLeaf(indices)
	}
	left, right, hyperplane, offset := b.split(indices)
	leftID := b.build(left, depth-1)
	rightID := b.build(right, depth-1)
	return b.addNode(hyperplane, offset, leftID, rightID)
}

func (b *treeBuilder) addLeaf(indices []int) int {
	t := b.tree
	t.Hyperplanes = append(t.Hyperplanes, nil)
	t.Offsets = append(t.Offsets, negInf)
	t.Children = append(t.Children, Children{Left: -1, Right: -1})
	t.Indices = append(t.Indices, append(make([]int, 0, len(indices)), indices...))
	t.NumLeaves++
	if len(indices) > t.LeafSize {
		t.LeafSize = len(indices)
	}
	return len(t.Children) - 1
}

func (b *treeBuilder) addNode(hyperplane []float32, offset float32, left, right int) int {
	t := b.tree
	t.Hyperplanes = append(t.Hyperplanes, hyperplane)
	t.Offsets = append(t.Offsets, offset)
	t.Children = append(t.Children, Children{Left: left, Right: right})
	t.Indices = append(t.Indices, nil)
	return len(t.Children) - 1
}

// split partitions indices by a hyperplane through two randomly chosen members.
// Members lying on the hyperplane go to a random side. If one side ends up
// empty, every member is reassigned by a fair coin flip, and a single random
// member is moved when the flips still leave a side empty.
func (b *treeBuilder) split(indices []int) ([]int, []int, []float32, float32) {
	n := len(indices)
	l := b.rnd.Intn(n)
	r := b.rnd.Intn(n)
	if r == l {
		r = (r + 1) % n
	}
	a, c := b.data[indices[l]], b.data[indices[r]]

	var hyperplane []float32
	var offset float32
	if b.angular {
		hyperplane = b.ops.AngularHyperplane(a, c)
	} else {
		hyperplane, offset = b.ops.EuclideanHyperplane(a, c)
	}

	// A set bit sends the member right.
	side := bitset.New(uint(n))
	for i, idx := range indices {
		margin := offset + b.ops.Dot(hyperplane, b.data[idx])
		switch {
		case margin > -epsilon && margin < epsilon:
			if b.rnd.Intn(2) == 1 {
				side.Set(uint(i))
			}
		case margin < 0:
			side.Set(uint(i))
		}
	}

	nRight := int(side.Count())
	if nRight == 0 || nRight == n {
		side.ClearAll()
		for i := 0; i < n; i++ {
			if b.rnd.Intn(2) == 1 {
				side.Set(uint(i))
			}
		}
		nRight = int(side.Count())
	}
	// Both sides must stay non-empty for n >= 2.
	switch nRight {
	case 0:
		side.Set(uint(b.rnd.Intn(n)))
		nRight = 1
	case n:
		side.Clear(uint(b.rnd.Intn(n)))
		nRight = n - 1
	}

	left := make([]int, 0, n-nRight)
	right := make([]int, 0, nRight)
	for i, idx := range indices {
		if side.Test(uint(i)) {
			right = append(right, idx)
		} else {
			left = append(left, idx)
		}
	}
	return left, right, hyperplane, offset
}

// SearchLeaf descends from the root following the side of each hyperplane the
// query falls on and returns the indices of the leaf it reaches. Queries on a
// hyperplane go left.
func (t *Tree) SearchLeaf(ops core.SpatialOps, query []float32) []int {
	if len(t.Children) == 0 {
		return nil
	}
	node := t.Root()
	for !t.IsLeaf(node) {
		margin := t.Offsets[node] + ops.Dot(t.Hyperplanes[node], query)
		if margin >= 0 {
			node = t.Children[node].Left
		} else {
			node = t.Children[node].Right
		}
	}
	return t.Indices[node]
}
