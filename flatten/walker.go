// Package flatten turns an asset.Document into compact render-ready arrays:
// flat node indices, composed world transforms (static or sampled per frame),
// skin/skeleton bindings, per-semantic resolved materials, shared vertex and
// index byte pools, and an instanced-draw grouping.
package flatten

import (
	"fmt"

	"github.com/kumoshiro/scenepack/asset"
)

// Visit is called once per node in pre-order. index is the node's dense flat
// index and parent the index of its parent, -1 for roots. A non-nil error
// aborts the walk.
type Visit func(n *asset.Node, index, parent int) error

type walkEntry struct {
	node   *asset.Node
	parent int
}

// Walk performs pre-order depth-first traversal over a forest, assigning
// dense indices starting at 0. A node's index is assigned before any of its
// descendants are visited and children are visited in stored order. A node
// reachable twice means the graph has a cycle (or diamond sharing), which is
// fatal since index assignment assumes a tree.
func Walk(roots []*asset.Node, visit Visit) error {
	// explicit stack: bounds stack usage on deep hierarchies and keeps the
	// cycle guard in one place
	stack := make([]walkEntry, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		if roots[i] != nil {
			stack = append(stack, walkEntry{roots[i], -1})
		}
	}
	seen := map[*asset.Node]bool{}
	next := 0
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[e.node] {
			return fmt.Errorf("node %q reachable twice: scene graph is not a tree", e.node.Path)
		}
		seen[e.node] = true
		index := next
		next++
		if err := visit(e.node, index, e.parent); err != nil {
			return err
		}
		for i := len(e.node.Children) - 1; i >= 0; i-- {
			if e.node.Children[i] != nil {
				stack = append(stack, walkEntry{e.node.Children[i], index})
			}
		}
	}
	return nil
}

// WalkSubroot re-zeros the index space and walks a single subtree. Used for
// per-skeleton joint enumeration; joint indices must never be mixed with
// whole-scene indices.
func WalkSubroot(root *asset.Node, visit Visit) error {
	if root == nil {
		return nil
	}
	return Walk([]*asset.Node{root}, visit)
}

// WalkMasters traverses the instancing master sub-hierarchies. Masters are
// identified by pointer, not by flat index, so no indices are assigned.
func WalkMasters(masters []*asset.Node, visit func(n *asset.Node) error) error {
	return Walk(masters, func(n *asset.Node, _, _ int) error {
		return visit(n)
	})
}
