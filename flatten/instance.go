package flatten

import "sort"

// CompactInstances groups mesh-instancing nodes for instanced draw calls.
// meshIndexPerNode holds, for each scene mesh node in traversal order, the
// index of the mesh record it instances. The returned permutation is a
// stable sort of 0..n-1 by mesh index (ties keep traversal order, so output
// is deterministic), and instanceCounts[m] is the number of nodes sharing
// mesh m, sized max(meshIndexPerNode)+1.
func CompactInstances(meshIndexPerNode []int) (permutation []int, instanceCounts []int) {
	if len(meshIndexPerNode) == 0 {
		return nil, nil
	}
	permutation = make([]int, len(meshIndexPerNode))
	for i := range permutation {
		permutation[i] = i
	}
	sort.SliceStable(permutation, func(a, b int) bool {
		return meshIndexPerNode[permutation[a]] < meshIndexPerNode[permutation[b]]
	})

	max := 0
	for _, m := range meshIndexPerNode {
		if m > max {
			max = m
		}
	}
	instanceCounts = make([]int, max+1)
	for _, m := range meshIndexPerNode {
		instanceCounts[m]++
	}
	return permutation, instanceCounts
}
