package flatten

import "testing"

func TestCompactInstances(t *testing.T) {
	perm, counts := CompactInstances([]int{2, 0, 2, 1, 0})

	wantPerm := []int{1, 4, 3, 0, 2} // grouped by mesh, ties keep traversal order
	wantCounts := []int{2, 1, 2}
	if len(perm) != len(wantPerm) {
		t.Fatalf("permutation length %d, want %d", len(perm), len(wantPerm))
	}
	for i := range wantPerm {
		if perm[i] != wantPerm[i] {
			t.Errorf("perm[%d] = %d, want %d", i, perm[i], wantPerm[i])
		}
	}
	if len(counts) != len(wantCounts) {
		t.Fatalf("counts length %d, want %d", len(counts), len(wantCounts))
	}
	for i := range wantCounts {
		if counts[i] != wantCounts[i] {
			t.Errorf("counts[%d] = %d, want %d", i, counts[i], wantCounts[i])
		}
	}
}

func TestCompactInstancesSparse(t *testing.T) {
	// unused mesh slots still get a zero count
	_, counts := CompactInstances([]int{3, 3})
	want := []int{0, 0, 0, 2}
	if len(counts) != len(want) {
		t.Fatalf("counts length %d, want %d", len(counts), len(want))
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("counts[%d] = %d, want %d", i, counts[i], want[i])
		}
	}
}

func TestCompactInstancesEmpty(t *testing.T) {
	perm, counts := CompactInstances(nil)
	if perm != nil || counts != nil {
		t.Errorf("empty input: perm %v counts %v, want nil nil", perm, counts)
	}
}
