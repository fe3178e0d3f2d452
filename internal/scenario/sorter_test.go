package scenario

import "testing"

// TestSorterMergesPairsInOrder exercises S3: inputs [3,1] and [4,2] through
// the two-sorter-then-merge network produce [1,2,3,4] in ascending order.
func TestSorterMergesPairsInOrder(t *testing.T) {
	result, err := RunSorter([2]int{3, 1}, [2]int{4, 2})
	if err != nil {
		t.Fatalf("RunSorter: %v", err)
	}

	want := [4]int{1, 2, 3, 4}
	if result.Sorted != want {
		t.Fatalf("RunSorter([3,1],[4,2]) = %v, want %v", result.Sorted, want)
	}
}
