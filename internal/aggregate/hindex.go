package aggregate

// HIndex computes the h-index of a citation count list: the largest h such
// that at least h of the publications have at least h citations each. Ties
// resolve to the maximum valid h.
//
// Counts are bucketed into n+1 bins with everything >= n collapsed into the
// top bin (a value above n cannot raise the index beyond n); the bins are
// then scanned from the top, accumulating a running publication count, and
// the first bin index i with running count >= i is the h-index.
func HIndex(citations []int) int {
	n := len(citations)
	counts := make([]int, n+1)
	for _, c := range citations {
		switch {
		case c >= n:
			counts[n]++
		case c <= 0:
			counts[0]++
		default:
			counts[c]++
		}
	}

	running := 0
	for i := n; i >= 0; i-- {
		running += counts[i]
		if running >= i {
			return i
		}
	}
	return 0
}
