package resolver

// Similarity scores how alike two strings are, in [0, 1].
// Kept as an interface so the algorithm and threshold can be swapped
// without touching the resolver.
type Similarity interface {
	Ratio(a, b string) float64
}

// SequenceRatio scores two strings by the total length of their longest
// common matching blocks: 2*M/T where M is the number of matched
// characters and T the combined length.
type SequenceRatio struct{}

func (SequenceRatio) Ratio(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra)+len(rb) == 0 {
		return 1
	}
	matched := matchTotal(ra, rb)
	return 2 * float64(matched) / float64(len(ra)+len(rb))
}

// matchTotal sums matching-block lengths by recursing around the longest
// common block, the way sequence-diff ratios are defined.
func matchTotal(a, b []rune) int {
	ai, bi, n := longestBlock(a, b)
	if n == 0 {
		return 0
	}
	return n + matchTotal(a[:ai], b[:bi]) + matchTotal(a[ai+n:], b[bi+n:])
}

func longestBlock(a, b []rune) (bestA, bestB, bestN int) {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := range a {
		for j := range b {
			if a[i] == b[j] {
				cur[j+1] = prev[j] + 1
				if cur[j+1] > bestN {
					bestN = cur[j+1]
					bestA = i + 1 - bestN
					bestB = j + 1 - bestN
				}
			} else {
				cur[j+1] = 0
			}
		}
		prev, cur = cur, prev
		for k := range cur {
			cur[k] = 0
		}
	}
	return bestA, bestB, bestN
}
