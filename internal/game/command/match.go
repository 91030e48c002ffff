package command

// Distance computes the Damerau-Levenshtein edit distance between a and b:
// the minimum number of insertions, deletions, substitutions, and adjacent
// transpositions transforming one into the other.
func Distance(a, b string) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev2 := make([]int, lb+1)
	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		cur[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			d := min3(cur[j-1]+1, prev[j]+1, prev[j-1]+cost)
			if i > 1 && j > 1 && a[i-1] == b[j-2] && a[i-2] == b[j-1] {
				if t := prev2[j-2] + 1; t < d {
					d = t
				}
			}
			cur[j] = d
		}
		prev2, prev, cur = prev, cur, prev2
	}
	return prev[lb]
}

// maxAcceptedDistance is the length-scaled acceptance threshold for a
// closest-verb hint.
func maxAcceptedDistance(word string) int {
	switch n := len(word); {
	case n <= 3:
		return 1
	case n <= 6:
		return 2
	default:
		return 3
	}
}

// Closest returns the candidate nearest to word, if within the acceptance
// threshold for word's length. Ties resolve to the candidate occurring
// first in the given order, so a sorted candidate list makes the result
// deterministic.
func Closest(word string, candidates []string) (string, bool) {
	best := ""
	bestDist := maxAcceptedDistance(word) + 1
	for _, c := range candidates {
		if d := Distance(word, c); d < bestDist {
			best = c
			bestDist = d
		}
	}
	return best, best != ""
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
