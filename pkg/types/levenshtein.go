package types

// distance computes the Levenshtein edit distance between a and b.
func distance(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := cur[j-1] + 1
			sub := prev[j-1] + cost
			cur[j] = min3(del, ins, sub)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// suggest returns the candidate closest to target within maxDist edits, if
// any exists, for "did you mean" diagnostics.
func suggest(target string, candidates []string, maxDist int) (string, bool) {
	best := ""
	bestDist := maxDist + 1
	for _, c := range candidates {
		d := distance(target, c)
		if d < bestDist {
			bestDist = d
			best = c
		}
	}
	if bestDist > maxDist {
		return "", false
	}
	return best, true
}
