package tree

// maxDiffCells bounds the size of the LCS table. Larger diffs give up on
// matching and replace the whole range.
const maxDiffCells = 1 << 22

// diffChange is a hunk: originalLength items at originalStart are replaced
// by modifiedLength items at modifiedStart.
type diffChange struct {
	originalStart  int
	originalLength int
	modifiedStart  int
	modifiedLength int
}

// diffMatch pairs an index in the original sequence with the index of the
// identical key in the modified sequence.
type diffMatch struct {
	original int
	modified int
}

// lcsDiff computes a longest common subsequence between two key sequences
// and returns the matched pairs in ascending order together with the
// change hunks between them. ok is false when the sequences were too large
// to diff.
func lcsDiff(original, modified []any) (matches []diffMatch, changes []diffChange, ok bool) {
	n, m := len(original), len(modified)

	prefix := 0
	for prefix < n && prefix < m && original[prefix] == modified[prefix] {
		matches = append(matches, diffMatch{prefix, prefix})
		prefix++
	}

	suffix := 0
	for suffix < n-prefix && suffix < m-prefix && original[n-1-suffix] == modified[m-1-suffix] {
		suffix++
	}

	a := original[prefix : n-suffix]
	b := modified[prefix : m-suffix]
	if len(a)*len(b) > maxDiffCells {
		return nil, []diffChange{{0, n, 0, m}}, false
	}

	// table[i][j] is the LCS length of a[i:] and b[j:]
	table := make([][]int, len(a)+1)
	for i := range table {
		table[i] = make([]int, len(b)+1)
	}
	for i := len(a) - 1; i >= 0; i-- {
		for j := len(b) - 1; j >= 0; j-- {
			if a[i] == b[j] {
				table[i][j] = table[i+1][j+1] + 1
			} else if table[i+1][j] >= table[i][j+1] {
				table[i][j] = table[i+1][j]
			} else {
				table[i][j] = table[i][j+1]
			}
		}
	}

	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i] == b[j]:
			matches = append(matches, diffMatch{prefix + i, prefix + j})
			i++
			j++
		case table[i+1][j] >= table[i][j+1]:
			i++
		default:
			j++
		}
	}

	for k := 0; k < suffix; k++ {
		matches = append(matches, diffMatch{n - suffix + k, m - suffix + k})
	}

	return matches, changesBetween(matches, n, m), true
}

// changesBetween turns ascending matches into the hunks that separate them.
func changesBetween(matches []diffMatch, n, m int) []diffChange {
	var changes []diffChange
	o, d := 0, 0
	for _, match := range append(matches, diffMatch{n, m}) {
		if match.original > o || match.modified > d {
			changes = append(changes, diffChange{
				originalStart:  o,
				originalLength: match.original - o,
				modifiedStart:  d,
				modifiedLength: match.modified - d,
			})
		}
		o, d = match.original+1, match.modified+1
	}
	return changes
}
