package scan

import (
	"slices"
	"unicode"
	"unicode/utf8"

	"repoassess/internal/types"
)

// CompareOrdinalIgnoreCase orders strings rune by rune after upper-casing each
// rune. Strings that are equal ignoring case fall back to a plain byte
// comparison so the order stays total.
func CompareOrdinalIgnoreCase(a, b string) int {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ra, na := utf8.DecodeRuneInString(a[i:])
		rb, nb := utf8.DecodeRuneInString(b[j:])
		ua, ub := unicode.ToUpper(ra), unicode.ToUpper(rb)
		if ua != ub {
			if ua < ub {
				return -1
			}
			return 1
		}
		i += na
		j += nb
	}
	switch {
	case len(a)-i < len(b)-j:
		return -1
	case len(a)-i > len(b)-j:
		return 1
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// SortFiles orders files ascending by relative path (ordinal, case-insensitive).
func SortFiles(files []types.ScannedFile) {
	slices.SortFunc(files, func(x, y types.ScannedFile) int {
		return CompareOrdinalIgnoreCase(x.RelativePath, y.RelativePath)
	})
}

// SortPaths orders paths the same way SortFiles orders files.
func SortPaths(paths []string) {
	slices.SortFunc(paths, CompareOrdinalIgnoreCase)
}
