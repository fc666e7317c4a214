// Package pattern implements the "k1+k2+...+kn" distribution-pattern
// format and the extractor that reads a pattern back out of realised
// timetable entries.
package pattern

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/slymn80/timetables/internal/domain"
)

// Parse turns a "k1+k2+...+kn" string into its block sizes, descending.
// Returns domain.ErrUnparseablePattern for anything that isn't a run of
// positive integers joined by "+".
func Parse(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty pattern", domain.ErrUnparseablePattern)
	}

	parts := strings.Split(s, "+")
	blocks := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnparseablePattern, s)
		}
		blocks = append(blocks, n)
	}

	sort.Sort(sort.Reverse(sort.IntSlice(blocks)))
	return blocks, nil
}

// Format renders block sizes as the canonical descending "k1+k2+...+kn"
// string.
func Format(blocks []int) string {
	sorted := make([]int, len(blocks))
	copy(sorted, blocks)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	parts := make([]string, len(sorted))
	for i, n := range sorted {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, "+")
}

// Sum returns the total hours a set of blocks accounts for.
func Sum(blocks []int) int {
	total := 0
	for _, n := range blocks {
		total += n
	}
	return total
}

// ValidateForHours checks that a parsed pattern's blocks sum to the
// lesson's weekly hour count. Positivity of each block is already
// guaranteed by Parse; this adds the sum check that needs lesson context.
func ValidateForHours(blocks []int, hoursPerWeek int) error {
	if Sum(blocks) != hoursPerWeek {
		return fmt.Errorf("%w: blocks sum to %d, want %d", domain.ErrUnparseablePattern, Sum(blocks), hoursPerWeek)
	}
	return nil
}
