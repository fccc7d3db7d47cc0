package dsa

import (
	"sort"
	"strings"
)

// SuffixArray indexes every suffix of a text for substring search.
// Enables O(m log n) pattern search where m is pattern length, n is text length.
type SuffixArray struct {
	Text string // Original text
	SA   []int  // Suffix array: SA[i] = start position of i-th smallest suffix
	Rank []int  // Inverse suffix array: Rank[i] = position of suffix i in SA
}

// BuildSuffixArray constructs a suffix array for the given text.
// Uses prefix doubling algorithm.
// Time Complexity: O(n log n)
// Space Complexity: O(n)
func BuildSuffixArray(text string) *SuffixArray {
	n := len(text)
	if n == 0 {
		return &SuffixArray{Text: text, SA: []int{}, Rank: []int{}}
	}

	sa := &SuffixArray{
		Text: text,
		SA:   make([]int, n),
		Rank: make([]int, n),
	}

	// Initialize suffix array with all positions
	for i := 0; i < n; i++ {
		sa.SA[i] = i
		sa.Rank[i] = int(text[i])
	}

	// Prefix doubling algorithm
	tmpRank := make([]int, n)
	for k := 1; k < n; k *= 2 {
		// Sort by (rank[i], rank[i+k]) pairs
		sort.Slice(sa.SA, func(i, j int) bool {
			if sa.Rank[sa.SA[i]] != sa.Rank[sa.SA[j]] {
				return sa.Rank[sa.SA[i]] < sa.Rank[sa.SA[j]]
			}
			ri := -1
			if sa.SA[i]+k < n {
				ri = sa.Rank[sa.SA[i]+k]
			}
			rj := -1
			if sa.SA[j]+k < n {
				rj = sa.Rank[sa.SA[j]+k]
			}
			return ri < rj
		})

		// Compute new ranks
		tmpRank[sa.SA[0]] = 0
		for i := 1; i < n; i++ {
			tmpRank[sa.SA[i]] = tmpRank[sa.SA[i-1]]

			prev, curr := sa.SA[i-1], sa.SA[i]
			if sa.Rank[prev] != sa.Rank[curr] {
				tmpRank[sa.SA[i]]++
			} else {
				rPrev := -1
				if prev+k < n {
					rPrev = sa.Rank[prev+k]
				}
				rCurr := -1
				if curr+k < n {
					rCurr = sa.Rank[curr+k]
				}
				if rPrev != rCurr {
					tmpRank[sa.SA[i]]++
				}
			}
		}

		copy(sa.Rank, tmpRank)

		// Early termination if all suffixes have unique ranks
		if sa.Rank[sa.SA[n-1]] == n-1 {
			break
		}
	}

	return sa
}

// Search finds all occurrences of pattern in text using binary search.
// Time Complexity: O(m log n) where m = len(pattern), n = len(text)
func (sa *SuffixArray) Search(pattern string) []int {
	if len(pattern) == 0 || len(sa.SA) == 0 {
		return []int{}
	}

	n := len(sa.SA)

	// Suffixes starting with pattern form one contiguous run of SA.
	left := sort.Search(n, func(i int) bool {
		return sa.Text[sa.SA[i]:] >= pattern
	})
	right := left + sort.Search(n-left, func(i int) bool {
		return !strings.HasPrefix(sa.Text[sa.SA[left+i]:], pattern)
	})

	matches := make([]int, 0, right-left)
	for i := left; i < right; i++ {
		matches = append(matches, sa.SA[i])
	}

	sort.Ints(matches)
	return matches
}

// Contains reports whether pattern occurs anywhere in the text.
func (sa *SuffixArray) Contains(pattern string) bool {
	return len(sa.Search(pattern)) > 0
}
