package dsa

import (
	"reflect"
	"strings"
	"testing"
)

func TestSuffixArraySearch(t *testing.T) {
	sa := BuildSuffixArray("banana bandana")

	tests := []struct {
		pattern string
		want    []int
	}{
		{"ana", []int{1, 3, 11}},
		{"ban", []int{0, 7}},
		{"a", []int{1, 3, 5, 8, 11, 13}},
		{"bandana", []int{7}},
		{"bandanas", []int{}},
		{"x", []int{}},
		{"", []int{}},
	}
	for _, tt := range tests {
		got := sa.Search(tt.pattern)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Search(%q) = %v, want %v", tt.pattern, got, tt.want)
		}
	}
}

func TestSuffixArrayMatchesNaive(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog; the end"
	sa := BuildSuffixArray(text)
	for _, pattern := range []string{"the", "e", "o", "fox", "dog;", "t", "he l", "zz"} {
		var want []int
		for i := 0; i+len(pattern) <= len(text); i++ {
			if strings.HasPrefix(text[i:], pattern) {
				want = append(want, i)
			}
		}
		got := sa.Search(pattern)
		if len(got) != len(want) {
			t.Fatalf("Search(%q) = %v, want %v", pattern, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("Search(%q) = %v, want %v", pattern, got, want)
			}
		}
		if sa.Contains(pattern) != (len(want) > 0) {
			t.Errorf("Contains(%q) disagrees with Search", pattern)
		}
	}
}

func TestSuffixArrayEmpty(t *testing.T) {
	sa := BuildSuffixArray("")
	if sa.Contains("a") {
		t.Error("empty text should not contain anything")
	}
}

func TestTriePrefixWalk(t *testing.T) {
	trie := NewTrie[int]()
	trie.Insert("acme:faq", 1)
	trie.Insert("acme:docs", 2)
	trie.Insert("globex:faq", 3)
	trie.Insert("acme:faq", 4)

	if trie.Len() != 3 {
		t.Fatalf("expected 3 keys, got %d", trie.Len())
	}
	if v, ok := trie.Get("acme:faq"); !ok || v != 4 {
		t.Errorf("Get(acme:faq) = %d, %v", v, ok)
	}

	var keys []string
	trie.WalkPrefix("acme:", func(k string, _ int) { keys = append(keys, k) })
	if !reflect.DeepEqual(keys, []string{"acme:docs", "acme:faq"}) {
		t.Errorf("WalkPrefix = %v", keys)
	}

	if !trie.Delete("acme:docs") || trie.Delete("acme:docs") {
		t.Error("Delete should succeed once")
	}
	if _, ok := trie.Get("acme:docs"); ok {
		t.Error("deleted key still present")
	}
}
