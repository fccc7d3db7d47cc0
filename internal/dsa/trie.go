// Package dsa provides the data structures behind the in-process
// retrieval index.
package dsa

import (
	"github.com/armon/go-radix"
)

// Trie wraps go-radix for a compressed prefix tree (radix tree).
// Composite keys such as "tenant:source" share their tenant prefix, so
// listing everything a tenant owns is one prefix walk.
//
// Time Complexity: O(k) where k is key length
type Trie[V any] struct {
	tree *radix.Tree
}

// NewTrie creates a new empty radix tree.
func NewTrie[V any]() *Trie[V] {
	return &Trie[V]{tree: radix.New()}
}

// Insert adds or replaces a key-value pair.
func (t *Trie[V]) Insert(key string, value V) {
	t.tree.Insert(key, value)
}

// Get looks up a key in the tree.
func (t *Trie[V]) Get(key string) (V, bool) {
	val, found := t.tree.Get(key)
	if !found {
		var zero V
		return zero, false
	}
	v, ok := val.(V)
	return v, ok
}

// Delete removes a key from the tree.
// Returns true if the key was found and deleted.
func (t *Trie[V]) Delete(key string) bool {
	_, deleted := t.tree.Delete(key)
	return deleted
}

// WalkPrefix calls fn for every entry whose key starts with prefix, in
// key order.
// Time Complexity: O(k + m) where k is prefix length, m is number of matches.
func (t *Trie[V]) WalkPrefix(prefix string, fn func(key string, value V)) {
	t.tree.WalkPrefix(prefix, func(k string, v interface{}) bool {
		if val, ok := v.(V); ok {
			fn(k, val)
		}
		return false // continue walking
	})
}

// Len returns the number of keys in the tree.
func (t *Trie[V]) Len() int {
	return t.tree.Len()
}
