// In-process retrieval index.
//
// Architecture:
// - Radix tree keyed by "tenant:source" for scoped lookups
// - Per-source suffix array over lowercased chunk text, rebuilt lazily
// - xxhash content hashes as chunk ids for deduplication

package retrieval

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/richinex/relay/internal/dsa"
)

// indexedSource holds the chunks of one source and its lazily built
// search structure.
type indexedSource struct {
	id     string
	chunks []Chunk
	hashes map[string]bool

	searchIndex *dsa.SuffixArray
	spans       []span // chunk boundaries in searchIndex.Text
	dirty       bool
}

// span maps suffix array positions back to chunks.
type span struct {
	start, end int
}

// Index is a lexical Searcher over text ingested in process. Similarity
// is the fraction of distinct query terms a chunk contains. Sources added
// with an empty tenant are visible to every tenant.
// Thread-safe.
type Index struct {
	mu      sync.RWMutex
	sources *dsa.Trie[*indexedSource]
}

var _ Searcher = (*Index)(nil)

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{sources: dsa.NewTrie[*indexedSource]()}
}

func sourceKey(tenantID, sourceID string) string {
	return tenantID + ":" + sourceID
}

// Add splits content into paragraphs and appends them to the source.
// Paragraphs already present in the source are skipped. Returns the
// number of chunks added.
func (x *Index) Add(tenantID, sourceID, content string) int {
	x.mu.Lock()
	defer x.mu.Unlock()

	key := sourceKey(tenantID, sourceID)
	src, ok := x.sources.Get(key)
	if !ok {
		src = &indexedSource{id: sourceID, hashes: make(map[string]bool)}
		x.sources.Insert(key, src)
	}

	added := 0
	for _, para := range splitParagraphs(content) {
		hash := contentHash(para)
		if src.hashes[hash] {
			continue
		}
		src.hashes[hash] = true
		src.chunks = append(src.chunks, Chunk{
			ID:       hash,
			Content:  para,
			Position: len(src.chunks),
			SourceID: sourceID,
		})
		added++
	}
	if added > 0 {
		src.dirty = true
	}
	return added
}

// AddPath loads a file, or every regular file under a directory, into
// the source.
func (x *Index) AddPath(tenantID, sourceID, path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("source %s: %w", sourceID, err)
	}
	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("source %s: %w", sourceID, err)
		}
		return x.Add(tenantID, sourceID, string(data)), nil
	}

	total := 0
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		total += x.Add(tenantID, sourceID, string(data))
		return nil
	})
	if err != nil {
		return total, fmt.Errorf("source %s: %w", sourceID, err)
	}
	return total, nil
}

// Remove drops a source. Returns false if it was not indexed.
func (x *Index) Remove(tenantID, sourceID string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.sources.Delete(sourceKey(tenantID, sourceID))
}

// Sources lists the source ids visible to tenantID.
func (x *Index) Sources(tenantID string) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()

	seen := make(map[string]bool)
	var ids []string
	for _, src := range x.visible(tenantID, nil) {
		if !seen[src.id] {
			seen[src.id] = true
			ids = append(ids, src.id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Search implements Searcher. Results meet opts.Threshold, are ordered
// by descending similarity then source and position, and are capped at
// opts.TopK when positive.
func (x *Index) Search(ctx context.Context, query string, opts Options) ([]Chunk, error) {
	terms := queryTerms(query)
	if len(terms) == 0 {
		return []Chunk{}, nil
	}

	x.mu.Lock()
	sources := x.visible(opts.TenantID, opts.SourceIDs)
	for _, src := range sources {
		if src.dirty || src.searchIndex == nil {
			src.rebuild()
		}
	}
	x.mu.Unlock()

	x.mu.RLock()
	defer x.mu.RUnlock()

	var out []Chunk
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, src.score(terms, opts.Threshold)...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		if out[i].SourceID != out[j].SourceID {
			return out[i].SourceID < out[j].SourceID
		}
		return out[i].Position < out[j].Position
	})
	if opts.TopK > 0 && len(out) > opts.TopK {
		out = out[:opts.TopK]
	}
	if out == nil {
		out = []Chunk{}
	}
	return out, nil
}

// visible returns the tenant's sources plus the shared ones, restricted
// to ids when non-empty. Caller holds the lock.
func (x *Index) visible(tenantID string, ids []string) []*indexedSource {
	var out []*indexedSource
	collect := func(prefix string) {
		if len(ids) == 0 {
			x.sources.WalkPrefix(prefix, func(_ string, src *indexedSource) {
				out = append(out, src)
			})
			return
		}
		for _, id := range ids {
			if src, ok := x.sources.Get(prefix + id); ok {
				out = append(out, src)
			}
		}
	}

	collect(sourceKey(tenantID, ""))
	if tenantID != "" {
		collect(sourceKey("", ""))
	}
	return out
}

// rebuild concatenates the lowercased chunks and indexes them. Caller
// holds the write lock.
func (s *indexedSource) rebuild() {
	var b strings.Builder
	s.spans = s.spans[:0]
	for _, c := range s.chunks {
		start := b.Len()
		b.WriteString(strings.ToLower(c.Content))
		s.spans = append(s.spans, span{start: start, end: b.Len()})
		b.WriteByte(0) // no match crosses a chunk boundary
	}
	s.searchIndex = dsa.BuildSuffixArray(b.String())
	s.dirty = false
}

// score returns the chunks whose term coverage meets threshold.
func (s *indexedSource) score(terms []string, threshold float64) []Chunk {
	hits := make([]int, len(s.chunks))
	for _, term := range terms {
		matched := make(map[int]bool)
		for _, pos := range s.searchIndex.Search(term) {
			i := s.chunkAt(pos)
			if i >= 0 && !matched[i] {
				matched[i] = true
				hits[i]++
			}
		}
	}

	var out []Chunk
	for i, n := range hits {
		if n == 0 {
			continue
		}
		sim := float64(n) / float64(len(terms))
		if sim < threshold {
			continue
		}
		c := s.chunks[i]
		c.Similarity = sim
		out = append(out, c)
	}
	return out
}

// chunkAt finds the chunk containing pos by binary search over spans.
func (s *indexedSource) chunkAt(pos int) int {
	i := sort.Search(len(s.spans), func(i int) bool { return s.spans[i].end > pos })
	if i < len(s.spans) && pos >= s.spans[i].start {
		return i
	}
	return -1
}

// queryTerms lowercases the query and returns its distinct words.
func queryTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			terms = append(terms, f)
		}
	}
	return terms
}

// splitParagraphs splits text on blank lines and trims each paragraph.
func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, para := range strings.Split(text, "\n\n") {
		if p := strings.TrimSpace(para); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// contentHash computes a content hash for deduplication.
// Uses xxHash64, a fast non-cryptographic hash.
func contentHash(content string) string {
	h := xxhash.Sum64String(content)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], h)
	return hex.EncodeToString(buf[:])
}
