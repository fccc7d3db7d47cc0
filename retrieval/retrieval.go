// Package retrieval defines the search collaborator consumed by retrieval
// tools, the result formatting, and an in-process Index for deployments
// without a vector store.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Default search limits for a source that leaves them unset.
const (
	DefaultTopK      = 5
	DefaultThreshold = 0.7
)

// Chunk is one ranked search hit.
type Chunk struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"` // in [0,1]
	Position   int     `json:"position"`
	SourceID   string  `json:"sourceId"`
}

// Options scopes a search.
type Options struct {
	SourceIDs      []string
	TopK           int
	Threshold      float64
	EmbeddingModel string
	TenantID       string
}

// Searcher runs a semantic search. Results are ordered by descending
// similarity.
type Searcher interface {
	Search(ctx context.Context, query string, opts Options) ([]Chunk, error)
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, query string, opts Options) ([]Chunk, error)

// Search implements Searcher.
func (f SearcherFunc) Search(ctx context.Context, query string, opts Options) ([]Chunk, error) {
	return f(ctx, query, opts)
}

// Source is a retrieval source attached to an agent.
type Source struct {
	ID             string  `json:"id" yaml:"id"`
	Name           string  `json:"name" yaml:"name"`
	Description    string  `json:"description,omitempty" yaml:"description,omitempty"`
	TopK           int     `json:"topK,omitempty" yaml:"topK,omitempty"`
	Threshold      float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	EmbeddingModel string  `json:"embeddingModel,omitempty" yaml:"embeddingModel,omitempty"`
	// Path is a local file or directory loaded into an Index at startup.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// WithDefaults fills unset limits.
func (s Source) WithDefaults() Source {
	if s.TopK <= 0 {
		s.TopK = DefaultTopK
	}
	if s.Threshold <= 0 {
		s.Threshold = DefaultThreshold
	}
	return s
}

// Result is the payload a retrieval tool hands back to the model.
type Result struct {
	Query   string  `json:"query"`
	Results []Chunk `json:"results"`
	Text    string  `json:"text,omitempty"`
	Message string  `json:"message,omitempty"`
}

// NoResultsMessage is reported when a search matches nothing.
const NoResultsMessage = "No relevant results found."

// Format builds the tool payload for query and its hits: the ranked list
// plus one text block joining the chunks.
func Format(query string, chunks []Chunk) Result {
	if len(chunks) == 0 {
		return Result{Query: query, Results: []Chunk{}, Message: NoResultsMessage}
	}

	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		fmt.Fprintf(&b, "[%d] (similarity %.2f)\n%s", i+1, c.Similarity, strings.TrimSpace(c.Content))
	}
	return Result{Query: query, Results: chunks, Text: b.String()}
}

// Static returns a Searcher over a fixed chunk list that keeps chunks whose
// content contains any query term and whose similarity meets the threshold.
// It backs local runs and tests where no vector store is wired.
func Static(chunks []Chunk) Searcher {
	return SearcherFunc(func(_ context.Context, query string, opts Options) ([]Chunk, error) {
		terms := strings.Fields(strings.ToLower(query))
		sources := make(map[string]bool, len(opts.SourceIDs))
		for _, id := range opts.SourceIDs {
			sources[id] = true
		}

		var out []Chunk
		for _, c := range chunks {
			if len(sources) > 0 && !sources[c.SourceID] {
				continue
			}
			if c.Similarity < opts.Threshold {
				continue
			}
			content := strings.ToLower(c.Content)
			for _, term := range terms {
				if strings.Contains(content, term) {
					out = append(out, c)
					break
				}
			}
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
		if opts.TopK > 0 && len(out) > opts.TopK {
			out = out[:opts.TopK]
		}
		return out, nil
	})
}
