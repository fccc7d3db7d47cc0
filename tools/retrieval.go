package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/richinex/relay/internal/jsonx"
	"github.com/richinex/relay/retrieval"
)

type retrievalExecutor struct {
	searcher retrieval.Searcher
	cfg      RetrievalConfig
	tenantID string
}

func (e *retrievalExecutor) Execute(ctx context.Context, _ string, args json.RawMessage) (any, error) {
	query := strings.TrimSpace(jsonx.String(args, "query"))
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	chunks, err := e.searcher.Search(ctx, query, retrieval.Options{
		SourceIDs:      []string{e.cfg.SourceID},
		TopK:           e.cfg.TopK,
		Threshold:      e.cfg.Threshold,
		EmbeddingModel: e.cfg.EmbeddingModel,
		TenantID:       e.tenantID,
	})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return retrieval.Format(query, chunks), nil
}
