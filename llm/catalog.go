package llm

import (
	"sort"
	"sync"

	"github.com/richinex/relay/internal/errs"
)

// ModelInfo maps a model id to the vendor serving it.
type ModelInfo struct {
	ID            string
	Provider      ProviderType
	SupportsTools bool
	MaxTokens     int
}

// CatalogLoader produces the model list. It runs at most once per Catalog.
type CatalogLoader func() ([]ModelInfo, error)

// Catalog is a write-once, read-many model lookup shared across requests.
// The loader runs on first use; later reads take no locks.
type Catalog struct {
	once   sync.Once
	load   CatalogLoader
	models map[string]ModelInfo
	err    error
}

// NewCatalog creates a catalog filled lazily by load.
func NewCatalog(load CatalogLoader) *Catalog {
	return &Catalog{load: load}
}

// StaticCatalog creates a catalog from a fixed list. Entries later in the
// list override earlier ones with the same id.
func StaticCatalog(models ...ModelInfo) *Catalog {
	return NewCatalog(func() ([]ModelInfo, error) { return models, nil })
}

func (c *Catalog) init() {
	c.once.Do(func() {
		c.models = make(map[string]ModelInfo)
		if c.load == nil {
			return
		}
		list, err := c.load()
		if err != nil {
			c.err = err
			return
		}
		for _, m := range list {
			c.models[m.ID] = m
		}
	})
}

// Lookup returns the entry for modelID.
func (c *Catalog) Lookup(modelID string) (ModelInfo, error) {
	c.init()
	if c.err != nil {
		return ModelInfo{}, errs.Wrap(errs.CodeProviderNotFound, c.err, "model catalog unavailable")
	}
	info, ok := c.models[modelID]
	if !ok {
		return ModelInfo{}, errs.Newf(errs.CodeProviderNotFound, "no provider registered for model %q", modelID)
	}
	return info, nil
}

// Models returns all entries sorted by id.
func (c *Catalog) Models() []ModelInfo {
	c.init()
	out := make([]ModelInfo, 0, len(c.models))
	for _, m := range c.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DefaultModels lists the default model of every implemented vendor.
func DefaultModels() []ModelInfo {
	var out []ModelInfo
	for p := ProviderOpenAI; p <= ProviderVertex; p++ {
		if !p.Implemented() {
			continue
		}
		out = append(out, ModelInfo{ID: p.DefaultModel(), Provider: p, SupportsTools: true})
	}
	return out
}
