package llm

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/richinex/relay/internal/errs"
	"github.com/richinex/relay/internal/logging"
)

// Resolver turns a model id into a ready adapter for one tenant.
// All failures happen before any vendor network call.
type Resolver struct {
	catalog     *Catalog
	creds       CredentialSource
	maxTokens   int
	temperature *float64
	httpClient  *http.Client
	logger      *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithDefaultMaxTokens sets the max tokens used when a model entry has none.
func WithDefaultMaxTokens(n int) ResolverOption {
	return func(r *Resolver) { r.maxTokens = n }
}

// WithDefaultTemperature sets the temperature used when requests leave it unset.
func WithDefaultTemperature(t float64) ResolverOption {
	return func(r *Resolver) { r.temperature = &t }
}

// WithHTTPClient sets the HTTP client handed to vendor SDKs.
func WithHTTPClient(c *http.Client) ResolverOption {
	return func(r *Resolver) { r.httpClient = c }
}

// WithResolverLogger sets the logger.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a resolver over a catalog and credential source.
func NewResolver(catalog *Catalog, creds CredentialSource, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		catalog: catalog,
		creds:   creds,
		logger:  logging.Named("resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns an adapter for modelID using tenantID's credential.
//
// Errors match ErrProviderNotFound (unknown model or vendor),
// ErrProviderUnsupported (vendor known but without an adapter) or
// ErrProviderNotConfigured (no active credential).
func (r *Resolver) Resolve(ctx context.Context, tenantID, modelID string) (Provider, error) {
	info, err := r.catalog.Lookup(modelID)
	if err != nil {
		return nil, err
	}
	if !info.Provider.Implemented() {
		return nil, errs.Newf(errs.CodeProviderUnsupported,
			"provider %s for model %q is not supported", info.Provider, modelID)
	}
	if r.creds == nil {
		return nil, errs.Newf(errs.CodeProviderNotConfigured, "no credential source for provider %s", info.Provider)
	}

	cred, err := r.creds.Credential(ctx, tenantID, info.Provider)
	if err != nil {
		if errs.CodeOf(err) == errs.CodeProviderNotConfigured {
			return nil, err
		}
		return nil, errs.Wrap(errs.CodeProviderNotConfigured, err,
			"credential lookup failed for provider "+info.Provider.String())
	}
	if !cred.Active || (cred.APIKey == "" && !info.Provider.keyOptional()) {
		return nil, errs.Newf(errs.CodeProviderNotConfigured,
			"no active credential for provider %s (tenant %q)", info.Provider, tenantID)
	}

	maxTokens := info.MaxTokens
	if maxTokens == 0 {
		maxTokens = r.maxTokens
	}

	r.logger.Debug("resolved provider",
		"tenant", tenantID,
		"model", modelID,
		"provider", info.Provider.String(),
		"tools", info.SupportsTools)

	return NewProvider(ProviderConfig{
		Type:          info.Provider,
		APIKey:        cred.APIKey,
		BaseURL:       cred.BaseURL,
		Model:         modelID,
		MaxTokens:     maxTokens,
		Temperature:   r.temperature,
		SupportsTools: info.SupportsTools,
		HTTPClient:    r.httpClient,
	})
}

// Catalog returns the resolver's model catalog.
func (r *Resolver) Catalog() *Catalog {
	return r.catalog
}
