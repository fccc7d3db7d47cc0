package llm

import (
	"context"
	"os"
	"strings"

	"github.com/richinex/relay/internal/errs"
)

// Credential is a decrypted vendor credential for one tenant.
type Credential struct {
	APIKey  string
	BaseURL string
	Active  bool
}

// CredentialSource looks up the credential a tenant holds for a vendor.
// A missing credential is reported as an error matching ErrProviderNotConfigured.
type CredentialSource interface {
	Credential(ctx context.Context, tenantID string, provider ProviderType) (Credential, error)
}

// CredentialSourceFunc adapts a function to CredentialSource.
type CredentialSourceFunc func(ctx context.Context, tenantID string, provider ProviderType) (Credential, error)

// Credential implements CredentialSource.
func (f CredentialSourceFunc) Credential(ctx context.Context, tenantID string, provider ProviderType) (Credential, error) {
	return f(ctx, tenantID, provider)
}

// EnvCredentials serves every tenant from process environment variables:
// <VENDOR>_API_KEY and an optional <VENDOR>_BASE_URL.
type EnvCredentials struct {
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Credential implements CredentialSource.
func (e EnvCredentials) Credential(_ context.Context, _ string, provider ProviderType) (Credential, error) {
	getenv := e.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	envVar := provider.EnvVar()
	if envVar == "" {
		return Credential{}, errs.Newf(errs.CodeProviderNotConfigured, "%s: no credential variable", provider)
	}
	key := getenv(envVar)
	if key == "" && !provider.keyOptional() {
		return Credential{}, errs.Newf(errs.CodeProviderNotConfigured,
			"%s: %s environment variable not set", provider, envVar)
	}
	baseURL := getenv(strings.ToUpper(provider.String()) + "_BASE_URL")
	return Credential{APIKey: key, BaseURL: baseURL, Active: true}, nil
}

// ChainCredentials tries each source in order and returns the first
// credential found. Errors other than "not configured" stop the search.
type ChainCredentials []CredentialSource

// Credential implements CredentialSource.
func (c ChainCredentials) Credential(ctx context.Context, tenantID string, provider ProviderType) (Credential, error) {
	for _, src := range c {
		cred, err := src.Credential(ctx, tenantID, provider)
		if err == nil {
			return cred, nil
		}
		if errs.CodeOf(err) != errs.CodeProviderNotConfigured {
			return Credential{}, err
		}
	}
	return Credential{}, errs.Newf(errs.CodeProviderNotConfigured,
		"no credential for provider %s (tenant %q)", provider, tenantID)
}
