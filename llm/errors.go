package llm

import (
	"github.com/richinex/relay/internal/errs"
)

// Resolver sentinels. Errors returned by Resolve carry the same codes and
// match these with errors.Is.
var (
	ErrProviderNotFound      = errs.New(errs.CodeProviderNotFound, "provider not found")
	ErrProviderNotConfigured = errs.New(errs.CodeProviderNotConfigured, "provider not configured")
	ErrProviderUnsupported   = errs.New(errs.CodeProviderUnsupported, "provider not supported")
)

// providerError wraps a vendor transport failure.
func providerError(vendor string, cause error, action string) error {
	return errs.Wrap(errs.CodeProviderFailure, cause, vendor+" "+action+" failed")
}
