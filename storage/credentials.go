// Tenant credential storage.
//
// Information Hiding:
// - API keys are sealed with NaCl secretbox before they reach the database
// - Key derivation from the configured secret hidden

package storage

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/richinex/relay/internal/errs"
	"github.com/richinex/relay/llm"
)

const nonceSize = 24

// sealer encrypts API keys at rest.
type sealer struct {
	key [32]byte
}

func newSealer(secret string) (*sealer, error) {
	s := &sealer{}
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("relay credential sealing"))
	if _, err := io.ReadFull(kdf, s.key[:]); err != nil {
		return nil, fmt.Errorf("failed to derive sealing key: %w", err)
	}
	return s, nil
}

func (s *sealer) seal(plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	out := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return base64.StdEncoding.EncodeToString(out), nil
}

func (s *sealer) open(sealed string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("invalid sealed value: %w", err)
	}
	if len(data) < nonceSize {
		return "", errors.New("sealed value too short")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], data[:nonceSize])
	plain, ok := secretbox.Open(nil, data[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", errors.New("failed to open sealed value: wrong key or corrupted data")
	}
	return string(plain), nil
}

// PutCredential stores or replaces the credential of tenantID for provider.
func (s *Store) PutCredential(ctx context.Context, tenantID string, provider llm.ProviderType, cred llm.Credential) error {
	if s.sealer == nil {
		return errors.New("credential storage requires a secret key")
	}
	sealed, err := s.sealer.seal(cred.APIKey)
	if err != nil {
		return err
	}

	now := s.now().Unix()
	_, err = s.db.ExecContext(ctx, s.dialect.upsertCredential,
		uuid.NewString(), tenantID, provider.String(), sealed, cred.BaseURL, cred.Active, now, now)
	if err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

// SetCredentialActive enables or disables a stored credential.
func (s *Store) SetCredentialActive(ctx context.Context, tenantID string, provider llm.ProviderType, active bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE credentials SET active = ?, updated_at = ? WHERE tenant_id = ? AND provider = ?",
		active, s.now().Unix(), tenantID, provider.String())
	if err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errs.Newf(errs.CodeProviderNotConfigured, "no credential for provider %s (tenant %q)", provider, tenantID)
	}
	return nil
}

// Credential implements llm.CredentialSource. A missing row is reported as
// llm.ErrProviderNotConfigured so credential chains fall through to the
// next source.
func (s *Store) Credential(ctx context.Context, tenantID string, provider llm.ProviderType) (llm.Credential, error) {
	var sealed, baseURL string
	var active bool
	err := s.db.QueryRowContext(ctx,
		"SELECT api_key, base_url, active FROM credentials WHERE tenant_id = ? AND provider = ?",
		tenantID, provider.String()).Scan(&sealed, &baseURL, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return llm.Credential{}, errs.Newf(errs.CodeProviderNotConfigured,
			"no stored credential for provider %s (tenant %q)", provider, tenantID)
	}
	if err != nil {
		return llm.Credential{}, fmt.Errorf("failed to query credential: %w", err)
	}
	if s.sealer == nil {
		return llm.Credential{}, errors.New("credential storage requires a secret key")
	}

	key, err := s.sealer.open(sealed)
	if err != nil {
		return llm.Credential{}, err
	}
	return llm.Credential{APIKey: key, BaseURL: baseURL, Active: active}, nil
}
