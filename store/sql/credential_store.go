package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-authclient/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Option func(*CredentialStore)

// WithNamespace scopes the stored pair so several clients can share one table.
func WithNamespace(namespace string) Option {
	return func(s *CredentialStore) {
		if trimmed := strings.TrimSpace(namespace); trimmed != "" {
			s.namespace = trimmed
		}
	}
}

// WithSecretProvider encrypts token values at rest.
func WithSecretProvider(provider core.SecretProvider) Option {
	return func(s *CredentialStore) {
		s.secrets = provider
	}
}

// CredentialStore persists the token pair as one row per credential key.
type CredentialStore struct {
	db        *bun.DB
	repo      repository.Repository[*credentialRecord]
	namespace string
	secrets   core.SecretProvider
}

func NewCredentialStore(db *bun.DB, opts ...Option) (*CredentialStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*credentialRecord](db, credentialHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid credential repository wiring: %w", err)
		}
	}
	store := &CredentialStore{
		db:        db,
		repo:      repo,
		namespace: core.DefaultStorageKeyPrefix,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

func (s *CredentialStore) Namespace() string {
	if s == nil {
		return ""
	}
	return s.namespace
}

func (s *CredentialStore) Load(ctx context.Context) (core.Credential, error) {
	if s == nil || s.repo == nil {
		return core.Credential{}, fmt.Errorf("sqlstore: credential store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("namespace", "=", s.namespace),
		repository.OrderBy("key ASC"),
	)
	if err != nil {
		return core.Credential{}, err
	}

	var credential core.Credential
	for _, record := range records {
		if record == nil {
			continue
		}
		value, decodeErr := s.decode(ctx, record)
		if decodeErr != nil {
			return core.Credential{}, decodeErr
		}
		switch record.Key {
		case core.CredentialKeyAccessToken:
			credential.AccessToken = value
		case core.CredentialKeyRefreshToken:
			credential.RefreshToken = value
		}
	}
	return credential, nil
}

// Save replaces the namespace's pair in one transaction. Empty tokens are not written.
func (s *CredentialStore) Save(ctx context.Context, credential core.Credential) error {
	if s == nil || s.repo == nil || s.db == nil {
		return fmt.Errorf("sqlstore: credential store is not configured")
	}
	values := map[string]string{
		core.CredentialKeyAccessToken:  strings.TrimSpace(credential.AccessToken),
		core.CredentialKeyRefreshToken: strings.TrimSpace(credential.RefreshToken),
	}

	now := time.Now().UTC()
	records := make([]*credentialRecord, 0, len(core.CredentialKeys))
	for _, key := range core.CredentialKeys {
		if values[key] == "" {
			continue
		}
		record, err := s.encode(ctx, key, values[key], now)
		if err != nil {
			return err
		}
		records = append(records, record)
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*credentialRecord)(nil)).
			Where("namespace = ?", s.namespace).
			Exec(ctx); err != nil {
			return err
		}
		for _, record := range records {
			if _, err := s.repo.CreateTx(ctx, tx, record); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *CredentialStore) Clear(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: credential store is not configured")
	}
	_, err := s.db.NewDelete().
		Model((*credentialRecord)(nil)).
		Where("namespace = ?", s.namespace).
		Where("key IN (?)", bun.In(core.CredentialKeys)).
		Exec(ctx)
	return err
}

func (s *CredentialStore) encode(ctx context.Context, key, value string, now time.Time) (*credentialRecord, error) {
	record := &credentialRecord{
		ID:        uuid.NewString(),
		Namespace: s.namespace,
		Key:       key,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if s.secrets == nil {
		return record, nil
	}
	sealed, err := s.secrets.Encrypt(ctx, []byte(value))
	if err != nil {
		return nil, fmt.Errorf("sqlstore: encrypt %s: %w", key, err)
	}
	record.Value = string(sealed)
	record.EncryptionVersion = 1
	if meta, ok := s.secrets.(interface{ Metadata() (string, int) }); ok {
		keyID, version := meta.Metadata()
		record.EncryptionKeyID = keyID
		if version > 0 {
			record.EncryptionVersion = version
		}
	}
	return record, nil
}

func (s *CredentialStore) decode(ctx context.Context, record *credentialRecord) (string, error) {
	if record.EncryptionVersion == 0 {
		return record.Value, nil
	}
	if s.secrets == nil {
		return "", fmt.Errorf("sqlstore: %s is encrypted but no secret provider is configured", record.Key)
	}
	opened, err := s.secrets.Decrypt(ctx, []byte(record.Value))
	if err != nil {
		return "", fmt.Errorf("sqlstore: decrypt %s: %w", record.Key, err)
	}
	return string(opened), nil
}
