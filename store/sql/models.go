package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

// credentialRecord holds one token of a namespace's pair, keyed by core.CredentialKeys.
type credentialRecord struct {
	bun.BaseModel `bun:"table:session_credentials,alias:sc"`

	ID                string    `bun:"id,pk"`
	Namespace         string    `bun:"namespace,notnull"`
	Key               string    `bun:"key,notnull"`
	Value             string    `bun:"value,notnull"`
	EncryptionKeyID   string    `bun:"encryption_key_id,notnull"`
	EncryptionVersion int       `bun:"encryption_version,notnull"`
	CreatedAt         time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt         time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
