package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

const (
	KindExplicit = "explicit"
	KindIdentity = "identity"

	MaxExplicitKeyLength = 255
)

var (
	ErrEmptyKey   = errors.New("idempotency key has no identity")
	ErrKeyTooLong = errors.New("idempotency key is too long")
)

// Key identifies one logical signup. A caller-supplied Explicit key wins;
// without one the request is identified by owner email and tenant code.
type Key struct {
	Explicit   string
	OwnerEmail string
	TenantCode string
}

func NewKey(explicit, ownerEmail, tenantCode string) Key {
	return Key{
		Explicit:   strings.TrimSpace(explicit),
		OwnerEmail: strings.ToLower(strings.TrimSpace(ownerEmail)),
		TenantCode: strings.ToUpper(strings.TrimSpace(tenantCode)),
	}
}

func (k Key) Kind() string {
	if k.Explicit != "" {
		return KindExplicit
	}
	return KindIdentity
}

func (k Key) Validate() error {
	if len(k.Explicit) > MaxExplicitKeyLength {
		return ErrKeyTooLong
	}
	if k.Explicit == "" && (k.OwnerEmail == "" || k.TenantCode == "") {
		return ErrEmptyKey
	}
	return nil
}

// Canonical is the string the ledger hashes. Explicit and identity keys live
// in separate namespaces so a header value can never alias an identity.
func (k Key) Canonical() string {
	if k.Explicit != "" {
		return KindExplicit + ":" + k.Explicit
	}
	return KindIdentity + ":" + strings.ToLower(k.OwnerEmail) + "|" + k.TenantCode
}

// Hash is the hex SHA-256 of Canonical, stored under a unique index.
func (k Key) Hash() string {
	sum := sha256.Sum256([]byte(k.Canonical()))
	return hex.EncodeToString(sum[:])
}

// RequestFingerprint hashes the parts of a request that define its outcome.
// It is recorded next to the key to detect a key reused for a different body.
func RequestFingerprint(ownerEmail, tenantCode, planID string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(ownerEmail)) + "|" +
		strings.ToUpper(strings.TrimSpace(tenantCode)) + "|" +
		strings.TrimSpace(planID)))
	return hex.EncodeToString(sum[:])
}
