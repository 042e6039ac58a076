package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/onboard/internal/credential/domain"
	"gorm.io/datatypes"
)

const payloadVersion = 1

var errUnsupportedPayload = errors.New("unsupported provider config payload")

type encryptedPayload struct {
	Version    int    `json:"version"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// DeriveKey turns the configured secret into an AES-256 key.
func DeriveKey(secret string) []byte {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil
	}
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// EncryptConfig seals payload with AES-GCM under key.
func EncryptConfig(key []byte, payload domain.ConfigPayload) (datatypes.JSON, error) {
	if len(key) == 0 {
		return nil, domain.ErrEncryptionKeyMissing
	}
	plain, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	out, err := json.Marshal(encryptedPayload{
		Version:    payloadVersion,
		Nonce:      base64.RawStdEncoding.EncodeToString(nonce),
		Ciphertext: base64.RawStdEncoding.EncodeToString(gcm.Seal(nil, nonce, plain, nil)),
	})
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(out), nil
}

// DecryptConfig opens a payload produced by EncryptConfig.
func DecryptConfig(key []byte, raw datatypes.JSON) (*domain.ConfigPayload, error) {
	if len(key) == 0 {
		return nil, domain.ErrEncryptionKeyMissing
	}

	var sealed encryptedPayload
	if err := json.Unmarshal(raw, &sealed); err != nil {
		return nil, fmt.Errorf("decode provider config: %w", err)
	}
	if sealed.Version != payloadVersion {
		return nil, errUnsupportedPayload
	}

	nonce, err := base64.RawStdEncoding.DecodeString(sealed.Nonce)
	if err != nil {
		return nil, fmt.Errorf("decode nonce: %w", err)
	}
	ciphertext, err := base64.RawStdEncoding.DecodeString(sealed.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, errUnsupportedPayload
	}
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("open provider config: %w", err)
	}

	var payload domain.ConfigPayload
	if err := json.Unmarshal(plain, &payload); err != nil {
		return nil, fmt.Errorf("decode provider config payload: %w", err)
	}
	return &payload, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
