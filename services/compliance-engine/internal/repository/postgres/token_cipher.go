package postgres

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"

	"golang.org/x/crypto/chacha20poly1305"

	"EFacturaPlatform/pkg/errors"
)

// TokenCipher шифрует токены перед записью в БД.
// Используется ChaCha20-Poly1305 со случайным nonce, конкатенированным
// с шифртекстом. Результат хранится в base64.
type TokenCipher struct {
	key []byte
}

// NewTokenCipher создает шифр из hex-кодированного 32-байтового ключа
func NewTokenCipher(hexKey string) (*TokenCipher, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "token key is not valid hex")
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, errors.New(errors.ErrInternal, "token key must be 32 bytes")
	}
	return &TokenCipher{key: key}, nil
}

// Encrypt шифрует значение токена
func (c *TokenCipher) Encrypt(plaintext string) (string, error) {
	aead, err := chacha20poly1305.New(c.key)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInternal, "failed to initialize token cipher")
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", errors.Wrap(err, errors.ErrInternal, "failed to generate nonce")
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt расшифровывает значение токена
func (c *TokenCipher) Decrypt(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInternal, "stored token is not valid base64")
	}

	aead, err := chacha20poly1305.New(c.key)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInternal, "failed to initialize token cipher")
	}

	if len(sealed) < aead.NonceSize() {
		return "", errors.New(errors.ErrInternal, "stored token is truncated")
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInternal, "failed to decrypt stored token")
	}

	return string(plaintext), nil
}
