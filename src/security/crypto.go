package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

var ErrDecrypt = errors.New("unable to decrypt value")

// Cipher seals short secrets such as broker passwords at rest.
type Cipher struct {
	key [keySize]byte
}

// NewCipher accepts a base64 encoded 32 byte key. Any other non-empty
// string is used as raw bytes, cut or right-padded with '0' to 32 bytes.
func NewCipher(key string) (*Cipher, error) {
	if key == "" {
		return nil, errors.New("encryption key is empty")
	}

	c := &Cipher{}
	if raw, err := base64.StdEncoding.DecodeString(key); err == nil && len(raw) == keySize {
		copy(c.key[:], raw)
		return c, nil
	}

	raw := []byte(key)
	for i := range c.key {
		if i < len(raw) {
			c.key[i] = raw[i]
		} else {
			c.key[i] = '0'
		}
	}
	return c, nil
}

// Encrypt returns base64(nonce || secretbox(plain)).
func (c *Cipher) Encrypt(plain string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plain), &nonce, &c.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *Cipher) Decrypt(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(sealed) < nonceSize+secretbox.Overhead {
		return "", ErrDecrypt
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &c.key)
	if !ok {
		return "", ErrDecrypt
	}
	return string(plain), nil
}

var (
	defaultCipher     *Cipher
	defaultCipherErr  error
	defaultCipherOnce sync.Once
)

func configuredCipher() (*Cipher, error) {
	defaultCipherOnce.Do(func() {
		defaultCipher, defaultCipherErr = NewCipher(GetConfig().EncryptionKey)
	})
	return defaultCipher, defaultCipherErr
}

// EncryptString seals plain with ENCRYPTION_KEY.
func EncryptString(plain string) (string, error) {
	c, err := configuredCipher()
	if err != nil {
		return "", err
	}
	return c.Encrypt(plain)
}

// DecryptString opens a value produced by EncryptString.
func DecryptString(encoded string) (string, error) {
	c, err := configuredCipher()
	if err != nil {
		return "", err
	}
	return c.Decrypt(encoded)
}

// SecretsEqual compares shared secrets in constant time. An empty expected
// secret never matches.
func SecretsEqual(expected, given string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(given)) == 1
}
