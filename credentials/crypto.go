package credentials

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	// EncryptionKeyEnv 加密密钥所在的环境变量
	EncryptionKeyEnv = "ENCRYPTION_KEY"
	// SealedPrefix 标记已加密的配置值
	SealedPrefix = "enc:"

	nonceSize = 24
)

var (
	ErrEncryptionKey = errors.New("credentials: encryption key must be 32 characters")
	ErrDecrypt       = errors.New("credentials: decryption failed")
)

// LoadEncryptionKey 从环境变量中加载加密密钥
func LoadEncryptionKey() (*[32]byte, error) {
	return ParseEncryptionKey(os.Getenv(EncryptionKeyEnv))
}

func ParseEncryptionKey(s string) (*[32]byte, error) {
	if len(s) != 32 {
		return nil, fmt.Errorf("%w, got %d", ErrEncryptionKey, len(s))
	}
	var key [32]byte
	copy(key[:], s)
	return &key, nil
}

// Seal encrypts plaintext and returns base64(nonce || box).
func Seal(plaintext string, key *[32]byte) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", err
	}
	encrypted := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, key)
	return base64.StdEncoding.EncodeToString(encrypted), nil
}

// Open reverses Seal.
func Open(encoded string, key *[32]byte) (string, error) {
	encrypted, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	if len(encrypted) < nonceSize+secretbox.Overhead {
		return "", ErrDecrypt
	}
	var nonce [nonceSize]byte
	copy(nonce[:], encrypted[:nonceSize])

	decrypted, ok := secretbox.Open(nil, encrypted[nonceSize:], &nonce, key)
	if !ok {
		return "", ErrDecrypt
	}
	return string(decrypted), nil
}

// Reveal 返回配置值的明文, "enc:" 前缀的值用 key 解密, 其余原样返回
func Reveal(value string, key *[32]byte) (string, error) {
	if !strings.HasPrefix(value, SealedPrefix) {
		return value, nil
	}
	if key == nil {
		return "", ErrEncryptionKey
	}
	return Open(strings.TrimPrefix(value, SealedPrefix), key)
}
