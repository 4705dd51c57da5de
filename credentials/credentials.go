package credentials

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-gotop/backpack/signer"
)

var (
	ErrInvalidCredentials = errors.New("credentials: api key or secret missing")
)

// Credentials API key 与私钥材料
type Credentials struct {
	APIKey    string
	Secret    string
	Algorithm signer.Algorithm
}

// IsValid reports whether both fields are present and the algorithm is known.
func (c Credentials) IsValid() bool {
	if strings.TrimSpace(c.APIKey) == "" || strings.TrimSpace(c.Secret) == "" {
		return false
	}
	switch c.Algorithm {
	case "", signer.AlgorithmAuto, signer.AlgorithmHMAC, signer.AlgorithmED25519:
		return true
	}
	return false
}

// String 不输出私钥
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{APIKey:%s Secret:*** Algorithm:%s}", mask(c.APIKey), c.Algorithm)
}

func (c Credentials) GoString() string {
	return c.String()
}

func mask(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Store 保存连接使用的凭证, 整体替换, 读写互斥
type Store struct {
	mu    sync.RWMutex
	creds Credentials
}

func NewStore() *Store {
	return &Store{}
}

// Set replaces the pair wholesale, the algorithm is detected from the secret.
func (s *Store) Set(apiKey, secret string) {
	s.SetCredentials(Credentials{APIKey: apiKey, Secret: secret, Algorithm: signer.AlgorithmAuto})
}

func (s *Store) SetCredentials(c Credentials) {
	s.mu.Lock()
	s.creds = c
	s.mu.Unlock()
}

// Get 返回当前凭证的快照
func (s *Store) Get() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

func (s *Store) IsValid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.IsValid()
}

func (s *Store) Clear() {
	s.SetCredentials(Credentials{})
}

// Sign signs message with the stored secret. The read lock is held for the
// whole operation so a concurrent Set never yields a mixed pair.
func (s *Store) Sign(message []byte) (apiKey string, token string, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.creds.IsValid() {
		return "", "", ErrInvalidCredentials
	}
	token, err = signer.Sign(s.creds.Algorithm, message, s.creds.Secret)
	if err != nil {
		return "", "", err
	}
	return s.creds.APIKey, token, nil
}
