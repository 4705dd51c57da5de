package signer

import (
	"bytes"
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Algorithm 签名算法
type Algorithm string

const (
	// AlgorithmHMAC HMAC-SHA256, 输出小写 hex
	AlgorithmHMAC Algorithm = "hmac"
	// AlgorithmED25519 ed25519, 私钥为 base64 编码的原始 32/64 字节, 输出标准 base64
	AlgorithmED25519 Algorithm = "ed25519"
	// AlgorithmAuto 根据密钥格式自动选择
	AlgorithmAuto Algorithm = "auto"
)

var (
	ErrInvalidKeyMaterial = errors.New("signer: invalid key material")
	ErrSigningFailure     = errors.New("signer: signing failure")
	ErrUnknownAlgorithm   = errors.New("signer: unknown algorithm")
)

// ParseAlgorithm parses a configured algorithm name. Empty means auto.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(s))) {
	case "", AlgorithmAuto:
		return AlgorithmAuto, nil
	case AlgorithmHMAC, "hmac-sha256":
		return AlgorithmHMAC, nil
	case AlgorithmED25519:
		return AlgorithmED25519, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
}

// Detect 密钥为合法 base64 且解码后为 32 或 64 字节时视为 ed25519, 否则为 hmac
func Detect(secret string) Algorithm {
	raw, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return AlgorithmHMAC
	}
	if len(raw) == ed25519.SeedSize || len(raw) == ed25519.PrivateKeySize {
		return AlgorithmED25519
	}
	return AlgorithmHMAC
}

// Sign returns the authentication token of message under secret.
// It is deterministic and keeps no reference to secret.
func Sign(alg Algorithm, message []byte, secret string) (string, error) {
	switch alg {
	case AlgorithmHMAC:
		return signHMAC(message, secret)
	case AlgorithmED25519:
		return signED25519(message, secret)
	case AlgorithmAuto, "":
		return Sign(Detect(secret), message, secret)
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, string(alg))
}

func signHMAC(message []byte, secret string) (string, error) {
	mac := hmac.New(sha256.New, []byte(secret))
	if _, err := mac.Write(message); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigningFailure, err)
	}
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func signED25519(message []byte, secret string) (token string, err error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(secret))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}

	var key ed25519.PrivateKey
	switch len(raw) {
	case ed25519.SeedSize:
		key = ed25519.NewKeyFromSeed(raw)
	case ed25519.PrivateKeySize:
		// 64 字节私钥的后半部分必须是种子推导出的公钥
		derived := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
		if !bytes.Equal(derived[ed25519.SeedSize:], raw[ed25519.SeedSize:]) {
			return "", fmt.Errorf("%w: public key half does not match seed", ErrSigningFailure)
		}
		key = ed25519.PrivateKey(raw)
	default:
		return "", fmt.Errorf("%w: ed25519 key must be 32 or 64 bytes, got %d", ErrInvalidKeyMaterial, len(raw))
	}

	defer func() {
		if r := recover(); r != nil {
			token, err = "", fmt.Errorf("%w: %v", ErrSigningFailure, r)
		}
	}()
	return base64.StdEncoding.EncodeToString(ed25519.Sign(key, message)), nil
}
