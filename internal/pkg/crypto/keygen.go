// Package crypto provides cryptographic utilities for Squid Coin:
// account keypairs, random secrets and content hashing.
package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
)

// DefaultRSAKeyBits is the keypair size generated at signup.
const DefaultRSAKeyBits = 2048

// MinRSAKeyBits is the smallest accepted keypair size.
const MinRSAKeyBits = 1024

// ErrKeyTooSmall indicates a requested RSA key size below MinRSAKeyBits.
var ErrKeyTooSmall = errors.New("rsa key size must be at least 1024 bits")

// KeyPair is a PEM-encoded RSA keypair.
type KeyPair struct {
	// PublicKey is a PKIX "PUBLIC KEY" PEM block.
	PublicKey string

	// PrivateKey is a PKCS#8 "PRIVATE KEY" PEM block.
	PrivateKey string
}

// GenerateKeyPair generates an RSA keypair of the given size.
func GenerateKeyPair(bits int) (*KeyPair, error) {
	if bits < MinRSAKeyBits {
		return nil, ErrKeyTooSmall
	}

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate rsa key: %w", err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}

	return &KeyPair{
		PublicKey:  string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})),
		PrivateKey: string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})),
	}, nil
}

// ParsePublicKey decodes a PEM public key produced by GenerateKeyPair.
func ParsePublicKey(pemData string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil || block.Type != "PUBLIC KEY" {
		return nil, errors.New("invalid public key PEM")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not RSA")
	}
	return rsaPub, nil
}

// GenerateSecret returns n random bytes hex-encoded.
// Used to mint JWT signing secrets.
func GenerateSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
