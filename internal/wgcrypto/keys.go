// Package wgcrypto implements key generation, public-key derivation, and
// pluggable pre-shared-key (PSK) derivation for mesh peers.
//
// Key generation goes through wgtypes.GeneratePrivateKey, keeping it
// consistent with the rest of the WireGuard Go ecosystem. Deriving a
// public key from a supplied private key uses
// golang.org/x/crypto/curve25519, and base64/length validation is a
// local decode-and-check.
package wgcrypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/curve25519"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"github.com/mr-karan/wgmesh/internal/apierr"
	"github.com/mr-karan/wgmesh/internal/metrics"
)

// Keypair is a base64-encoded X25519 private/public key pair.
type Keypair struct {
	PrivateKey string
	PublicKey  string
}

// GenerateKeypair draws 32 cryptographically-random bytes, clamps them
// per the WireGuard private-key convention, and derives the matching
// public key.
func GenerateKeypair() (Keypair, error) {
	priv, err := wgtypes.GeneratePrivateKey()
	if err != nil {
		return Keypair{}, fmt.Errorf("generating private key: %w", err)
	}
	pub := priv.PublicKey()
	metrics.KeypairsGenerated.Inc()
	return Keypair{
		PrivateKey: priv.String(),
		PublicKey:  pub.String(),
	}, nil
}

// DerivePublic decodes a base64 private key and derives its X25519
// public key, failing with InvalidKey if the decoded length isn't 32
// bytes.
func DerivePublic(privateKeyB64 string) (string, error) {
	priv, err := decode32(privateKeyB64)
	if err != nil {
		return "", err
	}

	var privArr, pubArr [32]byte
	copy(privArr[:], priv)
	curve25519.ScalarBaseMult(&pubArr, &privArr)

	return base64.StdEncoding.EncodeToString(pubArr[:]), nil
}

// ValidateKey checks that a base64 string decodes to exactly 32 bytes.
func ValidateKey(keyB64 string) error {
	_, err := decode32(keyB64)
	return err
}

func decode32(keyB64 string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		return nil, apierr.New(apierr.KindInvalidKey, fmt.Sprintf("invalid base64: %v", err))
	}
	if len(decoded) != 32 {
		return nil, apierr.New(apierr.KindInvalidKey, fmt.Sprintf("key must decode to 32 bytes, got %d", len(decoded)))
	}
	return decoded, nil
}

// RandomBase64 returns n cryptographically-random bytes, base64-encoded;
// used by the CSPRNG PSK strategy.
func RandomBase64(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}
