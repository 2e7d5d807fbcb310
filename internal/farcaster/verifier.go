package farcaster

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Key types an association header may declare.
const (
	KeyTypeAppKey  = "app_key"
	KeyTypeCustody = "custody"
)

// Ed25519Verifier verifies app_key associations, whose key is a 0x-prefixed
// hex ed25519 public key. Custody associations require an Ethereum signature
// scheme this package does not implement; inject a different KeyVerifier for
// those.
type Ed25519Verifier struct{}

// Verify implements KeyVerifier.
func (Ed25519Verifier) Verify(header AssociationHeader, signingInput, signature []byte) error {
	if header.Type != KeyTypeAppKey {
		return fmt.Errorf("unsupported key type %q", header.Type)
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(header.Key, "0x"))
	if err != nil {
		return fmt.Errorf("invalid key encoding: %v", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return fmt.Errorf("invalid key length %d", len(raw))
	}
	if !ed25519.Verify(ed25519.PublicKey(raw), signingInput, signature) {
		return errors.New("ed25519 verification failed")
	}
	return nil
}
