package signer

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/mr-tron/base58"
)

// Identity is the ephemeral ed25519 keypair that signs request payloads.
// It is generated once per session and never persisted; the venue learns
// the public key through the base58 request id sent at sign-in.
type Identity struct {
	priv      ed25519.PrivateKey
	pub       ed25519.PublicKey
	requestID string
}

// NewIdentity generates a fresh keypair from the process entropy source.
func NewIdentity() (*Identity, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key: %w", err)
	}
	return &Identity{
		priv:      priv,
		pub:       pub,
		requestID: base58.Encode(pub),
	}, nil
}

// RequestID is the base58 encoding of the public key.
func (id *Identity) RequestID() string {
	return id.requestID
}

// Sign returns the raw 64-byte ed25519 signature over message.
func (id *Identity) Sign(message []byte) []byte {
	return ed25519.Sign(id.priv, message)
}

// SignVersioned signs the replay-bound string
// "<version>,<requestID>,<timestamp>,<body>" where requestID is the
// per-request UUID, not the identity's base58 id. Returned base64-encoded.
func (id *Identity) SignVersioned(version, requestID, timestamp, body string) string {
	message := fmt.Sprintf("%s,%s,%s,%s", version, requestID, timestamp, body)
	return base64.StdEncoding.EncodeToString(id.Sign([]byte(message)))
}

// SignBody signs the raw body alone, base64-encoded.
func (id *Identity) SignBody(body string) string {
	return base64.StdEncoding.EncodeToString(id.Sign([]byte(body)))
}
