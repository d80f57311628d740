package signer

import (
	"crypto/ed25519"
	"encoding/base64"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIdentity_RequestID(t *testing.T) {
	id, err := NewIdentity()
	require.NoError(t, err)

	// requestID is exactly the base58 form of the verifying key
	decoded, err := base58.Decode(id.RequestID())
	require.NoError(t, err)
	assert.Equal(t, []byte(id.pub), decoded)
	assert.Len(t, decoded, ed25519.PublicKeySize)
}

func TestIdentity_SignVerifies(t *testing.T) {
	id, err := NewIdentity()
	require.NoError(t, err)

	sig := id.Sign([]byte("hello"))
	assert.Len(t, sig, ed25519.SignatureSize)
	assert.True(t, ed25519.Verify(id.pub, []byte("hello"), sig))
	assert.False(t, ed25519.Verify(id.pub, []byte("hellx"), sig))
}

func TestIdentity_SignaturesAreContentBound(t *testing.T) {
	id, err := NewIdentity()
	require.NoError(t, err)

	body := `{"symbol":"BTC-PERP","qty":"0.01"}`
	tampered := `{"symbol":"BTC-PERP","qty":"0.02"}`

	assert.NotEqual(t, id.SignBody(body), id.SignBody(tampered))
	assert.NotEqual(t,
		id.SignVersioned("v1", "req-1", "1700000000000", body),
		id.SignVersioned("v1", "req-1", "1700000000000", tampered))
}

func TestIdentity_VersionedSignatureBindsRequestIDAndTimestamp(t *testing.T) {
	id, err := NewIdentity()
	require.NoError(t, err)

	body := `{"symbol":"BTC-PERP"}`
	base := id.SignVersioned("v1", "req-1", "1700000000000", body)

	// replay protection: a fresh request id or timestamp changes the signature
	assert.NotEqual(t, base, id.SignVersioned("v1", "req-2", "1700000000000", body))
	assert.NotEqual(t, base, id.SignVersioned("v1", "req-1", "1700000000001", body))

	// while the plain body signature stays the same for the same body
	assert.Equal(t, id.SignBody(body), id.SignBody(body))
}

func TestIdentity_VersionedSignatureFormat(t *testing.T) {
	id, err := NewIdentity()
	require.NoError(t, err)

	sig := id.SignVersioned("v1", "req-1", "1700000000000", "{}")
	raw, err := base64.StdEncoding.DecodeString(sig)
	require.NoError(t, err)
	assert.Len(t, raw, ed25519.SignatureSize)

	message := []byte("v1,req-1,1700000000000,{}")
	assert.True(t, ed25519.Verify(id.pub, message, raw))
}
