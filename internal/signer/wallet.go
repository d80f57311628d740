package signer

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Wallet holds the user's ECDSA key. It signs the login challenge with the
// standard personal-message scheme and on-chain transactions for swaps; it
// is a different key from the ephemeral request-signing Identity.
type Wallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewWallet parses a hex private key, with or without the 0x prefix.
func NewWallet(privateKeyHex string) (*Wallet, error) {
	pk := strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	if pk == "" {
		return nil, fmt.Errorf("private key is required")
	}
	key, err := crypto.HexToECDSA(pk)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %v", err)
	}

	publicKey := key.Public()
	publicKeyECDSA, ok := publicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("error casting public key to ECDSA")
	}

	return &Wallet{
		key:     key,
		address: crypto.PubkeyToAddress(*publicKeyECDSA),
	}, nil
}

// Address is the checksummed address derived from the key. The session
// always uses this address, whatever casing the caller supplied.
func (w *Wallet) Address() common.Address {
	return w.address
}

// SignPersonal signs message under EIP-191 ("\x19Ethereum Signed Message")
// and returns the 0x-hex 65-byte signature with V normalized to 27/28.
func (w *Wallet) SignPersonal(message string) (string, error) {
	hash := accounts.TextHash([]byte(message))
	signature, err := crypto.Sign(hash, w.key)
	if err != nil {
		return "", fmt.Errorf("personal sign: %w", err)
	}
	if signature[64] < 27 {
		signature[64] += 27
	}
	return hexutil.Encode(signature), nil
}

// Key exposes the raw key for transaction signing in the swap pipeline.
func (w *Wallet) Key() *ecdsa.PrivateKey {
	return w.key
}
