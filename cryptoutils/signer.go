package cryptoutils

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/identity-registry/interfaces"
)

// KeySigner signs wallet proofs and forward requests with a local private key.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func NewKeySigner(key *ecdsa.PrivateKey) *KeySigner {
	return &KeySigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

// NewKeySignerFromHex parses a hex encoded secp256k1 private key, with or without 0x prefix.
func NewKeySignerFromHex(hexKey string) (*KeySigner, error) {
	if len(hexKey) >= 2 && hexKey[0] == '0' && (hexKey[1] == 'x' || hexKey[1] == 'X') {
		hexKey = hexKey[2:]
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, err
	}
	return NewKeySigner(key), nil
}

func (s *KeySigner) Address() common.Address {
	return s.address
}

func (s *KeySigner) SignForwardRequest(domain interfaces.ForwarderDomain, req interfaces.ForwardRequest) ([]byte, error) {
	return SignForwardRequest(s.key, domain, req)
}

func (s *KeySigner) SignPlayerWalletProof(wallet common.Address, identity string) ([]byte, error) {
	return SignPlayerWalletProof(s.key, wallet, identity)
}
