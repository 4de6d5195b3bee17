package cryptoutils

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/identity-registry/interfaces"
)

// SignatureLength is the length of a recoverable secp256k1 signature [R || S || V].
const SignatureLength = crypto.SignatureLength

var (
	addressTy, _ = abi.NewType("address", "", nil)
	stringTy, _  = abi.NewType("string", "", nil)

	playerWalletArguments = abi.Arguments{
		{Type: addressTy},
		{Type: stringTy},
	}
)

// PlayerWalletHash computes keccak256(abi.encode(wallet, identity)), the message
// a wallet binding proof is signed over. The identity must already be normalized.
func PlayerWalletHash(wallet common.Address, lcIdentity string) (common.Hash, error) {
	packed, err := playerWalletArguments.Pack(wallet, lcIdentity)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(packed), nil
}

// PlayerWalletProofDigest returns the EIP-191 personal message digest of the wallet hash.
// This is what personal_sign / signMessage produce a signature over.
func PlayerWalletProofDigest(wallet common.Address, lcIdentity string) ([]byte, error) {
	hash, err := PlayerWalletHash(wallet, lcIdentity)
	if err != nil {
		return nil, err
	}
	return accounts.TextHash(hash.Bytes()), nil
}

// SignPlayerWalletProof signs a wallet binding proof with the given key.
func SignPlayerWalletProof(key *ecdsa.PrivateKey, wallet common.Address, identity string) ([]byte, error) {
	digest, err := PlayerWalletProofDigest(wallet, interfaces.NormalizeIdentity(identity))
	if err != nil {
		return nil, err
	}
	return SignDigest(key, digest)
}

// SignDigest signs a 32-byte digest and returns a signature with V in {27, 28}.
func SignDigest(key *ecdsa.PrivateKey, digest []byte) ([]byte, error) {
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// RecoverSigner recovers the address that produced sig over digest.
// Both the {0, 1} and the {27, 28} recovery id conventions are accepted,
// high-s signatures are rejected.
func RecoverSigner(digest []byte, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, fmt.Errorf("%w: expected %d bytes, got %d", interfaces.ErrInvalidSignature, SignatureLength, len(sig))
	}

	normalized := make([]byte, SignatureLength)
	copy(normalized, sig)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}
	if normalized[crypto.RecoveryIDOffset] > 1 {
		return common.Address{}, fmt.Errorf("%w: invalid recovery id %d", interfaces.ErrInvalidSignature, sig[crypto.RecoveryIDOffset])
	}

	r := new(big.Int).SetBytes(normalized[:32])
	s := new(big.Int).SetBytes(normalized[32:64])
	if !crypto.ValidateSignatureValues(normalized[crypto.RecoveryIDOffset], r, s, true) {
		return common.Address{}, fmt.Errorf("%w: signature values out of range or malleable", interfaces.ErrInvalidSignature)
	}

	pubkey, err := crypto.SigToPub(digest, normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", interfaces.ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pubkey), nil
}

// VerifySigner checks that sig over digest was produced by expected.
func VerifySigner(expected common.Address, digest []byte, sig []byte) error {
	signer, err := RecoverSigner(digest, sig)
	if err != nil {
		return err
	}
	if signer != expected {
		return fmt.Errorf("%w: recovered %s, expected %s", interfaces.ErrInvalidSignature, signer.Hex(), expected.Hex())
	}
	return nil
}
