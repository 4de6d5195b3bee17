// Package interfaces defines the core interfaces and types for the identity registry system.
// It provides the contract between different components without implementation details.
package interfaces

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ForwarderVersion is the EIP-712 domain version used by the meta-transaction forwarder.
const ForwarderVersion = "1.0.0"

// IPFSHashLength is the length of a base58 encoded CIDv0 content hash.
const IPFSHashLength = 46

// IPFSScheme prefixes content hashes returned without a gateway.
const IPFSScheme = "ipfs://"

// ForwardRequest is a call signed off-chain by From and relayed by a third party.
// Field order and types mirror the EIP-712 struct
// ForwardRequest(address from,address to,uint256 value,uint256 gas,uint256 nonce,bytes data)
// and must not change, the ABI codec converts tuples into this struct by position.
type ForwardRequest struct {
	From  common.Address
	To    common.Address
	Value *big.Int
	Gas   *big.Int
	Nonce *big.Int
	Data  []byte
}

// Normalize fills nil integer fields with zero so the request can be encoded.
func (r ForwardRequest) Normalize() ForwardRequest {
	if r.Value == nil {
		r.Value = new(big.Int)
	}
	if r.Gas == nil {
		r.Gas = new(big.Int)
	}
	if r.Nonce == nil {
		r.Nonce = new(big.Int)
	}
	if r.Data == nil {
		r.Data = []byte{}
	}
	return r
}

// ForwarderDomain is the EIP-712 domain a forwarder instance signs requests under.
type ForwarderDomain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// AdminConfig holds the operator controlled parameters of the registry.
type AdminConfig struct {
	Owner              common.Address
	TrustedForwarder   common.Address
	PrimarySigner      common.Address
	ConvenienceGateway string
	FeeToken           common.Address
}

// Receipt describes the outcome of a transaction executed by the ledger.
type Receipt struct {
	TxHash     common.Hash
	From       common.Address
	To         common.Address
	Status     uint64
	GasUsed    uint64
	ReturnData []byte
	Err        error
}

// NormalizeIdentity folds an identity to its storage key.
// Only ASCII letters are folded so that keys match what signers hash.
func NormalizeIdentity(identity string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, identity)
}
