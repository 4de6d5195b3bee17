package cryptoutils

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/ruteri/identity-registry/interfaces"
)

// ForwardRequestTypeName is the EIP-712 primary type of forwarded calls.
const ForwardRequestTypeName = "ForwardRequest"

var forwardRequestTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	ForwardRequestTypeName: {
		{Name: "from", Type: "address"},
		{Name: "to", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "gas", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "data", Type: "bytes"},
	},
}

// ForwardRequestTypedData builds the EIP-712 typed data document for a request.
// The result can be handed to eth_signTypedData_v4 compatible signers as is.
func ForwardRequestTypedData(domain interfaces.ForwarderDomain, req interfaces.ForwardRequest) apitypes.TypedData {
	req = req.Normalize()
	chainID := domain.ChainID
	if chainID == nil {
		chainID = new(big.Int)
	}

	return apitypes.TypedData{
		Types:       forwardRequestTypes,
		PrimaryType: ForwardRequestTypeName,
		Domain: apitypes.TypedDataDomain{
			Name:              domain.Name,
			Version:           domain.Version,
			ChainId:           (*math.HexOrDecimal256)(new(big.Int).Set(chainID)),
			VerifyingContract: domain.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"from":  req.From.Hex(),
			"to":    req.To.Hex(),
			"value": new(big.Int).Set(req.Value),
			"gas":   new(big.Int).Set(req.Gas),
			"nonce": new(big.Int).Set(req.Nonce),
			"data":  req.Data,
		},
	}
}

// ForwardRequestDigest returns keccak256("\x19\x01" || domainSeparator || hashStruct(req)).
func ForwardRequestDigest(domain interfaces.ForwarderDomain, req interfaces.ForwardRequest) (common.Hash, error) {
	digest, _, err := apitypes.TypedDataAndHash(ForwardRequestTypedData(domain, req))
	if err != nil {
		return common.Hash{}, fmt.Errorf("could not hash forward request: %w", err)
	}
	return common.BytesToHash(digest), nil
}

// SignForwardRequest signs req under domain.
func SignForwardRequest(key *ecdsa.PrivateKey, domain interfaces.ForwarderDomain, req interfaces.ForwardRequest) ([]byte, error) {
	digest, err := ForwardRequestDigest(domain, req)
	if err != nil {
		return nil, err
	}
	return SignDigest(key, digest.Bytes())
}

// RecoverForwardRequestSigner recovers the address that signed req under domain.
func RecoverForwardRequestSigner(domain interfaces.ForwarderDomain, req interfaces.ForwardRequest, sig []byte) (common.Address, error) {
	digest, err := ForwardRequestDigest(domain, req)
	if err != nil {
		return common.Address{}, err
	}
	return RecoverSigner(digest.Bytes(), sig)
}
