package registry

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/ruteri/identity-registry/forwarder"
	"github.com/ruteri/identity-registry/interfaces"
	"github.com/ruteri/identity-registry/token"
)

// Default gas budgets of gas-less requests.
const (
	DefaultActionGas uint64 = 1_000_000
	DefaultFeeGas    uint64 = 200_000
)

// Signer signs forward requests on behalf of its address.
type Signer interface {
	forwarder.Signer
	Address() common.Address
}

// Action is a registry entry point together with its arguments, without the fee.
type Action struct {
	Method string
	Args   []interface{}
}

func SetPrimaryWalletAction(identity string, proof []byte) Action {
	return Action{Method: "setPlayerPrimaryWallet", Args: []interface{}{identity, proof}}
}

func SetSecondaryWalletAction(identity string, proof []byte) Action {
	return Action{Method: "setPlayerSecondaryWallet", Args: []interface{}{identity, proof}}
}

func RemoveSecondaryWalletAction(identity string) Action {
	return Action{Method: "removePlayerSecondaryWallet", Args: []interface{}{identity}}
}

func SetStateDataAction(identity string, ipfsHash string) Action {
	return Action{Method: "setPlayerStateData", Args: []interface{}{identity, ipfsHash}}
}

func RemoveStateDataAction(identity string) Action {
	return Action{Method: "removePlayerStateData", Args: []interface{}{identity}}
}

// Owner only actions. They have no gas-less variant and pay no relayer fee,
// see BuildForwardedRequest.

func SetConvenienceGatewayAction(gateway string) Action {
	return Action{Method: "setConvenienceGateway", Args: []interface{}{gateway}}
}

func SetPrimarySignerAction(signer common.Address) Action {
	return Action{Method: "setPrimarySigner", Args: []interface{}{signer}}
}

func SetTrustedForwarderAction(forwarder common.Address) Action {
	return Action{Method: "setTrustedForwarder", Args: []interface{}{forwarder}}
}

func SetFeeTokenAction(token common.Address) Action {
	return Action{Method: "setFeeToken", Args: []interface{}{token}}
}

func TransferOwnershipAction(newOwner common.Address) Action {
	return Action{Method: "transferOwnership", Args: []interface{}{newOwner}}
}

// Fee describes the token payment a relayer receives for a gas-less action.
type Fee struct {
	Token   common.Address
	Relayer common.Address
	Amount  *big.Int
	Gas     uint64
}

// GaslessRequest is a signed outer request ready to be relayed through the forwarder.
type GaslessRequest struct {
	Request   interfaces.ForwardRequest
	Signature []byte

	FeeRequest   interfaces.ForwardRequest
	FeeSignature []byte
}

// BuildGaslessRequest signs both the fee transfer and the registry action.
// The outer request consumes nonce, the fee request nested inside it consumes nonce+1.
func BuildGaslessRequest(signer Signer, domain interfaces.ForwarderDomain, registryAddr common.Address, nonce uint64, actionGas uint64, action Action, fee Fee) (*GaslessRequest, error) {
	if actionGas == 0 {
		actionGas = DefaultActionGas
	}
	feeGas := fee.Gas
	if feeGas == 0 {
		feeGas = DefaultFeeGas
	}
	amount := fee.Amount
	if amount == nil {
		amount = new(big.Int)
	}

	feeData, err := token.PackTransfer(fee.Relayer, amount)
	if err != nil {
		return nil, err
	}
	feeRequest := interfaces.ForwardRequest{
		From:  signer.Address(),
		To:    fee.Token,
		Value: new(big.Int),
		Gas:   new(big.Int).SetUint64(feeGas),
		Nonce: new(big.Int).SetUint64(nonce + 1),
		Data:  feeData,
	}
	feeSignature, err := signer.SignForwardRequest(domain, feeRequest)
	if err != nil {
		return nil, fmt.Errorf("could not sign fee request: %w", err)
	}

	args := append(append([]interface{}{}, action.Args...), feeRequest, feeSignature)
	data, err := ABI.Pack(action.Method+"Gasless", args...)
	if err != nil {
		return nil, fmt.Errorf("could not encode %s: %w", action.Method, err)
	}

	request := interfaces.ForwardRequest{
		From:  signer.Address(),
		To:    registryAddr,
		Value: new(big.Int),
		Gas:   new(big.Int).SetUint64(actionGas),
		Nonce: new(big.Int).SetUint64(nonce),
		Data:  data,
	}
	signature, err := signer.SignForwardRequest(domain, request)
	if err != nil {
		return nil, fmt.Errorf("could not sign request: %w", err)
	}

	return &GaslessRequest{
		Request:      request,
		Signature:    signature,
		FeeRequest:   feeRequest,
		FeeSignature: feeSignature,
	}, nil
}

// BuildForwardedRequest signs action as a plain forwarded call of the registry.
// The registry sees the signer as the caller; no fee is attached.
func BuildForwardedRequest(signer Signer, domain interfaces.ForwarderDomain, registryAddr common.Address, nonce uint64, gas uint64, action Action) (interfaces.ForwardRequest, []byte, error) {
	if gas == 0 {
		gas = DefaultActionGas
	}

	data, err := ABI.Pack(action.Method, action.Args...)
	if err != nil {
		return interfaces.ForwardRequest{}, nil, fmt.Errorf("could not encode %s: %w", action.Method, err)
	}

	request := interfaces.ForwardRequest{
		From:  signer.Address(),
		To:    registryAddr,
		Value: new(big.Int),
		Gas:   new(big.Int).SetUint64(gas),
		Nonce: new(big.Int).SetUint64(nonce),
		Data:  data,
	}
	signature, err := signer.SignForwardRequest(domain, request)
	if err != nil {
		return interfaces.ForwardRequest{}, nil, fmt.Errorf("could not sign request: %w", err)
	}
	return request, signature, nil
}

// NewSystemIdentity issues a fresh identity for players that have no username yet.
func NewSystemIdentity() string {
	return uuid.NewString()
}
