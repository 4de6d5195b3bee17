package api

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/identity-registry/interfaces"
)

// ForwardRequest is the JSON form of interfaces.ForwardRequest.
// Integers are encoded as decimal JSON numbers, data as 0x-prefixed hex.
type ForwardRequest struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Value *big.Int       `json:"value"`
	Gas   *big.Int       `json:"gas"`
	Nonce *big.Int       `json:"nonce"`
	Data  hexutil.Bytes  `json:"data"`
}

func NewForwardRequest(req interfaces.ForwardRequest) ForwardRequest {
	req = req.Normalize()
	return ForwardRequest{
		From:  req.From,
		To:    req.To,
		Value: req.Value,
		Gas:   req.Gas,
		Nonce: req.Nonce,
		Data:  req.Data,
	}
}

func (r ForwardRequest) Request() interfaces.ForwardRequest {
	return interfaces.ForwardRequest{
		From:  r.From,
		To:    r.To,
		Value: r.Value,
		Gas:   r.Gas,
		Nonce: r.Nonce,
		Data:  r.Data,
	}.Normalize()
}

// RelayRequest is the body of POST /api/relay.
type RelayRequest struct {
	Request   ForwardRequest `json:"request"`
	Signature hexutil.Bytes  `json:"signature"`
}

// RelayResponse describes a successfully relayed request.
type RelayResponse struct {
	TxHash  common.Hash `json:"tx_hash"`
	GasUsed uint64      `json:"gas_used"`

	// ReturnData is the return value of the forwarded call
	ReturnData hexutil.Bytes `json:"return_data"`
}

type NonceResponse struct {
	Address common.Address `json:"address"`
	Nonce   uint64         `json:"nonce"`
}

// DomainResponse is the EIP-712 domain forward requests must be signed under.
type DomainResponse struct {
	Name              string         `json:"name"`
	Version           string         `json:"version"`
	ChainID           *big.Int       `json:"chain_id"`
	VerifyingContract common.Address `json:"verifying_contract"`
}

func NewDomainResponse(domain interfaces.ForwarderDomain) DomainResponse {
	return DomainResponse{
		Name:              domain.Name,
		Version:           domain.Version,
		ChainID:           domain.ChainID,
		VerifyingContract: domain.VerifyingContract,
	}
}

func (d DomainResponse) Domain() interfaces.ForwarderDomain {
	return interfaces.ForwarderDomain{
		Name:              d.Name,
		Version:           d.Version,
		ChainID:           d.ChainID,
		VerifyingContract: d.VerifyingContract,
	}
}

// RelayInfoResponse tells clients where to send fees and requests.
type RelayInfoResponse struct {
	Relayer   common.Address `json:"relayer"`
	Forwarder common.Address `json:"forwarder"`
}

type PrimaryWalletResponse struct {
	Identity string         `json:"identity"`
	Wallet   common.Address `json:"wallet"`
}

type SecondaryWalletsResponse struct {
	Identity string           `json:"identity"`
	Wallets  []common.Address `json:"wallets"`
}

type WalletPlayerResponse struct {
	Wallet   common.Address `json:"wallet"`
	Identity string         `json:"identity"`
}

type StateDataResponse struct {
	Identity  string         `json:"identity"`
	Author    common.Address `json:"author"`
	Reference string         `json:"reference"`
}

// StateDataBatchRequest is the body of POST /api/players/state/batch.
type StateDataBatchRequest struct {
	Identities   []string       `json:"identities"`
	Author       common.Address `json:"author"`
	Gateway      bool           `json:"gateway"`
	AllowMissing bool           `json:"allow_missing"`
}

// StateDataBatchResponse holds references parallel to the requested identities.
// Missing records are empty strings when allow_missing was set.
type StateDataBatchResponse struct {
	References []string `json:"references"`
}

// ConfigResponse is the admin configuration together with the registry address,
// which gas-less requests must target.
type ConfigResponse struct {
	Registry           common.Address `json:"registry"`
	Owner              common.Address `json:"owner"`
	TrustedForwarder   common.Address `json:"trusted_forwarder"`
	PrimarySigner      common.Address `json:"primary_signer"`
	ConvenienceGateway string         `json:"convenience_gateway"`
	FeeToken           common.Address `json:"fee_token"`
}

func NewConfigResponse(registry common.Address, config interfaces.AdminConfig) ConfigResponse {
	return ConfigResponse{
		Registry:           registry,
		Owner:              config.Owner,
		TrustedForwarder:   config.TrustedForwarder,
		PrimarySigner:      config.PrimarySigner,
		ConvenienceGateway: config.ConvenienceGateway,
		FeeToken:           config.FeeToken,
	}
}

func (c ConfigResponse) Config() interfaces.AdminConfig {
	return interfaces.AdminConfig{
		Owner:              c.Owner,
		TrustedForwarder:   c.TrustedForwarder,
		PrimarySigner:      c.PrimarySigner,
		ConvenienceGateway: c.ConvenienceGateway,
		FeeToken:           c.FeeToken,
	}
}

type BalanceResponse struct {
	Account common.Address `json:"account"`
	Balance *big.Int       `json:"balance"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`

	// Forwarded distinguishes a failed forwarded call from a request the
	// forwarder rejected, e.g. an invalid proof from an invalid request signature
	Forwarded bool `json:"forwarded,omitempty"`

	// TxHash is set when a relayed transaction was executed and reverted
	TxHash *common.Hash `json:"tx_hash,omitempty"`
}
