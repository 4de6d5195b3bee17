package registry

import (
	"strings"

	"github.com/ruteri/identity-registry/ledger"
)

const feeArgs = `,
	{
		"name": "feeRequest", "type": "tuple", "internalType": "struct MinimalForwarder.ForwardRequest",
		"components": [
			{"name": "from", "type": "address"},
			{"name": "to", "type": "address"},
			{"name": "value", "type": "uint256"},
			{"name": "gas", "type": "uint256"},
			{"name": "nonce", "type": "uint256"},
			{"name": "data", "type": "bytes"}
		]
	},
	{"name": "feeSignature", "type": "bytes"}`

const abiTemplate = `[
	{
		"type": "function", "name": "setPlayerPrimaryWallet%GASLESS%", "stateMutability": "nonpayable",
		"inputs": [{"name": "identity", "type": "string"}, {"name": "signature", "type": "bytes"}%FEE%],
		"outputs": []
	},
	{
		"type": "function", "name": "setPlayerSecondaryWallet%GASLESS%", "stateMutability": "nonpayable",
		"inputs": [{"name": "identity", "type": "string"}, {"name": "signature", "type": "bytes"}%FEE%],
		"outputs": []
	},
	{
		"type": "function", "name": "removePlayerSecondaryWallet%GASLESS%", "stateMutability": "nonpayable",
		"inputs": [{"name": "identity", "type": "string"}%FEE%],
		"outputs": []
	},
	{
		"type": "function", "name": "setPlayerStateData%GASLESS%", "stateMutability": "nonpayable",
		"inputs": [{"name": "identity", "type": "string"}, {"name": "ipfsHash", "type": "string"}%FEE%],
		"outputs": []
	},
	{
		"type": "function", "name": "removePlayerStateData%GASLESS%", "stateMutability": "nonpayable",
		"inputs": [{"name": "identity", "type": "string"}%FEE%],
		"outputs": []
	}`

const viewsAndAdmin = `,
	{
		"type": "function", "name": "getPlayerPrimaryWallet", "stateMutability": "view",
		"inputs": [{"name": "identity", "type": "string"}],
		"outputs": [{"name": "", "type": "address"}]
	},
	{
		"type": "function", "name": "getPlayerSecondaryWallets", "stateMutability": "view",
		"inputs": [{"name": "identity", "type": "string"}],
		"outputs": [{"name": "", "type": "address[]"}]
	},
	{
		"type": "function", "name": "assignedWalletPlayer", "stateMutability": "view",
		"inputs": [{"name": "wallet", "type": "address"}],
		"outputs": [{"name": "", "type": "string"}]
	},
	{
		"type": "function", "name": "getPlayerStateData", "stateMutability": "view",
		"inputs": [
			{"name": "identity", "type": "string"},
			{"name": "author", "type": "address"},
			{"name": "includeGateway", "type": "bool"}
		],
		"outputs": [{"name": "", "type": "string"}]
	},
	{
		"type": "function", "name": "getPlayerStateDataBatch", "stateMutability": "view",
		"inputs": [
			{"name": "identities", "type": "string[]"},
			{"name": "author", "type": "address"},
			{"name": "includeGateway", "type": "bool"},
			{"name": "allowMissing", "type": "bool"}
		],
		"outputs": [{"name": "", "type": "string[]"}]
	},
	{
		"type": "function", "name": "adminConfig", "stateMutability": "view", "inputs": [],
		"outputs": [{
			"name": "", "type": "tuple",
			"components": [
				{"name": "owner", "type": "address"},
				{"name": "trustedForwarder", "type": "address"},
				{"name": "primarySigner", "type": "address"},
				{"name": "convenienceGateway", "type": "string"},
				{"name": "feeToken", "type": "address"}
			]
		}]
	},
	{"type": "function", "name": "owner", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "address"}]},
	{"type": "function", "name": "convenienceGateway", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "string"}]},
	{"type": "function", "name": "primarySigner", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "address"}]},
	{"type": "function", "name": "trustedForwarder", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "address"}]},
	{"type": "function", "name": "feeToken", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "address"}]},
	{
		"type": "function", "name": "isTrustedForwarder", "stateMutability": "view",
		"inputs": [{"name": "forwarder", "type": "address"}],
		"outputs": [{"name": "", "type": "bool"}]
	},
	{
		"type": "function", "name": "setConvenienceGateway", "stateMutability": "nonpayable",
		"inputs": [{"name": "gateway", "type": "string"}], "outputs": []
	},
	{
		"type": "function", "name": "setPrimarySigner", "stateMutability": "nonpayable",
		"inputs": [{"name": "signer", "type": "address"}], "outputs": []
	},
	{
		"type": "function", "name": "setTrustedForwarder", "stateMutability": "nonpayable",
		"inputs": [{"name": "forwarder", "type": "address"}], "outputs": []
	},
	{
		"type": "function", "name": "setFeeToken", "stateMutability": "nonpayable",
		"inputs": [{"name": "token", "type": "address"}], "outputs": []
	},
	{
		"type": "function", "name": "transferOwnership", "stateMutability": "nonpayable",
		"inputs": [{"name": "newOwner", "type": "address"}], "outputs": []
	}
]`

// ABIDefinition is the JSON ABI of the identity registry. Every mutating entry
// point has a Gasless twin taking a trailing fee request and fee signature.
var ABIDefinition = buildABIDefinition()

// ABI is the parsed identity registry ABI.
var ABI = ledger.MustParseABI(ABIDefinition)

func buildABIDefinition() string {
	direct := strings.NewReplacer("%GASLESS%", "", "%FEE%", "").Replace(abiTemplate)
	gasless := strings.NewReplacer("%GASLESS%", "Gasless", "%FEE%", feeArgs).Replace(abiTemplate)

	// Splice the gasless entries into the direct array, then close it with views and admin.
	return direct + "," + strings.TrimPrefix(gasless, "[") + viewsAndAdmin
}
