package forwarder

import (
	"github.com/ruteri/identity-registry/ledger"
)

const forwardRequestTuple = `{
	"name": "req", "type": "tuple", "internalType": "struct MinimalForwarder.ForwardRequest",
	"components": [
		{"name": "from", "type": "address"},
		{"name": "to", "type": "address"},
		{"name": "value", "type": "uint256"},
		{"name": "gas", "type": "uint256"},
		{"name": "nonce", "type": "uint256"},
		{"name": "data", "type": "bytes"}
	]
}`

// ABIDefinition is the JSON ABI of the meta-transaction forwarder.
const ABIDefinition = `[
	{
		"type": "function", "name": "getNonce", "stateMutability": "view",
		"inputs": [{"name": "from", "type": "address"}],
		"outputs": [{"name": "", "type": "uint256"}]
	},
	{
		"type": "function", "name": "verify", "stateMutability": "view",
		"inputs": [` + forwardRequestTuple + `, {"name": "signature", "type": "bytes"}],
		"outputs": [{"name": "", "type": "bool"}]
	},
	{
		"type": "function", "name": "execute", "stateMutability": "payable",
		"inputs": [` + forwardRequestTuple + `, {"name": "signature", "type": "bytes"}],
		"outputs": [{"name": "success", "type": "bool"}, {"name": "returnData", "type": "bytes"}]
	}
]`

// ABI is the parsed forwarder ABI used by the contract and its clients.
var ABI = ledger.MustParseABI(ABIDefinition)
