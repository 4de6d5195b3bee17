package token

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/identity-registry/ledger"
)

// ABIDefinition is the JSON ABI of the fee token.
const ABIDefinition = `[
	{"type": "function", "name": "name", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "string"}]},
	{"type": "function", "name": "symbol", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "string"}]},
	{"type": "function", "name": "decimals", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "uint8"}]},
	{"type": "function", "name": "totalSupply", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "uint256"}]},
	{
		"type": "function", "name": "balanceOf", "stateMutability": "view",
		"inputs": [{"name": "account", "type": "address"}],
		"outputs": [{"name": "", "type": "uint256"}]
	},
	{
		"type": "function", "name": "transfer", "stateMutability": "nonpayable",
		"inputs": [{"name": "to", "type": "address"}, {"name": "amount", "type": "uint256"}],
		"outputs": [{"name": "", "type": "bool"}]
	},
	{
		"type": "function", "name": "mint", "stateMutability": "nonpayable",
		"inputs": [{"name": "to", "type": "address"}, {"name": "amount", "type": "uint256"}],
		"outputs": []
	},
	{
		"type": "function", "name": "isTrustedForwarder", "stateMutability": "view",
		"inputs": [{"name": "forwarder", "type": "address"}],
		"outputs": [{"name": "", "type": "bool"}]
	}
]`

// ABI is the parsed fee token ABI.
var ABI = ledger.MustParseABI(ABIDefinition)

// PackTransfer encodes a transfer call, typically used as the data of a fee request.
func PackTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	return ABI.Pack("transfer", to, amount)
}
