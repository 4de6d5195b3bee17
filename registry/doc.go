// Package registry implements the identity registry: it binds case-insensitive
// identities to one primary wallet and an ordered list of secondary wallets,
// and stores per-author IPFS content pointers for each identity.
//
// Every mutating entry point can be called directly by the acting wallet, or
// gas-lessly through the trusted meta-transaction forwarder. In the latter
// case the acting wallet is the forwarded originator, and a second signed
// request paying the relayer a token fee is executed within the same call:
// if the fee cannot be paid, the action is rolled back.
//
// # Wallet proofs
//
// Binding a wallet requires a proof over keccak256(abi.encode(wallet, lowercase(identity))),
// signed as an EIP-191 personal message. When a primary signer is configured
// the proof must come from it; otherwise the wallet signs for itself.
//
// # Usage Example
//
//	client := registry.NewClient(ledger, registryAddress)
//	client.SetTransactor(wallet)
//
//	proof, _ := signer.SignPlayerWalletProof(wallet, "iamarkdev")
//	receipt, err := client.SetPlayerPrimaryWallet(ctx, "iamarkdev", proof)
//
//	// Gas-less, relayed by a third party that is paid in the fee token
//	req, _ := registry.BuildGaslessRequest(signer, relayer.Domain(), registryAddress, nonce, 0,
//	    registry.SetPrimaryWalletAction("iamarkdev", proof),
//	    registry.Fee{Token: tokenAddress, Relayer: relayerAddress, Amount: fee})
//	receipt, err = relayer.Relay(ctx, req.Request, req.Signature)
package registry
