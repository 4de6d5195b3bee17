// Package cryptoutils provides the signature schemes of the identity registry.
//
// Two kinds of signatures are used:
//
//   - Wallet binding proofs: keccak256(abi.encode(wallet, lowercase identity)),
//     signed as an EIP-191 personal message. With a primary signer configured
//     the registry requires the proof to come from it, otherwise from the
//     wallet being bound.
//   - Forward requests: EIP-712 typed data over the forwarder domain
//     {name, version, chainId, verifyingContract} and the ForwardRequest struct.
//
// Recovery accepts 65 byte signatures with v in {0, 1, 27, 28} and rejects
// everything else with interfaces.ErrInvalidSignature.
//
// KeySigner wraps a secp256k1 private key and produces both kinds of
// signatures for clients and tests:
//
//	signer, err := cryptoutils.NewKeySignerFromHex(privateKeyHex)
//	proof, err := signer.SignPlayerWalletProof(wallet, "iamarkdev")
//	sig, err := signer.SignForwardRequest(domain, req)
package cryptoutils
