// Package storage publishes player state documents and validates the content
// hashes the registry records for them.
//
// Players store a document off-chain and then call setPlayerStateData with its
// 46 character base58 CIDv0. The publishers in this package produce such
// hashes:
//
//   - IPFSPublisher adds documents to an IPFS node through its HTTP API
//   - FilePublisher keeps documents in a local directory, for development
//   - S3Publisher keeps documents in an S3 compatible bucket
//   - VaultPublisher keeps documents in a Vault KV v2 mount
//   - MultiPublisher fans out to several publishers and reads from the first
//     one that has the document
//
// IPFS assigns hashes itself. The other publishers implement
// interfaces.ContentStore: on their own they hash documents with HashOf, next
// to an IPFS node MultiPublisher stores documents in them under the node's
// hash, so the hash recorded on chain resolves everywhere.
//
// # Location URIs
//
// PublisherFactory builds publishers from URIs:
//
//	ipfs://127.0.0.1:5001/?timeout=30s
//	file:///var/lib/identity-registry/state
//	s3://AKID:SECRET@player-states/v1?region=eu-west-1
//	vault://TOKEN@vault.internal:8200/secret/player-states
//
// # Hashes
//
// ValidateIPFSHash is the check the registry applies to every recorded hash.
// RandomIPFSHash produces well formed hashes for tests and tooling.
package storage
