package storage

import (
	"crypto/rand"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multihash"
	"github.com/ruteri/identity-registry/interfaces"
)

// ValidateIPFSHash checks that hash looks like a CIDv0: exactly 46 characters
// of the base58 alphabet.
func ValidateIPFSHash(hash string) error {
	if len(hash) != interfaces.IPFSHashLength {
		return fmt.Errorf("%w: %q has length %d, expected %d", interfaces.ErrInvalidIPFSHash, hash, len(hash), interfaces.IPFSHashLength)
	}
	if _, err := base58.Decode(hash); err != nil {
		return fmt.Errorf("%w: %q: %w", interfaces.ErrInvalidIPFSHash, hash, err)
	}
	return nil
}

// HashOf computes a CIDv0 from the sha2-256 multihash of data.
func HashOf(data []byte) (string, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("failed to hash content: %w", err)
	}
	return cid.NewCidV0(mh).String(), nil
}

// RandomIPFSHash returns a well formed CIDv0 over random bytes.
func RandomIPFSHash() string {
	var digest [32]byte
	if _, err := rand.Read(digest[:]); err != nil {
		panic(err)
	}
	mh, err := multihash.Encode(digest[:], multihash.SHA2_256)
	if err != nil {
		panic(err)
	}
	return base58.Encode(mh)
}
