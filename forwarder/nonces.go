package forwarder

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/identity-registry/interfaces"
	"github.com/ruteri/identity-registry/ledger"
)

// NonceStore holds per-address replay protection counters.
// Writes are journaled so a failed call rolls the counter back.
type NonceStore struct {
	nonces map[common.Address]uint64
}

func NewNonceStore() *NonceStore {
	return &NonceStore{nonces: make(map[common.Address]uint64)}
}

// Get returns the next nonce expected from addr.
func (s *NonceStore) Get(addr common.Address) uint64 {
	return s.nonces[addr]
}

// Consume advances the nonce of addr if expected matches the stored value.
func (s *NonceStore) Consume(env *ledger.Env, addr common.Address, expected uint64) error {
	current := s.nonces[addr]
	if expected != current {
		return fmt.Errorf("%w: %s sent nonce %d, expected %d", interfaces.ErrNonceMismatch, addr.Hex(), expected, current)
	}
	return ledger.Put(env, s.nonces, addr, current+1)
}
