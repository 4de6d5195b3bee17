package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/identity-registry/cryptoutils"
	"github.com/ruteri/identity-registry/interfaces"
	"github.com/ruteri/identity-registry/ledger"
	"github.com/ruteri/identity-registry/storage"
)

func normalizeIdentity(identity string) (string, error) {
	if identity == "" {
		return "", fmt.Errorf("%w: empty identity", interfaces.ErrInvalidIdentity)
	}
	return interfaces.NormalizeIdentity(identity), nil
}

// verifyProof checks a wallet binding proof. With a primary signer configured
// the proof must come from it, otherwise the wallet must have signed for itself.
func (r *Registry) verifyProof(wallet common.Address, lcIdentity string, sig []byte) error {
	if len(sig) == 0 {
		return fmt.Errorf("%w: binding %s to %q", interfaces.ErrSignatureRequired, wallet.Hex(), lcIdentity)
	}

	digest, err := cryptoutils.PlayerWalletProofDigest(wallet, lcIdentity)
	if err != nil {
		return err
	}

	if r.config.PrimarySigner != (common.Address{}) {
		return cryptoutils.VerifySigner(r.config.PrimarySigner, digest, sig)
	}

	signer, err := cryptoutils.RecoverSigner(digest, sig)
	if err != nil {
		return err
	}
	if signer != wallet {
		return fmt.Errorf("%w: proof for %q signed by %s, acting wallet is %s", interfaces.ErrIdentityMismatch, lcIdentity, signer.Hex(), wallet.Hex())
	}
	return nil
}

func (r *Registry) setPrimaryWallet(env *ledger.Env, wallet common.Address, identity string, sig []byte) error {
	lc, err := normalizeIdentity(identity)
	if err != nil {
		return err
	}
	if err := r.verifyProof(wallet, lc, sig); err != nil {
		return err
	}

	if bound, ok := r.walletIdentity[wallet]; ok {
		if r.primaryWallet[bound] != wallet {
			return fmt.Errorf("%w: %s is a secondary wallet of %q", interfaces.ErrWalletAlreadyBound, wallet.Hex(), bound)
		}
		if bound != lc {
			// The wallet moves to the new identity, the old one loses its primary.
			if err := ledger.Delete(env, r.primaryWallet, bound); err != nil {
				return err
			}
		}
	}

	if previous, ok := r.primaryWallet[lc]; ok && previous != wallet {
		if err := ledger.Delete(env, r.walletIdentity, previous); err != nil {
			return err
		}
	}

	if err := ledger.Put(env, r.primaryWallet, lc, wallet); err != nil {
		return err
	}
	if err := ledger.Put(env, r.walletIdentity, wallet, lc); err != nil {
		return err
	}

	r.log.Debug("Primary wallet set", slog.String("identity", lc), slog.String("wallet", wallet.Hex()))
	return nil
}

func (r *Registry) addSecondaryWallet(env *ledger.Env, wallet common.Address, identity string, sig []byte) error {
	lc, err := normalizeIdentity(identity)
	if err != nil {
		return err
	}

	// Proofs for secondary wallets are only enforced by registries with a trusted signer.
	if r.config.PrimarySigner != (common.Address{}) || len(sig) > 0 {
		if err := r.verifyProof(wallet, lc, sig); err != nil {
			return err
		}
	}

	if bound, ok := r.walletIdentity[wallet]; ok {
		if bound != lc {
			return fmt.Errorf("%w: %s is bound to %q", interfaces.ErrWalletAlreadyBound, wallet.Hex(), bound)
		}
		if r.primaryWallet[lc] == wallet {
			return fmt.Errorf("%w: %s is the primary wallet of %q", interfaces.ErrWalletAlreadyBound, wallet.Hex(), lc)
		}
		return nil
	}

	wallets := append(slices.Clone(r.secondaryWallets[lc]), wallet)
	if err := ledger.Put(env, r.secondaryWallets, lc, wallets); err != nil {
		return err
	}
	if err := ledger.Put(env, r.walletIdentity, wallet, lc); err != nil {
		return err
	}

	r.log.Debug("Secondary wallet added", slog.String("identity", lc), slog.String("wallet", wallet.Hex()))
	return nil
}

func (r *Registry) removeSecondaryWallet(env *ledger.Env, wallet common.Address, identity string) error {
	lc, err := normalizeIdentity(identity)
	if err != nil {
		return err
	}

	wallets := r.secondaryWallets[lc]
	idx := slices.Index(wallets, wallet)
	if idx < 0 {
		return fmt.Errorf("%w: %s is not a secondary wallet of %q", interfaces.ErrNotBound, wallet.Hex(), lc)
	}

	// Compact preserving the relative order of the remaining wallets.
	remaining := slices.Delete(slices.Clone(wallets), idx, idx+1)
	if len(remaining) == 0 {
		err = ledger.Delete(env, r.secondaryWallets, lc)
	} else {
		err = ledger.Put(env, r.secondaryWallets, lc, remaining)
	}
	if err != nil {
		return err
	}
	if err := ledger.Delete(env, r.walletIdentity, wallet); err != nil {
		return err
	}

	r.log.Debug("Secondary wallet removed", slog.String("identity", lc), slog.String("wallet", wallet.Hex()))
	return nil
}

func (r *Registry) setStateData(env *ledger.Env, author common.Address, identity string, ipfsHash string) error {
	lc, err := normalizeIdentity(identity)
	if err != nil {
		return err
	}
	if err := storage.ValidateIPFSHash(ipfsHash); err != nil {
		return err
	}
	return ledger.Put(env, r.stateData, stateKey{identity: lc, author: author}, ipfsHash)
}

func (r *Registry) removeStateData(env *ledger.Env, author common.Address, identity string) error {
	lc, err := normalizeIdentity(identity)
	if err != nil {
		return err
	}
	return ledger.Delete(env, r.stateData, stateKey{identity: lc, author: author})
}

func (r *Registry) playerPrimaryWallet(identity string) (common.Address, error) {
	lc, err := normalizeIdentity(identity)
	if err != nil {
		return common.Address{}, err
	}
	return r.primaryWallet[lc], nil
}

func (r *Registry) playerSecondaryWallets(identity string) ([]common.Address, error) {
	lc, err := normalizeIdentity(identity)
	if err != nil {
		return nil, err
	}
	return slices.Clone(r.secondaryWallets[lc]), nil
}

func (r *Registry) assignedWalletPlayer(wallet common.Address) string {
	return r.walletIdentity[wallet]
}

func (r *Registry) contentReference(ipfsHash string, includeGateway bool) string {
	if includeGateway {
		return r.config.ConvenienceGateway + ipfsHash
	}
	return interfaces.IPFSScheme + ipfsHash
}

func (r *Registry) playerStateData(identity string, author common.Address, includeGateway bool) (string, error) {
	lc, err := normalizeIdentity(identity)
	if err != nil {
		return "", err
	}

	ipfsHash, ok := r.stateData[stateKey{identity: lc, author: author}]
	if !ok {
		return "", fmt.Errorf("%w: no state data for %q by %s", interfaces.ErrRecordNotFound, lc, author.Hex())
	}
	return r.contentReference(ipfsHash, includeGateway), nil
}

func (r *Registry) playerStateDataBatch(identities []string, author common.Address, includeGateway bool, allowMissing bool) ([]string, error) {
	results := make([]string, len(identities))
	for i, identity := range identities {
		data, err := r.playerStateData(identity, author, includeGateway)
		switch {
		case err == nil:
			results[i] = data
		case allowMissing && errors.Is(err, interfaces.ErrRecordNotFound):
			results[i] = ""
		default:
			return nil, fmt.Errorf("batch index %d: %w", i, err)
		}
	}
	return results, nil
}
