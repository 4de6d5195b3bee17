package registry

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/identity-registry/cryptoutils"
	"github.com/ruteri/identity-registry/forwarder"
	"github.com/ruteri/identity-registry/interfaces"
	"github.com/ruteri/identity-registry/ledger"
	"github.com/ruteri/identity-registry/storage"
	"github.com/ruteri/identity-registry/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGateway = "https://gateway.example.com/ipfs/"

type testRegistry struct {
	ledger  *ledger.Ledger
	client  *Client
	fwd     *forwarder.Client
	token   *token.Client
	owner   common.Address
	relayer common.Address

	// proofSigner is the configured primary signer, nil for self-signed proofs
	proofSigner *cryptoutils.KeySigner
}

// SetupTestRegistry deploys the forwarder, the fee token and the registry on a fresh ledger.
func SetupTestRegistry(t *testing.T, withProofSigner bool) *testRegistry {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := ledger.New(big.NewInt(31337), log)
	owner := common.HexToAddress("0x0000000000000000000000000000000000000a11")

	var fwd *forwarder.Forwarder
	_, err := l.Deploy(owner, func(addr common.Address) (ledger.Contract, error) {
		fwd = forwarder.New(addr, "", log)
		return fwd, nil
	})
	require.NoError(t, err)

	tokenAddr, err := l.Deploy(owner, func(addr common.Address) (ledger.Contract, error) {
		return token.New(addr, token.Config{Name: "World", Symbol: "WRLD", Owner: owner, TrustedForwarder: fwd.Address()}, log), nil
	})
	require.NoError(t, err)

	tr := &testRegistry{
		ledger:  l,
		owner:   owner,
		relayer: common.HexToAddress("0x0000000000000000000000000000000000000fee"),
	}

	config := interfaces.AdminConfig{
		Owner:              owner,
		TrustedForwarder:   fwd.Address(),
		ConvenienceGateway: testGateway,
		FeeToken:           tokenAddr,
	}
	if withProofSigner {
		tr.proofSigner = newSigner(t)
		config.PrimarySigner = tr.proofSigner.Address()
	}

	registryAddr, err := l.Deploy(owner, func(addr common.Address) (ledger.Contract, error) {
		return New(addr, config, log), nil
	})
	require.NoError(t, err)

	tr.client = NewClient(l, registryAddr)
	tr.fwd = forwarder.NewClient(l, fwd.Domain(l.ChainID()), tr.relayer)
	tr.token = token.NewClient(l, tokenAddr)
	return tr
}

func newSigner(t *testing.T) *cryptoutils.KeySigner {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return cryptoutils.NewKeySigner(key)
}

// proof signs a binding proof for wallet, with the primary signer when one is
// configured and with the wallet's own key otherwise.
func (tr *testRegistry) proof(t *testing.T, wallet *cryptoutils.KeySigner, identity string) []byte {
	t.Helper()
	signer := wallet
	if tr.proofSigner != nil {
		signer = tr.proofSigner
	}
	sig, err := signer.SignPlayerWalletProof(wallet.Address(), identity)
	require.NoError(t, err)
	return sig
}

// as returns a client transacting from wallet.
func (tr *testRegistry) as(wallet common.Address) *Client {
	c := NewClient(tr.ledger, tr.client.Address())
	c.SetTransactor(wallet)
	return c
}

func (tr *testRegistry) setPrimary(t *testing.T, wallet *cryptoutils.KeySigner, identity string) error {
	t.Helper()
	_, err := tr.as(wallet.Address()).SetPlayerPrimaryWallet(context.Background(), identity, tr.proof(t, wallet, identity))
	return err
}

func (tr *testRegistry) addSecondary(t *testing.T, wallet *cryptoutils.KeySigner, identity string) error {
	t.Helper()
	_, err := tr.as(wallet.Address()).SetPlayerSecondaryWallet(context.Background(), identity, tr.proof(t, wallet, identity))
	return err
}

func (tr *testRegistry) requirePrimary(t *testing.T, identity string, expected common.Address) {
	t.Helper()
	wallet, err := tr.client.PlayerPrimaryWallet(context.Background(), identity)
	require.NoError(t, err)
	assert.Equal(t, expected, wallet, "primary wallet of %q", identity)
}

func (tr *testRegistry) requireAssigned(t *testing.T, wallet common.Address, expected string) {
	t.Helper()
	identity, err := tr.client.AssignedWalletPlayer(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, expected, identity, "identity assigned to %s", wallet.Hex())
}

func (tr *testRegistry) requireBalance(t *testing.T, account common.Address, expected int64) {
	t.Helper()
	balance, err := tr.token.BalanceOf(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, 0, balance.Cmp(big.NewInt(expected)), "balance of %s is %s, expected %d", account.Hex(), balance, expected)
}

// TestRegistry_SignerScenario tests a primary binding proven by the signer itself
func TestRegistry_SignerScenario(t *testing.T) {
	tr := SetupTestRegistry(t, false)
	s := newSigner(t)

	require.NoError(t, tr.setPrimary(t, s, "iamarkdev"))

	tr.requirePrimary(t, "iamarkdev", s.Address())
	tr.requireAssigned(t, s.Address(), "iamarkdev")
}

// TestRegistry_CaseInsensitivity tests that every casing of an identity addresses the same bindings
func TestRegistry_CaseInsensitivity(t *testing.T) {
	for _, withSigner := range []bool{false, true} {
		t.Run(map[bool]string{false: "self-signed", true: "primary signer"}[withSigner], func(t *testing.T) {
			tr := SetupTestRegistry(t, withSigner)
			ctx := context.Background()
			username := "_ABCDEFGHIJKLmNOPQRSTUVWXYZ_."
			lc := strings.ToLower(username)

			player := newSigner(t)
			require.NoError(t, tr.setPrimary(t, player, username))

			for _, identity := range []string{username, lc, strings.ToUpper(username)} {
				tr.requirePrimary(t, identity, player.Address())
			}
			tr.requireAssigned(t, player.Address(), lc)

			second := newSigner(t)
			require.NoError(t, tr.addSecondary(t, second, strings.ToUpper(username)))
			for _, identity := range []string{username, lc, strings.ToUpper(username)} {
				wallets, err := tr.client.PlayerSecondaryWallets(ctx, identity)
				require.NoError(t, err)
				assert.Equal(t, []common.Address{second.Address()}, wallets)
			}

			hash := storage.RandomIPFSHash()
			_, err := tr.as(player.Address()).SetPlayerStateData(ctx, lc, hash)
			require.NoError(t, err)
			for _, identity := range []string{username, lc, strings.ToUpper(username)} {
				data, err := tr.client.PlayerStateData(ctx, identity, player.Address(), false)
				require.NoError(t, err)
				assert.Equal(t, "ipfs://"+hash, data)
			}

			// Removal through a different casing hits the same record
			_, err = tr.as(player.Address()).RemovePlayerStateData(ctx, strings.ToUpper(username))
			require.NoError(t, err)
			_, err = tr.client.PlayerStateData(ctx, lc, player.Address(), false)
			require.ErrorIs(t, err, interfaces.ErrRecordNotFound)
		})
	}
}

// TestRegistry_WalletUniqueness tests that a wallet is bound to at most one identity
func TestRegistry_WalletUniqueness(t *testing.T) {
	tr := SetupTestRegistry(t, true)
	ctx := context.Background()
	w := newSigner(t)

	require.NoError(t, tr.setPrimary(t, w, "alice"))

	// A primary wallet cannot become a secondary of anyone
	require.ErrorIs(t, tr.addSecondary(t, w, "bob"), interfaces.ErrWalletAlreadyBound)
	require.ErrorIs(t, tr.addSecondary(t, w, "alice"), interfaces.ErrWalletAlreadyBound)

	s := newSigner(t)
	require.NoError(t, tr.addSecondary(t, s, "alice"))

	// A secondary wallet cannot be bound elsewhere, nor become primary
	require.ErrorIs(t, tr.addSecondary(t, s, "bob"), interfaces.ErrWalletAlreadyBound)
	require.ErrorIs(t, tr.setPrimary(t, s, "bob"), interfaces.ErrWalletAlreadyBound)
	require.ErrorIs(t, tr.setPrimary(t, s, "alice"), interfaces.ErrWalletAlreadyBound)
	tr.requireAssigned(t, s.Address(), "alice")
	tr.requirePrimary(t, "bob", common.Address{})

	// Adding an existing secondary again is a no-op
	require.NoError(t, tr.addSecondary(t, s, "ALICE"))
	wallets, err := tr.client.PlayerSecondaryWallets(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []common.Address{s.Address()}, wallets)

	// Once released the wallet can be bound again
	_, err = tr.as(s.Address()).RemovePlayerSecondaryWallet(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, tr.addSecondary(t, s, "bob"))
	tr.requireAssigned(t, s.Address(), "bob")
}

// TestRegistry_PrimaryRebinding tests that moving a primary wallet releases its previous owner
func TestRegistry_PrimaryRebinding(t *testing.T) {
	tr := SetupTestRegistry(t, true)
	w := newSigner(t)

	require.NoError(t, tr.setPrimary(t, w, "i1"))
	require.NoError(t, tr.setPrimary(t, w, "I2"))

	tr.requirePrimary(t, "i1", common.Address{})
	tr.requirePrimary(t, "i2", w.Address())
	tr.requireAssigned(t, w.Address(), "i2")

	// Setting the same primary again keeps the binding
	require.NoError(t, tr.setPrimary(t, w, "i2"))
	tr.requirePrimary(t, "i2", w.Address())

	// A new primary for i2 releases w
	w2 := newSigner(t)
	require.NoError(t, tr.setPrimary(t, w2, "i2"))
	tr.requirePrimary(t, "i2", w2.Address())
	tr.requireAssigned(t, w2.Address(), "i2")
	tr.requireAssigned(t, w.Address(), "")
}

// TestRegistry_SecondaryOrdering tests insertion order and order preserving removal
func TestRegistry_SecondaryOrdering(t *testing.T) {
	tr := SetupTestRegistry(t, false)
	ctx := context.Background()
	w1, w2, w3 := newSigner(t), newSigner(t), newSigner(t)

	for _, w := range []*cryptoutils.KeySigner{w1, w2, w3} {
		require.NoError(t, tr.addSecondary(t, w, "player"))
	}

	wallets, err := tr.client.PlayerSecondaryWallets(ctx, "player")
	require.NoError(t, err)
	assert.Equal(t, []common.Address{w1.Address(), w2.Address(), w3.Address()}, wallets)

	_, err = tr.as(w2.Address()).RemovePlayerSecondaryWallet(ctx, "Player")
	require.NoError(t, err)

	wallets, err = tr.client.PlayerSecondaryWallets(ctx, "player")
	require.NoError(t, err)
	assert.Equal(t, []common.Address{w1.Address(), w3.Address()}, wallets)
	tr.requireAssigned(t, w2.Address(), "")

	_, err = tr.as(w2.Address()).RemovePlayerSecondaryWallet(ctx, "player")
	require.ErrorIs(t, err, interfaces.ErrNotBound)

	// Only the wallet itself can remove its binding
	_, err = tr.as(w2.Address()).RemovePlayerSecondaryWallet(ctx, "someone-else")
	require.ErrorIs(t, err, interfaces.ErrNotBound)

	_, err = tr.as(w1.Address()).RemovePlayerSecondaryWallet(ctx, "player")
	require.NoError(t, err)
	_, err = tr.as(w3.Address()).RemovePlayerSecondaryWallet(ctx, "player")
	require.NoError(t, err)

	wallets, err = tr.client.PlayerSecondaryWallets(ctx, "player")
	require.NoError(t, err)
	assert.Empty(t, wallets)
}

// TestRegistry_Proofs tests binding proof verification in both signer modes
func TestRegistry_Proofs(t *testing.T) {
	ctx := context.Background()

	t.Run("self-signed", func(t *testing.T) {
		tr := SetupTestRegistry(t, false)
		player := newSigner(t)
		other := newSigner(t)

		_, err := tr.as(player.Address()).SetPlayerPrimaryWallet(ctx, "player", nil)
		require.ErrorIs(t, err, interfaces.ErrSignatureRequired)

		foreign, err := other.SignPlayerWalletProof(player.Address(), "player")
		require.NoError(t, err)
		_, err = tr.as(player.Address()).SetPlayerPrimaryWallet(ctx, "player", foreign)
		require.ErrorIs(t, err, interfaces.ErrIdentityMismatch)

		// A proof for one identity does not bind another
		wrongIdentity, err := player.SignPlayerWalletProof(player.Address(), "somebody")
		require.NoError(t, err)
		_, err = tr.as(player.Address()).SetPlayerPrimaryWallet(ctx, "player", wrongIdentity)
		require.Error(t, err)

		_, err = tr.as(player.Address()).SetPlayerPrimaryWallet(ctx, "player", []byte{1, 2, 3})
		require.ErrorIs(t, err, interfaces.ErrInvalidSignature)

		require.NoError(t, tr.setPrimary(t, player, "player"))

		// Secondary wallets need no proof without a primary signer
		second := newSigner(t)
		_, err = tr.as(second.Address()).SetPlayerSecondaryWallet(ctx, "player", nil)
		require.NoError(t, err)

		// but a supplied proof is still checked
		third := newSigner(t)
		foreign, err = other.SignPlayerWalletProof(third.Address(), "player")
		require.NoError(t, err)
		_, err = tr.as(third.Address()).SetPlayerSecondaryWallet(ctx, "player", foreign)
		require.ErrorIs(t, err, interfaces.ErrIdentityMismatch)
	})

	t.Run("primary signer", func(t *testing.T) {
		tr := SetupTestRegistry(t, true)
		player := newSigner(t)

		_, err := tr.as(player.Address()).SetPlayerPrimaryWallet(ctx, "player", nil)
		require.ErrorIs(t, err, interfaces.ErrSignatureRequired)

		selfSigned, err := player.SignPlayerWalletProof(player.Address(), "player")
		require.NoError(t, err)
		_, err = tr.as(player.Address()).SetPlayerPrimaryWallet(ctx, "player", selfSigned)
		require.ErrorIs(t, err, interfaces.ErrInvalidSignature)

		second := newSigner(t)
		_, err = tr.as(second.Address()).SetPlayerSecondaryWallet(ctx, "player", nil)
		require.ErrorIs(t, err, interfaces.ErrSignatureRequired)

		require.NoError(t, tr.setPrimary(t, player, "player"))
		require.NoError(t, tr.addSecondary(t, second, "player"))

		// Rotating the signer invalidates proofs issued by the previous one
		rotated := newSigner(t)
		_, err = tr.as(tr.owner).SetPrimarySigner(ctx, rotated.Address())
		require.NoError(t, err)
		require.ErrorIs(t, tr.addSecondary(t, newSigner(t), "player"), interfaces.ErrInvalidSignature)
	})
}

// TestRegistry_InvalidIdentity tests that empty identities are rejected
func TestRegistry_InvalidIdentity(t *testing.T) {
	tr := SetupTestRegistry(t, true)
	ctx := context.Background()
	w := newSigner(t)

	require.ErrorIs(t, tr.setPrimary(t, w, ""), interfaces.ErrInvalidIdentity)
	require.ErrorIs(t, tr.addSecondary(t, w, ""), interfaces.ErrInvalidIdentity)

	_, err := tr.as(w.Address()).SetPlayerStateData(ctx, "", storage.RandomIPFSHash())
	require.ErrorIs(t, err, interfaces.ErrInvalidIdentity)

	_, err = tr.client.PlayerPrimaryWallet(ctx, "")
	require.ErrorIs(t, err, interfaces.ErrInvalidIdentity)
}

// TestRegistry_StateData tests state record round trips and reference formats
func TestRegistry_StateData(t *testing.T) {
	tr := SetupTestRegistry(t, true)
	ctx := context.Background()
	author := common.HexToAddress("0x00000000000000000000000000000000000a7401")
	otherAuthor := common.HexToAddress("0x00000000000000000000000000000000000a7402")
	hash := storage.RandomIPFSHash()

	_, err := tr.as(author).SetPlayerStateData(ctx, "Player", hash)
	require.NoError(t, err)

	data, err := tr.client.PlayerStateData(ctx, "player", author, false)
	require.NoError(t, err)
	assert.Equal(t, "ipfs://"+hash, data)

	data, err = tr.client.PlayerStateData(ctx, "player", author, true)
	require.NoError(t, err)
	assert.Equal(t, testGateway+hash, data)

	// Records are keyed by author
	_, err = tr.client.PlayerStateData(ctx, "player", otherAuthor, false)
	require.ErrorIs(t, err, interfaces.ErrRecordNotFound)

	// Overwrite
	updated := storage.RandomIPFSHash()
	_, err = tr.as(author).SetPlayerStateData(ctx, "player", updated)
	require.NoError(t, err)
	data, err = tr.client.PlayerStateData(ctx, "player", author, false)
	require.NoError(t, err)
	assert.Equal(t, "ipfs://"+updated, data)

	// Another author removing its (missing) record leaves ours untouched
	_, err = tr.as(otherAuthor).RemovePlayerStateData(ctx, "player")
	require.NoError(t, err)
	_, err = tr.client.PlayerStateData(ctx, "player", author, false)
	require.NoError(t, err)

	_, err = tr.as(author).RemovePlayerStateData(ctx, "player")
	require.NoError(t, err)
	_, err = tr.client.PlayerStateData(ctx, "player", author, false)
	require.ErrorIs(t, err, interfaces.ErrRecordNotFound)

	for _, invalid := range []string{"", "short", hash + "x", strings.Repeat("0", interfaces.IPFSHashLength)} {
		_, err = tr.as(author).SetPlayerStateData(ctx, "player", invalid)
		require.ErrorIs(t, err, interfaces.ErrInvalidIPFSHash, invalid)
	}

	// Gateway changes apply to reads of existing records
	_, err = tr.as(author).SetPlayerStateData(ctx, "player", hash)
	require.NoError(t, err)
	_, err = tr.as(tr.owner).SetConvenienceGateway(ctx, "https://routing.example.org/ipfs/")
	require.NoError(t, err)
	data, err = tr.client.PlayerStateData(ctx, "player", author, true)
	require.NoError(t, err)
	assert.Equal(t, "https://routing.example.org/ipfs/"+hash, data)
}

// TestRegistry_StateDataBatch tests batch reads with and without missing records
func TestRegistry_StateDataBatch(t *testing.T) {
	tr := SetupTestRegistry(t, true)
	ctx := context.Background()
	author := common.HexToAddress("0x00000000000000000000000000000000000a7401")
	h1, h3 := storage.RandomIPFSHash(), storage.RandomIPFSHash()

	_, err := tr.as(author).SetPlayerStateData(ctx, "one", h1)
	require.NoError(t, err)
	_, err = tr.as(author).SetPlayerStateData(ctx, "three", h3)
	require.NoError(t, err)

	results, err := tr.client.PlayerStateDataBatch(ctx, []string{"ONE", "three"}, author, false, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"ipfs://" + h1, "ipfs://" + h3}, results)

	_, err = tr.client.PlayerStateDataBatch(ctx, []string{"one", "two", "three"}, author, false, false)
	require.ErrorIs(t, err, interfaces.ErrRecordNotFound)
	assert.Contains(t, err.Error(), "batch index 1")

	results, err = tr.client.PlayerStateDataBatch(ctx, []string{"one", "two", "three"}, author, true, true)
	require.NoError(t, err)
	assert.Equal(t, []string{testGateway + h1, "", testGateway + h3}, results)

	results, err = tr.client.PlayerStateDataBatch(ctx, nil, author, false, false)
	require.NoError(t, err)
	assert.Empty(t, results)

	// Invalid identities are not masked by allowMissing
	_, err = tr.client.PlayerStateDataBatch(ctx, []string{"one", ""}, author, false, true)
	require.ErrorIs(t, err, interfaces.ErrInvalidIdentity)
}

// TestRegistry_ForwardedActions tests that plain entry points honour the forwarded sender
func TestRegistry_ForwardedActions(t *testing.T) {
	tr := SetupTestRegistry(t, true)
	ctx := context.Background()
	player := newSigner(t)

	data, err := ABI.Pack("setPlayerPrimaryWallet", "Player", tr.proof(t, player, "player"))
	require.NoError(t, err)
	_, err = tr.fwd.SignAndRelay(ctx, player, interfaces.ForwardRequest{
		From: player.Address(),
		To:   tr.client.Address(),
		Gas:  big.NewInt(int64(DefaultActionGas)),
		Data: data,
	})
	require.NoError(t, err)

	tr.requirePrimary(t, "player", player.Address())
	tr.requireAssigned(t, tr.relayer, "")

	hash := storage.RandomIPFSHash()
	data, err = ABI.Pack("setPlayerStateData", "player", hash)
	require.NoError(t, err)
	_, err = tr.fwd.SignAndRelay(ctx, player, interfaces.ForwardRequest{
		From: player.Address(),
		To:   tr.client.Address(),
		Gas:  big.NewInt(int64(DefaultActionGas)),
		Data: data,
	})
	require.NoError(t, err)

	stored, err := tr.client.PlayerStateData(ctx, "player", player.Address(), false)
	require.NoError(t, err)
	assert.Equal(t, "ipfs://"+hash, stored)
}

func (tr *testRegistry) relayGasless(t *testing.T, player *cryptoutils.KeySigner, action Action, fee Fee) (*interfaces.Receipt, error) {
	t.Helper()
	ctx := context.Background()
	nonce, err := tr.fwd.Nonce(ctx, player.Address())
	require.NoError(t, err)

	req, err := BuildGaslessRequest(player, tr.fwd.Domain(), tr.client.Address(), nonce, 0, action, fee)
	require.NoError(t, err)
	return tr.fwd.Relay(ctx, req.Request, req.Signature)
}

// TestRegistry_Gasless tests actions relayed through the forwarder with a token fee
func TestRegistry_Gasless(t *testing.T) {
	tr := SetupTestRegistry(t, true)
	ctx := context.Background()
	player := newSigner(t)

	_, err := tr.token.Mint(ctx, tr.owner, player.Address(), big.NewInt(10))
	require.NoError(t, err)

	fee := Fee{Token: tr.token.Address(), Relayer: tr.relayer, Amount: big.NewInt(3)}

	receipt, err := tr.relayGasless(t, player, SetPrimaryWalletAction("Player", tr.proof(t, player, "player")), fee)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)

	tr.requirePrimary(t, "player", player.Address())
	tr.requireAssigned(t, player.Address(), "player")
	tr.requireBalance(t, player.Address(), 7)
	tr.requireBalance(t, tr.relayer, 3)

	// Outer request and fee request each consumed a nonce
	nonce, err := tr.fwd.Nonce(ctx, player.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), nonce)

	hash := storage.RandomIPFSHash()
	_, err = tr.relayGasless(t, player, SetStateDataAction("player", hash), fee)
	require.NoError(t, err)
	data, err := tr.client.PlayerStateData(ctx, "player", player.Address(), false)
	require.NoError(t, err)
	assert.Equal(t, "ipfs://"+hash, data)

	_, err = tr.relayGasless(t, player, RemoveStateDataAction("player"), Fee{Token: tr.token.Address(), Relayer: tr.relayer})
	require.NoError(t, err)
	_, err = tr.client.PlayerStateData(ctx, "player", player.Address(), false)
	require.ErrorIs(t, err, interfaces.ErrRecordNotFound)

	second := newSigner(t)
	_, err = tr.token.Mint(ctx, tr.owner, second.Address(), big.NewInt(1))
	require.NoError(t, err)
	_, err = tr.relayGasless(t, second, SetSecondaryWalletAction("player", tr.proof(t, second, "player")), Fee{Token: tr.token.Address(), Relayer: tr.relayer, Amount: big.NewInt(1)})
	require.NoError(t, err)
	_, err = tr.relayGasless(t, second, RemoveSecondaryWalletAction("player"), Fee{Token: tr.token.Address(), Relayer: tr.relayer})
	require.NoError(t, err)
	tr.requireAssigned(t, second.Address(), "")

	tr.requireBalance(t, player.Address(), 4)
	tr.requireBalance(t, second.Address(), 0)
	tr.requireBalance(t, tr.relayer, 7)
}

// TestRegistry_GaslessFeeAtomicity tests that a failing fee leaves the action without effect
func TestRegistry_GaslessFeeAtomicity(t *testing.T) {
	tr := SetupTestRegistry(t, true)
	ctx := context.Background()
	player := newSigner(t)
	existing := newSigner(t)

	require.NoError(t, tr.setPrimary(t, existing, "player"))
	_, err := tr.token.Mint(ctx, tr.owner, player.Address(), big.NewInt(2))
	require.NoError(t, err)

	fee := Fee{Token: tr.token.Address(), Relayer: tr.relayer, Amount: big.NewInt(5)}
	receipt, err := tr.relayGasless(t, player, SetPrimaryWalletAction("player", tr.proof(t, player, "player")), fee)
	require.ErrorIs(t, err, interfaces.ErrForwardedCallReverted)
	require.ErrorIs(t, err, interfaces.ErrFeeSettlementFailed)
	require.ErrorIs(t, err, interfaces.ErrInsufficientBalance)
	require.NotNil(t, receipt)
	assert.Equal(t, types.ReceiptStatusFailed, receipt.Status)

	// Binding state equals its pre-call value
	tr.requirePrimary(t, "player", existing.Address())
	tr.requireAssigned(t, existing.Address(), "player")
	tr.requireAssigned(t, player.Address(), "")
	tr.requireBalance(t, player.Address(), 2)
	tr.requireBalance(t, tr.relayer, 0)

	nonce, err := tr.fwd.Nonce(ctx, player.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), nonce)
}

// TestRegistry_GaslessFeeValidation tests fee requests that do not belong to the action
func TestRegistry_GaslessFeeValidation(t *testing.T) {
	tr := SetupTestRegistry(t, true)
	ctx := context.Background()
	player := newSigner(t)
	sponsor := newSigner(t)

	for _, account := range []common.Address{player.Address(), sponsor.Address()} {
		_, err := tr.token.Mint(ctx, tr.owner, account, big.NewInt(10))
		require.NoError(t, err)
	}

	t.Run("fee paid by another account", func(t *testing.T) {
		feeData, err := token.PackTransfer(tr.relayer, big.NewInt(1))
		require.NoError(t, err)
		feeRequest := interfaces.ForwardRequest{
			From:  sponsor.Address(),
			To:    tr.token.Address(),
			Value: new(big.Int),
			Gas:   big.NewInt(int64(DefaultFeeGas)),
			Nonce: new(big.Int),
			Data:  feeData,
		}
		feeSignature, err := sponsor.SignForwardRequest(tr.fwd.Domain(), feeRequest)
		require.NoError(t, err)

		data, err := ABI.Pack("setPlayerPrimaryWalletGasless", "player", tr.proof(t, player, "player"), feeRequest, feeSignature)
		require.NoError(t, err)
		_, err = tr.fwd.SignAndRelay(ctx, player, interfaces.ForwardRequest{
			From: player.Address(),
			To:   tr.client.Address(),
			Gas:  big.NewInt(int64(DefaultActionGas)),
			Data: data,
		})
		require.ErrorIs(t, err, interfaces.ErrFeeSettlementFailed)
		require.ErrorIs(t, err, interfaces.ErrIdentityMismatch)
		tr.requirePrimary(t, "player", common.Address{})
		tr.requireBalance(t, sponsor.Address(), 10)
	})

	t.Run("fee in another token", func(t *testing.T) {
		fee := Fee{Token: common.HexToAddress("0x00000000000000000000000000000000000070c1"), Relayer: tr.relayer, Amount: big.NewInt(1)}
		_, err := tr.relayGasless(t, player, SetPrimaryWalletAction("player", tr.proof(t, player, "player")), fee)
		require.ErrorIs(t, err, interfaces.ErrFeeSettlementFailed)
		tr.requirePrimary(t, "player", common.Address{})
	})

	t.Run("failing action charges no fee", func(t *testing.T) {
		fee := Fee{Token: tr.token.Address(), Relayer: tr.relayer, Amount: big.NewInt(1)}
		_, err := tr.relayGasless(t, player, SetStateDataAction("player", "not-a-hash"), fee)
		require.ErrorIs(t, err, interfaces.ErrInvalidIPFSHash)
		tr.requireBalance(t, player.Address(), 10)
	})
}

// TestRegistry_GaslessRequiresForwarder tests that gas-less entry points reject direct callers
func TestRegistry_GaslessRequiresForwarder(t *testing.T) {
	tr := SetupTestRegistry(t, true)
	ctx := context.Background()
	player := newSigner(t)

	req, err := BuildGaslessRequest(player, tr.fwd.Domain(), tr.client.Address(), 0, 0,
		SetPrimaryWalletAction("player", tr.proof(t, player, "player")),
		Fee{Token: tr.token.Address(), Relayer: tr.relayer})
	require.NoError(t, err)

	_, err = tr.ledger.Transact(ctx, ledger.Message{From: player.Address(), To: tr.client.Address(), Data: req.Request.Data})
	require.ErrorIs(t, err, interfaces.ErrUnauthorized)
	tr.requirePrimary(t, "player", common.Address{})
}

// TestRegistry_Admin tests owner-only configuration setters
func TestRegistry_Admin(t *testing.T) {
	tr := SetupTestRegistry(t, true)
	ctx := context.Background()
	mallory := common.HexToAddress("0x0000000000000000000000000000000000000bad")
	newOwner := common.HexToAddress("0x0000000000000000000000000000000000000a12")

	unauthorized := []func(c *Client) error{
		func(c *Client) error { _, err := c.SetConvenienceGateway(ctx, "https://evil/"); return err },
		func(c *Client) error { _, err := c.SetPrimarySigner(ctx, mallory); return err },
		func(c *Client) error { _, err := c.SetTrustedForwarder(ctx, mallory); return err },
		func(c *Client) error { _, err := c.SetFeeToken(ctx, mallory); return err },
		func(c *Client) error { _, err := c.TransferOwnership(ctx, mallory); return err },
	}
	for _, call := range unauthorized {
		require.ErrorIs(t, call(tr.as(mallory)), interfaces.ErrUnauthorized)
	}

	before, err := tr.client.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, tr.owner, before.Owner)
	assert.Equal(t, testGateway, before.ConvenienceGateway)
	assert.Equal(t, tr.proofSigner.Address(), before.PrimarySigner)
	assert.Equal(t, tr.token.Address(), before.FeeToken)

	owner := tr.as(tr.owner)
	_, err = owner.SetConvenienceGateway(ctx, "https://routing.example.org/ipfs/")
	require.NoError(t, err)
	_, err = owner.SetPrimarySigner(ctx, common.Address{})
	require.NoError(t, err)
	_, err = owner.SetFeeToken(ctx, common.Address{})
	require.NoError(t, err)

	_, err = owner.TransferOwnership(ctx, common.Address{})
	require.ErrorIs(t, err, interfaces.ErrUnauthorized)
	_, err = owner.TransferOwnership(ctx, newOwner)
	require.NoError(t, err)

	after, err := tr.client.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, interfaces.AdminConfig{
		Owner:              newOwner,
		TrustedForwarder:   before.TrustedForwarder,
		ConvenienceGateway: "https://routing.example.org/ipfs/",
	}, after)

	_, err = owner.SetConvenienceGateway(ctx, testGateway)
	require.ErrorIs(t, err, interfaces.ErrUnauthorized)
	_, err = tr.as(newOwner).SetConvenienceGateway(ctx, testGateway)
	require.NoError(t, err)

	// Once the forwarder is untrusted its calls no longer act for the signer
	_, err = tr.as(newOwner).SetTrustedForwarder(ctx, common.Address{})
	require.NoError(t, err)
	player := newSigner(t)
	data, err := ABI.Pack("setPlayerStateData", "player", storage.RandomIPFSHash())
	require.NoError(t, err)
	_, _ = tr.fwd.SignAndRelay(ctx, player, interfaces.ForwardRequest{
		From: player.Address(),
		To:   tr.client.Address(),
		Gas:  big.NewInt(int64(DefaultActionGas)),
		Data: data,
	})
	_, err = tr.client.PlayerStateData(ctx, "player", player.Address(), false)
	require.ErrorIs(t, err, interfaces.ErrRecordNotFound)
}

// TestRegistry_DirectTransactRequiresTransactor tests the client guard for state changing calls
func TestRegistry_DirectTransactRequiresTransactor(t *testing.T) {
	tr := SetupTestRegistry(t, false)
	_, err := tr.client.SetPlayerStateData(context.Background(), "player", storage.RandomIPFSHash())
	require.ErrorIs(t, err, ErrNoTransactor)
}

// TestNewSystemIdentity tests system issued identities
func TestNewSystemIdentity(t *testing.T) {
	a, b := NewSystemIdentity(), NewSystemIdentity()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
	assert.Equal(t, strings.ToLower(a), a)
}
