package cryptoutils

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/identity-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerWalletProof_RoundTrip(t *testing.T) {
	signerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(signerKey.PublicKey)

	wallet := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	sig, err := SignPlayerWalletProof(signerKey, wallet, "IAmArkDev")
	require.NoError(t, err)
	require.Len(t, sig, SignatureLength)
	assert.Contains(t, []byte{27, 28}, sig[64])

	// The proof is over the lowercased identity
	digest, err := PlayerWalletProofDigest(wallet, "iamarkdev")
	require.NoError(t, err)

	recovered, err := RecoverSigner(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, signer, recovered)
	assert.NoError(t, VerifySigner(signer, digest, sig))

	// Different identity or wallet must not verify
	otherDigest, err := PlayerWalletProofDigest(wallet, "someoneelse")
	require.NoError(t, err)
	assert.ErrorIs(t, VerifySigner(signer, otherDigest, sig), interfaces.ErrInvalidSignature)

	otherWalletDigest, err := PlayerWalletProofDigest(common.HexToAddress("0xbb"), "iamarkdev")
	require.NoError(t, err)
	assert.ErrorIs(t, VerifySigner(signer, otherWalletDigest, sig), interfaces.ErrInvalidSignature)
}

func TestPlayerWalletHash_MatchesPersonalSign(t *testing.T) {
	wallet := common.HexToAddress("0x1111111111111111111111111111111111111111")
	hash, err := PlayerWalletHash(wallet, "user")
	require.NoError(t, err)

	// abi.encode(address,string): address word, offset word, length word, padded data word
	packed, err := playerWalletArguments.Pack(wallet, "user")
	require.NoError(t, err)
	assert.Len(t, packed, 4*32)
	assert.Equal(t, crypto.Keccak256Hash(packed), hash)

	digest, err := PlayerWalletProofDigest(wallet, "user")
	require.NoError(t, err)
	assert.Equal(t, accounts.TextHash(hash.Bytes()), digest)
}

func TestRecoverSigner_Malformed(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	digest := crypto.Keccak256([]byte("message"))

	sig, err := SignDigest(key, digest)
	require.NoError(t, err)

	tests := []struct {
		name string
		sig  []byte
	}{
		{name: "empty", sig: nil},
		{name: "short", sig: sig[:64]},
		{name: "long", sig: append(append([]byte{}, sig...), 0x00)},
		{name: "bad recovery id", sig: append(append([]byte{}, sig[:64]...), 35)},
		{name: "high s", sig: malleate(sig)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RecoverSigner(digest, tt.sig)
			assert.ErrorIs(t, err, interfaces.ErrInvalidSignature)
		})
	}

	// Raw {0,1} recovery ids are accepted as well
	raw, err := crypto.Sign(digest, key)
	require.NoError(t, err)
	recovered, err := RecoverSigner(digest, raw)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), recovered)
}

func TestForwardRequestSignature(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey)

	domain := interfaces.ForwarderDomain{
		Name:              "IdentityForwarder",
		Version:           interfaces.ForwarderVersion,
		ChainID:           big.NewInt(137),
		VerifyingContract: common.HexToAddress("0x7fE3AEDfC76D7C6DD84b617081A9346DE81236DC"),
	}
	req := interfaces.ForwardRequest{
		From:  from,
		To:    common.HexToAddress("0xD5d86FC8d5C0Ea1aC1Ac5Dfab6E529c9967a45E9"),
		Value: big.NewInt(0),
		Gas:   big.NewInt(100000),
		Nonce: big.NewInt(3),
		Data:  []byte{0xde, 0xad, 0xbe, 0xef},
	}

	sig, err := SignForwardRequest(key, domain, req)
	require.NoError(t, err)

	recovered, err := RecoverForwardRequestSigner(domain, req, sig)
	require.NoError(t, err)
	assert.Equal(t, from, recovered)

	// Any change to the request, chain, or forwarder instance must change the signer
	mutations := map[string]func() (interfaces.ForwarderDomain, interfaces.ForwardRequest){
		"nonce": func() (interfaces.ForwarderDomain, interfaces.ForwardRequest) {
			r := req
			r.Nonce = big.NewInt(4)
			return domain, r
		},
		"data": func() (interfaces.ForwarderDomain, interfaces.ForwardRequest) {
			r := req
			r.Data = []byte{0xde, 0xad}
			return domain, r
		},
		"gas": func() (interfaces.ForwarderDomain, interfaces.ForwardRequest) {
			r := req
			r.Gas = big.NewInt(1)
			return domain, r
		},
		"chain id": func() (interfaces.ForwarderDomain, interfaces.ForwardRequest) {
			d := domain
			d.ChainID = big.NewInt(1)
			return d, req
		},
		"verifying contract": func() (interfaces.ForwarderDomain, interfaces.ForwardRequest) {
			d := domain
			d.VerifyingContract = common.HexToAddress("0x01")
			return d, req
		},
		"name": func() (interfaces.ForwarderDomain, interfaces.ForwardRequest) {
			d := domain
			d.Name = "OtherForwarder"
			return d, req
		},
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			d, r := mutate()
			recovered, err := RecoverForwardRequestSigner(d, r, sig)
			if err == nil {
				assert.NotEqual(t, from, recovered)
			}
		})
	}
}

func TestForwardRequestDigest_NilFields(t *testing.T) {
	domain := interfaces.ForwarderDomain{
		Name:              "IdentityForwarder",
		Version:           interfaces.ForwarderVersion,
		ChainID:           big.NewInt(1),
		VerifyingContract: common.HexToAddress("0x01"),
	}

	// Nil big ints and data are treated as zero values
	withNil, err := ForwardRequestDigest(domain, interfaces.ForwardRequest{From: common.HexToAddress("0x02")})
	require.NoError(t, err)

	withZero, err := ForwardRequestDigest(domain, interfaces.ForwardRequest{
		From:  common.HexToAddress("0x02"),
		Value: big.NewInt(0),
		Gas:   big.NewInt(0),
		Nonce: big.NewInt(0),
		Data:  []byte{},
	})
	require.NoError(t, err)
	assert.Equal(t, withZero, withNil)
}

// malleate returns the high-s twin of a low-s signature, which recovers to the same key.
func malleate(sig []byte) []byte {
	n := crypto.S256().Params().N
	s := new(big.Int).Sub(n, new(big.Int).SetBytes(sig[32:64]))

	out := make([]byte, SignatureLength)
	copy(out, sig[:32])
	s.FillBytes(out[32:64])
	v := sig[crypto.RecoveryIDOffset]
	if v >= 27 {
		out[crypto.RecoveryIDOffset] = 27 + ((v - 27) ^ 1)
	} else {
		out[crypto.RecoveryIDOffset] = v ^ 1
	}
	return out
}
