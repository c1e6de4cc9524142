package taker

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

func TestDeriveHopKeysTweaksAwayFromBase(t *testing.T) {
	base, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	var tweakable [33]byte
	copy(tweakable[:], base.PubKey().SerializeCompressed())

	multisigPubkeys, hashlockPubkeys, multisigNonces, hashlockNonces, err := deriveHopKeys(tweakable, 3)
	require.NoError(t, err)
	require.Len(t, multisigPubkeys, 3)
	require.Len(t, hashlockPubkeys, 3)
	require.Len(t, multisigNonces, 3)
	require.Len(t, hashlockNonces, 3)

	for i := 0; i < 3; i++ {
		require.NotEqual(t, tweakable, multisigPubkeys[i])
		require.NotEqual(t, multisigPubkeys[i], hashlockPubkeys[i])
		require.NotEqual(t, multisigNonces[i], hashlockNonces[i])
	}

	// Re-deriving independently yields different keys: nonces are drawn
	// fresh from an OS CSPRNG each call.
	again, _, _, _, err := deriveHopKeys(tweakable, 3)
	require.NoError(t, err)
	require.NotEqual(t, multisigPubkeys, again)
}

func TestTweakPubkeyMatchesNonceDerivation(t *testing.T) {
	base, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	nonce, err := randomNonce()
	require.NoError(t, err)

	tweaked, err := tweakPubkey(base.PubKey(), nonce)
	require.NoError(t, err)
	require.NotNil(t, tweaked)
	require.NotEqual(t, base.PubKey().SerializeCompressed(), tweaked.SerializeCompressed())

	again, err := tweakPubkey(base.PubKey(), nonce)
	require.NoError(t, err)
	require.Equal(t, tweaked.SerializeCompressed(), again.SerializeCompressed())
}

func TestGenerateOwnKeypairsAreDistinctAndMatchPubkeys(t *testing.T) {
	privkeys, pubkeys, err := generateOwnKeypairs(4)
	require.NoError(t, err)
	require.Len(t, privkeys, 4)
	require.Len(t, pubkeys, 4)

	seen := make(map[[33]byte]bool)
	for i, priv := range privkeys {
		var want [33]byte
		copy(want[:], priv.PubKey().SerializeCompressed())
		require.Equal(t, want, pubkeys[i])
		require.False(t, seen[want], "expected distinct keypairs")
		seen[want] = true
	}
}
