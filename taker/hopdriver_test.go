package taker

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
	"github.com/utxoteleport/coinswap-taker/contracts"
	"github.com/utxoteleport/coinswap-taker/offerbook"
)

func offerWithConfirms(n uint32) offerbook.Offer {
	return offerbook.Offer{Address: "maker.example:9999", RequiredConfirms: n}
}

func TestParseOtherPubkeyReturnsTheUnknownKey(t *testing.T) {
	privA, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	privB, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	redeemscript, err := contracts.MultisigRedeemscript(
		privA.PubKey().SerializeCompressed(), privB.PubKey().SerializeCompressed(),
	)
	require.NoError(t, err)

	other := parseOtherPubkey(redeemscript, privA.PubKey().SerializeCompressed())
	require.Equal(t, privB.PubKey().SerializeCompressed(), other)

	other = parseOtherPubkey(redeemscript, privB.PubKey().SerializeCompressed())
	require.Equal(t, privA.PubKey().SerializeCompressed(), other)
}

type fakeChainClient struct {
	defaultConfTarget uint32
}

func (f fakeChainClient) DefaultConfTarget() uint32 { return f.defaultConfTarget }

func TestConfirmTargetPrefersOfferValue(t *testing.T) {
	chain := fakeChainClient{defaultConfTarget: 6}

	withOverride := offerWithConfirms(3)
	require.Equal(t, uint32(3), confirmTarget(withOverride, chain))

	withoutOverride := offerWithConfirms(0)
	require.Equal(t, uint32(6), confirmTarget(withoutOverride, chain))
}
