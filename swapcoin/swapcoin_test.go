package swapcoin

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
	"github.com/utxoteleport/coinswap-taker/contracts"
)

func mustKey(t *testing.T) (*btcec.PrivateKey, *btcec.PublicKey) {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return priv, priv.PubKey()
}

func buildOutgoing(t *testing.T) (*OutgoingSwapcoin, []byte) {
	t.Helper()
	myPriv, myPub := mustKey(t)
	_, otherPub := mustKey(t)
	_, hashlockPub := mustKey(t)

	hashvalue := contracts.Hash160([]byte("preimage"))
	redeemscript, err := contracts.ContractRedeemscript(hashlockPub.SerializeCompressed(), otherPub.SerializeCompressed(), hashvalue, 100)
	require.NoError(t, err)

	tx, err := contracts.CreateReceiversContractTx(wire.OutPoint{Index: 0}, 50_000, redeemscript)
	require.NoError(t, err)

	multisigScript, err := contracts.WitnessScriptHash([]byte("fake-multisig-redeemscript"))
	require.NoError(t, err)

	oc := &OutgoingSwapcoin{
		Base: Base{
			MultisigRedeemscript: []byte("fake-multisig-redeemscript"),
			ContractRedeemscript: redeemscript,
			ContractTx:           tx,
			FundingAmount:        50_000,
			TimelockPubkey:       otherPub,
			Hashvalue:            hashvalue,
		},
		MyMultisigPrivkey:   myPriv,
		MyMultisigPubkey:    myPub,
		OtherMultisigPubkey: otherPub,
	}
	return oc, multisigScript
}

func TestOutgoingSwapcoinSignAndVerify(t *testing.T) {
	oc, multisigScript := buildOutgoing(t)

	sig, err := oc.SignContract(multisigScript)
	require.NoError(t, err)

	// The Taker signs with its own key; verifying with its own pubkey
	// (not "others") should succeed using the same helper mechanics.
	err = verifySig(oc.Base, multisigScript, oc.MyMultisigPubkey, sig)
	require.NoError(t, err)

	// Verifying against the wrong pubkey must fail.
	_, wrongPub := mustKey(t)
	err = verifySig(oc.Base, multisigScript, wrongPub, sig)
	require.Error(t, err)
}

func TestIncomingSwapcoinApplyPrivkey(t *testing.T) {
	myPriv, myPub := mustKey(t)
	otherPriv, otherPub := mustKey(t)

	in := &IncomingSwapcoin{
		MyMultisigPrivkey:   myPriv,
		MyMultisigPubkey:    myPub,
		OtherMultisigPubkey: otherPub,
	}

	require.NoError(t, in.ApplyPrivkey(otherPriv))
	require.True(t, in.OtherPrivkey.PubKey().IsEqual(otherPub))

	wrongPriv, _ := mustKey(t)
	in2 := &IncomingSwapcoin{OtherMultisigPubkey: otherPub}
	require.ErrorIs(t, in2.ApplyPrivkey(wrongPriv), ErrWrongPrivkey)
}
