// Package swapcoin models the three role-variants of a coinswap hop's
// 2-of-2 multisig output plus its HTLC-style contract transaction:
// OutgoingSwapcoin (Taker holds one key, used at hop 0), WatchOnlySwapcoin
// (Taker holds neither key, used to verify Maker-to-Maker hops), and
// IncomingSwapcoin (Taker holds one key and later learns the other, used
// at the final hop). The three share a common capability set rather than
// an inheritance hierarchy, per the polymorphism called for by the
// underlying protocol's role rotation.
package swapcoin

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/go-errors/errors"
)

// ErrWrongPrivkey is raised when an applied private key does not match
// the expected multisig pubkey.
var ErrWrongPrivkey = errors.New("wrong privkey")

// Base holds the fields common to every swapcoin variant.
type Base struct {
	MultisigRedeemscript []byte
	ContractRedeemscript []byte
	ContractTx           *wire.MsgTx
	FundingAmount        int64
	TimelockPubkey       *btcec.PublicKey
	Hashvalue            [20]byte
}

func (b Base) sigHash(inputIndex int, prevOutScript []byte, prevOutAmount int64) ([]byte, error) {
	sigHashes := txscript.NewTxSigHashes(b.ContractTx, txscript.NewCannedPrevOutputFetcher(prevOutScript, prevOutAmount))
	return txscript.CalcWitnessSigHash(
		b.MultisigRedeemscript, sigHashes, txscript.SigHashAll,
		b.ContractTx, inputIndex, prevOutAmount,
	)
}

// OutgoingSwapcoin is hop 0's funding output: the Taker owns MyPrivkey,
// the Maker owns the other multisig key and returns its contract
// signature out-of-band once requested.
type OutgoingSwapcoin struct {
	Base
	MyMultisigPrivkey    *btcec.PrivateKey
	MyMultisigPubkey     *btcec.PublicKey
	OtherMultisigPubkey  *btcec.PublicKey
	OthersContractSig    []byte
}

// SignContract produces the Taker's signature over the contract tx's
// single input, spending fundingOutScript/fundingOutAmount.
func (o *OutgoingSwapcoin) SignContract(fundingOutScript []byte) ([]byte, error) {
	hash, err := o.sigHash(0, fundingOutScript, o.FundingAmount)
	if err != nil {
		return nil, errors.Errorf("sighash: %v", err)
	}
	sig := ecdsa.Sign(o.MyMultisigPrivkey, hash)
	return append(sig.Serialize(), byte(txscript.SigHashAll)), nil
}

// VerifyOthersSig verifies a signature the Maker produced over this
// swapcoin's contract tx against OtherMultisigPubkey.
func (o *OutgoingSwapcoin) VerifyOthersSig(fundingOutScript []byte, sig []byte) error {
	return verifySig(o.Base, fundingOutScript, o.OtherMultisigPubkey, sig)
}

// WatchOnlySwapcoin represents an intermediate hop's funding output,
// for which the Taker holds no private key; it is used only to verify
// the Maker-to-Maker contract at that hop.
type WatchOnlySwapcoin struct {
	Base
	SenderMultisigPubkey   *btcec.PublicKey
	ReceiverMultisigPubkey *btcec.PublicKey
}

// VerifySenderSig verifies a sending-Maker's signature over the
// contract tx.
func (w *WatchOnlySwapcoin) VerifySenderSig(fundingOutScript []byte, sig []byte) error {
	return verifySig(w.Base, fundingOutScript, w.SenderMultisigPubkey, sig)
}

// VerifyReceiverSig verifies a receiving-Maker's signature over the
// contract tx.
func (w *WatchOnlySwapcoin) VerifyReceiverSig(fundingOutScript []byte, sig []byte) error {
	return verifySig(w.Base, fundingOutScript, w.ReceiverMultisigPubkey, sig)
}

// IncomingSwapcoin is the final hop's funding output: the Taker owns
// MyMultisigPrivkey and, after settlement's privkey handover, learns
// OtherPrivkey too, collapsing the 2-of-2 into sole spendability.
type IncomingSwapcoin struct {
	Base
	MyMultisigPrivkey   *btcec.PrivateKey
	MyMultisigPubkey    *btcec.PublicKey
	OtherMultisigPubkey *btcec.PublicKey
	OtherPrivkey        *btcec.PrivateKey

	// MyHashlockPrivkey is the Taker's own freshly generated hashlock
	// key for this swapcoin, retained so the Taker can claim the
	// output unilaterally via the hashlock branch if the cooperative
	// privkey handover in settle never completes.
	MyHashlockPrivkey *btcec.PrivateKey
}

// ApplyPrivkey validates that priv derives OtherMultisigPubkey and, if
// so, stores it. This is the operation settlement uses to collapse the
// 2-of-2 into a wallet-spendable output.
func (in *IncomingSwapcoin) ApplyPrivkey(priv *btcec.PrivateKey) error {
	pub := priv.PubKey()
	if !pub.IsEqual(in.OtherMultisigPubkey) {
		return ErrWrongPrivkey
	}
	in.OtherPrivkey = priv
	return nil
}

// SignContract produces the Taker's signature over the incoming
// swapcoin's contract tx.
func (in *IncomingSwapcoin) SignContract(fundingOutScript []byte) ([]byte, error) {
	hash, err := in.sigHash(0, fundingOutScript, in.FundingAmount)
	if err != nil {
		return nil, errors.Errorf("sighash: %v", err)
	}
	sig := ecdsa.Sign(in.MyMultisigPrivkey, hash)
	return append(sig.Serialize(), byte(txscript.SigHashAll)), nil
}

func verifySig(b Base, fundingOutScript []byte, pub *btcec.PublicKey, rawSig []byte) error {
	if len(rawSig) == 0 {
		return errors.New("empty signature")
	}
	sig, err := ecdsa.ParseDERSignature(rawSig[:len(rawSig)-1])
	if err != nil {
		return errors.Errorf("parse signature: %v", err)
	}
	hash, err := b.sigHash(0, fundingOutScript, b.FundingAmount)
	if err != nil {
		return errors.Errorf("sighash: %v", err)
	}
	if !sig.Verify(hash, pub) {
		return errors.New("signature verification failed")
	}
	return nil
}
