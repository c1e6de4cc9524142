// Package contracts builds and validates the HTLC-style contract
// transactions that secure each hop of a coinswap: a funding output is
// only spendable by revealing the shared preimage (hashlock path) or by
// the original sender after a timeout (timelock path).
package contracts

import (
	"bytes"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/go-errors/errors"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck
)

// ErrBadContractTx is returned by ValidateContractTx on any structural
// or script mismatch.
var ErrBadContractTx = errors.New("bad contract tx")

// Hash160 is RIPEMD160(SHA256(data)), used both for the coinswap
// preimage hashlock and for P2PKH-style pubkey hashes inside the
// contract script.
func Hash160(data []byte) [20]byte {
	sha := chainhash.HashB(data)
	r := ripemd160.New()
	r.Write(sha)
	var out [20]byte
	copy(out[:], r.Sum(nil))
	return out
}

// ContractRedeemscript builds the standard coinswap HTLC redeemscript:
//
//	OP_IF
//	    OP_HASH160 <hashvalue> OP_EQUALVERIFY
//	    OP_DUP OP_HASH160 <hash160(hashlockPubkey)> OP_EQUALVERIFY OP_CHECKSIG
//	OP_ELSE
//	    <locktime> OP_CHECKLOCKTIMEVERIFY OP_DROP
//	    OP_DUP OP_HASH160 <hash160(timelockPubkey)> OP_EQUALVERIFY OP_CHECKSIG
//	OP_ENDIF
//
// hashvalue is RIPEMD160(SHA256(preimage)), identical across every hop
// of a round; locktime strictly decreases from hop to hop.
func ContractRedeemscript(hashlockPubkey, timelockPubkey []byte, hashvalue [20]byte, locktime uint32) ([]byte, error) {
	hashlockHash := Hash160(hashlockPubkey)
	timelockHash := Hash160(timelockPubkey)

	b := txscript.NewScriptBuilder()
	b.AddOp(txscript.OP_IF)
	b.AddOp(txscript.OP_HASH160)
	b.AddData(hashvalue[:])
	b.AddOp(txscript.OP_EQUALVERIFY)
	b.AddOp(txscript.OP_DUP)
	b.AddOp(txscript.OP_HASH160)
	b.AddData(hashlockHash[:])
	b.AddOp(txscript.OP_EQUALVERIFY)
	b.AddOp(txscript.OP_CHECKSIG)
	b.AddOp(txscript.OP_ELSE)
	b.AddInt64(int64(locktime))
	b.AddOp(txscript.OP_CHECKLOCKTIMEVERIFY)
	b.AddOp(txscript.OP_DROP)
	b.AddOp(txscript.OP_DUP)
	b.AddOp(txscript.OP_HASH160)
	b.AddData(timelockHash[:])
	b.AddOp(txscript.OP_EQUALVERIFY)
	b.AddOp(txscript.OP_CHECKSIG)
	b.AddOp(txscript.OP_ENDIF)

	return b.Script()
}

// MultisigRedeemscript builds the standard 2-of-2 OP_CHECKMULTISIG
// script funding a hop's output, with keys ordered lexicographically so
// both sides derive an identical script independently.
func MultisigRedeemscript(pubkeyA, pubkeyB []byte) ([]byte, error) {
	first, second := pubkeyA, pubkeyB
	if bytes.Compare(first, second) > 0 {
		first, second = second, first
	}

	b := txscript.NewScriptBuilder()
	b.AddOp(txscript.OP_2)
	b.AddData(first)
	b.AddData(second)
	b.AddOp(txscript.OP_2)
	b.AddOp(txscript.OP_CHECKMULTISIG)
	return b.Script()
}

// ParseMultisigPubkeys extracts the two compressed pubkeys pushed by a
// MultisigRedeemscript, in the script's own (sorted) order.
func ParseMultisigPubkeys(redeemscript []byte) ([]byte, []byte, error) {
	pushes, err := txscript.PushedData(redeemscript)
	if err != nil {
		return nil, nil, errors.Errorf("parse multisig redeemscript: %v", err)
	}
	if len(pushes) != 2 {
		return nil, nil, errors.Errorf("%v: expected 2 pubkeys, got %d", ErrBadContractTx, len(pushes))
	}
	return pushes[0], pushes[1], nil
}

// WitnessScriptHash returns the P2WSH pkScript paying to redeemScript,
// the same OP_0 <sha256> shape the teacher uses for multisig funding
// outputs.
func WitnessScriptHash(redeemScript []byte) ([]byte, error) {
	b := txscript.NewScriptBuilder()
	b.AddOp(txscript.OP_0)
	h := chainhash.HashB(redeemScript)
	b.AddData(h)
	return b.Script()
}

// CreateReceiversContractTx builds the deterministic single-input,
// single-output contract transaction spending previousOutput and
// paying inputValue to the P2WSH of contractRedeemscript.
func CreateReceiversContractTx(previousOutput wire.OutPoint, inputValue int64, contractRedeemscript []byte) (*wire.MsgTx, error) {
	pkScript, err := WitnessScriptHash(contractRedeemscript)
	if err != nil {
		return nil, errors.Errorf("derive contract pkscript: %v", err)
	}

	tx := wire.NewMsgTx(2)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: previousOutput,
		Sequence:         wire.MaxTxInSequenceNum - 1,
	})
	tx.AddTxOut(wire.NewTxOut(inputValue, pkScript))
	return tx, nil
}

// ValidateContractTx checks that tx has exactly one input and one
// output, that the input spends expectedPreviousOutput when one is
// given, and that the sole output pays the P2WSH of redeemscript.
func ValidateContractTx(tx *wire.MsgTx, expectedPreviousOutput *wire.OutPoint, redeemscript []byte) error {
	if len(tx.TxIn) != 1 || len(tx.TxOut) != 1 {
		return errors.Errorf("%v: expected 1 input and 1 output, got %d/%d",
			ErrBadContractTx, len(tx.TxIn), len(tx.TxOut))
	}

	if expectedPreviousOutput != nil {
		got := tx.TxIn[0].PreviousOutPoint
		if got != *expectedPreviousOutput {
			return errors.Errorf("%v: spends %s, expected %s",
				ErrBadContractTx, got, *expectedPreviousOutput)
		}
	}

	wantScript, err := WitnessScriptHash(redeemscript)
	if err != nil {
		return errors.Errorf("derive expected pkscript: %v", err)
	}
	if !bytes.Equal(tx.TxOut[0].PkScript, wantScript) {
		return errors.Errorf("%v: output does not pay expected redeemscript", ErrBadContractTx)
	}
	return nil
}

// CalculateCoinswapFee computes a Maker's advertised fee for moving
// amount satoshis for timeBlocks blocks, per its fee schedule.
func CalculateCoinswapFee(absoluteSat, amountRelPpb, timeRelPpb, amount, timeBlocks uint64) uint64 {
	amountFee := (amount * amountRelPpb) / 1_000_000_000
	timeFee := (timeBlocks * timeRelPpb) / 1_000_000_000
	return absoluteSat + amountFee + timeFee
}

// MakerFundingVbytes is the estimated virtual size of one Maker funding
// input into a 2-of-2 P2WSH output, used by amount-conservation checks
// to account for the miner fee the Taker pays on the Maker's behalf.
const MakerFundingVbytes = 154

// TakerPaidMinerFee is the miner fee the Taker is deemed to have paid
// for the next Maker's funding inputs: MAKER_FUNDING_VBYTES * feeRate *
// txCount / 1000, matching the spec's amount-conservation formula.
func TakerPaidMinerFee(feeRate uint64, txCount int) uint64 {
	return MakerFundingVbytes * feeRate * uint64(txCount) / 1000
}

// Amount is a convenience alias used when constructing outputs from a
// plain uint64 satoshi count.
type Amount = btcutil.Amount
