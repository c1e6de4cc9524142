// Package takerwallet defines the Wallet contract the orchestrator
// depends on (spec §6.4) and a concrete implementation backed by
// lightningnetwork/lnd/kvdb, storing swapcoins and redeemscripts in a
// bucket layout modeled on channeldb/db.go.
package takerwallet

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/go-errors/errors"
	"github.com/utxoteleport/coinswap-taker/swapcoin"
)

// InitResult is returned by InitializeCoinswap: the unbroadcast funding
// transactions plus the OutgoingSwapcoins they fund, and the wallet's
// own miner-fee estimate for the funding batch — supplemented per
// SPEC_FULL.md §D.6 rather than discarded.
type InitResult struct {
	FundingTxs        []*wire.MsgTx
	OutgoingSwapcoins []*swapcoin.OutgoingSwapcoin
	MinerFee          uint64
}

// Wallet is the external collaborator owning key derivation, UTXO
// selection, signing, swapcoin persistence, and disk sync. It is
// single-writer: only the Orchestrator ever calls it.
type Wallet interface {
	InitializeCoinswap(amount uint64, multisigPubkeys, hashlockPubkeys [][33]byte,
		hashvalue [20]byte, swapLocktime uint32, feeRate uint64) (*InitResult, error)

	AddOutgoingSwapcoin(sc *swapcoin.OutgoingSwapcoin) error
	AddIncomingSwapcoin(sc *swapcoin.IncomingSwapcoin) error
	FindIncomingSwapcoinMut(redeemscript []byte) (*swapcoin.IncomingSwapcoin, error)

	ImportWatchonlyRedeemscript(redeemscript []byte) error
	ImportWalletMultisigRedeemscript(redeemscript []byte) error
	ImportTxWithMerkleproof(tx *wire.MsgTx, proof []byte) error
	ImportWalletContractRedeemscript(redeemscript []byte) error

	SaveToDisk() error
}

// ErrSwapcoinNotFound is returned by FindIncomingSwapcoinMut when no
// swapcoin matches the given redeemscript.
var ErrSwapcoinNotFound = errors.New("swapcoin not found")

// txidOf is a small helper used by implementations logging/persisting
// funding transactions by id.
func txidOf(tx *wire.MsgTx) chainhash.Hash {
	return tx.TxHash()
}
