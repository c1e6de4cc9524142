// Package taker implements the Taker-side coinswap orchestrator: the
// per-round state machine that selects Makers, drives the hop-by-hop
// message choreography, watches for confirmation and breach, and runs
// the settlement sweep (Maker 0 first) that hands over multisig private
// keys.
package taker

import (
	"github.com/btcsuite/btcd/wire"
	"github.com/utxoteleport/coinswap-taker/offerbook"
	"github.com/utxoteleport/coinswap-taker/swapcoin"
)

// Position is the Taker's tagged role at the current hop, consulted at
// each decision point rather than modeled via subclassing.
type Position int

const (
	FirstPeer Position = iota
	WatchOnly
	LastPeer
)

func (p Position) String() string {
	switch p {
	case FirstPeer:
		return "first_peer"
	case WatchOnly:
		return "watch_only"
	case LastPeer:
		return "last_peer"
	default:
		return "unknown"
	}
}

// PositionForHop derives the role for hop h of a maker_count-Maker
// round. Hop 0 is the Taker's own initial funding of Maker 0; hops
// 1..makerCount each drive one ProofOfFunding exchange, with hop
// makerCount being the one where the last Maker funds the Taker
// itself.
func PositionForHop(h, makerCount int) Position {
	switch {
	case h == 0:
		return FirstPeer
	case h == makerCount:
		return LastPeer
	default:
		return WatchOnly
	}
}

// Per-hop refund timelock constants, carried verbatim from the
// original protocol (SPEC_FULL.md §D.5).
const (
	RefundLocktime     = 48
	RefundLocktimeStep = 48
)

// LocktimeForHop returns the refund locktime for hop h of a
// maker_count-Maker round: locktimes decrease toward the last hop
// (h == makerCount, locktime == RefundLocktime) so the receiver side
// settles first in the contingent-refund ordering.
func LocktimeForHop(h, makerCount int) uint32 {
	return RefundLocktime + RefundLocktimeStep*uint32(makerCount-h)
}

// SwapLocktimeHopZero is hop 0's locktime: one step longer than any
// later hop's, per SPEC_FULL.md §D.5.
func SwapLocktimeHopZero(makerCount int) uint32 {
	return RefundLocktime + RefundLocktimeStep*uint32(makerCount)
}

// Parameters is the immutable per-round user policy.
type Parameters struct {
	SendAmount       uint64
	MakerCount       int
	TxCount          int
	RequiredConfirms uint32
	FeeRate          uint64
}

// PeerInfo records one hop's Maker metadata: the derived per-swap
// pubkeys and the nonces that produced them (retained because they are
// forwarded to the next Maker's ProofOfFunding), plus the funding and
// contract details of the output this peer received once known.
type PeerInfo struct {
	Offer           offerbook.Offer
	MultisigPubkeys [][33]byte
	MultisigNonces  [][32]byte
	HashlockNonces  [][32]byte

	// SelfReceiver marks the synthetic trailing PeerInfo representing
	// the Taker as the final recipient (no live Maker behind it).
	SelfReceiver bool

	MultisigRedeemscripts [][]byte
	ContractRedeemscripts [][]byte
	FundingAmounts        []int64
}

// FundingTxEntry is one hop's confirmed funding batch plus its merkle
// inclusion proofs.
type FundingTxEntry struct {
	Txs          []*wire.MsgTx
	MerkleProofs [][]byte
}

// State is the append-only record of a round's progress. It is owned
// exclusively by the Orchestrator; no other component mutates it.
type State struct {
	PeerInfos          []PeerInfo
	OutgoingSwapcoins  []*swapcoin.OutgoingSwapcoin
	WatchonlySwapcoins map[int][]*swapcoin.WatchOnlySwapcoin
	IncomingSwapcoins  []*swapcoin.IncomingSwapcoin
	FundingTxs         []FundingTxEntry

	ActivePreimage  [32]byte
	Hashvalue       [20]byte
	TakerPosition   Position
	LastSyncedHeight *uint64

	// HopZeroMinerFee surfaces the wallet-reported fee from hop 0's
	// InitializeCoinswap call, resolved per SPEC_FULL.md §D.6 rather
	// than discarded as the original implementation's TODO left it.
	HopZeroMinerFee uint64

	// OutgoingPrivkeys carries the multisig private keys revealed by
	// the previous Maker forward one settle step, per spec §4.8.
	OutgoingPrivkeys [][]byte
}

// NewState returns an empty State, keyed by hop number per the
// resolution of OQ-1 in DESIGN.md.
func NewState() *State {
	return &State{
		WatchonlySwapcoins: make(map[int][]*swapcoin.WatchOnlySwapcoin),
	}
}
