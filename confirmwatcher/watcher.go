// Package confirmwatcher implements the 1-second poll loop that waits
// for a set of funding transactions to confirm while concurrently
// watching for a protocol breach: any known contract transaction
// appearing on-chain or in the mempool before settlement. Both checks
// are interleaved into the same loop rather than split across two
// tasks, since the engine is single-threaded cooperative and a second
// loop would only introduce a cancellation race.
package confirmwatcher

import (
	"bytes"
	"context"
	"encoding/hex"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btclog"
	"github.com/go-errors/errors"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/utxoteleport/coinswap-taker/chainrpc"
)

var log btclog.Logger = btclog.Disabled

// UseLogger sets the package-wide logger used by confirmwatcher.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// Outcome is the terminal result of a watch cycle.
type Outcome int

const (
	// Confirmed means every watched txid reached its required
	// confirmation depth.
	Confirmed Outcome = iota
	// Breach means a watched contract transaction was observed before
	// settlement; the round must abort.
	Breach
)

// Result carries the Confirmed outcome's proofs, or is empty on Breach.
type Result struct {
	Outcome  Outcome
	Txs      []*wire.MsgTx
	Proofs   [][]byte
}

type txWatch struct {
	txid          chainhash.Hash
	requiredConf  uint32
	confirmed     bool
	blockhash     *chainhash.Hash
	seenOnce      bool
}

// Watcher drives one confirmation+breach cycle for a hop.
type Watcher struct {
	chain           chainrpc.ChainClient
	fundingTxids    []txWatch
	breachScripts   map[chainhash.Hash][]byte // contract txids being watched; values are unused (nil)
	lastSyncedHeight *uint64
}

// New constructs a Watcher for fundingTxids, each requiring the
// matching entry of requiredConfirms confirmations. breachTxids names
// every known outgoing + watch-only contract transaction id that must
// not appear on chain before settlement.
func New(chain chainrpc.ChainClient, fundingTxids []chainhash.Hash, requiredConfirms []uint32, breachTxids []chainhash.Hash) (*Watcher, error) {
	if len(fundingTxids) != len(requiredConfirms) {
		return nil, errors.New("fundingTxids and requiredConfirms length mismatch")
	}

	w := &Watcher{
		chain:         chain,
		breachScripts: make(map[chainhash.Hash][]byte),
	}
	for i, txid := range fundingTxids {
		w.fundingTxids = append(w.fundingTxids, txWatch{txid: txid, requiredConf: requiredConfirms[i]})
	}
	for _, txid := range breachTxids {
		w.breachScripts[txid] = nil
	}
	return w, nil
}

// Run blocks until every funding tx has confirmed or a breach is
// observed, polling at 1-second intervals. Transient chain-client
// lookup failures during polling are swallowed; the next tick retries.
func (w *Watcher) Run(ctx context.Context) (*Result, error) {
	tkr := ticker.New(1 * time.Second)
	tkr.Resume()
	defer tkr.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-tkr.Ticks():
			if breached, err := w.pollBreach(); err != nil {
				return nil, err
			} else if breached {
				return &Result{Outcome: Breach}, nil
			}

			allConfirmed, err := w.pollConfirmations()
			if err != nil {
				return nil, err
			}
			if allConfirmed {
				return w.finalize()
			}
		}
	}
}

func (w *Watcher) pollConfirmations() (bool, error) {
	allConfirmed := true
	for i := range w.fundingTxids {
		tw := &w.fundingTxids[i]
		if tw.confirmed {
			continue
		}

		status, err := w.chain.GetTransaction(&tw.txid)
		if err != nil {
			// Transient lookup failure: skip, retry next tick.
			allConfirmed = false
			continue
		}

		if !tw.seenOnce {
			tw.seenOnce = true
			if status.Confirmations == 0 {
				if entry, err := w.chain.GetMempoolEntry(&tw.txid); err == nil {
					log.Debugf("funding tx %s seen in mempool, fee rate %d sat/vbyte",
						tw.txid, entry.FeeBaseSat/uint64(entry.Vsize+1))
				}
			}
		}

		if status.Confirmations >= tw.requiredConf {
			tw.confirmed = true
			tw.blockhash = status.Blockhash
		} else {
			allConfirmed = false
		}
	}
	return allConfirmed, nil
}

func (w *Watcher) pollBreach() (bool, error) {
	for txid := range w.breachScripts {
		// A failed chain lookup is transient; the mempool is still
		// checked for this txid.
		status, err := w.chain.GetTransaction(&txid)
		if err == nil && status != nil && status.Hex != "" {
			return true, nil
		}
		if _, err := w.chain.GetMempoolEntry(&txid); err == nil {
			return true, nil
		}
	}
	return false, nil
}

func (w *Watcher) finalize() (*Result, error) {
	res := &Result{Outcome: Confirmed}
	for _, tw := range w.fundingTxids {
		txStatus, err := w.chain.GetTransaction(&tw.txid)
		if err != nil {
			return nil, errors.Errorf("fetch confirmed tx %s: %v", tw.txid, err)
		}

		raw, err := hex.DecodeString(txStatus.Hex)
		if err != nil {
			return nil, errors.Errorf("decode confirmed tx %s: %v", tw.txid, err)
		}
		var tx wire.MsgTx
		if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
			return nil, errors.Errorf("parse confirmed tx %s: %v", tw.txid, err)
		}

		proof, err := w.chain.GetTxOutProof([]*chainhash.Hash{&tw.txid}, tw.blockhash)
		if err != nil {
			return nil, errors.Errorf("fetch merkle proof for %s: %v", tw.txid, err)
		}
		res.Txs = append(res.Txs, &tx)
		res.Proofs = append(res.Proofs, proof)
	}
	return res, nil
}
