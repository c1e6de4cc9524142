package taker

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btclog"
	"github.com/go-errors/errors"
	"github.com/utxoteleport/coinswap-taker/chainrpc"
	"github.com/utxoteleport/coinswap-taker/confirmwatcher"
	"github.com/utxoteleport/coinswap-taker/contracts"
	"github.com/utxoteleport/coinswap-taker/offerbook"
	"github.com/utxoteleport/coinswap-taker/peersession"
	"github.com/utxoteleport/coinswap-taker/swaperr"
	"github.com/utxoteleport/coinswap-taker/takerwallet"
)

var log btclog.Logger = btclog.Disabled

// UseLogger sets the package-wide logger used by taker.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// Config wires the Orchestrator's external collaborators.
type Config struct {
	Wallet     takerwallet.Wallet
	Chain      chainrpc.ChainClient
	Offers     *offerbook.OfferBook
	SocksProxy string
}

// Orchestrator drives one full swap round: role transitions, the
// settle phase, and persistence checkpoints.
type Orchestrator struct {
	cfg    Config
	params Parameters
	state  *State
}

// New returns an Orchestrator ready to run one round with the given
// parameters.
func New(cfg Config, params Parameters) (*Orchestrator, error) {
	if params.SendAmount == 0 {
		return nil, errors.New("send amount not set")
	}
	if params.MakerCount < 2 {
		return nil, errors.New("maker_count must be at least 2")
	}
	if params.TxCount < 1 {
		return nil, errors.New("tx_count must be at least 1")
	}

	return &Orchestrator{cfg: cfg, params: params, state: NewState()}, nil
}

// State exposes the round's current state for inspection (tests,
// diagnostics); the Orchestrator remains its sole mutator.
func (o *Orchestrator) State() *State {
	return o.state
}

// dialMaker opens a PeerSession to offer's address, tunneling through
// o.cfg.SocksProxy when the address is an onion host.
func (o *Orchestrator) dialMaker(ctx context.Context, offer offerbook.Offer) (*peersession.Session, error) {
	isOnion := offer.AddrType == offerbook.Tor
	return peersession.Dial(ctx, offer.Address, isOnion, o.cfg.SocksProxy)
}

// Run drives the round to completion: hop-0 initialization, every
// intermediate/last hop, and the settle phase.
func (o *Orchestrator) Run(ctx context.Context) error {
	preimage, err := randomPreimage()
	if err != nil {
		return err
	}
	o.state.ActivePreimage = preimage
	o.state.Hashvalue = contracts.Hash160(preimage[:])

	if err := o.initFirstHop(ctx); err != nil {
		return errors.Errorf("init first hop: %v", err)
	}

	for h := 1; h <= o.params.MakerCount; h++ {
		o.state.TakerPosition = PositionForHop(h, o.params.MakerCount)
		if err := o.runHop(ctx, h); err != nil {
			return errors.Errorf("hop %d: %v", h, err)
		}
		log.Tracef("state after hop %d: %v", h, stateDumpClosure(o.state))
	}

	if err := o.settle(ctx); err != nil {
		return errors.Errorf("settle: %v", err)
	}
	return nil
}

// waitConfirmed runs the ConfirmationWatcher for the given funding
// txids and returns their merkle proofs, or a fatal error on Breach per
// the component design's failure semantics.
func (o *Orchestrator) waitConfirmed(ctx context.Context, fundingTxids []chainhash.Hash,
	requiredConfirms []uint32, breachTxids []chainhash.Hash) (*confirmwatcher.Result, error) {

	watcher, err := confirmwatcher.New(o.cfg.Chain, fundingTxids, requiredConfirms, breachTxids)
	if err != nil {
		return nil, err
	}
	res, err := watcher.Run(ctx)
	if err != nil {
		return nil, err
	}
	if res.Outcome == confirmwatcher.Breach {
		return nil, errBreach
	}
	return res, nil
}

var errBreach = swaperr.New(swaperr.Breach, "contract breach observed: round aborted, run the recovery tool")
