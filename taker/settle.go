package taker

import (
	"bytes"
	"context"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/utxoteleport/coinswap-taker/peersession"
	"github.com/utxoteleport/coinswap-taker/swaperr"
	"github.com/utxoteleport/coinswap-taker/swapcoin"
	"github.com/utxoteleport/coinswap-taker/swapwire"
)

// settle walks forward through every live Maker (index 0..maker_count-1
// of peer_infos; the trailing entry is the Taker itself as last
// receiver and is never dialed) revealing the shared preimage and
// exchanging multisig private keys, collapsing each 2-of-2 into a
// solely Taker-spendable output.
func (o *Orchestrator) settle(ctx context.Context) error {
	for i := 0; i < o.params.MakerCount; i++ {
		thisPI := o.state.PeerInfos[i]
		nextPI := o.state.PeerInfos[i+1]
		isLast := i == o.params.MakerCount-1
		watchonly := o.state.WatchonlySwapcoins[i+1]

		ownReveal, err := o.ownPrivkeysFor(i, thisPI)
		if err != nil {
			return err
		}

		err = peersession.Run(ctx, "settle", peersession.ReconnectEnvelope,
			func(attemptCtx context.Context) error {
				return o.settleOneMaker(attemptCtx, thisPI, nextPI, isLast, watchonly, ownReveal)
			}, nil)
		if err != nil {
			o.cfg.Offers.MarkBad(thisPI.Offer.Address)
			return err
		}
		o.cfg.Offers.MarkGood(thisPI.Offer.Address)
	}

	for _, sc := range o.state.IncomingSwapcoins {
		if err := o.cfg.Wallet.AddIncomingSwapcoin(sc); err != nil {
			return swaperr.Errorf(swaperr.Disk, "persist incoming swapcoin: %v", err)
		}
	}
	if err := o.cfg.Wallet.SaveToDisk(); err != nil {
		return swaperr.Errorf(swaperr.Disk, "save wallet: %v", err)
	}

	o.state = NewState()
	return nil
}

// ownPrivkeysFor builds the MultisigPrivkey list the Taker reveals to
// Maker i: its own OutgoingSwapcoin keys at i==0 (FirstPeer), else the
// privkeys the previous Maker revealed one settle step ago.
func (o *Orchestrator) ownPrivkeysFor(i int, thisPI PeerInfo) ([]swapwire.MultisigPrivkey, error) {
	if i == 0 {
		out := make([]swapwire.MultisigPrivkey, len(o.state.OutgoingSwapcoins))
		for k, sc := range o.state.OutgoingSwapcoins {
			var key [32]byte
			copy(key[:], sc.MyMultisigPrivkey.Serialize())
			out[k] = swapwire.MultisigPrivkey{MultisigRedeemscript: sc.MultisigRedeemscript, Key: key}
		}
		return out, nil
	}

	if len(o.state.OutgoingPrivkeys) != len(thisPI.MultisigRedeemscripts) {
		return nil, swaperr.Errorf(swaperr.Protocol, "outgoing privkey count mismatch: got %d want %d",
			len(o.state.OutgoingPrivkeys), len(thisPI.MultisigRedeemscripts))
	}
	out := make([]swapwire.MultisigPrivkey, len(thisPI.MultisigRedeemscripts))
	for k, redeemscript := range thisPI.MultisigRedeemscripts {
		var key [32]byte
		copy(key[:], o.state.OutgoingPrivkeys[k])
		out[k] = swapwire.MultisigPrivkey{MultisigRedeemscript: redeemscript, Key: key}
	}
	return out, nil
}

// settleOneMaker is one attempt of the HashPreimage / PrivKeyHandover /
// PrivKeyHandover exchange against thisPI's Maker. watchonly is the
// WatchOnlySwapcoin set describing the funding thisPI's Maker just
// sent (nil when isLast, since that funding went to IncomingSwapcoins
// instead).
func (o *Orchestrator) settleOneMaker(ctx context.Context, thisPI, nextPI PeerInfo, isLast bool,
	watchonly []*swapcoin.WatchOnlySwapcoin, ownReveal []swapwire.MultisigPrivkey) error {

	session, err := o.dialMaker(ctx, thisPI.Offer)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.Send(swapwire.HashPreimage{
		SendersMultisigRedeemscripts:   thisPI.MultisigRedeemscripts,
		ReceiversMultisigRedeemscripts: nextPI.MultisigRedeemscripts,
		Preimage:                       o.state.ActivePreimage,
	}); err != nil {
		return err
	}

	msg, err := session.RecvExpect(swapwire.MsgPrivKeyHandover)
	if err != nil {
		return err
	}
	theirs := msg.(*swapwire.PrivKeyHandover)

	if err := session.Send(swapwire.PrivKeyHandover{MultisigPrivkeys: ownReveal}); err != nil {
		return err
	}

	if isLast {
		for _, e := range theirs.MultisigPrivkeys {
			sc := findIncoming(o.state.IncomingSwapcoins, e.MultisigRedeemscript)
			if sc == nil {
				return swaperr.Errorf(swaperr.Protocol, "no incoming swapcoin for revealed redeemscript")
			}
			priv, _ := btcec.PrivKeyFromBytes(e.Key[:])
			if err := sc.ApplyPrivkey(priv); err != nil {
				return swaperr.Errorf(swaperr.Protocol, "wrong privkey: %v", err)
			}
		}
		return nil
	}

	nextOutgoing := make([][]byte, 0, len(theirs.MultisigPrivkeys))
	for _, e := range theirs.MultisigPrivkeys {
		if findWatchOnly(watchonly, e.MultisigRedeemscript) == nil {
			return swaperr.Errorf(swaperr.Protocol, "no watch-only swapcoin for revealed redeemscript")
		}
		priv, _ := btcec.PrivKeyFromBytes(e.Key[:])
		nextOutgoing = append(nextOutgoing, priv.Serialize())
	}
	o.state.OutgoingPrivkeys = nextOutgoing
	return nil
}

func findIncoming(list []*swapcoin.IncomingSwapcoin, redeemscript []byte) *swapcoin.IncomingSwapcoin {
	for _, sc := range list {
		if bytes.Equal(sc.MultisigRedeemscript, redeemscript) {
			return sc
		}
	}
	return nil
}

func findWatchOnly(list []*swapcoin.WatchOnlySwapcoin, redeemscript []byte) *swapcoin.WatchOnlySwapcoin {
	for _, sc := range list {
		if bytes.Equal(sc.MultisigRedeemscript, redeemscript) {
			return sc
		}
	}
	return nil
}
