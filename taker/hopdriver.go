package taker

import (
	"bytes"
	"context"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/utxoteleport/coinswap-taker/contracts"
	"github.com/utxoteleport/coinswap-taker/offerbook"
	"github.com/utxoteleport/coinswap-taker/peersession"
	"github.com/utxoteleport/coinswap-taker/swaperr"
	"github.com/utxoteleport/coinswap-taker/swapcoin"
	"github.com/utxoteleport/coinswap-taker/swapwire"
)

// maxNextMakerAttempts bounds the inner next-Maker reselection loop
// nested inside one hop's outer retry envelope.
const maxNextMakerAttempts = 25

// runHop drives the ProofOfFunding / ReqContractSigsAsRecvrAndSender /
// RespContractSigsForRecvrAndSender choreography for hop h against
// "this Maker" (the peer funded by the previous hop), then waits for
// the next hop's funding to confirm.
func (o *Orchestrator) runHop(ctx context.Context, h int) error {
	thisIdx := h - 1
	thisPI := o.state.PeerInfos[thisIdx]
	fundingEntry := o.state.FundingTxs[thisIdx]
	isLast := o.state.TakerPosition == LastPeer
	nextLocktime := LocktimeForHop(h, o.params.MakerCount)

	var hop hopResult

	reselects := 0
	err := peersession.Run(ctx, "hop driver (maker)", peersession.ReconnectEnvelope,
		func(attemptCtx context.Context) error {
			for {
				res, err := o.runHopAttempt(attemptCtx, thisIdx, thisPI, fundingEntry, isLast, h, nextLocktime)
				if err == nil {
					hop = res
					return nil
				}
				if nmf, ok := err.(nextMakerFailure); ok && !isLast && reselects < maxNextMakerAttempts {
					o.cfg.Offers.MarkBad(nmf.offer.Address)
					reselects++
					continue
				}
				return err
			}
		}, nil)
	if err != nil {
		o.cfg.Offers.MarkBad(thisPI.Offer.Address)
		return err
	}
	if !isLast {
		o.cfg.Offers.MarkGood(hop.nextOffer.Address)
	}

	o.state.PeerInfos = append(o.state.PeerInfos, hop.nextPeerInfo)
	if !isLast {
		for i, tx := range hop.nextContractTxs {
			redeemscript := hop.nextPeerInfo.MultisigRedeemscripts[i]
			o.state.WatchonlySwapcoins[h] = append(o.state.WatchonlySwapcoins[h], &swapcoin.WatchOnlySwapcoin{
				Base: swapcoin.Base{
					MultisigRedeemscript: redeemscript,
					ContractRedeemscript: hop.nextPeerInfo.ContractRedeemscripts[i],
					ContractTx:           tx,
					FundingAmount:        hop.nextPeerInfo.FundingAmounts[i],
					Hashvalue:            o.state.Hashvalue,
				},
			})
			if err := o.cfg.Wallet.ImportWatchonlyRedeemscript(redeemscript); err != nil {
				return swaperr.Errorf(swaperr.Disk, "import watch-only redeemscript: %v", err)
			}
		}
	}

	requiredConfirms := make([]uint32, len(hop.nextFundingTxids))
	for i := range requiredConfirms {
		if isLast {
			requiredConfirms[i] = o.params.RequiredConfirms
		} else {
			requiredConfirms[i] = confirmTarget(hop.nextOffer, o.cfg.Chain)
		}
	}

	res, err := o.waitConfirmed(ctx, hop.nextFundingTxids, requiredConfirms, o.collectBreachTxids())
	if err != nil {
		return err
	}
	o.state.FundingTxs = append(o.state.FundingTxs, FundingTxEntry{Txs: res.Txs, MerkleProofs: res.Proofs})

	if isLast {
		for i := range res.Txs {
			if err := o.cfg.Wallet.ImportWalletMultisigRedeemscript(hop.nextPeerInfo.MultisigRedeemscripts[i]); err != nil {
				return swaperr.Errorf(swaperr.Disk, "import wallet multisig redeemscript: %v", err)
			}
			if err := o.cfg.Wallet.ImportTxWithMerkleproof(res.Txs[i], res.Proofs[i]); err != nil {
				return swaperr.Errorf(swaperr.Disk, "import funding tx with merkle proof: %v", err)
			}
			if err := o.cfg.Wallet.ImportWalletContractRedeemscript(hop.nextPeerInfo.ContractRedeemscripts[i]); err != nil {
				return swaperr.Errorf(swaperr.Disk, "import wallet contract redeemscript: %v", err)
			}
		}
	}
	return nil
}

// hopResult is the outcome of one successful runHopAttempt, threaded out
// of the retry closure for the caller to persist.
type hopResult struct {
	nextOffer        offerbook.Offer
	nextPeerInfo     PeerInfo
	nextContractTxs  []*wire.MsgTx
	nextFundingTxids []chainhash.Hash
}

// nextMakerFailure reports that the candidate next Maker identified by
// offer misbehaved during produceSendersSigs, letting runHop's retry
// loop mark that specific offer bad and try another without relying on
// error-wrapping support this package's error library lacks.
type nextMakerFailure struct {
	offer offerbook.Offer
	err   error
}

func (e nextMakerFailure) Error() string { return e.err.Error() }

func (o *Orchestrator) runHopAttempt(ctx context.Context, thisIdx int, thisPI PeerInfo,
	fundingEntry FundingTxEntry, isLast bool, h int, nextLocktime uint32) (hopResult, error) {

	var nextOffer offerbook.Offer
	var nextMultisigPubkeys, nextHashlockPubkeys [][33]byte
	var nextMultisigNonces, nextHashlockNonces [][32]byte
	var ownMultisigPrivkeys, ownHashlockPrivkeys []*btcec.PrivateKey

	if isLast {
		var err error
		ownMultisigPrivkeys, nextMultisigPubkeys, err = generateOwnKeypairs(o.params.TxCount)
		if err != nil {
			return hopResult{}, err
		}
		ownHashlockPrivkeys, nextHashlockPubkeys, err = generateOwnKeypairs(o.params.TxCount)
		if err != nil {
			return hopResult{}, err
		}
	} else {
		var err error
		nextOffer, err = o.cfg.Offers.PickUntriedMatching(o.params.SendAmount)
		if err != nil {
			return hopResult{}, err
		}
		nextMultisigPubkeys, nextHashlockPubkeys, nextMultisigNonces, nextHashlockNonces, err =
			deriveHopKeys(nextOffer.TweakablePoint, o.params.TxCount)
		if err != nil {
			return hopResult{}, err
		}
	}

	session, err := o.dialMaker(ctx, thisPI.Offer)
	if err != nil {
		return hopResult{}, err
	}
	defer session.Close()

	fundingInfos := make([]swapwire.FundingTxInfo, len(fundingEntry.Txs))
	for i, tx := range fundingEntry.Txs {
		fundingInfos[i] = swapwire.FundingTxInfo{
			FundingTx:            tx,
			FundingTxMerkleproof: fundingEntry.MerkleProofs[i],
			MultisigRedeemscript: thisPI.MultisigRedeemscripts[i],
			MultisigNonce:        thisPI.MultisigNonces[i],
			ContractRedeemscript: thisPI.ContractRedeemscripts[i],
			HashlockNonce:        thisPI.HashlockNonces[i],
		}
	}
	nextInfo := make([]swapwire.NextHopInfo, o.params.TxCount)
	for i := range nextInfo {
		nextInfo[i] = swapwire.NextHopInfo{
			NextMultisigPubkey: nextMultisigPubkeys[i],
			NextHashlockPubkey: nextHashlockPubkeys[i],
		}
	}

	if err := session.Send(swapwire.ProofOfFunding{
		ConfirmedFundingTxes: fundingInfos,
		NextCoinswapInfo:     nextInfo,
		NextLocktime:         nextLocktime,
		NextFeeRate:          o.params.FeeRate,
	}); err != nil {
		return hopResult{}, err
	}

	msg, err := session.RecvExpect(swapwire.MsgReqContractSigsAsRecvrAndSender)
	if err != nil {
		return hopResult{}, err
	}
	req := msg.(*swapwire.ReqContractSigsAsRecvrAndSender)

	if len(req.ReceiversContractTxs) != len(fundingEntry.Txs) {
		return hopResult{}, swaperr.Errorf(swaperr.Protocol, "wrong number of receivers contract txs: got %d want %d",
			len(req.ReceiversContractTxs), len(fundingEntry.Txs))
	}
	if len(req.SendersContractTxInfo) != o.params.TxCount {
		return hopResult{}, swaperr.Errorf(swaperr.Protocol, "wrong number of senders contract tx infos: got %d want %d",
			len(req.SendersContractTxInfo), o.params.TxCount)
	}

	for i, tx := range req.ReceiversContractTxs {
		expectedOutpoint := wire.OutPoint{Hash: fundingEntry.Txs[i].TxHash(), Index: 0}
		if err := contracts.ValidateContractTx(tx, &expectedOutpoint, thisPI.ContractRedeemscripts[i]); err != nil {
			return hopResult{}, err
		}
	}

	var thisAmount uint64
	for _, a := range thisPI.FundingAmounts {
		thisAmount += uint64(a)
	}
	var nextAmount uint64
	for _, info := range req.SendersContractTxInfo {
		nextAmount += info.FundingAmount
	}
	coinswapFee := contracts.CalculateCoinswapFee(
		thisPI.Offer.Fee.AbsoluteSat, thisPI.Offer.Fee.AmountRelPpb, thisPI.Offer.Fee.TimeRelPpb,
		thisAmount, uint64(nextLocktime),
	)
	minerFee := contracts.TakerPaidMinerFee(o.params.FeeRate, o.params.TxCount)
	if nextAmount != thisAmount-coinswapFee-minerFee {
		return hopResult{}, swaperr.Errorf(swaperr.Protocol, "next_amount incorrect: got %d want %d", nextAmount, thisAmount-coinswapFee-minerFee)
	}

	nextContractRedeemscripts := make([][]byte, o.params.TxCount)
	nextMultisigRedeemscripts := make([][]byte, o.params.TxCount)
	nextFundingAmounts := make([]int64, o.params.TxCount)
	nextContractTxs := make([]*wire.MsgTx, o.params.TxCount)
	nextFundingTxids := make([]chainhash.Hash, o.params.TxCount)

	for i, info := range req.SendersContractTxInfo {
		redeemscript, err := contracts.ContractRedeemscript(
			nextHashlockPubkeys[i][:], info.TimelockPubkey[:], o.state.Hashvalue, nextLocktime,
		)
		if err != nil {
			return hopResult{}, err
		}
		if err := contracts.ValidateContractTx(info.ContractTx, nil, redeemscript); err != nil {
			return hopResult{}, err
		}
		nextContractRedeemscripts[i] = redeemscript
		nextMultisigRedeemscripts[i] = info.MultisigRedeemscript
		nextFundingAmounts[i] = int64(info.FundingAmount)
		nextContractTxs[i] = info.ContractTx
		nextFundingTxids[i] = info.ContractTx.TxIn[0].PreviousOutPoint.Hash
	}

	sendersSigs, incomingSwapcoins, err := o.produceSendersSigs(
		ctx, isLast, nextOffer, req.SendersContractTxInfo, nextContractRedeemscripts,
		ownMultisigPrivkeys, ownHashlockPrivkeys, nextLocktime)
	if err != nil {
		return hopResult{}, err
	}

	var receiversSigs [][]byte
	if h == 1 {
		receiversSigs = make([][]byte, len(o.state.OutgoingSwapcoins))
		for i, sc := range o.state.OutgoingSwapcoins {
			multisigScript, err := contracts.WitnessScriptHash(sc.MultisigRedeemscript)
			if err != nil {
				return hopResult{}, err
			}
			sig, err := sc.SignContract(multisigScript)
			if err != nil {
				return hopResult{}, err
			}
			receiversSigs[i] = sig
		}
	} else {
		receiversSigs, err = o.reqSigsForRecvr(ctx, o.state.PeerInfos[thisIdx-1].Offer, req.ReceiversContractTxs, thisPI.MultisigRedeemscripts)
		if err != nil {
			return hopResult{}, err
		}
	}

	if len(sendersSigs) != o.params.TxCount || len(receiversSigs) != len(fundingEntry.Txs) {
		return hopResult{}, swaperr.New(swaperr.Protocol, "wrong number of produced signatures")
	}

	if err := session.Send(swapwire.RespContractSigsForRecvrAndSender{
		ReceiversSigs: receiversSigs,
		SendersSigs:   sendersSigs,
	}); err != nil {
		return hopResult{}, err
	}

	o.state.IncomingSwapcoins = append(o.state.IncomingSwapcoins, incomingSwapcoins...)

	var nextPeerInfo PeerInfo
	if isLast {
		nextPeerInfo = PeerInfo{
			SelfReceiver:          true,
			MultisigPubkeys:       nextMultisigPubkeys,
			ContractRedeemscripts: nextContractRedeemscripts,
			MultisigRedeemscripts: nextMultisigRedeemscripts,
			FundingAmounts:        nextFundingAmounts,
		}
	} else {
		nextPeerInfo = PeerInfo{
			Offer:                 nextOffer,
			MultisigPubkeys:       nextMultisigPubkeys,
			MultisigNonces:        nextMultisigNonces,
			HashlockNonces:        nextHashlockNonces,
			ContractRedeemscripts: nextContractRedeemscripts,
			MultisigRedeemscripts: nextMultisigRedeemscripts,
			FundingAmounts:        nextFundingAmounts,
		}
	}

	return hopResult{
		nextOffer:        nextOffer,
		nextPeerInfo:     nextPeerInfo,
		nextContractTxs:  nextContractTxs,
		nextFundingTxids: nextFundingTxids,
	}, nil
}

// produceSendersSigs returns the signatures authorizing the next-hop
// sender (this Maker) to spend the 2-of-2 it is about to fund. When the
// Taker is the next peer it signs directly with its own freshly
// generated keys, building the matching IncomingSwapcoins along the
// way; otherwise it requests the signatures from the next Maker.
func (o *Orchestrator) produceSendersSigs(ctx context.Context, isLast bool, nextOffer offerbook.Offer,
	sendersInfo []swapwire.SendersContractTxInfo, nextContractRedeemscripts [][]byte,
	ownMultisigPrivkeys, ownHashlockPrivkeys []*btcec.PrivateKey, nextLocktime uint32) ([][]byte, []*swapcoin.IncomingSwapcoin, error) {

	if isLast {
		sigs := make([][]byte, len(sendersInfo))
		incoming := make([]*swapcoin.IncomingSwapcoin, len(sendersInfo))
		for i, info := range sendersInfo {
			timelockPubkey, err := btcec.ParsePubKey(info.TimelockPubkey[:])
			if err != nil {
				return nil, nil, swaperr.Errorf(swaperr.Protocol, "parse maker timelock pubkey: %v", err)
			}
			inc := &swapcoin.IncomingSwapcoin{
				Base: swapcoin.Base{
					MultisigRedeemscript: info.MultisigRedeemscript,
					ContractRedeemscript: nextContractRedeemscripts[i],
					ContractTx:           info.ContractTx,
					FundingAmount:        int64(info.FundingAmount),
					TimelockPubkey:       timelockPubkey,
					Hashvalue:            o.state.Hashvalue,
				},
				MyMultisigPrivkey:   ownMultisigPrivkeys[i],
				MyMultisigPubkey:    ownMultisigPrivkeys[i].PubKey(),
				OtherMultisigPubkey: timelockPubkey,
				MyHashlockPrivkey:   ownHashlockPrivkeys[i],
			}
			multisigScript, err := contracts.WitnessScriptHash(info.MultisigRedeemscript)
			if err != nil {
				return nil, nil, err
			}
			sig, err := inc.SignContract(multisigScript)
			if err != nil {
				return nil, nil, err
			}
			sigs[i] = sig
			incoming[i] = inc
		}
		return sigs, incoming, nil
	}

	sigs, err := o.reqSigsForSender(ctx, nextOffer, sendersInfo, nextLocktime)
	if err != nil {
		return nil, nil, nextMakerFailure{offer: nextOffer, err: err}
	}
	return sigs, nil, nil
}

// reqSigsForSender asks offer's Maker to countersign the contract txs
// describing the funding it is about to receive.
func (o *Orchestrator) reqSigsForSender(ctx context.Context, offer offerbook.Offer, sendersInfo []swapwire.SendersContractTxInfo, locktime uint32) ([][]byte, error) {
	session, err := o.dialMaker(ctx, offer)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	txsInfo := make([]swapwire.SenderContractTxInfo, len(sendersInfo))
	for i, info := range sendersInfo {
		txsInfo[i] = swapwire.SenderContractTxInfo{
			TimelockPubkey:       info.TimelockPubkey,
			SendersContractTx:    info.ContractTx,
			MultisigRedeemscript: info.MultisigRedeemscript,
			FundingInputValue:    info.FundingAmount,
		}
	}
	if err := session.Send(swapwire.ReqContractSigsForSender{
		TxsInfo:   txsInfo,
		Hashvalue: o.state.Hashvalue,
		Locktime:  locktime,
	}); err != nil {
		return nil, err
	}

	msg, err := session.RecvExpect(swapwire.MsgRespContractSigsForSender)
	if err != nil {
		return nil, err
	}
	resp := msg.(*swapwire.RespContractSigsForSender)
	if len(resp.Sigs) != len(sendersInfo) {
		return nil, swaperr.Errorf(swaperr.Protocol, "wrong number of sender sigs: got %d want %d", len(resp.Sigs), len(sendersInfo))
	}

	for i, info := range sendersInfo {
		multisigScript, err := contracts.WitnessScriptHash(info.MultisigRedeemscript)
		if err != nil {
			return nil, err
		}
		pub, err := btcec.ParsePubKey(parseOtherPubkey(info.MultisigRedeemscript, info.TimelockPubkey[:]))
		if err != nil {
			return nil, err
		}
		w := &swapcoin.WatchOnlySwapcoin{Base: swapcoin.Base{
			MultisigRedeemscript: info.MultisigRedeemscript,
			ContractTx:           info.ContractTx,
			FundingAmount:        int64(info.FundingAmount),
		}, ReceiverMultisigPubkey: pub}
		if err := w.VerifyReceiverSig(multisigScript, resp.Sigs[i]); err != nil {
			return nil, swaperr.Errorf(swaperr.Protocol, "invalid signature from next maker: %v", err)
		}
	}
	return resp.Sigs, nil
}

// reqSigsForRecvr asks the previous Maker (who funded this Maker) to
// countersign the receivers-contract-txs this Maker proposed.
func (o *Orchestrator) reqSigsForRecvr(ctx context.Context, prevOffer offerbook.Offer,
	receiversContractTxs []*wire.MsgTx, multisigRedeemscripts [][]byte) ([][]byte, error) {

	session, err := o.dialMaker(ctx, prevOffer)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	txs := make([]swapwire.ContractTxRef, len(receiversContractTxs))
	for i, tx := range receiversContractTxs {
		txs[i] = swapwire.ContractTxRef{MultisigRedeemscript: multisigRedeemscripts[i], ContractTx: tx}
	}
	if err := session.Send(swapwire.ReqContractSigsForRecvr{Txs: txs}); err != nil {
		return nil, err
	}

	msg, err := session.RecvExpect(swapwire.MsgRespContractSigsForRecvr)
	if err != nil {
		return nil, err
	}
	resp := msg.(*swapwire.RespContractSigsForRecvr)
	if len(resp.Sigs) != len(receiversContractTxs) {
		return nil, swaperr.Errorf(swaperr.Protocol, "wrong number of receiver sigs: got %d want %d", len(resp.Sigs), len(receiversContractTxs))
	}
	return resp.Sigs, nil
}

// parseOtherPubkey returns whichever of the multisig redeemscript's two
// pubkeys is not known, used to verify a counterparty's signature
// without the Taker holding that key.
func parseOtherPubkey(multisigRedeemscript []byte, known []byte) []byte {
	a, b, err := contracts.ParseMultisigPubkeys(multisigRedeemscript)
	if err != nil {
		return known
	}
	if bytes.Equal(a, known) {
		return b
	}
	return a
}

// collectBreachTxids returns every known outgoing and watch-only
// contract transaction id, the set ConfirmationWatcher must not see
// broadcast before settlement.
func (o *Orchestrator) collectBreachTxids() []chainhash.Hash {
	var out []chainhash.Hash
	for _, sc := range o.state.OutgoingSwapcoins {
		if sc.ContractTx != nil {
			out = append(out, sc.ContractTx.TxHash())
		}
	}
	for _, list := range o.state.WatchonlySwapcoins {
		for _, sc := range list {
			if sc.ContractTx != nil {
				out = append(out, sc.ContractTx.TxHash())
			}
		}
	}
	return out
}
