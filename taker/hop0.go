package taker

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/utxoteleport/coinswap-taker/contracts"
	"github.com/utxoteleport/coinswap-taker/offerbook"
	"github.com/utxoteleport/coinswap-taker/peersession"
	"github.com/utxoteleport/coinswap-taker/swaperr"
	"github.com/utxoteleport/coinswap-taker/swapwire"
)

// initFirstHop implements hop 0: selects Maker 0, builds the initial
// funding batch via the Wallet, exchanges sender-sig messages under the
// first-connect envelope, then persists and broadcasts.
func (o *Orchestrator) initFirstHop(ctx context.Context) error {
	o.state.TakerPosition = FirstPeer

	offer, err := o.cfg.Offers.PickUntriedMatching(o.params.SendAmount)
	if err != nil {
		return err
	}

	multisigPubkeys, hashlockPubkeys, multisigNonces, hashlockNonces, err :=
		deriveHopKeys(offer.TweakablePoint, o.params.TxCount)
	if err != nil {
		return err
	}

	swapLocktime := SwapLocktimeHopZero(o.params.MakerCount)

	initRes, err := o.cfg.Wallet.InitializeCoinswap(
		o.params.SendAmount, multisigPubkeys, hashlockPubkeys,
		o.state.Hashvalue, swapLocktime, o.params.FeeRate,
	)
	if err != nil {
		return swaperr.Errorf(swaperr.Disk, "wallet initialize_coinswap: %v", err)
	}
	o.state.HopZeroMinerFee = initRes.MinerFee
	o.state.OutgoingSwapcoins = initRes.OutgoingSwapcoins

	contractRedeemscripts := make([][]byte, len(initRes.OutgoingSwapcoins))
	multisigRedeemscripts := make([][]byte, len(initRes.OutgoingSwapcoins))
	fundingAmounts := make([]int64, len(initRes.OutgoingSwapcoins))
	for i, sc := range initRes.OutgoingSwapcoins {
		contractRedeemscripts[i] = sc.ContractRedeemscript
		multisigRedeemscripts[i] = sc.MultisigRedeemscript
		fundingAmounts[i] = sc.FundingAmount
	}
	o.state.PeerInfos = append(o.state.PeerInfos, PeerInfo{
		Offer:                 offer,
		MultisigPubkeys:       multisigPubkeys,
		MultisigNonces:        multisigNonces,
		HashlockNonces:        hashlockNonces,
		MultisigRedeemscripts: multisigRedeemscripts,
		ContractRedeemscripts: contractRedeemscripts,
		FundingAmounts:        fundingAmounts,
	})

	err = peersession.Run(ctx, "req_sigs_for_sender (hop 0)", peersession.FirstConnectEnvelope,
		func(attemptCtx context.Context) error {
			return o.reqSigsForSenderOnce(attemptCtx, offer, hashlockPubkeys)
		}, nil)
	if err != nil {
		o.cfg.Offers.MarkBad(offer.Address)
		return err
	}
	o.cfg.Offers.MarkGood(offer.Address)

	for _, sc := range o.state.OutgoingSwapcoins {
		if err := o.cfg.Wallet.AddOutgoingSwapcoin(sc); err != nil {
			return swaperr.Errorf(swaperr.Disk, "persist outgoing swapcoin: %v", err)
		}
	}
	if err := o.cfg.Wallet.SaveToDisk(); err != nil {
		return swaperr.Errorf(swaperr.Disk, "save wallet: %v", err)
	}

	var fundingTxids []chainhash.Hash
	for _, tx := range initRes.FundingTxs {
		txid, err := o.cfg.Chain.SendRawTransaction(tx)
		if err != nil {
			return swaperr.Errorf(swaperr.Chain, "broadcast funding tx: %v", err)
		}
		fundingTxids = append(fundingTxids, *txid)
	}

	requiredConfirms := make([]uint32, len(fundingTxids))
	for i := range requiredConfirms {
		requiredConfirms[i] = confirmTarget(offer, o.cfg.Chain)
	}

	res, err := o.waitConfirmed(ctx, fundingTxids, requiredConfirms, nil)
	if err != nil {
		return err
	}
	o.state.FundingTxs = append(o.state.FundingTxs, FundingTxEntry{Txs: res.Txs, MerkleProofs: res.Proofs})
	return nil
}

// reqSigsForSenderOnce is one attempt of the first-connect exchange
// against Maker 0: it hands over every hop-0 contract tx and expects
// back a matching signature for each.
func (o *Orchestrator) reqSigsForSenderOnce(ctx context.Context, offer offerbook.Offer, hashlockPubkeys [][33]byte) error {
	session, err := o.dialMaker(ctx, offer)
	if err != nil {
		return err
	}
	defer session.Close()

	pi := o.state.PeerInfos[0]
	txsInfo := make([]swapwire.SenderContractTxInfo, len(o.state.OutgoingSwapcoins))
	for i, sc := range o.state.OutgoingSwapcoins {
		var timelockPubkey [33]byte
		copy(timelockPubkey[:], sc.TimelockPubkey.SerializeCompressed())
		txsInfo[i] = swapwire.SenderContractTxInfo{
			MultisigKeyNonce:     pi.MultisigNonces[i],
			HashlockKeyNonce:     pi.HashlockNonces[i],
			TimelockPubkey:       timelockPubkey,
			SendersContractTx:    sc.ContractTx,
			MultisigRedeemscript: sc.MultisigRedeemscript,
			FundingInputValue:    uint64(sc.FundingAmount),
		}
	}

	req := swapwire.ReqContractSigsForSender{
		TxsInfo:   txsInfo,
		Hashvalue: o.state.Hashvalue,
		Locktime:  SwapLocktimeHopZero(o.params.MakerCount),
	}
	if err := session.Send(req); err != nil {
		return err
	}

	msg, err := session.RecvExpect(swapwire.MsgRespContractSigsForSender)
	if err != nil {
		return err
	}
	resp := msg.(*swapwire.RespContractSigsForSender)
	if len(resp.Sigs) != len(o.state.OutgoingSwapcoins) {
		return swaperr.Errorf(swaperr.Protocol, "wrong number of sender sigs: got %d want %d",
			len(resp.Sigs), len(o.state.OutgoingSwapcoins))
	}

	for i, sc := range o.state.OutgoingSwapcoins {
		multisigScript, err := contracts.WitnessScriptHash(sc.MultisigRedeemscript)
		if err != nil {
			return err
		}
		if err := sc.VerifyOthersSig(multisigScript, resp.Sigs[i]); err != nil {
			return swaperr.Errorf(swaperr.Protocol, "invalid signature from maker: %v", err)
		}
		sc.OthersContractSig = resp.Sigs[i]
	}
	return nil
}

// confirmTarget resolves the confirmation depth to wait for against
// offer: the Maker's advertised value when set, else the chain client's
// default (DESIGN.md OQ-2).
func confirmTarget(offer offerbook.Offer, chain interface{ DefaultConfTarget() uint32 }) uint32 {
	if offer.RequiredConfirms > 0 {
		return offer.RequiredConfirms
	}
	return chain.DefaultConfTarget()
}
