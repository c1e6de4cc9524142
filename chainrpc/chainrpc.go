// Package chainrpc defines the chain-client contract the taker engine
// depends on, plus a concrete implementation backed by btcd/bitcoind's
// JSON-RPC interface via btcsuite/btcd/rpcclient.
package chainrpc

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btclog"
	"github.com/go-errors/errors"
	"github.com/utxoteleport/coinswap-taker/swaperr"
)

var log btclog.Logger = btclog.Disabled

// UseLogger sets the package-wide logger used by chainrpc.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// TxStatus is the confirmation status of a previously broadcast
// transaction.
type TxStatus struct {
	Confirmations uint32
	Blockhash     *chainhash.Hash
	Hex           string
}

// MempoolEntry describes a transaction's standing in the mempool.
type MempoolEntry struct {
	Vsize      uint32
	FeeBaseSat uint64
}

// ChainClient is the external collaborator this engine submits
// transactions to and queries chain state through. Implementations must
// serialize calls internally; the core never shares a ChainClient
// across concurrent callers.
type ChainClient interface {
	SendRawTransaction(tx *wire.MsgTx) (*chainhash.Hash, error)
	GetTransaction(txid *chainhash.Hash) (*TxStatus, error)
	GetMempoolEntry(txid *chainhash.Hash) (*MempoolEntry, error)
	GetTxOutProof(txids []*chainhash.Hash, blockhash *chainhash.Hash) ([]byte, error)

	// DefaultConfTarget is the confirmation count used when no
	// Maker-advertised or swap-parameter value is available.
	DefaultConfTarget() uint32
}

// RPCChainClient implements ChainClient against a single btcd/bitcoind
// JSON-RPC endpoint, grounded on chainregistry.go's RPC-backend wiring.
type RPCChainClient struct {
	client             *rpcclient.Client
	defaultConfTarget  uint32
}

// NewRPCChainClient dials host using the given RPC credentials.
func NewRPCChainClient(host, user, pass string, useTLS bool, defaultConfTarget uint32) (*RPCChainClient, error) {
	cfg := &rpcclient.ConnConfig{
		Host:         host,
		User:         user,
		Pass:         pass,
		HTTPPostMode: true,
		DisableTLS:   !useTLS,
	}
	c, err := rpcclient.New(cfg, nil)
	if err != nil {
		return nil, errors.Errorf("connect chain rpc: %v", err)
	}
	return &RPCChainClient{client: c, defaultConfTarget: defaultConfTarget}, nil
}

func (r *RPCChainClient) SendRawTransaction(tx *wire.MsgTx) (*chainhash.Hash, error) {
	txid, err := r.client.SendRawTransaction(tx, false)
	if err != nil {
		log.Errorf("broadcast %s failed: %v", tx.TxHash(), err)
		return nil, swaperr.Errorf(swaperr.Chain, "broadcast %s: %v", tx.TxHash(), err)
	}
	log.Infof("broadcast %s", txid)
	return txid, nil
}

func (r *RPCChainClient) GetTransaction(txid *chainhash.Hash) (*TxStatus, error) {
	res, err := r.client.GetTransaction(txid)
	if err != nil {
		return nil, swaperr.Errorf(swaperr.Chain, "get transaction %s: %v", txid, err)
	}

	status := &TxStatus{
		Confirmations: uint32(res.Confirmations),
		Hex:           res.Hex,
	}
	if res.BlockHash != "" {
		h, err := chainhash.NewHashFromStr(res.BlockHash)
		if err != nil {
			return nil, errors.Errorf("parse blockhash: %v", err)
		}
		status.Blockhash = h
	}
	return status, nil
}

func (r *RPCChainClient) GetMempoolEntry(txid *chainhash.Hash) (*MempoolEntry, error) {
	res, err := r.client.GetMempoolEntry(txid.String())
	if err != nil {
		return nil, swaperr.Errorf(swaperr.Chain, "get mempool entry %s: %v", txid, err)
	}
	return &MempoolEntry{
		Vsize:      uint32(res.VSize),
		FeeBaseSat: uint64(res.Fees.Base * 1e8),
	}, nil
}

func (r *RPCChainClient) GetTxOutProof(txids []*chainhash.Hash, blockhash *chainhash.Hash) ([]byte, error) {
	hexProof, err := r.client.GetTxOutProof(txids, blockhash)
	if err != nil {
		return nil, swaperr.Errorf(swaperr.Chain, "get txout proof: %v", err)
	}
	return []byte(hexProof), nil
}

func (r *RPCChainClient) DefaultConfTarget() uint32 {
	return r.defaultConfTarget
}
