package confirmwatcher

import (
	"bytes"
	"context"
	"encoding/hex"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
	"github.com/utxoteleport/coinswap-taker/chainrpc"
)

type fakeChain struct {
	confirmationsByTxid map[chainhash.Hash]uint32
	hexByTxid           map[chainhash.Hash]string
	breached            map[chainhash.Hash]bool
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		confirmationsByTxid: make(map[chainhash.Hash]uint32),
		hexByTxid:           make(map[chainhash.Hash]string),
		breached:            make(map[chainhash.Hash]bool),
	}
}

func (f *fakeChain) SendRawTransaction(tx *wire.MsgTx) (*chainhash.Hash, error) {
	return nil, nil
}

func (f *fakeChain) GetTransaction(txid *chainhash.Hash) (*chainrpc.TxStatus, error) {
	if f.breached[*txid] {
		return &chainrpc.TxStatus{Confirmations: 0, Hex: emptyTxHex()}, nil
	}
	return &chainrpc.TxStatus{
		Confirmations: f.confirmationsByTxid[*txid],
		Hex:           f.hexByTxid[*txid],
	}, nil
}

func (f *fakeChain) GetMempoolEntry(txid *chainhash.Hash) (*chainrpc.MempoolEntry, error) {
	return &chainrpc.MempoolEntry{Vsize: 150, FeeBaseSat: 1000}, nil
}

func (f *fakeChain) GetTxOutProof(txids []*chainhash.Hash, blockhash *chainhash.Hash) ([]byte, error) {
	return []byte{0xde, 0xad, 0xbe, 0xef}, nil
}

func (f *fakeChain) DefaultConfTarget() uint32 { return 1 }

// emptyTxHex serializes a blank transaction with one empty input: a
// transaction with zero inputs would decode as a malformed segwit
// marker and fail the watcher's Deserialize.
func emptyTxHex() string {
	var buf bytes.Buffer
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(&wire.TxIn{})
	tx.Serialize(&buf)
	return hex.EncodeToString(buf.Bytes())
}

func TestWatcherConfirms(t *testing.T) {
	chain := newFakeChain()
	txid := chainhash.Hash{0x01}
	chain.confirmationsByTxid[txid] = 3
	chain.hexByTxid[txid] = emptyTxHex()

	w, err := New(chain, []chainhash.Hash{txid}, []uint32{1}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	res, err := w.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, Confirmed, res.Outcome)
	require.Len(t, res.Proofs, 1)
}

func TestWatcherDetectsBreach(t *testing.T) {
	chain := newFakeChain()
	fundingTxid := chainhash.Hash{0x02}
	chain.confirmationsByTxid[fundingTxid] = 0

	contractTxid := chainhash.Hash{0x03}
	chain.breached[contractTxid] = true

	w, err := New(chain, []chainhash.Hash{fundingTxid}, []uint32{1}, []chainhash.Hash{contractTxid})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	res, err := w.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, Breach, res.Outcome)
}
