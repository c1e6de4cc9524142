package takerwallet

import (
	"bytes"
	"encoding/json"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btclog"
	"github.com/go-errors/errors"
	"github.com/lightningnetwork/lnd/kvdb"
	"github.com/utxoteleport/coinswap-taker/contracts"
	"github.com/utxoteleport/coinswap-taker/swapcoin"
)

var log btclog.Logger = btclog.Disabled

// UseLogger sets the package-wide logger used by takerwallet.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// Bucket names, one per concern, the way channeldb/db.go lays out its
// top-level buckets rather than flattening everything into one
// namespace.
var (
	outgoingSwapcoinsBucket = []byte("outgoing-swapcoins")
	incomingSwapcoinsBucket = []byte("incoming-swapcoins")
	watchonlyScriptsBucket  = []byte("watchonly-redeemscripts")
	walletScriptsBucket     = []byte("wallet-multisig-redeemscripts")
	contractScriptsBucket   = []byte("wallet-contract-redeemscripts")
	importedTxsBucket       = []byte("imported-txs")
)

var topLevelBuckets = [][]byte{
	outgoingSwapcoinsBucket,
	incomingSwapcoinsBucket,
	watchonlyScriptsBucket,
	walletScriptsBucket,
	contractScriptsBucket,
	importedTxsBucket,
}

// UTXOSource supplies confirmed, spendable outputs for funding a new
// round. It stands in for the full HD-wallet UTXO-selection logic this
// package does not own (spec marks Wallet's key derivation and UTXO
// selection out of scope, referenced only by interface).
type UTXOSource interface {
	SelectFunding(amount uint64, count int) ([]wire.OutPoint, []int64, error)
}

// KVDBWallet is a reference Wallet implementation: it persists every
// swapcoin and imported redeemscript in a bolt-backed kvdb.Backend, and
// delegates UTXO selection to a supplied UTXOSource.
type KVDBWallet struct {
	db     kvdb.Backend
	utxos  UTXOSource
}

// Open creates or opens a bolt-backed kvdb database at path and ensures
// every top-level bucket exists.
func Open(path string, utxos UTXOSource) (*KVDBWallet, error) {
	db, err := kvdb.Create(kvdb.BoltBackendName, path, true, kvdb.DefaultBoltTimeout)
	if err != nil {
		return nil, errors.Errorf("open wallet db: %v", err)
	}

	err = kvdb.Update(db, func(tx kvdb.RwTx) error {
		for _, name := range topLevelBuckets {
			if _, err := tx.CreateTopLevelBucket(name); err != nil {
				return err
			}
		}
		return nil
	}, func() {})
	if err != nil {
		db.Close()
		return nil, errors.Errorf("init wallet buckets: %v", err)
	}

	return &KVDBWallet{db: db, utxos: utxos}, nil
}

// Close releases the underlying database handle.
func (w *KVDBWallet) Close() error {
	return w.db.Close()
}

// InitializeCoinswap selects funding UTXOs and builds one unbroadcast
// funding transaction + OutgoingSwapcoin per requested multisig pubkey.
func (w *KVDBWallet) InitializeCoinswap(amount uint64, multisigPubkeys, hashlockPubkeys [][33]byte,
	hashvalue [20]byte, swapLocktime uint32, feeRate uint64) (*InitResult, error) {

	txCount := len(multisigPubkeys)
	if txCount == 0 || txCount != len(hashlockPubkeys) {
		return nil, errors.New("mismatched pubkey counts")
	}

	outpoints, values, err := w.utxos.SelectFunding(amount, txCount)
	if err != nil {
		return nil, errors.Errorf("select funding utxos: %v", err)
	}

	res := &InitResult{}
	for i := 0; i < txCount; i++ {
		myPriv, err := btcec.NewPrivateKey()
		if err != nil {
			return nil, errors.Errorf("generate multisig key: %v", err)
		}
		otherPub, err := btcec.ParsePubKey(multisigPubkeys[i][:])
		if err != nil {
			return nil, errors.Errorf("parse maker multisig pubkey: %v", err)
		}
		hashlockPub, err := btcec.ParsePubKey(hashlockPubkeys[i][:])
		if err != nil {
			return nil, errors.Errorf("parse maker hashlock pubkey: %v", err)
		}

		// Taker is the sender of this funding: it owns both the
		// multisig key and the contract's refund (timelock) key, while
		// the Maker claims via the hashlock branch with its own key.
		multisigRedeemscript, err := contracts.MultisigRedeemscript(
			myPriv.PubKey().SerializeCompressed(), otherPub.SerializeCompressed(),
		)
		if err != nil {
			return nil, errors.Errorf("build multisig redeemscript: %v", err)
		}
		contractRedeemscript, err := contracts.ContractRedeemscript(
			hashlockPub.SerializeCompressed(), myPriv.PubKey().SerializeCompressed(), hashvalue, swapLocktime,
		)
		if err != nil {
			return nil, errors.Errorf("build contract redeemscript: %v", err)
		}

		tx := wire.NewMsgTx(2)
		tx.AddTxIn(&wire.TxIn{PreviousOutPoint: outpoints[i]})
		multisigPkScript, err := contracts.WitnessScriptHash(multisigRedeemscript)
		if err != nil {
			return nil, err
		}
		tx.AddTxOut(wire.NewTxOut(values[i], multisigPkScript))

		contractTx, err := contracts.CreateReceiversContractTx(
			wire.OutPoint{Hash: tx.TxHash(), Index: 0}, values[i], contractRedeemscript,
		)
		if err != nil {
			return nil, errors.Errorf("build contract tx: %v", err)
		}

		res.FundingTxs = append(res.FundingTxs, tx)
		res.OutgoingSwapcoins = append(res.OutgoingSwapcoins, &swapcoin.OutgoingSwapcoin{
			Base: swapcoin.Base{
				MultisigRedeemscript: multisigRedeemscript,
				ContractRedeemscript: contractRedeemscript,
				ContractTx:           contractTx,
				FundingAmount:        values[i],
				TimelockPubkey:       myPriv.PubKey(),
				Hashvalue:            hashvalue,
			},
			MyMultisigPrivkey:   myPriv,
			MyMultisigPubkey:    myPriv.PubKey(),
			OtherMultisigPubkey: otherPub,
		})
	}

	res.MinerFee = contracts.MakerFundingVbytes * feeRate * uint64(txCount) / 1000
	return res, nil
}

func (w *KVDBWallet) AddOutgoingSwapcoin(sc *swapcoin.OutgoingSwapcoin) error {
	return w.putJSON(outgoingSwapcoinsBucket, sc.MultisigRedeemscript, sc)
}

func (w *KVDBWallet) AddIncomingSwapcoin(sc *swapcoin.IncomingSwapcoin) error {
	return w.putJSON(incomingSwapcoinsBucket, sc.MultisigRedeemscript, sc)
}

func (w *KVDBWallet) FindIncomingSwapcoinMut(redeemscript []byte) (*swapcoin.IncomingSwapcoin, error) {
	var sc swapcoin.IncomingSwapcoin
	found := false
	err := kvdb.View(w.db, func(tx kvdb.RTx) error {
		b := tx.ReadBucket(incomingSwapcoinsBucket)
		if b == nil {
			return nil
		}
		raw := b.Get(redeemscript)
		if raw == nil {
			return nil
		}
		found = true
		return json.NewDecoder(bytes.NewReader(raw)).Decode(&sc)
	}, func() {})
	if err != nil {
		return nil, errors.Errorf("read incoming swapcoin: %v", err)
	}
	if !found {
		return nil, ErrSwapcoinNotFound
	}
	return &sc, nil
}

func (w *KVDBWallet) ImportWatchonlyRedeemscript(redeemscript []byte) error {
	return w.putRaw(watchonlyScriptsBucket, redeemscript, []byte{1})
}

func (w *KVDBWallet) ImportWalletMultisigRedeemscript(redeemscript []byte) error {
	return w.putRaw(walletScriptsBucket, redeemscript, []byte{1})
}

func (w *KVDBWallet) ImportWalletContractRedeemscript(redeemscript []byte) error {
	return w.putRaw(contractScriptsBucket, redeemscript, []byte{1})
}

func (w *KVDBWallet) ImportTxWithMerkleproof(tx *wire.MsgTx, proof []byte) error {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return errors.Errorf("serialize tx: %v", err)
	}
	entry := struct {
		Tx    []byte
		Proof []byte
	}{Tx: buf.Bytes(), Proof: proof}
	txid := txidOf(tx)
	return w.putJSON(importedTxsBucket, txid[:], entry)
}

// SaveToDisk is a no-op here: every mutation above already commits its
// own kvdb read-write transaction, so there is no separate dirty state
// to flush. It exists to satisfy the Wallet contract's explicit
// persistence checkpoints (after hop-0 commit, after settlement).
func (w *KVDBWallet) SaveToDisk() error {
	log.Debug("wallet checkpoint: all mutations already committed")
	return nil
}

func (w *KVDBWallet) putRaw(bucket, key, value []byte) error {
	return kvdb.Update(w.db, func(tx kvdb.RwTx) error {
		b := tx.ReadWriteBucket(bucket)
		if b == nil {
			return errors.Errorf("missing bucket %s", bucket)
		}
		return b.Put(key, value)
	}, func() {})
}

func (w *KVDBWallet) putJSON(bucket, key []byte, v interface{}) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return errors.Errorf("encode: %v", err)
	}
	return w.putRaw(bucket, key, buf.Bytes())
}
