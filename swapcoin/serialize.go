package swapcoin

import (
	"bytes"
	"encoding/json"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/wire"
	"github.com/go-errors/errors"
)

// wireBase is Base's on-disk shape: btcec keys don't marshal to JSON on
// their own, so every persisted swapcoin variant goes through a plain
// struct of byte slices instead.
type wireBase struct {
	MultisigRedeemscript []byte   `json:"multisig_redeemscript"`
	ContractRedeemscript []byte   `json:"contract_redeemscript"`
	ContractTx           []byte   `json:"contract_tx"`
	FundingAmount        int64    `json:"funding_amount"`
	TimelockPubkey       []byte   `json:"timelock_pubkey"`
	Hashvalue            [20]byte `json:"hashvalue"`
}

func (b Base) toWire() (wireBase, error) {
	var txBytes []byte
	if b.ContractTx != nil {
		var err error
		txBytes, err = serializeTx(b.ContractTx)
		if err != nil {
			return wireBase{}, err
		}
	}
	var pub []byte
	if b.TimelockPubkey != nil {
		pub = b.TimelockPubkey.SerializeCompressed()
	}
	return wireBase{
		MultisigRedeemscript: b.MultisigRedeemscript,
		ContractRedeemscript: b.ContractRedeemscript,
		ContractTx:           txBytes,
		FundingAmount:        b.FundingAmount,
		TimelockPubkey:       pub,
		Hashvalue:            b.Hashvalue,
	}, nil
}

func (w wireBase) toBase() (Base, error) {
	b := Base{
		MultisigRedeemscript: w.MultisigRedeemscript,
		ContractRedeemscript: w.ContractRedeemscript,
		FundingAmount:        w.FundingAmount,
		Hashvalue:            w.Hashvalue,
	}
	if len(w.ContractTx) > 0 {
		tx, err := deserializeTx(w.ContractTx)
		if err != nil {
			return Base{}, err
		}
		b.ContractTx = tx
	}
	if len(w.TimelockPubkey) > 0 {
		pub, err := btcec.ParsePubKey(w.TimelockPubkey)
		if err != nil {
			return Base{}, errors.Errorf("parse timelock pubkey: %v", err)
		}
		b.TimelockPubkey = pub
	}
	return b, nil
}

type wireOutgoing struct {
	wireBase
	MyMultisigPrivkey   []byte `json:"my_multisig_privkey"`
	OtherMultisigPubkey []byte `json:"other_multisig_pubkey"`
	OthersContractSig   []byte `json:"others_contract_sig"`
}

// MarshalJSON persists an OutgoingSwapcoin with its keys as raw bytes.
func (o OutgoingSwapcoin) MarshalJSON() ([]byte, error) {
	base, err := o.Base.toWire()
	if err != nil {
		return nil, err
	}
	w := wireOutgoing{wireBase: base, OthersContractSig: o.OthersContractSig}
	if o.MyMultisigPrivkey != nil {
		w.MyMultisigPrivkey = o.MyMultisigPrivkey.Serialize()
	}
	if o.OtherMultisigPubkey != nil {
		w.OtherMultisigPubkey = o.OtherMultisigPubkey.SerializeCompressed()
	}
	return json.Marshal(w)
}

// UnmarshalJSON restores an OutgoingSwapcoin from its persisted form.
func (o *OutgoingSwapcoin) UnmarshalJSON(data []byte) error {
	var w wireOutgoing
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	base, err := w.wireBase.toBase()
	if err != nil {
		return err
	}
	o.Base = base
	o.OthersContractSig = w.OthersContractSig
	if len(w.MyMultisigPrivkey) > 0 {
		priv, _ := btcec.PrivKeyFromBytes(w.MyMultisigPrivkey)
		o.MyMultisigPrivkey = priv
		o.MyMultisigPubkey = priv.PubKey()
	}
	if len(w.OtherMultisigPubkey) > 0 {
		pub, err := btcec.ParsePubKey(w.OtherMultisigPubkey)
		if err != nil {
			return errors.Errorf("parse other multisig pubkey: %v", err)
		}
		o.OtherMultisigPubkey = pub
	}
	return nil
}

type wireIncoming struct {
	wireBase
	MyMultisigPrivkey   []byte `json:"my_multisig_privkey"`
	OtherMultisigPubkey []byte `json:"other_multisig_pubkey"`
	OtherPrivkey        []byte `json:"other_privkey"`
}

// MarshalJSON persists an IncomingSwapcoin with its keys as raw bytes.
func (in IncomingSwapcoin) MarshalJSON() ([]byte, error) {
	base, err := in.Base.toWire()
	if err != nil {
		return nil, err
	}
	w := wireIncoming{wireBase: base}
	if in.MyMultisigPrivkey != nil {
		w.MyMultisigPrivkey = in.MyMultisigPrivkey.Serialize()
	}
	if in.OtherMultisigPubkey != nil {
		w.OtherMultisigPubkey = in.OtherMultisigPubkey.SerializeCompressed()
	}
	if in.OtherPrivkey != nil {
		w.OtherPrivkey = in.OtherPrivkey.Serialize()
	}
	return json.Marshal(w)
}

// UnmarshalJSON restores an IncomingSwapcoin from its persisted form.
func (in *IncomingSwapcoin) UnmarshalJSON(data []byte) error {
	var w wireIncoming
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	base, err := w.wireBase.toBase()
	if err != nil {
		return err
	}
	in.Base = base
	if len(w.MyMultisigPrivkey) > 0 {
		priv, _ := btcec.PrivKeyFromBytes(w.MyMultisigPrivkey)
		in.MyMultisigPrivkey = priv
		in.MyMultisigPubkey = priv.PubKey()
	}
	if len(w.OtherMultisigPubkey) > 0 {
		pub, err := btcec.ParsePubKey(w.OtherMultisigPubkey)
		if err != nil {
			return errors.Errorf("parse other multisig pubkey: %v", err)
		}
		in.OtherMultisigPubkey = pub
	}
	if len(w.OtherPrivkey) > 0 {
		priv, _ := btcec.PrivKeyFromBytes(w.OtherPrivkey)
		in.OtherPrivkey = priv
	}
	return nil
}

func serializeTx(tx *wire.MsgTx) ([]byte, error) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return nil, errors.Errorf("serialize contract tx: %v", err)
	}
	return buf.Bytes(), nil
}

func deserializeTx(raw []byte) (*wire.MsgTx, error) {
	tx := wire.NewMsgTx(2)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, errors.Errorf("deserialize contract tx: %v", err)
	}
	return tx, nil
}
