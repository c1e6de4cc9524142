// Package swapwire defines the tagged-union message set exchanged
// between a Taker and a Maker, and a line-delimited JSON codec for it.
//
// Every frame on the wire is a single JSON object terminated by a
// newline. The object always carries a "type" tag naming one of the
// MessageType constants below, plus a "body" object holding the
// message-specific fields. This mirrors how lnwire tags its binary
// frames with a MessageType, but uses a textual encoding because the
// protocol this package serves is line-oriented, not length-prefixed.
package swapwire

import "github.com/btcsuite/btcd/wire"

// MessageType tags the body of a frame.
type MessageType uint8

const (
	MsgTakerHello MessageType = iota
	MsgMakerHello
	MsgReqContractSigsForSender
	MsgRespContractSigsForSender
	MsgReqContractSigsForRecvr
	MsgRespContractSigsForRecvr
	MsgProofOfFunding
	MsgReqContractSigsAsRecvrAndSender
	MsgRespContractSigsForRecvrAndSender
	MsgHashPreimage
	MsgPrivKeyHandover
)

func (t MessageType) String() string {
	switch t {
	case MsgTakerHello:
		return "taker_hello"
	case MsgMakerHello:
		return "maker_hello"
	case MsgReqContractSigsForSender:
		return "req_contract_sigs_for_sender"
	case MsgRespContractSigsForSender:
		return "resp_contract_sigs_for_sender"
	case MsgReqContractSigsForRecvr:
		return "req_contract_sigs_for_recvr"
	case MsgRespContractSigsForRecvr:
		return "resp_contract_sigs_for_recvr"
	case MsgProofOfFunding:
		return "proof_of_funding"
	case MsgReqContractSigsAsRecvrAndSender:
		return "req_contract_sigs_as_recvr_and_sender"
	case MsgRespContractSigsForRecvrAndSender:
		return "resp_contract_sigs_for_recvr_and_sender"
	case MsgHashPreimage:
		return "hash_preimage"
	case MsgPrivKeyHandover:
		return "privkey_handover"
	default:
		return "unknown"
	}
}

// Message is satisfied by every wire body type; Type identifies which
// MessageType constant the body decodes as.
type Message interface {
	Type() MessageType
}

// Hello is the symmetric handshake body sent by both sides.
type Hello struct {
	ProtocolVersionMin uint32 `json:"protocol_version_min"`
	ProtocolVersionMax uint32 `json:"protocol_version_max"`
}

type TakerHello struct{ Hello }

func (TakerHello) Type() MessageType { return MsgTakerHello }

type MakerHello struct{ Hello }

func (MakerHello) Type() MessageType { return MsgMakerHello }

// SenderContractTxInfo describes one funding output the Taker is about
// to fund and the next-hop sending contract built against it.
type SenderContractTxInfo struct {
	MultisigKeyNonce     [32]byte `json:"multisig_key_nonce"`
	HashlockKeyNonce     [32]byte `json:"hashlock_key_nonce"`
	TimelockPubkey       [33]byte `json:"timelock_pubkey"`
	SendersContractTx    *wire.MsgTx `json:"senders_contract_tx"`
	MultisigRedeemscript []byte   `json:"multisig_redeemscript"`
	FundingInputValue    uint64   `json:"funding_input_value"`
}

type ReqContractSigsForSender struct {
	TxsInfo   []SenderContractTxInfo `json:"txs_info"`
	Hashvalue [20]byte               `json:"hashvalue"`
	Locktime  uint32                 `json:"locktime"`
}

func (ReqContractSigsForSender) Type() MessageType { return MsgReqContractSigsForSender }

type RespContractSigsForSender struct {
	Sigs [][]byte `json:"sigs"`
}

func (RespContractSigsForSender) Type() MessageType { return MsgRespContractSigsForSender }

type ContractTxRef struct {
	MultisigRedeemscript []byte      `json:"multisig_redeemscript"`
	ContractTx           *wire.MsgTx `json:"contract_tx"`
}

type ReqContractSigsForRecvr struct {
	Txs []ContractTxRef `json:"txs"`
}

func (ReqContractSigsForRecvr) Type() MessageType { return MsgReqContractSigsForRecvr }

type RespContractSigsForRecvr struct {
	Sigs [][]byte `json:"sigs"`
}

func (RespContractSigsForRecvr) Type() MessageType { return MsgRespContractSigsForRecvr }

// FundingTxInfo describes one confirmed funding output, handed from
// hop h to the Maker at hop h so it can validate and build on top.
type FundingTxInfo struct {
	FundingTx            *wire.MsgTx `json:"funding_tx"`
	FundingTxMerkleproof []byte      `json:"funding_tx_merkleproof"`
	MultisigRedeemscript []byte      `json:"multisig_redeemscript"`
	MultisigNonce        [32]byte    `json:"multisig_nonce"`
	ContractRedeemscript []byte      `json:"contract_redeemscript"`
	HashlockNonce        [32]byte    `json:"hashlock_nonce"`
}

// NextHopInfo names the pubkeys the next hop's 2-of-2 will be built
// from.
type NextHopInfo struct {
	NextMultisigPubkey [33]byte `json:"next_multisig_pubkey"`
	NextHashlockPubkey [33]byte `json:"next_hashlock_pubkey"`
}

type ProofOfFunding struct {
	ConfirmedFundingTxes []FundingTxInfo `json:"confirmed_funding_txes"`
	NextCoinswapInfo     []NextHopInfo   `json:"next_coinswap_info"`
	NextLocktime         uint32          `json:"next_locktime"`
	NextFeeRate          uint64          `json:"next_fee_rate"`
}

func (ProofOfFunding) Type() MessageType { return MsgProofOfFunding }

// SendersContractTxInfo is the Maker's proposal for the contract
// securing the next hop it is about to fund.
type SendersContractTxInfo struct {
	ContractTx           *wire.MsgTx `json:"contract_tx"`
	TimelockPubkey       [33]byte    `json:"timelock_pubkey"`
	MultisigRedeemscript []byte      `json:"multisig_redeemscript"`
	FundingAmount        uint64      `json:"funding_amount"`
}

type ReqContractSigsAsRecvrAndSender struct {
	ReceiversContractTxs  []*wire.MsgTx           `json:"receivers_contract_txs"`
	SendersContractTxInfo []SendersContractTxInfo `json:"senders_contract_txs_info"`
}

func (ReqContractSigsAsRecvrAndSender) Type() MessageType {
	return MsgReqContractSigsAsRecvrAndSender
}

type RespContractSigsForRecvrAndSender struct {
	ReceiversSigs [][]byte `json:"receivers_sigs"`
	SendersSigs   [][]byte `json:"senders_sigs"`
}

func (RespContractSigsForRecvrAndSender) Type() MessageType {
	return MsgRespContractSigsForRecvrAndSender
}

type HashPreimage struct {
	SendersMultisigRedeemscripts   [][]byte `json:"senders_multisig_redeemscripts"`
	ReceiversMultisigRedeemscripts [][]byte `json:"receivers_multisig_redeemscripts"`
	Preimage                       [32]byte `json:"preimage"`
}

func (HashPreimage) Type() MessageType { return MsgHashPreimage }

type MultisigPrivkey struct {
	MultisigRedeemscript []byte   `json:"multisig_redeemscript"`
	Key                  [32]byte `json:"key"`
}

type PrivKeyHandover struct {
	MultisigPrivkeys []MultisigPrivkey `json:"multisig_privkeys"`
}

func (PrivKeyHandover) Type() MessageType { return MsgPrivKeyHandover }
