package swapwire

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/go-errors/errors"
	"github.com/utxoteleport/coinswap-taker/swaperr"
)

// frame is the on-wire envelope: a type tag plus the raw body JSON.
type frame struct {
	Type MessageType     `json:"type"`
	Body json.RawMessage `json:"body"`
}

// WriteMessage encodes msg as a single newline-terminated JSON frame
// and writes it to w.
func WriteMessage(w io.Writer, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return errors.Errorf("encode message body: %v", err)
	}

	f := frame{Type: msg.Type(), Body: body}
	raw, err := json.Marshal(f)
	if err != nil {
		return errors.Errorf("encode frame: %v", err)
	}

	raw = append(raw, '\n')
	if _, err := w.Write(raw); err != nil {
		return errors.Errorf("write frame: %v", err)
	}
	return nil
}

// ReadMessage reads one newline-terminated frame from r and decodes its
// body according to the tag it carries. EOF is returned unwrapped so
// callers can distinguish a clean peer close from a protocol error.
func ReadMessage(r *bufio.Reader) (Message, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if err == io.EOF && line == "" {
			return nil, io.EOF
		}
		if err != io.EOF {
			return nil, errors.Errorf("read frame: %v", err)
		}
	}

	var f frame
	if err := json.Unmarshal([]byte(line), &f); err != nil {
		return nil, swaperr.Errorf(swaperr.Protocol, "malformed frame: %v", err)
	}

	return decodeBody(f.Type, f.Body)
}

// ExpectType reads one frame and fails with a Protocol-kind error if it
// does not carry the expected tag.
func ExpectType(r *bufio.Reader, want MessageType) (Message, error) {
	msg, err := ReadMessage(r)
	if err != nil {
		return nil, err
	}
	if msg.Type() != want {
		return nil, swaperr.Errorf(swaperr.Protocol, "expected method %s, got %s", want, msg.Type())
	}
	return msg, nil
}

func decodeBody(t MessageType, body json.RawMessage) (Message, error) {
	var dst Message
	switch t {
	case MsgTakerHello:
		var m TakerHello
		dst = &m
	case MsgMakerHello:
		var m MakerHello
		dst = &m
	case MsgReqContractSigsForSender:
		var m ReqContractSigsForSender
		dst = &m
	case MsgRespContractSigsForSender:
		var m RespContractSigsForSender
		dst = &m
	case MsgReqContractSigsForRecvr:
		var m ReqContractSigsForRecvr
		dst = &m
	case MsgRespContractSigsForRecvr:
		var m RespContractSigsForRecvr
		dst = &m
	case MsgProofOfFunding:
		var m ProofOfFunding
		dst = &m
	case MsgReqContractSigsAsRecvrAndSender:
		var m ReqContractSigsAsRecvrAndSender
		dst = &m
	case MsgRespContractSigsForRecvrAndSender:
		var m RespContractSigsForRecvrAndSender
		dst = &m
	case MsgHashPreimage:
		var m HashPreimage
		dst = &m
	case MsgPrivKeyHandover:
		var m PrivKeyHandover
		dst = &m
	default:
		return nil, swaperr.Errorf(swaperr.Protocol, "unknown message type %d", t)
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return nil, errors.Errorf("decode %s body: %v", t, err)
	}
	return dst, nil
}
