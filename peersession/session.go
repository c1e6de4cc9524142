// Package peersession manages a Taker's TCP connection to one Maker:
// dialing (optionally through SOCKS5 for onion addresses), the
// symmetric hello handshake, and framed send/recv, all wrapped by the
// retry envelope combinator in retry.go.
package peersession

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/go-errors/errors"
	"github.com/utxoteleport/coinswap-taker/swaperr"
	"github.com/utxoteleport/coinswap-taker/swapwire"
	"golang.org/x/net/proxy"
)

var log btclog.Logger = btclog.Disabled

// UseLogger sets the package-wide logger used by peersession.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// ProtocolVersionMin and ProtocolVersionMax are the only handshake
// values this engine speaks.
const (
	ProtocolVersionMin = 0
	ProtocolVersionMax = 0
)

// Session is one live connection to a Maker.
type Session struct {
	conn   net.Conn
	reader *bufio.Reader
}

// Dial connects to addr, tunneling through SOCKS5 via socksProxy when
// isOnion is set, then performs the symmetric hello handshake.
func Dial(ctx context.Context, addr string, isOnion bool, socksProxy string) (*Session, error) {
	conn, err := dialAddr(ctx, addr, isOnion, socksProxy)
	if err != nil {
		return nil, swaperr.Errorf(swaperr.Network, "dial %s: %v", addr, err)
	}

	s := &Session{conn: conn, reader: bufio.NewReader(conn)}
	if err := s.handshake(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func dialAddr(ctx context.Context, addr string, isOnion bool, socksProxy string) (net.Conn, error) {
	if !isOnion {
		d := net.Dialer{}
		return d.DialContext(ctx, "tcp", addr)
	}

	dialer, err := proxy.SOCKS5("tcp", socksProxy, nil, proxy.Direct)
	if err != nil {
		return nil, errors.Errorf("build socks5 dialer: %v", err)
	}
	type ctxDialer interface {
		DialContext(ctx context.Context, network, addr string) (net.Conn, error)
	}
	if cd, ok := dialer.(ctxDialer); ok {
		return cd.DialContext(ctx, "tcp", addr)
	}
	return dialer.Dial("tcp", addr)
}

func (s *Session) handshake() error {
	hello := swapwire.TakerHello{Hello: swapwire.Hello{
		ProtocolVersionMin: ProtocolVersionMin,
		ProtocolVersionMax: ProtocolVersionMax,
	}}
	if err := s.Send(hello); err != nil {
		return errors.Errorf("send hello: %v", err)
	}

	msg, err := swapwire.ExpectType(s.reader, swapwire.MsgMakerHello)
	if err != nil {
		return errors.Errorf("recv hello: %v", err)
	}
	maker := msg.(*swapwire.MakerHello)
	if maker.ProtocolVersionMin > ProtocolVersionMax || maker.ProtocolVersionMax < ProtocolVersionMin {
		return swaperr.New(swaperr.Protocol, "incompatible protocol version")
	}
	return nil
}

// Send writes msg as a single framed line.
func (s *Session) Send(msg swapwire.Message) error {
	return swapwire.WriteMessage(s.conn, msg)
}

// Recv reads and decodes the next frame. An EOF from the peer is
// tagged Network rather than Protocol, per the component design's
// mapping, so the retry envelope treats a dropped connection as
// recoverable instead of a misbehaving-peer signal.
func (s *Session) Recv() (swapwire.Message, error) {
	msg, err := swapwire.ReadMessage(s.reader)
	if err == io.EOF {
		return nil, swaperr.Wrap(swaperr.Network, err)
	}
	return msg, err
}

// RecvExpect reads the next frame and requires it carry want's tag.
func (s *Session) RecvExpect(want swapwire.MessageType) (swapwire.Message, error) {
	msg, err := swapwire.ExpectType(s.reader, want)
	if err == io.EOF {
		return nil, swaperr.Wrap(swaperr.Network, err)
	}
	return msg, err
}

// Close tears down the underlying connection.
func (s *Session) Close() error {
	return s.conn.Close()
}

// SetDeadline propagates a deadline to the underlying connection, used
// by callers layering their own per-attempt timeout on top of the
// Envelope's context-based one for the read/write calls themselves.
func (s *Session) SetDeadline(t time.Time) error {
	return s.conn.SetDeadline(t)
}

// IsOnionAddr reports whether addr's host component ends in ".onion".
func IsOnionAddr(addr string) bool {
	host := addr
	if i := strings.LastIndex(addr, ":"); i != -1 {
		host = addr[:i]
	}
	return strings.HasSuffix(host, ".onion")
}
