package peersession

import (
	"bufio"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/utxoteleport/coinswap-taker/swapwire"
)

func TestIsOnionAddr(t *testing.T) {
	require.True(t, IsOnionAddr("abc123.onion:5000"))
	require.False(t, IsOnionAddr("127.0.0.1:5000"))
}

func TestSendRecvFraming(t *testing.T) {
	r, w := newPipeConn(t)
	defer r.Close()
	defer w.Close()

	go func() {
		swapwire.WriteMessage(w, swapwire.MakerHello{})
	}()

	msg, err := swapwire.ExpectType(bufio.NewReader(r), swapwire.MsgMakerHello)
	require.NoError(t, err)
	require.Equal(t, swapwire.MsgMakerHello, msg.Type())
}
