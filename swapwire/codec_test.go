package swapwire

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripHello(t *testing.T) {
	var buf bytes.Buffer
	want := TakerHello{Hello{ProtocolVersionMin: 0, ProtocolVersionMax: 0}}

	require.NoError(t, WriteMessage(&buf, want))

	got, err := ReadMessage(bufio.NewReader(&buf))
	require.NoError(t, err)
	require.Equal(t, want, *got.(*TakerHello))
}

func TestRoundTripPrivKeyHandover(t *testing.T) {
	var buf bytes.Buffer
	want := PrivKeyHandover{MultisigPrivkeys: []MultisigPrivkey{
		{MultisigRedeemscript: []byte{0x01, 0x02}, Key: [32]byte{0xaa}},
	}}

	require.NoError(t, WriteMessage(&buf, want))
	got, err := ReadMessage(bufio.NewReader(&buf))
	require.NoError(t, err)
	require.Equal(t, want, *got.(*PrivKeyHandover))
}

func TestExpectTypeMismatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, TakerHello{}))

	_, err := ExpectType(bufio.NewReader(&buf), MsgMakerHello)
	require.Error(t, err)
}
