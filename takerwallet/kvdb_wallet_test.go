package takerwallet

import (
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
	"github.com/utxoteleport/coinswap-taker/swapcoin"
)

type staticUTXOSource struct {
	outpoints []wire.OutPoint
	values    []int64
}

func (s staticUTXOSource) SelectFunding(amount uint64, count int) ([]wire.OutPoint, []int64, error) {
	return s.outpoints[:count], s.values[:count], nil
}

func openTestWallet(t *testing.T) *KVDBWallet {
	t.Helper()
	dir := t.TempDir()
	src := staticUTXOSource{
		outpoints: []wire.OutPoint{{Index: 0}, {Index: 1}},
		values:    []int64{50_000, 50_000},
	}
	w, err := Open(filepath.Join(dir, "wallet.db"), src)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

func TestInitializeCoinswap(t *testing.T) {
	w := openTestWallet(t)

	makerPriv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	hashlockPriv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	var makerPub, hashlockPub [33]byte
	copy(makerPub[:], makerPriv.PubKey().SerializeCompressed())
	copy(hashlockPub[:], hashlockPriv.PubKey().SerializeCompressed())

	res, err := w.InitializeCoinswap(50_000, [][33]byte{makerPub}, [][33]byte{hashlockPub},
		[20]byte{0xaa}, 100, 1000)
	require.NoError(t, err)
	require.Len(t, res.FundingTxs, 1)
	require.Len(t, res.OutgoingSwapcoins, 1)
	require.NotNil(t, res.OutgoingSwapcoins[0].MyMultisigPrivkey)
}

func TestAddAndFindIncomingSwapcoin(t *testing.T) {
	w := openTestWallet(t)

	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	sc := &swapcoin.IncomingSwapcoin{
		Base: swapcoin.Base{
			MultisigRedeemscript: []byte("redeemscript-a"),
			FundingAmount:        12345,
		},
		MyMultisigPrivkey: priv,
		MyMultisigPubkey:  priv.PubKey(),
	}
	require.NoError(t, w.AddIncomingSwapcoin(sc))

	got, err := w.FindIncomingSwapcoinMut([]byte("redeemscript-a"))
	require.NoError(t, err)
	require.Equal(t, int64(12345), got.FundingAmount)

	_, err = w.FindIncomingSwapcoinMut([]byte("does-not-exist"))
	require.ErrorIs(t, err, ErrSwapcoinNotFound)
}

func TestImportedRedeemscripts(t *testing.T) {
	w := openTestWallet(t)
	require.NoError(t, w.ImportWatchonlyRedeemscript([]byte("script-1")))
	require.NoError(t, w.ImportWalletMultisigRedeemscript([]byte("script-2")))
	require.NoError(t, w.ImportWalletContractRedeemscript([]byte("script-3")))
}

func TestImportTxWithMerkleproof(t *testing.T) {
	w := openTestWallet(t)
	tx := wire.NewMsgTx(2)
	require.NoError(t, w.ImportTxWithMerkleproof(tx, []byte{0x01, 0x02}))
}

func TestSaveToDiskNoError(t *testing.T) {
	w := openTestWallet(t)
	require.NoError(t, w.SaveToDisk())
}

