package contracts

import (
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

func fakePubkey(b byte) []byte {
	p := make([]byte, 33)
	p[0] = 0x02
	p[1] = b
	return p
}

func TestContractRedeemscriptVariesWithLocktime(t *testing.T) {
	hashvalue := Hash160([]byte("preimage"))

	s1, err := ContractRedeemscript(fakePubkey(1), fakePubkey(2), hashvalue, 100)
	require.NoError(t, err)
	s2, err := ContractRedeemscript(fakePubkey(1), fakePubkey(2), hashvalue, 52)
	require.NoError(t, err)

	require.NotEqual(t, s1, s2)
}

func TestCreateAndValidateReceiversContractTx(t *testing.T) {
	hashvalue := Hash160([]byte("preimage"))
	redeemscript, err := ContractRedeemscript(fakePubkey(1), fakePubkey(2), hashvalue, 100)
	require.NoError(t, err)

	prevOut := wire.OutPoint{Index: 0}
	tx, err := CreateReceiversContractTx(prevOut, 50_000, redeemscript)
	require.NoError(t, err)

	require.NoError(t, ValidateContractTx(tx, &prevOut, redeemscript))

	other := wire.OutPoint{Index: 1}
	require.Error(t, ValidateContractTx(tx, &other, redeemscript))
}

func TestCalculateCoinswapFee(t *testing.T) {
	fee := CalculateCoinswapFee(100, 1_000_000, 500_000, 500_000_000, 48)
	// absolute=100, amount fee=500_000_000*1_000_000/1e9=500_000,
	// time fee=48*500_000/1e9=0
	require.Equal(t, uint64(100+500_000), fee)
}

func TestTakerPaidMinerFee(t *testing.T) {
	require.Equal(t, uint64(MakerFundingVbytes*1000*2/1000), TakerPaidMinerFee(1000, 2))
}
