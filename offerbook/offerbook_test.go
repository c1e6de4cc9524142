package offerbook

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mkOffer(addr string, min, max uint64) Offer {
	return Offer{Address: addr, MinSize: min, MaxSize: max}
}

func TestPickUntriedMatchingDeterministic(t *testing.T) {
	b := New()
	b.AddOffer(mkOffer("b.example:1", 0, 1_000_000_000))
	b.AddOffer(mkOffer("a.example:1", 0, 1_000_000_000))

	o, err := b.PickUntriedMatching(500_000_000)
	require.NoError(t, err)
	require.Equal(t, "a.example:1", o.Address)
}

func TestPickUntriedMatchingSkipsTried(t *testing.T) {
	b := New()
	b.AddOffer(mkOffer("a.example:1", 0, 1_000_000_000))
	b.AddOffer(mkOffer("b.example:1", 0, 1_000_000_000))
	b.MarkBad("a.example:1")

	o, err := b.PickUntriedMatching(500_000_000)
	require.NoError(t, err)
	require.Equal(t, "b.example:1", o.Address)
}

func TestPickUntriedMatchingStrictRange(t *testing.T) {
	b := New()
	b.AddOffer(mkOffer("a.example:1", 100, 200))

	_, err := b.PickUntriedMatching(100)
	require.ErrorIs(t, err, ErrNoSuitableMaker)

	_, err = b.PickUntriedMatching(200)
	require.ErrorIs(t, err, ErrNoSuitableMaker)

	_, err = b.PickUntriedMatching(150)
	require.NoError(t, err)
}

func TestEmptyOfferBook(t *testing.T) {
	b := New()
	_, err := b.PickUntriedMatching(1)
	require.ErrorIs(t, err, ErrNoSuitableMaker)
}

func TestGoodBadDisjointAfterMarking(t *testing.T) {
	b := New()
	b.AddOffer(mkOffer("a.example:1", 0, 10))
	b.MarkGood("a.example:1")
	require.True(t, b.IsGood("a.example:1"))
	require.False(t, b.IsBad("a.example:1"))
}
