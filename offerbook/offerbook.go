// Package offerbook tracks the set of Maker offers a Taker has learned
// about during one swap round and partitions them by trustworthiness.
package offerbook

import (
	"sort"

	"github.com/btcsuite/btclog"
	"github.com/go-errors/errors"
)

var log btclog.Logger = btclog.Disabled

// UseLogger sets the package-wide logger used by offerbook.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// AddressType distinguishes how a PeerSession must dial a Maker.
type AddressType uint8

const (
	// Clearnet addresses are dialed directly over TCP.
	Clearnet AddressType = iota
	// Tor addresses are dialed through a local SOCKS5 proxy.
	Tor
)

func (t AddressType) String() string {
	switch t {
	case Clearnet:
		return "clearnet"
	case Tor:
		return "tor"
	default:
		return "unknown"
	}
}

// FeeSchedule is a Maker's advertised coinswap fee policy.
type FeeSchedule struct {
	AbsoluteSat  uint64
	AmountRelPpb uint64
	TimeRelPpb   uint64
}

// Offer records one Maker's advertised terms.
type Offer struct {
	Address            string
	AddrType           AddressType
	TweakablePoint     [33]byte
	MinSize            uint64
	MaxSize            uint64
	RequiredConfirms   uint32
	Fee                FeeSchedule
}

// id is the deterministic key an Offer is tracked under, so that
// selection order over a set is reproducible across runs.
func (o Offer) id() string {
	return o.Address
}

// ErrNoSuitableMaker is returned when no untried offer matches the
// requested amount.
var ErrNoSuitableMaker = errors.New("no suitable maker")

// OfferBook is the in-memory tri-partition of known Makers into
// all / good / bad. It is not persisted across rounds.
type OfferBook struct {
	all map[string]Offer
	good map[string]struct{}
	bad  map[string]struct{}
}

// New returns an empty OfferBook.
func New() *OfferBook {
	return &OfferBook{
		all:  make(map[string]Offer),
		good: make(map[string]struct{}),
		bad:  make(map[string]struct{}),
	}
}

// AddOffer records o in the all set. Re-adding an address already known
// overwrites its terms without resetting its good/bad status.
func (b *OfferBook) AddOffer(o Offer) {
	b.all[o.id()] = o
}

// MarkGood records that id has delivered at least one valid signature
// this round.
func (b *OfferBook) MarkGood(id string) {
	b.good[id] = struct{}{}
}

// MarkBad records that id misbehaved and must not be reselected.
func (b *OfferBook) MarkBad(id string) {
	log.Warnf("marking offer %s bad", id)
	b.bad[id] = struct{}{}
}

// IsGood reports whether id is in the good set.
func (b *OfferBook) IsGood(id string) bool {
	_, ok := b.good[id]
	return ok
}

// IsBad reports whether id is in the bad set.
func (b *OfferBook) IsBad(id string) bool {
	_, ok := b.bad[id]
	return ok
}

// PickUntriedMatching returns an untried offer (not in good or bad) whose
// range strictly contains amount. Selection is deterministic: offers are
// ordered by address and the first match wins.
func (b *OfferBook) PickUntriedMatching(amount uint64) (Offer, error) {
	ids := make([]string, 0, len(b.all))
	for id := range b.all {
		if _, tried := b.good[id]; tried {
			continue
		}
		if _, tried := b.bad[id]; tried {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		o := b.all[id]
		if amount > o.MinSize && amount < o.MaxSize {
			return o, nil
		}
	}
	return Offer{}, ErrNoSuitableMaker
}
