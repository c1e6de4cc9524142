package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/wire"
	flags "github.com/jessevdk/go-flags"
	"github.com/utxoteleport/coinswap-taker/chainrpc"
	"github.com/utxoteleport/coinswap-taker/offerbook"
	"github.com/utxoteleport/coinswap-taker/taker"
	"github.com/utxoteleport/coinswap-taker/takerwallet"
)

// takerdMain is the true entry point for takerd, mirroring lnd.go's
// split between main and lndMain so deferred cleanup still runs when
// the process exits early.
func takerdMain() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename)); err != nil {
		return err
	}
	setLogLevels(cfg.Debug)
	defer logRotator.Close()

	chain, err := chainrpc.NewRPCChainClient(cfg.RPCHost, cfg.RPCUser, cfg.RPCPass, cfg.RPCTLS, defaultConfTarget)
	if err != nil {
		return fmt.Errorf("connect chain client: %w", err)
	}

	wallet, err := takerwallet.Open(filepath.Join(cfg.DataDir, "taker.db"), notImplementedUTXOSource{})
	if err != nil {
		return fmt.Errorf("open wallet: %w", err)
	}
	defer wallet.Close()

	offers := offerbook.New()
	for _, raw := range cfg.MakerOffers {
		offer, err := parseMakerOffer(raw)
		if err != nil {
			return fmt.Errorf("parse --maker %q: %w", raw, err)
		}
		offers.AddOffer(offer)
	}

	orch, err := taker.New(taker.Config{
		Wallet:     wallet,
		Chain:      chain,
		Offers:     offers,
		SocksProxy: cfg.SocksProxy,
	}, taker.Parameters{
		SendAmount:       cfg.SendAmount,
		MakerCount:       cfg.MakerCount,
		TxCount:          cfg.TxCount,
		RequiredConfirms: cfg.RequiredConfirms,
		FeeRate:          cfg.FeeRate,
	})
	if err != nil {
		return fmt.Errorf("configure orchestrator: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		cancel()
	}()

	return orch.Run(ctx)
}

// parseMakerOffer decodes one --maker flag value:
// address,tweakable_point_hex,required_confirms,min_size,max_size,abs_fee,amount_rel_ppb,time_rel_ppb
func parseMakerOffer(raw string) (offerbook.Offer, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 8 {
		return offerbook.Offer{}, fmt.Errorf("expected 8 comma-separated fields, got %d", len(parts))
	}

	pointBytes, err := parseHexPubkey(parts[1])
	if err != nil {
		return offerbook.Offer{}, err
	}

	confirms, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return offerbook.Offer{}, fmt.Errorf("required_confirms: %w", err)
	}
	minSize, err := strconv.ParseUint(parts[3], 10, 64)
	if err != nil {
		return offerbook.Offer{}, fmt.Errorf("min_size: %w", err)
	}
	maxSize, err := strconv.ParseUint(parts[4], 10, 64)
	if err != nil {
		return offerbook.Offer{}, fmt.Errorf("max_size: %w", err)
	}
	absFee, err := strconv.ParseUint(parts[5], 10, 64)
	if err != nil {
		return offerbook.Offer{}, fmt.Errorf("abs_fee: %w", err)
	}
	amountRel, err := strconv.ParseUint(parts[6], 10, 64)
	if err != nil {
		return offerbook.Offer{}, fmt.Errorf("amount_rel_ppb: %w", err)
	}
	timeRel, err := strconv.ParseUint(parts[7], 10, 64)
	if err != nil {
		return offerbook.Offer{}, fmt.Errorf("time_rel_ppb: %w", err)
	}

	addrType := offerbook.Clearnet
	if strings.HasSuffix(strings.Split(parts[0], ":")[0], ".onion") {
		addrType = offerbook.Tor
	}

	return offerbook.Offer{
		Address:          parts[0],
		AddrType:         addrType,
		TweakablePoint:   pointBytes,
		MinSize:          minSize,
		MaxSize:          maxSize,
		RequiredConfirms: uint32(confirms),
		Fee: offerbook.FeeSchedule{
			AbsoluteSat:  absFee,
			AmountRelPpb: amountRel,
			TimeRelPpb:   timeRel,
		},
	}, nil
}

func parseHexPubkey(s string) ([33]byte, error) {
	var out [33]byte
	if len(s) != 66 {
		return out, fmt.Errorf("expected 66 hex chars, got %d", len(s))
	}
	for i := 0; i < 33; i++ {
		b, err := strconv.ParseUint(s[2*i:2*i+2], 16, 8)
		if err != nil {
			return out, err
		}
		out[i] = byte(b)
	}
	return out, nil
}

// notImplementedUTXOSource is the default UTXOSource: a real deployment
// wires this to whatever on-chain wallet backend is available (the
// wallet's own UTXO set is out of scope here, see spec §3's Wallet
// boundary note), so takerd refuses to fund a round until one is
// supplied by the embedder.
type notImplementedUTXOSource struct{}

func (notImplementedUTXOSource) SelectFunding(amount uint64, count int) ([]wire.OutPoint, []int64, error) {
	return nil, nil, fmt.Errorf("no UTXOSource wired: supply a wallet backend before running a round")
}

func main() {
	if err := takerdMain(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
