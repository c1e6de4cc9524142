package main

import (
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultDataDirname    = "data"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "takerd.log"
	defaultMaxLogFiles    = 3
	defaultMaxLogFileSize = 10
	defaultRPCHost        = "localhost:8332"
	defaultConfTarget     = 1
	defaultFeeRate        = 10
	defaultTxCount        = 1
)

var defaultHomeDir = btcutil.AppDataDir("takerd", false)

// config is the flags-derived process configuration. Per the spec's
// "no UI or configuration file parsing" non-goal this is command-line
// flags only, the same way lnd.go's loadConfig() is built on
// go-flags, just without a config-file layer underneath it.
type config struct {
	HomeDir string `long:"homedir" description:"Directory to store data and logs"`
	DataDir string `long:"datadir" description:"Directory holding the wallet database"`
	LogDir  string `long:"logdir" description:"Directory to log output to"`
	Debug   string `long:"debuglevel" description:"Logging level: trace, debug, info, warn, error, critical"`

	RPCHost string `long:"rpchost" description:"btcd/bitcoind RPC host:port"`
	RPCUser string `long:"rpcuser" description:"btcd/bitcoind RPC username"`
	RPCPass string `long:"rpcpass" description:"btcd/bitcoind RPC password"`
	RPCTLS  bool   `long:"rpctls" description:"Use TLS for the chain RPC connection"`

	SocksProxy string `long:"socksproxy" description:"SOCKS5 proxy for .onion Maker addresses"`

	MakerOffers []string `long:"maker" description:"address,tweakable_point_hex,required_confirms,min_size,max_size,abs_fee,amount_rel_ppb,time_rel_ppb of a known Maker (repeatable)"`

	SendAmount       uint64 `long:"amount" description:"Total satoshis to swap" required:"true"`
	MakerCount       int    `long:"makercount" description:"Number of Makers to route through" required:"true"`
	TxCount          int    `long:"txcount" description:"Number of parallel funding transactions per hop"`
	RequiredConfirms uint32 `long:"confs" description:"Confirmations required for the final hop"`
	FeeRate          uint64 `long:"feerate" description:"Fee rate in sat per 1000 vbytes the Taker pays for next-hop funding"`
}

// defaultConfig returns a config with every non-required field at its
// default, ready for flags.Parse to overlay command-line values onto.
func defaultConfig() config {
	return config{
		HomeDir:    defaultHomeDir,
		DataDir:    filepath.Join(defaultHomeDir, defaultDataDirname),
		LogDir:     filepath.Join(defaultHomeDir, defaultLogDirname),
		Debug:      "info",
		RPCHost:    defaultRPCHost,
		TxCount:    defaultTxCount,
		FeeRate:    defaultFeeRate,
		RequiredConfirms: defaultConfTarget,
	}
}

// loadConfig parses command-line flags over the defaults. Unlike
// lnd.go's loadConfig it never reads a config file, per spec's
// explicit non-goal.
func loadConfig() (*config, error) {
	cfg := defaultConfig()
	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
