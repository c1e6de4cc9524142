package main

import (
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
	"github.com/utxoteleport/coinswap-taker/chainrpc"
	"github.com/utxoteleport/coinswap-taker/confirmwatcher"
	"github.com/utxoteleport/coinswap-taker/offerbook"
	"github.com/utxoteleport/coinswap-taker/peersession"
	"github.com/utxoteleport/coinswap-taker/taker"
	"github.com/utxoteleport/coinswap-taker/takerwallet"
)

var (
	logRotator *rotator.Rotator
	backendLog *btclog.Backend
)

// initLogRotator opens a rotating file writer at logFile, backing the
// console+file backend every package's logger is built from, the same
// split lnd.go's `backendLog` serves.
func initLogRotator(logFile string) error {
	if err := os.MkdirAll(filepath.Dir(logFile), 0o700); err != nil {
		return err
	}
	r, err := rotator.New(logFile, int64(defaultMaxLogFileSize*1024), false, defaultMaxLogFiles)
	if err != nil {
		return err
	}
	logRotator = r
	backendLog = btclog.NewBackend(logWriter{})
	return nil
}

type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	if logRotator != nil {
		logRotator.Write(p)
	}
	return len(p), nil
}

// setLogLevels wires every package's UseLogger to a subsystem logger at
// the given level, and points each package logger at that subsystem.
func setLogLevels(level string) {
	setSubLogger("CRPC", chainrpc.UseLogger, level)
	setSubLogger("CNWH", confirmwatcher.UseLogger, level)
	setSubLogger("OFBK", offerbook.UseLogger, level)
	setSubLogger("PSES", peersession.UseLogger, level)
	setSubLogger("TAKR", taker.UseLogger, level)
	setSubLogger("WALT", takerwallet.UseLogger, level)
}

func setSubLogger(subsystem string, useLogger func(btclog.Logger), level string) {
	logger := backendLog.Logger(subsystem)
	lvl, ok := btclog.LevelFromString(level)
	if !ok {
		lvl = btclog.LevelInfo
	}
	logger.SetLevel(lvl)
	useLogger(logger)
}
