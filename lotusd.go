// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2024 The Lotus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/decred/dcrd/wire"
	"github.com/ngocviet/lotusd/internal/blockchain"
	"github.com/ngocviet/lotusd/internal/blockstore"
	"github.com/ngocviet/lotusd/internal/chainstate"
	"github.com/ngocviet/lotusd/internal/limits"
	"github.com/ngocviet/lotusd/internal/mempool"
	"github.com/ngocviet/lotusd/internal/metrics"
	"github.com/ngocviet/lotusd/internal/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

// mempoolLimitInterval is the interval at which the mempool is trimmed to its
// configured size and expired transactions are evicted.
const mempoolLimitInterval = time.Minute

// logRelayer announces inventory by logging it.  It stands in for the peer
// to peer server, which is not part of lotusd.
type logRelayer struct{}

// RelayInventory logs the announced inventory vector.
func (logRelayer) RelayInventory(iv *wire.InvVect) {
	ltsdLog.Debugf("Announcing %v", iv)
}

// limitMempool periodically trims the mempool until the context is canceled.
func limitMempool(ctx context.Context, chain *chainstate.Chain, cfg *config) error {
	ticker := time.NewTicker(mempoolLimitInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			chain.LimitMempoolSize(cfg.maxMempoolBytes(), cfg.mempoolExpiry())
		}
	}
}

// lotusdMain is the real main function for lotusd.  It is necessary to work
// around the fact that deferred functions do not run when os.Exit() is called.
func lotusdMain() error {
	// Load configuration and parse command line.  This function also
	// initializes logging and configures it accordingly.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	cfg, _, err := loadConfig(appName, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		var e errSuppressUsage
		if !errors.As(err, &e) {
			fmt.Fprintf(os.Stderr, "Use %s -h to show usage\n", appName)
		}
		return err
	}
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	// Get a context that will be canceled when a shutdown signal has been
	// triggered either from an OS signal such as SIGINT (Ctrl+C) or from
	// another subsystem.
	ctx := shutdownListener()
	defer ltsdLog.Info("Shutdown complete")

	ltsdLog.Infof("Version %s (Go version %s %s/%s)", version.String(),
		runtime.Version(), runtime.GOOS, runtime.GOARCH)
	ltsdLog.Infof("Home dir: %s", cfg.HomeDir)
	if cfg.NoFileLogging {
		ltsdLog.Info("File logging disabled")
	}

	softMemLimit := limits.SoftMemoryLimit(cfg.maxMempoolBytes())
	limits.SetMemoryLimit(softMemLimit)
	ltsdLog.Infof("Soft memory limit: %d MiB", softMemLimit/(1<<20))

	var profiler profileServer
	defer profiler.Stop()
	if cfg.Profile != "" {
		if err := profiler.Start(cfg.Profile); err != nil {
			ltsdLog.Warnf("unable to start profile server: %v", err)
			return err
		}
	}

	if shutdownRequested(ctx) {
		return nil
	}

	store, err := blockstore.Open(cfg.params.Net, cfg.DataDir)
	if err != nil {
		ltsdLog.Errorf("%v", err)
		return err
	}
	defer func() {
		ltsdLog.Infof("Gracefully shutting down the block database...")
		store.Close()
	}()

	bc, err := blockchain.New(&blockchain.Config{
		ChainParams: cfg.params.Params,
		PruneMode:   cfg.Prune,
		TxData:      cfg.params.txData,
	})
	if err != nil {
		ltsdLog.Errorf("Unable to create block chain: %v", err)
		return err
	}
	txPool := mempool.New(&mempool.Config{Policy: cfg.policy})
	chain := chainstate.New(&chainstate.Config{
		Chain:      bc,
		TxPool:     txPool,
		BlockStore: store,
		Relayer:    logRelayer{},
	})

	if shutdownRequested(ctx) {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return limitMempool(gctx, chain, cfg)
	})
	if cfg.MetricsListen != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(metrics.NewCollector(chain))
		reg.MustRegister(collectors.NewGoCollector())
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.MetricsListen, reg)
		})
	}
	if err := g.Wait(); err != nil {
		ltsdLog.Errorf("%v", err)
		return err
	}
	return nil
}

func main() {
	// Work around defer not working after os.Exit()
	if err := lotusdMain(); err != nil {
		os.Exit(1)
	}
}
