// Copyright (c) 2024 The Lotus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package metrics exports chain state and mempool statistics to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ngocviet/lotusd/internal/chainstate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lotusd"

// Collector is a prometheus.Collector for the chain state and mempool.
//
// Chain statistics are gathered with a try-lock so a scrape never waits on a
// busy chain state.  They are skipped for that scrape when the lock is
// unavailable.
type Collector struct {
	chain *chainstate.Chain

	bestHeight   *prometheus.Desc
	ibd          *prometheus.Desc
	progress     *prometheus.Desc
	mempoolTxns  *prometheus.Desc
	mempoolBytes *prometheus.Desc
	unavailable  prometheus.Counter
}

// Ensure Collector implements the prometheus.Collector interface.
var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector for the provided chain state.
func NewCollector(chain *chainstate.Chain) *Collector {
	return &Collector{
		chain: chain,
		bestHeight: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "chain", "best_height"),
			"Height of the best chain tip.", nil, nil),
		ibd: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "chain", "initial_block_download"),
			"Whether the chain is still catching up to the network.",
			nil, nil),
		progress: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "chain", "verification_progress"),
			"Estimated fraction of all transactions included in the "+
				"best chain.", nil, nil),
		mempoolTxns: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "mempool", "transactions"),
			"Number of transactions in the mempool.", nil, nil),
		mempoolBytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "mempool", "bytes"),
			"Combined serialized size of the mempool transactions.",
			nil, nil),
		unavailable: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "state_unavailable_total",
			Help:      "Number of scrapes that found the chain state busy.",
		}),
	}
}

// Describe sends the descriptors of the collected metrics to the provided
// channel.
//
// This is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.bestHeight
	ch <- c.ibd
	ch <- c.progress
	ch <- c.mempoolTxns
	ch <- c.mempoolBytes
	c.unavailable.Describe(ch)
}

// Collect sends the current metric values to the provided channel.
//
// This is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if l := c.chain.Lock(true); l != nil {
		height, ok := l.Height()
		var ibd bool
		var progress float64
		if ok {
			tipHash, _ := l.TipHash()
			ibd = l.IsInitialBlockDownload()
			progress = l.GuessVerificationProgress(&tipHash)
		}
		l.Release()

		if ok {
			ch <- prometheus.MustNewConstMetric(c.bestHeight,
				prometheus.GaugeValue, float64(height))
			ch <- prometheus.MustNewConstMetric(c.ibd,
				prometheus.GaugeValue, boolToFloat(ibd))
			ch <- prometheus.MustNewConstMetric(c.progress,
				prometheus.GaugeValue, progress)
		}
	} else {
		log.Debug("Chain state busy, skipping chain metrics")
		c.unavailable.Inc()
	}
	c.unavailable.Collect(ch)

	count, size := c.chain.MempoolStats()
	ch <- prometheus.MustNewConstMetric(c.mempoolTxns, prometheus.GaugeValue,
		float64(count))
	ch <- prometheus.MustNewConstMetric(c.mempoolBytes,
		prometheus.GaugeValue, float64(size))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Serve exports the metrics gathered by the provided registry over HTTP on
// the provided address until the context is canceled.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Infof("Prometheus exporter started on %v/metrics", addr)
		errChan <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
