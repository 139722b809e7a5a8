// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Lotus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package progresslog

import (
	"sync"
	"time"

	"github.com/decred/slog"
)

// logInterval is the minimum duration between two progress messages that are
// not forced.
const logInterval = time.Second * 10

// pickNoun returns the singular or plural form of a noun depending on the
// provided count.
func pickNoun(n uint64, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

// Logger provides periodic logging of progress towards some action such as
// activating the best chain.
type Logger struct {
	sync.Mutex
	subsystemLogger slog.Logger
	progressAction  string

	// lastLogTime tracks the last time a log statement was shown.
	lastLogTime time.Time

	// These fields accumulate information between log statements.
	receivedBlocks  uint64
	receivedTxns    uint64
	receivedHeaders uint64
}

// New returns a new progress logger.
func New(progressAction string, logger slog.Logger) *Logger {
	return &Logger{
		lastLogTime:     time.Now(),
		progressAction:  progressAction,
		subsystemLogger: logger,
	}
}

// LogProgress accumulates details for the provided block and periodically
// (every 10 seconds) logs an information message to show progress to the user
// along with duration and totals included.
//
// The force flag may be used to force a log message to be shown regardless of
// the time the last one was shown.
//
// The progress message is templated as follows:
//
//	{progressAction} {numProcessed} {blocks|block} in the last {timePeriod}
//	({numTxs} {transactions|transaction}, height {lastBlockHeight},
//	{lastBlockTimeStamp}, progress {progress}%)
func (l *Logger) LogProgress(height int64, numTxns uint64, timestamp time.Time,
	forceLog bool, progressFn func() float64) {

	l.Lock()
	defer l.Unlock()

	l.receivedBlocks++
	l.receivedTxns += numTxns
	now := time.Now()
	duration := now.Sub(l.lastLogTime)
	if !forceLog && duration < logInterval {
		return
	}

	// Log information about chain progress.
	l.subsystemLogger.Infof("%s %d %s in the last %0.2fs (%d %s, height %d, "+
		"%s, progress %0.2f%%)", l.progressAction, l.receivedBlocks,
		pickNoun(l.receivedBlocks, "block", "blocks"), duration.Seconds(),
		l.receivedTxns, pickNoun(l.receivedTxns, "transaction", "transactions"),
		height, timestamp, progressFn()*100)

	l.receivedBlocks = 0
	l.receivedTxns = 0
	l.lastLogTime = now
}

// LogHeaderProgress accumulates the provided number of processed headers and
// periodically (every 10 seconds) logs an information message to show the
// header progress to the user along with duration and totals included.
//
// The force flag may be used to force a log message to be shown regardless of
// the time the last one was shown.
func (l *Logger) LogHeaderProgress(processedHeaders uint64, forceLog bool,
	progressFn func() float64) {

	l.Lock()
	defer l.Unlock()

	l.receivedHeaders += processedHeaders
	now := time.Now()
	duration := now.Sub(l.lastLogTime)
	if !forceLog && duration < logInterval {
		return
	}

	// Log information about header progress.
	l.subsystemLogger.Infof("%s %d %s in the last %0.2fs (progress %0.2f%%)",
		l.progressAction, l.receivedHeaders,
		pickNoun(l.receivedHeaders, "header", "headers"),
		duration.Seconds(), progressFn()*100)

	l.receivedHeaders = 0
	l.lastLogTime = now
}

// SetLastLogTime updates the last time data was logged to the provided time.
func (l *Logger) SetLastLogTime(time time.Time) {
	l.Lock()
	l.lastLogTime = time
	l.Unlock()
}
