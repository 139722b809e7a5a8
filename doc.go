// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2022 The Decred developers
// Copyright (c) 2024 The Lotus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
lotusd maintains the block index, the active chain, and the memory pool of
unconfirmed transactions of a node, and exposes them behind a single chain
state lock.

The default options are sane for most users.  The long form of all of the
options (except -C) can also be specified in a configuration file that is
automatically parsed when lotusd starts up.  By default, the configuration file
is located at ~/.lotusd/lotusd.conf on POSIX-style operating systems and
%LOCALAPPDATA%\lotusd\lotusd.conf on Windows.

Usage:

	lotusd [OPTIONS]

Application Options:

	-V, --version               Display version information and exit
	-A, --appdata=              Path to application home directory
	-C, --configfile=           Path to configuration file
	-b, --datadir=              Directory to store data
	    --logdir=               Directory to log output
	    --nofilelogging         Disable file logging
	-d, --debuglevel=           Logging level for all subsystems {trace, debug,
	                            info, warn, error, critical} -- You may also
	                            specify <subsystem>=<level>,... to set the log
	                            level for individual subsystems -- Use show to
	                            list available subsystems (info)
	    --profile=              Enable HTTP profiling on given [addr:]port
	    --testnet               Use the test network
	    --regnet                Use the regression test network
	    --simnet                Use the simulation test network
	    --prune                 Discard block data that is no longer needed
	    --limitancestorcount=   Maximum number of in-mempool ancestors of a
	                            transaction, including itself (50)
	    --limitancestorsize=    Maximum size in kB of a transaction together
	                            with its in-mempool ancestors (101)
	    --limitdescendantcount= Maximum number of in-mempool descendants of any
	                            ancestor, including itself (50)
	    --limitdescendantsize=  Maximum size in kB of any ancestor together with
	                            its in-mempool descendants (101)
	    --maxmempool=           Maximum size of the mempool in MB (300)
	    --mempoolexpiry=        Number of hours after which unconfirmed
	                            transactions are removed from the mempool (336)
	    --metricslisten=        Address to serve Prometheus metrics on

Help Options:

	-h, --help                  Show this help message
*/
package main
