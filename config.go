// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2024 The Lotus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/decred/dcrd/dcrutil/v4"
	flags "github.com/jessevdk/go-flags"
	"github.com/ngocviet/lotusd/internal/mempool"
	"github.com/ngocviet/lotusd/internal/version"
	"github.com/ngocviet/lotusd/sampleconfig"
)

const (
	defaultConfigFilename = "lotusd.conf"
	defaultDataDirname    = "data"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "lotusd.log"

	// defaultMaxMempoolMB is the default maximum size of the mempool in MB.
	defaultMaxMempoolMB = mempool.DefaultMaxMempoolSize / 1000 / 1000

	// defaultMempoolExpiryHours is the default number of hours after which
	// unconfirmed transactions are evicted from the mempool.
	defaultMempoolExpiryHours = int64(mempool.DefaultExpiry / time.Hour)

	// mempoolSizeFactor is the multiple of the descendant size limit the
	// mempool must at least be able to hold.
	mempoolSizeFactor = 40
)

var (
	defaultHomeDir    = dcrutil.AppDataDir("lotusd", false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(defaultHomeDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
)

// config defines the configuration options for lotusd.
//
// See loadConfig for details on the configuration load process.
type config struct {
	// General application behavior.
	ShowVersion   bool   `short:"V" long:"version" no-ini:"true" description:"Display version information and exit"`
	HomeDir       string `short:"A" long:"appdata" description:"Path to application home directory"`
	ConfigFile    string `short:"C" long:"configfile" no-ini:"true" description:"Path to configuration file"`
	DataDir       string `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir        string `long:"logdir" description:"Directory to log output"`
	NoFileLogging bool   `long:"nofilelogging" description:"Disable file logging"`
	DebugLevel    string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`

	// Profiling.
	Profile string `long:"profile" description:"Enable HTTP profiling on given [addr:]port -- NOTE: port must be between 1024 and 65535"`

	// Network selection.
	TestNet bool `long:"testnet" description:"Use the test network"`
	RegNet  bool `long:"regnet" description:"Use the regression test network"`
	SimNet  bool `long:"simnet" description:"Use the simulation test network"`

	// Chain settings.
	Prune bool `long:"prune" description:"Discard block data that is no longer needed by the node"`

	// Mempool policy.
	LimitAncestorCount   int64 `long:"limitancestorcount" description:"Maximum number of in-mempool ancestors of a transaction, including itself"`
	LimitAncestorSize    int64 `long:"limitancestorsize" description:"Maximum size in kB of a transaction together with its in-mempool ancestors"`
	LimitDescendantCount int64 `long:"limitdescendantcount" description:"Maximum number of in-mempool descendants of any ancestor, including itself"`
	LimitDescendantSize  int64 `long:"limitdescendantsize" description:"Maximum size in kB of any ancestor together with its in-mempool descendants"`
	MaxMempool           int64 `long:"maxmempool" description:"Maximum size of the mempool in MB"`
	MempoolExpiry        int64 `long:"mempoolexpiry" description:"Number of hours after which unconfirmed transactions are removed from the mempool"`

	// Metrics.
	MetricsListen string `long:"metricslisten" description:"Address to serve Prometheus metrics on (eg. 127.0.0.1:9680) -- Disabled when empty"`

	// The following options are set while loading the configuration.
	params *params
	policy mempool.Policy
}

// errSuppressUsage signifies that an error that happened during the initial
// configuration phase should suppress the usage output since it was not caused
// by the user.
type errSuppressUsage string

// Error implements the error interface.
func (e errSuppressUsage) Error() string {
	return string(e)
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Nothing to do when no path is given.
	if path == "" {
		return path
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows cmd.exe-style
	// %VARIABLE%, but the variables can still be expanded via POSIX-style
	// $VARIABLE.
	path = os.ExpandEnv(path)
	if !strings.HasPrefix(path, "~") {
		return filepath.Clean(path)
	}

	// Expand initial ~ to the current user's home directory, or ~otheruser to
	// otheruser's home directory.  On Windows, both forward and backward
	// slashes can be used.
	path = path[1:]
	var pathSeparators string
	if runtime.GOOS == "windows" {
		pathSeparators = string(os.PathSeparator) + "/"
	} else {
		pathSeparators = string(os.PathSeparator)
	}

	userName := ""
	if i := strings.IndexAny(path, pathSeparators); i != -1 {
		userName = path[:i]
		path = path[i:]
	}

	homeDir := ""
	var u *user.User
	var err error
	if userName == "" {
		u, err = user.Current()
	} else {
		u, err = user.Lookup(userName)
	}
	if err == nil {
		homeDir = u.HomeDir
	}
	// Fallback to CWD if user lookup fails or user has no home directory.
	if homeDir == "" {
		homeDir = "."
	}

	return filepath.Join(homeDir, path)
}

// fileExists reports whether the named file or directory exists.
func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// createDefaultConfigFile creates a config file at the provided path with the
// commented example configuration.
func createDefaultConfigFile(destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0700); err != nil {
		return err
	}
	return os.WriteFile(destPath, []byte(sampleconfig.Lotusd()), 0600)
}

// newConfigParser returns a new command line flags parser.
func newConfigParser(cfg *config, options flags.Options) *flags.Parser {
	return flags.NewParser(cfg, options)
}

// defaultConfig returns the configuration with every option set to its
// default value.
func defaultConfig() config {
	policy := mempool.DefaultPolicy()
	return config{
		HomeDir:              defaultHomeDir,
		ConfigFile:           defaultConfigFile,
		DataDir:              defaultDataDir,
		LogDir:               defaultLogDir,
		DebugLevel:           defaultLogLevel,
		LimitAncestorCount:   policy.MaxAncestors,
		LimitAncestorSize:    policy.MaxAncestorSizeKB,
		LimitDescendantCount: policy.MaxDescendants,
		LimitDescendantSize:  policy.MaxDescendantSizeKB,
		MaxMempool:           defaultMaxMempoolMB,
		MempoolExpiry:        defaultMempoolExpiryHours,
	}
}

// loadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// The above results in lotusd functioning properly without any config settings
// while still allowing the user to override settings with config files and
// command line options.  Command line options always take precedence.
func loadConfig(appName string, args []string) (*config, []string, error) {
	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.  Any errors aside from the
	// help message error can be ignored here since they will be caught by
	// the final parse below.
	preCfg := defaultConfig()
	preParser := newConfigParser(&preCfg, flags.HelpFlag|flags.PassDoubleDash)
	_, err := preParser.ParseArgs(args)
	if err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}
	}

	// Show the version and exit if the version flag was specified.
	if preCfg.ShowVersion {
		fmt.Printf("%s version %s (Go version %s %s/%s)\n", appName,
			version.String(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	// Update the home directory for lotusd if specified.  Since the home
	// directory is updated, other variables need to be updated to reflect
	// the new changes.
	cfg := defaultConfig()
	if preCfg.HomeDir != "" {
		cfg.HomeDir = cleanAndExpandPath(preCfg.HomeDir)
		if preCfg.ConfigFile == defaultConfigFile {
			cfg.ConfigFile = filepath.Join(cfg.HomeDir, defaultConfigFilename)
		} else {
			cfg.ConfigFile = cleanAndExpandPath(preCfg.ConfigFile)
		}
		if preCfg.DataDir == defaultDataDir {
			cfg.DataDir = filepath.Join(cfg.HomeDir, defaultDataDirname)
		}
		if preCfg.LogDir == defaultLogDir {
			cfg.LogDir = filepath.Join(cfg.HomeDir, defaultLogDirname)
		}
	}

	// Create a default config file when one does not exist and the user did
	// not specify an override.
	if preCfg.ConfigFile == defaultConfigFile && !fileExists(cfg.ConfigFile) {
		if err := createDefaultConfigFile(cfg.ConfigFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating a default config "+
				"file: %v\n", err)
		}
	}

	// Load additional config from file.  A missing config file is only an
	// error when it was explicitly requested.
	parser := newConfigParser(&cfg, flags.Default&^flags.PrintErrors)
	if fileExists(cfg.ConfigFile) {
		err := flags.NewIniParser(parser).ParseFile(cfg.ConfigFile)
		if err != nil {
			return nil, nil, fmt.Errorf("error parsing config file: %w", err)
		}
	} else if preCfg.ConfigFile != defaultConfigFile {
		str := "%s: the specified config file %q does not exist"
		return nil, nil, fmt.Errorf(str, appName, cfg.ConfigFile)
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.ParseArgs(args)
	if err != nil {
		return nil, nil, err
	}

	// Multiple networks can't be selected simultaneously.
	numNets := 0
	cfg.params = mainNetParams()
	if cfg.TestNet {
		numNets++
		cfg.params = testNet3Params()
	}
	if cfg.RegNet {
		numNets++
		cfg.params = regNetParams()
	}
	if cfg.SimNet {
		numNets++
		cfg.params = simNetParams()
	}
	if numNets > 1 {
		str := "%s: the testnet, regnet, and simnet params can't be used " +
			"together -- choose one of the three"
		return nil, nil, fmt.Errorf(str, appName)
	}

	// Append the network type to the data and log directories so they are
	// "namespaced" per network.
	cfg.DataDir = filepath.Join(cleanAndExpandPath(cfg.DataDir),
		cfg.params.Name)
	cfg.LogDir = filepath.Join(cleanAndExpandPath(cfg.LogDir),
		cfg.params.Name)

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", supportedSubsystems())
		os.Exit(0)
	}

	// Validate the profile server address.
	if cfg.Profile != "" {
		cfg.Profile = portToLocalHostAddr(cfg.Profile)
		if err := validateProfileAddr(cfg.Profile); err != nil {
			return nil, nil, fmt.Errorf("%s: invalid profile option: %w",
				appName, err)
		}
	}

	// Validate the mempool policy options.
	positive := []struct {
		name  string
		value int64
	}{
		{"limitancestorcount", cfg.LimitAncestorCount},
		{"limitancestorsize", cfg.LimitAncestorSize},
		{"limitdescendantcount", cfg.LimitDescendantCount},
		{"limitdescendantsize", cfg.LimitDescendantSize},
		{"mempoolexpiry", cfg.MempoolExpiry},
	}
	for _, opt := range positive {
		if opt.value < 1 {
			str := "%s: the %s option must be positive -- parsed [%d]"
			return nil, nil, fmt.Errorf(str, appName, opt.name, opt.value)
		}
	}
	minMempoolMB := (cfg.LimitDescendantSize*mempoolSizeFactor + 999) / 1000
	if cfg.MaxMempool < minMempoolMB {
		str := "%s: the maxmempool option must be at least %d MB -- parsed [%d]"
		return nil, nil, fmt.Errorf(str, appName, minMempoolMB, cfg.MaxMempool)
	}
	cfg.policy = mempool.DefaultPolicy()
	cfg.policy.MaxAncestors = cfg.LimitAncestorCount
	cfg.policy.MaxAncestorSizeKB = cfg.LimitAncestorSize
	cfg.policy.MaxDescendants = cfg.LimitDescendantCount
	cfg.policy.MaxDescendantSizeKB = cfg.LimitDescendantSize

	// Initialize log rotation.  After log rotation has been initialized, the
	// logger variables may be used.
	if !cfg.NoFileLogging {
		logFile := filepath.Join(cfg.LogDir, defaultLogFilename)
		if err := initLogRotator(logFile); err != nil {
			return nil, nil, errSuppressUsage(err.Error())
		}
	}

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", appName, err)
	}

	return &cfg, remainingArgs, nil
}

// maxMempoolBytes returns the configured maximum mempool size in bytes.
func (cfg *config) maxMempoolBytes() int64 {
	return cfg.MaxMempool * 1000 * 1000
}

// mempoolExpiry returns the configured age after which unconfirmed
// transactions are evicted.
func (cfg *config) mempoolExpiry() time.Duration {
	return time.Duration(cfg.MempoolExpiry) * time.Hour
}
