// Package config loads swapd's on-disk and command-line configuration,
// following lnd's own loadConfig: defaults are established first, a config
// file is parsed over them, then command-line flags take final priority.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "swapd.conf"
	defaultDataDirname    = "data"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "swapd.log"
	defaultLogLevel       = "info"

	defaultMaxLogFileSize = 10
	defaultMaxLogFiles    = 3

	// defaultBitcoinFinality is the number of confirmations the node
	// waits for before treating a Bitcoin HTLC deployment/funding as
	// irreversible.
	defaultBitcoinFinality = 3

	// defaultEthereumFinality is the analogous confirmation count for
	// Ethereum.
	defaultEthereumFinality = 12

	// defaultSafetyMargin is the minimum gap swapd enforces between
	// alpha_expiry and beta_expiry, per spec.md §3's invariant. It must
	// exceed the larger of the two ledgers' finality windows translated
	// to wall-clock time; the defaults below assume 10-minute Bitcoin
	// blocks and 12-second Ethereum blocks, rounded generously up.
	defaultSafetyMargin = 2 * time.Hour

	defaultBitcoinPollInterval  = 15 * time.Second
	defaultEthereumPollInterval = 3 * time.Second
	defaultBitcoinFeeRate       = 10

	defaultBootstrapDNSServer = "8.8.8.8:53"
)

var (
	defaultHomeDir    = btcdDefaultHomeDir()
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(defaultHomeDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
)

// ExpiryPolicy resolves spec.md §9's open question on the exact finality
// margin between alpha_expiry and beta_expiry: rather than a hardcoded
// hours-scale constant, the margin and each ledger's finality window are
// operator-configurable, and internal/swap refuses any SwapRequest whose
// margin is smaller than the larger finality window.
type ExpiryPolicy struct {
	BitcoinFinality  time.Duration `long:"bitcoinfinality" description:"time swapd waits before treating a Bitcoin HTLC event as irreversible"`
	EthereumFinality time.Duration `long:"ethereumfinality" description:"time swapd waits before treating an Ethereum HTLC event as irreversible"`
	SafetyMargin     time.Duration `long:"safetymargin" description:"minimum required gap between alpha_expiry and beta_expiry"`
}

// Validate enforces spec.md §9's resolution: the safety margin must exceed
// the larger of the two finality windows.
func (p ExpiryPolicy) Validate() error {
	largest := p.BitcoinFinality
	if p.EthereumFinality > largest {
		largest = p.EthereumFinality
	}
	if p.SafetyMargin <= largest {
		return fmt.Errorf("config: safetymargin (%s) must exceed the larger finality window (%s)",
			p.SafetyMargin, largest)
	}
	return nil
}

// Config is swapd's full configuration surface.
type Config struct {
	ShowVersion bool `short:"V" long:"version" description:"Display version information and exit"`

	ConfigFile string `long:"configfile" description:"Path to configuration file"`
	DataDir    string `short:"b" long:"datadir" description:"The directory to store swapd's persistent state in"`
	LogDir     string `long:"logdir" description:"Directory to log output"`

	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`

	MaxLogFileSize int `long:"maxlogfilesize" description:"Maximum logfile size in MB"`
	MaxLogFiles    int `long:"maxlogfiles" description:"Maximum number of logfiles to keep (0 for no rotation)"`

	RPCListen string `long:"rpclisten" description:"Unused: swapd opens no gRPC listener and serves only the REST listener"`
	RESTListen string `long:"restlisten" description:"Add an interface/port/socket to listen for REST connections"`

	BitcoinRPCHost string `long:"bitcoin.rpchost" description:"Host of the bitcoind/btcd RPC server"`
	BitcoinRPCUser string `long:"bitcoin.rpcuser" description:"Username for bitcoind/btcd RPC"`
	BitcoinRPCPass string `long:"bitcoin.rpcpass" description:"Password for bitcoind/btcd RPC"`
	BitcoinNetwork string `long:"bitcoin.network" description:"Bitcoin network to operate on {mainnet, testnet, regtest, simnet}"`

	EthereumRPCURL  string `long:"ethereum.rpcurl" description:"URL of the geth JSON-RPC/websocket endpoint"`
	EthereumChainID int64  `long:"ethereum.chainid" description:"Ethereum chain ID"`

	BitcoinPollInterval  time.Duration `long:"bitcoin.pollinterval" description:"Interval between chain-tip polls on Bitcoin"`
	EthereumPollInterval time.Duration `long:"ethereum.pollinterval" description:"Interval between chain-tip polls on Ethereum"`
	BitcoinFeeRate       int64         `long:"bitcoin.feerate" description:"Fee rate in sat/vByte applied to Bitcoin HTLC transactions"`

	Expiry ExpiryPolicy `group:"expiry" namespace:"expiry"`

	WalletSeedFile string `long:"wallet.seedfile" description:"Path to the PEM-encoded (unencrypted) wallet seed file"`

	PrometheusListen string `long:"prometheuslisten" description:"Address to serve Prometheus metrics on, empty to disable"`

	PostgresDSN string `long:"postgresdsn" description:"Postgres DSN to use instead of the default SQLite store, empty to use SQLite under datadir"`

	PeerListenAddrs    []string `long:"peerlisten" description:"host:port this node advertises to counterparties for the HTTP API (repeatable)"`
	BootstrapDNSSeed   string   `long:"bootstrapdnsseed" description:"DNS domain to resolve TXT-record bootstrap peers from, empty to disable"`
	BootstrapDNSServer string   `long:"bootstrapdnsserver" description:"DNS server (host:port) queried for bootstrap peer records"`
}

// Default returns a Config populated with swapd's defaults, before any
// config file or command-line flag has been applied.
func Default() *Config {
	return &Config{
		ConfigFile:     defaultConfigFile,
		DataDir:        defaultDataDir,
		LogDir:         defaultLogDir,
		DebugLevel:     defaultLogLevel,
		MaxLogFileSize: defaultMaxLogFileSize,
		MaxLogFiles:    defaultMaxLogFiles,
		RPCListen:      "localhost:10213",
		RESTListen:     "localhost:8213",
		BitcoinNetwork: "mainnet",
		BitcoinPollInterval:  defaultBitcoinPollInterval,
		EthereumPollInterval: defaultEthereumPollInterval,
		BitcoinFeeRate:       defaultBitcoinFeeRate,
		BootstrapDNSServer:   defaultBootstrapDNSServer,
		Expiry: ExpiryPolicy{
			BitcoinFinality:  defaultBitcoinFinality * 10 * time.Minute,
			EthereumFinality: defaultEthereumFinality * 12 * time.Second,
			SafetyMargin:     defaultSafetyMargin,
		},
	}
}

// Load parses command-line flags over Default, then a config file (if one
// exists) layered beneath those flags, mirroring lnd's own loadConfig two-
// pass parse: flags are read once to find -configfile, the file is parsed,
// then flags are re-applied so the command line always wins.
func Load() (*Config, error) {
	preCfg := Default()
	if _, err := flags.NewParser(preCfg, flags.Default).Parse(); err != nil {
		return nil, err
	}

	cfg := Default()
	cfg.ConfigFile = preCfg.ConfigFile
	if _, err := os.Stat(cfg.ConfigFile); err == nil {
		parser := flags.NewParser(cfg, flags.Default)
		if err := flags.NewIniParser(parser).ParseFile(cfg.ConfigFile); err != nil {
			return nil, fmt.Errorf("config: error parsing %s: %w", cfg.ConfigFile, err)
		}
	}

	if _, err := flags.NewParser(cfg, flags.Default).Parse(); err != nil {
		return nil, err
	}

	if err := cfg.Expiry.Validate(); err != nil {
		return nil, err
	}

	for _, dir := range []string{cfg.DataDir, cfg.LogDir} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("config: unable to create %s: %w", dir, err)
		}
	}

	return cfg, nil
}

// LogFile returns the full path to the daemon's rotating log file.
func (c *Config) LogFile() string {
	return filepath.Join(c.LogDir, defaultLogFilename)
}

func btcdDefaultHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".swapd")
}
