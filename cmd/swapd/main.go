// swapd is the atomic swap node's daemon: it loads configuration, dials the
// Bitcoin and Ethereum backends, wires C1-C5 together behind the REST
// facade, and serves until an interrupt signal arrives. Structured after
// lnd.go's own lndMain: config/logging first, then service construction,
// then block on a shutdown signal so deferred cleanup still runs.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/coreos/go-systemd/daemon"
	flags "github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/swapnode/swapd/config"
	"github.com/swapnode/swapd/internal/chainwatch"
	chainwatchbtc "github.com/swapnode/swapd/internal/chainwatch/bitcoin"
	chainwatcheth "github.com/swapnode/swapd/internal/chainwatch/ethereum"
	"github.com/swapnode/swapd/internal/executor"
	"github.com/swapnode/swapd/internal/htlc"
	"github.com/swapnode/swapd/internal/httpapi"
	"github.com/swapnode/swapd/internal/orderbook"
	"github.com/swapnode/swapd/internal/rpcclient/bitcoind"
	"github.com/swapnode/swapd/internal/rpcclient/geth"
	"github.com/swapnode/swapd/internal/secret"
	"github.com/swapnode/swapd/internal/store"
	"github.com/swapnode/swapd/internal/swap"
	"github.com/swapnode/swapd/internal/wallet"
	swaplog "github.com/swapnode/swapd/log"
)

func main() {
	if err := swapdMain(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// swapdMain is the true entry point, nested the way lndMain is so that
// deferred cleanup always runs even when the caller exits non-zero.
func swapdMain() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.ShowVersion {
		fmt.Println("swapd")
		return nil
	}

	if err := swaplog.InitLogRotator(cfg.LogFile(), cfg.MaxLogFileSize, cfg.MaxLogFiles); err != nil {
		return fmt.Errorf("swapd: init log rotator: %w", err)
	}
	setLogLevels(cfg.DebugLevel)
	swaplog.SwapdLog.Infof("swapd starting, datadir=%s", cfg.DataDir)

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	seedPath := cfg.WalletSeedFile
	if seedPath == "" {
		seedPath = cfg.DataDir + "/wallet.seed"
	}
	masterSeed, err := wallet.LoadOrGenerate(seedPath)
	if err != nil {
		return fmt.Errorf("swapd: load wallet seed: %w", err)
	}

	secrets := secret.NewRegistry()

	netParams, err := bitcoinNetParams(cfg.BitcoinNetwork)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	btcClient, err := bitcoind.Dial(bitcoind.Config{
		Host: cfg.BitcoinRPCHost,
		User: cfg.BitcoinRPCUser,
		Pass: cfg.BitcoinRPCPass,
	})
	if err != nil {
		return fmt.Errorf("swapd: dial bitcoind: %w", err)
	}

	ethClient, err := geth.Dial(ctx, cfg.EthereumRPCURL, cfg.EthereumChainID)
	if err != nil {
		return fmt.Errorf("swapd: dial geth: %w", err)
	}

	exec := &executor.Executor{
		Bitcoin:    btcClient,
		Ethereum:   ethClient,
		Net:        netParams,
		MasterSeed: masterSeed,
		Secrets:    secrets,
		FeeRate:    cfg.BitcoinFeeRate,
		Log:        swaplog.SwapdLog,
	}

	coord := swap.NewCoordinator(st, secrets, exec, swaplog.CoordLog)
	exec.Coordinator = coord
	defer coord.Shutdown()

	sources := &sourceFactory{
		btc:          btcClient,
		eth:          ethClient,
		masterSeed:   masterSeed,
		bitcoinTick:  cfg.BitcoinPollInterval,
		ethereumTick: cfg.EthereumPollInterval,
	}

	resumePendingSwaps(ctx, st, swaplog.SwapdLog)

	book := orderbook.NewBook()

	peerID, err := nodeIdentity(masterSeed)
	if err != nil {
		return fmt.Errorf("swapd: derive node identity: %w", err)
	}
	listenAddrs := cfg.PeerListenAddrs
	if len(listenAddrs) == 0 {
		if addr, err := externalListenAddr(ctx, cfg.RESTListen); err == nil {
			listenAddrs = []string{addr}
		} else {
			swaplog.SwapdLog.Warnf("external address discovery failed, advertising no listen address: %v", err)
		}
	}

	registry := prometheus.NewRegistry()
	server := httpapi.NewServer(coord, st, book, sources, cfg.Expiry, peerID, listenAddrs,
		registry, swaplog.HTTPLog)

	if cfg.BootstrapDNSSeed != "" {
		peers, err := orderbook.ResolveBootstrapPeers(ctx, cfg.BootstrapDNSSeed, cfg.BootstrapDNSServer)
		if err != nil {
			swaplog.SwapdLog.Warnf("bootstrap peer resolution failed: %v", err)
		} else {
			swaplog.SwapdLog.Infof("resolved %d bootstrap peers from %s", len(peers), cfg.BootstrapDNSSeed)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		swaplog.SwapdLog.Infof("REST API listening on %s", cfg.RESTListen)
		errCh <- server.ListenAndServe(ctx, cfg.RESTListen)
	}()

	if cfg.PrometheusListen != "" {
		metricsSrv := &http.Server{Addr: cfg.PrometheusListen, Handler: httpapi.MetricsHandler(registry)}
		go func() {
			swaplog.SwapdLog.Infof("prometheus metrics listening on %s", cfg.PrometheusListen)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				swaplog.SwapdLog.Errorf("prometheus listener stopped: %v", err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		swaplog.SwapdLog.Warnf("systemd notify failed: %v", err)
	} else if sent {
		swaplog.SwapdLog.Info("notified systemd that startup is complete")
	}
	stopWatchdog := startSystemdWatchdog(swaplog.SwapdLog)
	defer stopWatchdog()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		swaplog.SwapdLog.Infof("received %s, shutting down", sig)
	case err := <-errCh:
		if err != nil {
			swaplog.SwapdLog.Errorf("REST server stopped unexpectedly: %v", err)
		}
	}

	cancel()
	return nil
}

// bitcoinNetParams maps config.Config.BitcoinNetwork's human-readable name
// to the chaincfg.Params the htlc/executor packages sign and derive
// addresses against.
func bitcoinNetParams(network string) (*chaincfg.Params, error) {
	switch network {
	case "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "simnet":
		return &chaincfg.SimNetParams, nil
	default:
		return nil, fmt.Errorf("swapd: unrecognized bitcoin network %q", network)
	}
}

// openStore selects Postgres when a DSN is configured, SQLite under
// DataDir otherwise, per DESIGN.md's backend-agnostic store.Store surface.
func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.PostgresDSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		db, err := store.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("swapd: open postgres store: %w", err)
		}
		return db, nil
	}

	db, err := store.Open(cfg.DataDir + "/swapd.db")
	if err != nil {
		return nil, fmt.Errorf("swapd: open sqlite store: %w", err)
	}
	return db, nil
}

// resumePendingSwaps logs every swap left pending by a previous run. The
// persisted store.Swap row (alpha_ledger/beta_ledger/expiries/secret_hash)
// is deliberately narrower than htlc.HtlcParams (it has no asset amount or
// redeem/refund identity columns, see internal/store/migrations), so a
// restart cannot rebuild the exact HtlcParams a watcher needs without
// re-deriving them from the original SwapRequest — which this node does
// not keep around once accepted. Surfacing these by name rather than
// silently dropping them lets an operator re-propose/recover manually;
// widening the schema to close this gap is left as a follow-up.
func resumePendingSwaps(ctx context.Context, st store.Store, log interface {
	Warnf(string, ...interface{})
}) {
	pending, err := st.ListPending(ctx)
	if err != nil {
		log.Warnf("swapd: list pending swaps at startup: %v", err)
		return
	}
	for _, sw := range pending {
		log.Warnf("swap %s was pending at last shutdown and cannot be auto-resumed "+
			"(persisted record has no HTLC params); operator intervention required", sw.ID)
	}
}

// sourceFactory is the concrete swap.SourceFactory cmd/swapd hands to
// internal/httpapi (resumePendingSwaps does not use it), built from the
// same config.Config-derived RPC clients the executor uses.
type sourceFactory struct {
	btc *bitcoind.Client
	eth *geth.Client

	masterSeed wallet.Seed

	bitcoinTick  time.Duration
	ethereumTick time.Duration
}

func (f *sourceFactory) SourcesFor(ctx context.Context, sw *swap.Swap) (alpha, beta chainwatch.Source, err error) {
	key := f.masterSeed.SwapSeed(sw.ID)

	alpha, err = f.sourceFor(ctx, key, sw.AlphaParams, sw.StartOfSwap.Unix())
	if err != nil {
		return nil, nil, fmt.Errorf("swapd: build alpha source: %w", err)
	}
	beta, err = f.sourceFor(ctx, key, sw.BetaParams, sw.StartOfSwap.Unix())
	if err != nil {
		return nil, nil, fmt.Errorf("swapd: build beta source: %w", err)
	}
	return alpha, beta, nil
}

func (f *sourceFactory) sourceFor(ctx context.Context, key wallet.Seed, p htlc.HtlcParams, startOfSwap int64) (chainwatch.Source, error) {
	switch p.Ledger {
	case htlc.LedgerBitcoin:
		bp := htlc.BitcoinParamsFrom(p, startOfSwap)
		return chainwatchbtc.NewSource(f.btc, bp, f.bitcoinTick)
	case htlc.LedgerEthereum:
		ep := htlc.EthereumParamsFrom(p)
		deployer, err := key.EthereumAddress()
		if err != nil {
			return nil, fmt.Errorf("derive ethereum deployer address: %w", err)
		}
		nonce, err := f.eth.PendingNonceAt(ctx, deployer)
		if err != nil {
			return nil, fmt.Errorf("fetch deployer nonce: %w", err)
		}
		return chainwatcheth.NewSource(f.eth, ep, deployer, nonce, f.ethereumTick), nil
	default:
		return nil, fmt.Errorf("unsupported ledger %v", p.Ledger)
	}
}

// setLogLevels applies cfg.DebugLevel, which is either a single level
// ("info") for every subsystem, or a comma-separated
// "SUBSYS=level,SUBSYS2=level2" list, mirroring lnd's own debuglevel flag
// grammar.
func setLogLevels(debugLevel string) {
	if !strings.Contains(debugLevel, "=") {
		swaplog.SetLevels(debugLevel)
		return
	}
	for _, pair := range strings.Split(debugLevel, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		swaplog.SetLevel(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
	}
}

// nodeIdentity derives a stable peer identity string from the master
// seed's Ethereum address, reused as-is rather than minting a separate
// identity key: this node already authenticates its swap actions with
// per-swap keys derived from the same seed (wallet.Seed.SwapSeed).
func nodeIdentity(masterSeed wallet.Seed) (string, error) {
	addr, err := masterSeed.EthereumAddress()
	if err != nil {
		return "", err
	}
	return addr.Hex(), nil
}

// externalListenAddr discovers this node's externally reachable IP via
// orderbook.ExternalAddress and pairs it with restListen's port, the
// address advertised to counterparties in swap proposals.
func externalListenAddr(ctx context.Context, restListen string) (string, error) {
	ip, err := orderbook.ExternalAddress(ctx)
	if err != nil {
		return "", err
	}
	_, port, ok := splitHostPort(restListen)
	if !ok {
		return ip.String(), nil
	}
	return fmt.Sprintf("%s:%s", ip.String(), port), nil
}

func splitHostPort(addr string) (host, port string, ok bool) {
	idx := strings.LastIndex(addr, ":")
	if idx < 0 {
		return "", "", false
	}
	return addr[:idx], addr[idx+1:], true
}

// startSystemdWatchdog pings systemd's watchdog at half the interval
// systemd expects, if WATCHDOG_USEC is set in the environment; it is a
// no-op under a non-systemd supervisor. Returns a func that stops the
// ticker on shutdown.
func startSystemdWatchdog(log interface {
	Warnf(string, ...interface{})
}) func() {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return func() {}
	}

	ticker := time.NewTicker(interval / 2)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
					log.Warnf("systemd watchdog notify failed: %v", err)
				}
			case <-done:
				return
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}
