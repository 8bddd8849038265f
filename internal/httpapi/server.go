package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/swapnode/swapd/config"
	"github.com/swapnode/swapd/internal/orderbook"
	"github.com/swapnode/swapd/internal/store"
	"github.com/swapnode/swapd/internal/swap"
)

// Server is the REST facade's dependencies, grounded on cnd's Facade type
// (http_api/routes/index.rs's `dependencies: Rfc003Facade` parameter) —
// the single struct every route handler closes over.
type Server struct {
	Coordinator  *swap.Coordinator
	Store        store.Store
	Book         *orderbook.Book
	Sources      swap.SourceFactory
	ExpiryPolicy config.ExpiryPolicy
	PeerID       string
	ListenAddrs  []string

	log btclog.Logger

	registry   *prometheus.Registry
	mux        *http.ServeMux
	upgrader   websocket.Upgrader
	swapsTotal prometheus.Counter
}

// NewServer wires a Server's routes and Prometheus collectors. Passing a
// fresh prometheus.NewRegistry() per test keeps tests hermetic; cmd/swapd
// passes one shared registry for the process.
func NewServer(coord *swap.Coordinator, st store.Store, book *orderbook.Book, sources swap.SourceFactory,
	expiryPolicy config.ExpiryPolicy, peerID string, listenAddrs []string, registry *prometheus.Registry,
	log btclog.Logger) *Server {

	s := &Server{
		Coordinator:  coord,
		Store:        st,
		Book:         book,
		Sources:      sources,
		ExpiryPolicy: expiryPolicy,
		PeerID:       peerID,
		ListenAddrs:  listenAddrs,
		log:          log,
		registry:     registry,
		upgrader:    websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		swapsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "swapd",
			Name:      "swaps_proposed_total",
			Help:      "Number of swap proposals accepted by the REST API.",
		}),
	}
	if registry != nil {
		registry.MustRegister(s.swapsTotal)
	}

	s.mux = http.NewServeMux()
	s.routes()
	return s
}

// Handler returns the server's http.Handler, ready to be passed to
// http.Server or httptest.NewServer.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe runs the REST facade on addr until ctx is cancelled,
// mirroring lnd.go's grpc-gateway proxy goroutine (here net/http directly,
// per this package's doc comment on the dropped grpc-gateway dependency).
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// MetricsHandler exposes the registered collectors for a separate
// PrometheusListen address, per config.Config.PrometheusListen.
func MetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// metricsHandler serves this server's own registry, falling back to the
// default registerer when the caller didn't supply one (e.g. in tests
// that don't care about metrics).
func (s *Server) metricsHandler() http.Handler {
	if s.registry != nil {
		return MetricsHandler(s.registry)
	}
	return promhttp.Handler()
}
