package httpapi

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/swapnode/swapd/config"
	"github.com/swapnode/swapd/internal/action"
	"github.com/swapnode/swapd/internal/chainwatch"
	"github.com/swapnode/swapd/internal/orderbook"
	"github.com/swapnode/swapd/internal/secret"
	"github.com/swapnode/swapd/internal/store"
	"github.com/swapnode/swapd/internal/swap"
)

func testPolicy() config.ExpiryPolicy {
	return config.ExpiryPolicy{
		BitcoinFinality:  30 * time.Minute,
		EthereumFinality: 2 * time.Minute,
		SafetyMargin:     2 * time.Hour,
	}
}

var testLog = btclog.NewBackend(io.Discard).Logger("TEST")

// idleSource never produces an event; enough for routes that only need a
// swap to exist, not to progress.
type idleSource struct{}

func (idleSource) LatestBlock(ctx context.Context) (chainwatch.Block, error) {
	return chainwatch.Block{Hash: "b0"}, nil
}
func (idleSource) BlockByHash(ctx context.Context, hash string) (chainwatch.Block, error) {
	return chainwatch.Block{Hash: hash}, nil
}
func (idleSource) EventsInBlock(ctx context.Context, b chainwatch.Block) ([]chainwatch.SwapEvent, error) {
	return nil, nil
}
func (idleSource) Tick() time.Duration { return time.Hour }

type fakeSources struct{}

func (fakeSources) SourcesFor(ctx context.Context, sw *swap.Swap) (chainwatch.Source, chainwatch.Source, error) {
	return idleSource{}, idleSource{}, nil
}

type noopHandler struct{}

func (noopHandler) Submit(ctx context.Context, swapID uuid.UUID, decision action.Decision) (bool, error) {
	return true, nil
}

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	st, err := store.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	coord := swap.NewCoordinator(st, secret.NewRegistry(), noopHandler{}, testLog)
	book := orderbook.NewBook()

	s := NewServer(coord, st, book, fakeSources{}, testPolicy(), "peer-under-test", []string{"127.0.0.1:9999"},
		prometheus.NewRegistry(), testLog)
	return s, st
}

func TestHandleInfo(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/info")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var info infoResource
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	require.Equal(t, "peer-under-test", info.ID)
	require.Equal(t, []string{"127.0.0.1:9999"}, info.ListenAddresses)
}

func TestCreateAndGetSwap(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	id := uuid.New()
	body := createSwapRequest{
		SwapRequest: swap.SwapRequest{
			ID:           id,
			Alpha:        swap.LedgerParams{Ledger: "bitcoin", AssetKind: "satoshis", Satoshis: 100_000, Expiry: 2_000_000_000, RedeemIdentity: hexN("11", 20), RefundIdentity: hexN("22", 20)},
			Beta:         swap.LedgerParams{Ledger: "ethereum", AssetKind: "ether", Quantity: "1000000000000000000", Expiry: 1_000_000_000, RedeemIdentity: hexN("33", 20), RefundIdentity: hexN("44", 20)},
			SecretHash:   hexN("ab", 32),
			HashFunction: "SHA-256",
			RolePeerID:   "counterparty-1",
		},
		Role: "alice",
	}
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/v1/swaps", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("Location"))

	getResp, err := http.Get(srv.URL + "/v1/swaps/" + id.String())
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	var res swapResource
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&res))
	require.Equal(t, id, res.ID)
	require.Equal(t, "alice", res.Role)
	require.Equal(t, "bitcoin", res.AlphaLedger)
	require.Equal(t, "ethereum", res.BetaLedger)
}

func TestCreateSwapRejectsBadRole(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	body := createSwapRequest{
		SwapRequest: swap.SwapRequest{
			ID:           uuid.New(),
			Alpha:        swap.LedgerParams{Ledger: "bitcoin", AssetKind: "satoshis"},
			Beta:         swap.LedgerParams{Ledger: "ethereum", AssetKind: "ether"},
			SecretHash:   hexN("ab", 32),
			HashFunction: "SHA-256",
		},
		Role: "eve",
	}
	payload, _ := json.Marshal(body)

	resp, err := http.Post(srv.URL+"/v1/swaps", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetSwapNotFound(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/swaps/" + uuid.New().String())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListOrdersEmpty(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/orders")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var orders []orderbook.Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&orders))
	require.Empty(t, orders)
}

func hexN(pair string, n int) string {
	b := make([]byte, 0, n)
	raw, _ := hex.DecodeString(pair)
	for i := 0; i < n; i++ {
		b = append(b, raw...)
	}
	return hex.EncodeToString(b)
}
