package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/swapnode/swapd/internal/action"
	"github.com/swapnode/swapd/internal/store"
	"github.com/swapnode/swapd/internal/swap"
	"github.com/swapnode/swapd/internal/swaperrors"
)

// infoResource mirrors cnd's InfoResource (routes/index.rs), the
// node-identity document served at GET /v1/info.
type infoResource struct {
	ID             string   `json:"id"`
	ListenAddresses []string `json:"listen_addresses"`
}

// swapResource is what GET /v1/swaps and GET /v1/swaps/{id} return: a
// store.Swap enriched with the coordinator's live Status, per
// swaps.rs's make_swap_entity (which folds comm-state into the
// serialized entity rather than leaving the caller to infer it).
type swapResource struct {
	ID          uuid.UUID `json:"id"`
	Role        string    `json:"role"`
	AlphaLedger string    `json:"alpha_ledger"`
	BetaLedger  string    `json:"beta_ledger"`
	AlphaExpiry int64     `json:"alpha_expiry"`
	BetaExpiry  int64     `json:"beta_expiry"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// createSwapRequest is the POST /v1/swaps body, generalizing cnd's
// Body<A, B>{alpha, beta, peer, role} across the fixed alpha/beta pair
// spec.md defines instead of cnd's per-ledger-pair generic instantiation.
type createSwapRequest struct {
	swap.SwapRequest
	Role string `json:"role"` // "alice" or "bob"
}

func (s *Server) routes() {
	s.mux.HandleFunc("/v1/info", s.handleInfo)
	s.mux.HandleFunc("/v1/orders", s.handleOrders)
	s.mux.HandleFunc("/v1/swaps", s.handleSwaps)
	s.mux.HandleFunc("/v1/swaps/", s.handleSwapByID)
	s.mux.Handle("/metrics", s.metricsHandler())
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, infoResource{
		ID:              s.PeerID,
		ListenAddresses: s.ListenAddrs,
	})
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.Book.List())
	case http.MethodPost:
		// orders cannot be created over HTTP: POST answers 501 and this
		// route only lists what orderbook.Book holds, per spec.md's
		// Non-goal on order matching/pricing logic living in this package.
		http.Error(w, "not implemented", http.StatusNotImplemented)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSwaps serves GET /v1/swaps (list pending) and POST /v1/swaps (propose).
func (s *Server) handleSwaps(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listSwaps(w, r)
	case http.MethodPost:
		s.createSwap(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) listSwaps(w http.ResponseWriter, r *http.Request) {
	pending, err := s.Store.ListPending(r.Context())
	if err != nil {
		writeProblem(w, err)
		return
	}

	out := make([]swapResource, 0, len(pending))
	for _, sw := range pending {
		out = append(out, resourceFromStore(sw))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createSwap(w http.ResponseWriter, r *http.Request) {
	var body createSwapRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "malformed body: "+err.Error(), http.StatusBadRequest)
		return
	}

	secretHash, err := swap.ValidateSwapRequest(body.SwapRequest)
	if err != nil {
		writeProblem(w, err)
		return
	}

	if err := swap.ValidateExpiries(s.ExpiryPolicy, body.Alpha.Expiry, body.Beta.Expiry); err != nil {
		writeProblem(w, err)
		return
	}

	var role action.Role
	switch strings.ToLower(body.Role) {
	case "alice":
		role = action.RoleAlice
	case "bob":
		role = action.RoleBob
	default:
		http.Error(w, "role must be \"alice\" or \"bob\"", http.StatusBadRequest)
		return
	}

	alphaRedeem, err := identityOrZero(body.Alpha.RedeemIdentity)
	if err != nil {
		writeProblem(w, err)
		return
	}
	alphaRefund, err := identityOrZero(body.Alpha.RefundIdentity)
	if err != nil {
		writeProblem(w, err)
		return
	}
	betaRedeem, err := identityOrZero(body.Beta.RedeemIdentity)
	if err != nil {
		writeProblem(w, err)
		return
	}
	betaRefund, err := identityOrZero(body.Beta.RefundIdentity)
	if err != nil {
		writeProblem(w, err)
		return
	}

	alphaParams, err := swap.ParamsFromWire(body.Alpha, secretHash, alphaRedeem, alphaRefund)
	if err != nil {
		writeProblem(w, err)
		return
	}
	betaParams, err := swap.ParamsFromWire(body.Beta, secretHash, betaRedeem, betaRefund)
	if err != nil {
		writeProblem(w, err)
		return
	}

	sw := &swap.Swap{
		ID:             body.ID,
		Role:           role,
		AlphaParams:    alphaParams,
		BetaParams:     betaParams,
		AlphaExpiry:    body.Alpha.Expiry,
		BetaExpiry:     body.Beta.Expiry,
		Communication:  swap.CommunicationProposed,
		SecretHash:     secretHash,
		StartOfSwap:    time.Now(),
	}

	if s.Sources == nil {
		writeProblem(w, swaperrors.New(swaperrors.Internal, "no chain source factory configured"))
		return
	}
	alphaSrc, betaSrc, err := s.Sources.SourcesFor(r.Context(), sw)
	if err != nil {
		writeProblem(w, err)
		return
	}

	// the swap outlives this request: StartSwap spawns a goroutine that
	// must keep running after the response is written, so it gets a
	// context rooted independently of r.Context() rather than one that
	// is cancelled the moment this handler returns.
	if err := s.Coordinator.StartSwap(context.Background(), sw, alphaSrc, betaSrc); err != nil {
		writeProblem(w, err)
		return
	}

	s.swapsTotal.Inc()
	w.Header().Set("Location", "/v1/swaps/"+sw.ID.String())
	writeJSON(w, http.StatusCreated, resourceFromSwap(*sw, swap.StatusPending))
}

// handleSwapByID dispatches /v1/swaps/{id} and /v1/swaps/{id}/decline.
func (s *Server) handleSwapByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/swaps/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}

	id, err := uuid.Parse(parts[0])
	if err != nil {
		http.Error(w, "invalid swap id", http.StatusBadRequest)
		return
	}

	switch {
	case len(parts) == 1:
		s.getSwap(w, r, id)
	case len(parts) == 2 && parts[1] == "decline" && r.Method == http.MethodPost:
		s.declineSwap(w, r, id)
	case len(parts) == 2 && parts[1] == "events" && r.Method == http.MethodGet:
		s.streamEvents(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) getSwap(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	record, err := s.Store.GetSwap(r.Context(), id)
	if err != nil {
		if err == store.ErrNotFound {
			http.NotFound(w, r)
			return
		}
		writeProblem(w, err)
		return
	}

	status, err := s.Coordinator.Status(r.Context(), id)
	if err != nil {
		// the swap's handle has already exited (it reached a terminal
		// status and was reaped); fall back to the persisted status.
		writeJSON(w, http.StatusOK, resourceFromStore(record))
		return
	}
	res := resourceFromStore(record)
	res.Status = status.String()
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) declineSwap(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := s.Coordinator.Decline(r.Context(), id); err != nil {
		writeProblem(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// streamEvents upgrades to a websocket and pushes the swap's status
// whenever it changes, closing the connection once the swap reaches a
// terminal status, per spec.md §4.2's swap-lifecycle termination.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("websocket upgrade failed for swap %s: %v", id, err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var last swap.Status
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			status, err := s.Coordinator.Status(r.Context(), id)
			if err != nil {
				_ = conn.WriteJSON(map[string]string{"error": err.Error()})
				return
			}
			if status == last {
				continue
			}
			last = status
			if writeErr := conn.WriteJSON(map[string]string{"status": status.String()}); writeErr != nil {
				return
			}
			if status != swap.StatusPending {
				return
			}
		}
	}
}

// identityOrZero decodes a hex identity, treating the empty string as the
// zero value: SwapRequest's LedgerParams carries RedeemIdentity/
// RefundIdentity only once an Accept has supplied them (wire.go's doc
// comment on SwapRequest), so a fresh proposal legitimately omits them.
func identityOrZero(hexIdentity string) ([20]byte, error) {
	if hexIdentity == "" {
		return [20]byte{}, nil
	}
	return swap.IdentityFromHex(hexIdentity)
}

func roleString(r action.Role) string {
	if r == action.RoleAlice {
		return "alice"
	}
	return "bob"
}

func resourceFromSwap(sw swap.Swap, status swap.Status) swapResource {
	return swapResource{
		ID:          sw.ID,
		Role:        roleString(sw.Role),
		AlphaLedger: sw.AlphaParams.Ledger.String(),
		BetaLedger:  sw.BetaParams.Ledger.String(),
		AlphaExpiry: sw.AlphaExpiry,
		BetaExpiry:  sw.BetaExpiry,
		Status:      status.String(),
		CreatedAt:   sw.StartOfSwap,
	}
}

func resourceFromStore(sw store.Swap) swapResource {
	return swapResource{
		ID:          sw.ID,
		Role:        sw.Role,
		AlphaLedger: sw.AlphaLedger,
		BetaLedger:  sw.BetaLedger,
		AlphaExpiry: sw.AlphaExpiry,
		BetaExpiry:  sw.BetaExpiry,
		Status:      sw.Status,
		CreatedAt:   sw.CreatedAt,
	}
}
