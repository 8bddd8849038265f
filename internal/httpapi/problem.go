// Package httpapi is the REST facade over the swap coordinator (C5),
// grounded on cnd's http_api: routes/index.rs's /info and swap-creation
// routes, swaps.rs's GET /swaps and GET /swaps/:id, and problem.rs's
// translation of internal errors into RFC 7807 problem-details bodies.
// lnd generates this surface from protobuf via grpc-gateway
// (lnd.go's proxy.NewServeMux + lnrpc.RegisterLightningHandlerFromEndpoint);
// swapd has no .proto/protoc pipeline in this exercise (DESIGN.md notes the
// dropped grpc-gateway/go-grpc-middleware dependencies), so routes.go wires
// net/http directly instead of generated handlers, keeping the same
// problem-details error-boundary contract lnd's RPC layer applies.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/swapnode/swapd/internal/swaperrors"
)

// problemDetails is an RFC 7807 application/problem+json body, matching
// cnd's http_api_problem usage at the same error boundary.
type problemDetails struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// statusForKind maps spec.md §7's error kinds to HTTP status codes, per
// the propagation policy in spec.md §4.5/§7: protocol and counterparty
// errors are the caller's fault (4xx), chain and internal errors are the
// server's (5xx).
func statusForKind(k swaperrors.Kind) int {
	switch k {
	case swaperrors.Protocol, swaperrors.Counterparty:
		return http.StatusBadRequest
	case swaperrors.Execution:
		return http.StatusConflict
	case swaperrors.Funding:
		return http.StatusUnprocessableEntity
	case swaperrors.Chain, swaperrors.Internal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// writeProblem renders err as a problem-details response, unwrapping a
// *swaperrors.Error to classify it and falling back to 500 for anything
// else (an error escaping without a Kind is itself a bug, per spec.md §7's
// "coordinator bugs" internal-error class).
func writeProblem(w http.ResponseWriter, err error) {
	kind := swaperrors.Internal
	var se *swaperrors.Error
	if as, ok := err.(*swaperrors.Error); ok {
		se = as
		kind = se.Kind
	}

	status := statusForKind(kind)
	body := problemDetails{
		Type:   "https://swapd/errors/" + kind.String(),
		Title:  kind.String(),
		Status: status,
		Detail: err.Error(),
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
