package relayhandler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/identity-registry/api"
	"github.com/ruteri/identity-registry/interfaces"
	"github.com/ruteri/identity-registry/metrics"
)

// Relay outcomes reported to metrics.
const (
	OutcomeRelayed  = "relayed"
	OutcomeReverted = "reverted"
	OutcomeRejected = "rejected"
)

// Handler exposes the meta-transaction forwarder over HTTP.
// Players sign forward requests locally and POST them here; the relaying
// account pays for execution and is compensated by the in-band token fee.
type Handler struct {
	relayer interfaces.MetaTxRelayer
	token   interfaces.FeeToken
	metrics *metrics.RelayMetrics
	log     *slog.Logger
}

// NewHandler creates a relay handler. metrics may be nil.
func NewHandler(relayer interfaces.MetaTxRelayer, token interfaces.FeeToken, relayMetrics *metrics.RelayMetrics, log *slog.Logger) *Handler {
	return &Handler{
		relayer: relayer,
		token:   token,
		metrics: relayMetrics,
		log:     log,
	}
}

// RegisterRoutes registers the following routes:
//   - POST /api/relay - Relay a signed forward request
//   - GET /api/forwarder/nonce/{address} - Next nonce expected from an address
//   - GET /api/forwarder/domain - EIP-712 domain requests must be signed under
//   - GET /api/relay/info - Relaying account and forwarder address
//   - GET /api/tokens/balance/{address} - Fee token balance of an account
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/relay", h.HandleRelay)
	r.Get("/api/forwarder/nonce/{address}", h.HandleNonce)
	r.Get("/api/forwarder/domain", h.HandleDomain)
	r.Get("/api/relay/info", h.HandleInfo)
	r.Get("/api/tokens/balance/{address}", h.HandleBalance)
}

// HandleRelay executes a signed forward request.
//
// Response: JSON-encoded api.RelayResponse
//
// Status codes:
//   - 200 OK: the forwarded call succeeded
//   - 400 Bad Request: malformed body, bad signature or nonce, or the forwarded call reverted
//   - 402 Payment Required: the relayer fee could not be settled
//   - 500 Internal Server Error: the relay could not be executed
func (h *Handler) HandleRelay(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body api.RelayRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.metrics.ObserveRelay(OutcomeRejected, 0, time.Since(start))
		api.WriteError(w, h.log, fmt.Errorf("%w: %w", api.ErrInvalidInput, err), nil)
		return
	}
	if len(body.Signature) == 0 {
		h.metrics.ObserveRelay(OutcomeRejected, 0, time.Since(start))
		api.WriteError(w, h.log, fmt.Errorf("%w: missing signature", api.ErrInvalidInput), nil)
		return
	}

	req := body.Request.Request()
	receipt, err := h.relayer.Relay(r.Context(), req, body.Signature)
	if err != nil {
		if receipt != nil {
			h.metrics.ObserveRelay(OutcomeReverted, receipt.GasUsed, time.Since(start))
			h.log.Info("Relayed request reverted",
				slog.String("from", req.From.Hex()),
				slog.String("to", req.To.Hex()),
				slog.String("tx", receipt.TxHash.Hex()),
				"err", err)
			api.WriteError(w, h.log, err, &receipt.TxHash)
			return
		}
		h.metrics.ObserveRelay(OutcomeRejected, 0, time.Since(start))
		api.WriteError(w, h.log, err, nil)
		return
	}

	h.metrics.ObserveRelay(OutcomeRelayed, receipt.GasUsed, time.Since(start))
	h.log.Info("Relayed request",
		slog.String("from", req.From.Hex()),
		slog.String("to", req.To.Hex()),
		slog.String("tx", receipt.TxHash.Hex()),
		slog.Uint64("gasUsed", receipt.GasUsed))

	api.WriteJSON(w, h.log, http.StatusOK, api.RelayResponse{
		TxHash:     receipt.TxHash,
		GasUsed:    receipt.GasUsed,
		ReturnData: receipt.ReturnData,
	})
}

// HandleNonce returns the next nonce the forwarder expects from an address.
func (h *Handler) HandleNonce(w http.ResponseWriter, r *http.Request) {
	address, err := api.ParseAddress(r.PathValue("address"))
	if err != nil {
		api.WriteError(w, h.log, err, nil)
		return
	}

	nonce, err := h.relayer.Nonce(r.Context(), address)
	if err != nil {
		api.WriteError(w, h.log, err, nil)
		return
	}

	api.WriteJSON(w, h.log, http.StatusOK, api.NonceResponse{Address: address, Nonce: nonce})
}

// HandleDomain returns the forwarder's EIP-712 domain.
func (h *Handler) HandleDomain(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, h.log, http.StatusOK, api.NewDomainResponse(h.relayer.Domain()))
}

// HandleInfo returns the relaying account, which gas-less requests pay their fee to.
func (h *Handler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, h.log, http.StatusOK, api.RelayInfoResponse{
		Relayer:   h.relayer.Relayer(),
		Forwarder: h.relayer.Domain().VerifyingContract,
	})
}

// HandleBalance returns the fee token balance of an account.
func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	address, err := api.ParseAddress(r.PathValue("address"))
	if err != nil {
		api.WriteError(w, h.log, err, nil)
		return
	}

	balance, err := h.token.BalanceOf(r.Context(), address)
	if err != nil {
		api.WriteError(w, h.log, err, nil)
		return
	}

	api.WriteJSON(w, h.log, http.StatusOK, api.BalanceResponse{Account: address, Balance: balance})
}
