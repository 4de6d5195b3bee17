package registryhandler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/ruteri/identity-registry/api"
	"github.com/ruteri/identity-registry/interfaces"
)

// Handler serves read access to the identity registry.
type Handler struct {
	registry interfaces.IdentityRegistry
	address  common.Address
	log      *slog.Logger
}

// NewHandler creates a handler reading from registry. address is reported with
// the configuration so clients know where to send gas-less requests.
func NewHandler(registry interfaces.IdentityRegistry, address common.Address, log *slog.Logger) *Handler {
	return &Handler{
		registry: registry,
		address:  address,
		log:      log,
	}
}

// RegisterRoutes registers the following routes:
//   - GET /api/players/{identity}/primary-wallet
//   - GET /api/players/{identity}/secondary-wallets
//   - GET /api/players/{identity}/state/{author}?gateway=true
//   - POST /api/players/state/batch
//   - GET /api/wallets/{address}/player
//   - GET /api/config
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/players/{identity}/primary-wallet", h.HandlePrimaryWallet)
	r.Get("/api/players/{identity}/secondary-wallets", h.HandleSecondaryWallets)
	r.Get("/api/players/{identity}/state/{author}", h.HandleStateData)
	r.Post("/api/players/state/batch", h.HandleStateDataBatch)
	r.Get("/api/wallets/{address}/player", h.HandleWalletPlayer)
	r.Get("/api/config", h.HandleConfig)
}

// pathIdentity returns the decoded identity path parameter. The router matches
// on the raw path when the request carries escaped slashes, so the value is
// still escaped in that case.
func pathIdentity(r *http.Request) (string, error) {
	identity := r.PathValue("identity")
	if r.URL.RawPath == "" {
		return identity, nil
	}
	identity, err := url.PathUnescape(identity)
	if err != nil {
		return "", fmt.Errorf("%w: %w", api.ErrInvalidInput, err)
	}
	return identity, nil
}

// HandlePrimaryWallet returns the primary wallet of an identity.
// Unbound identities answer with the zero address.
func (h *Handler) HandlePrimaryWallet(w http.ResponseWriter, r *http.Request) {
	identity, err := pathIdentity(r)
	if err != nil {
		api.WriteError(w, h.log, err, nil)
		return
	}

	wallet, err := h.registry.PlayerPrimaryWallet(r.Context(), identity)
	if err != nil {
		api.WriteError(w, h.log, err, nil)
		return
	}

	api.WriteJSON(w, h.log, http.StatusOK, api.PrimaryWalletResponse{Identity: identity, Wallet: wallet})
}

// HandleSecondaryWallets returns the secondary wallets of an identity in insertion order.
func (h *Handler) HandleSecondaryWallets(w http.ResponseWriter, r *http.Request) {
	identity, err := pathIdentity(r)
	if err != nil {
		api.WriteError(w, h.log, err, nil)
		return
	}

	wallets, err := h.registry.PlayerSecondaryWallets(r.Context(), identity)
	if err != nil {
		api.WriteError(w, h.log, err, nil)
		return
	}
	if wallets == nil {
		wallets = []common.Address{}
	}

	api.WriteJSON(w, h.log, http.StatusOK, api.SecondaryWalletsResponse{Identity: identity, Wallets: wallets})
}

// HandleWalletPlayer returns the identity a wallet is bound to, empty if unbound.
func (h *Handler) HandleWalletPlayer(w http.ResponseWriter, r *http.Request) {
	wallet, err := api.ParseAddress(r.PathValue("address"))
	if err != nil {
		api.WriteError(w, h.log, err, nil)
		return
	}

	identity, err := h.registry.AssignedWalletPlayer(r.Context(), wallet)
	if err != nil {
		api.WriteError(w, h.log, err, nil)
		return
	}

	api.WriteJSON(w, h.log, http.StatusOK, api.WalletPlayerResponse{Wallet: wallet, Identity: identity})
}

// HandleStateData returns the content reference of a state record.
//
// Status codes:
//   - 200 OK: record found
//   - 400 Bad Request: invalid author address or gateway flag
//   - 404 Not Found: no record for the identity and author
func (h *Handler) HandleStateData(w http.ResponseWriter, r *http.Request) {
	identity, err := pathIdentity(r)
	if err != nil {
		api.WriteError(w, h.log, err, nil)
		return
	}
	author, err := api.ParseAddress(r.PathValue("author"))
	if err != nil {
		api.WriteError(w, h.log, err, nil)
		return
	}

	includeGateway := false
	if v := r.URL.Query().Get("gateway"); v != "" {
		includeGateway, err = strconv.ParseBool(v)
		if err != nil {
			api.WriteError(w, h.log, fmt.Errorf("%w: gateway=%q", api.ErrInvalidInput, v), nil)
			return
		}
	}

	reference, err := h.registry.PlayerStateData(r.Context(), identity, author, includeGateway)
	if err != nil {
		api.WriteError(w, h.log, err, nil)
		return
	}

	api.WriteJSON(w, h.log, http.StatusOK, api.StateDataResponse{Identity: identity, Author: author, Reference: reference})
}

// HandleStateDataBatch resolves the state records of several identities at once.
func (h *Handler) HandleStateDataBatch(w http.ResponseWriter, r *http.Request) {
	var body api.StateDataBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		api.WriteError(w, h.log, fmt.Errorf("%w: %w", api.ErrInvalidInput, err), nil)
		return
	}

	references, err := h.registry.PlayerStateDataBatch(r.Context(), body.Identities, body.Author, body.Gateway, body.AllowMissing)
	if err != nil {
		api.WriteError(w, h.log, err, nil)
		return
	}
	if references == nil {
		references = []string{}
	}

	api.WriteJSON(w, h.log, http.StatusOK, api.StateDataBatchResponse{References: references})
}

// HandleConfig returns the registry's admin configuration.
func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	config, err := h.registry.Config(r.Context())
	if err != nil {
		api.WriteError(w, h.log, err, nil)
		return
	}

	api.WriteJSON(w, h.log, http.StatusOK, api.NewConfigResponse(h.address, config))
}
